// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/paddock/chain"
	"github.com/blinklabs-io/paddock/database"
	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ClaimCreatedEventType    event.EventType = "claims.claim_created"
	EvidenceUpdatedEventType event.EventType = "claims.evidence_updated"
)

// MaxClaimTypeLen bounds the free-form claim type label
const MaxClaimTypeLen = 64

type ClaimCreatedEvent struct {
	Issuer    string
	ClaimType string
	ProductID uint64
	Block     uint64
}

type EvidenceUpdatedEvent struct {
	Issuer    string
	ProductID uint64
	Block     uint64
}

// ProductSource is the slice of the registry the claim store depends on. The
// provider returns (nil, nil) for unknown products so the store can map
// absence to its own error surface.
type ProductSource interface {
	ProductByID(txn *database.Txn, productId uint64) (*models.Product, error)
}

type StoreConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Products     ProductSource
}

// Store holds the single origin claim each product may carry. Claims are
// issued by the product's manufacturer and outlive the product itself, so
// attestations against retired ids keep their subject.
type Store struct {
	config  StoreConfig
	metrics struct {
		claimsCreated   prometheus.Counter
		evidenceUpdates prometheus.Counter
	}
	db       *database.Database
	logger   *slog.Logger
	eventBus *event.EventBus
	products ProductSource
}

func NewStore(config StoreConfig) *Store {
	s := &Store{
		config:   config,
		db:       config.DB,
		eventBus: config.EventBus,
		products: config.Products,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		s.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	s.metrics.claimsCreated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "claims_created_total",
			Help: "total origin claims created",
		},
	)
	s.metrics.evidenceUpdates = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "claims_evidence_updates_total",
			Help: "total evidence hash replacements",
		},
	)
	return s
}

type createDetail struct {
	ClaimType string `json:"claimType"`
}

// audit appends the claim store's entry to the audit log inside the
// operation's transaction
func (s *Store) audit(
	txn *database.Txn,
	ctx chain.OpContext,
	operation string,
	productId uint64,
	detail any,
) error {
	var detailJson json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detailJson = b
	}
	if _, err := s.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "claims",
		Operation: operation,
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// Create files the origin claim for a product. Only the manufacturer may
// claim, and each product carries at most one claim for its lifetime.
func (s *Store) Create(
	ctx chain.OpContext,
	productId uint64,
	claimType string,
	evidenceHash []byte,
) error {
	txn := s.db.Transaction(true)
	defer txn.Release()
	product, err := s.products.ProductByID(txn, productId)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return chain.ErrInvalidProduct
	}
	if product.Manufacturer != ctx.Caller.String() {
		return chain.ErrUnauthorized
	}
	if claimType == "" || len(claimType) > MaxClaimTypeLen {
		return chain.ErrInvalidParameter
	}
	if !chain.ValidFingerprint(evidenceHash) {
		return chain.FingerprintError{Length: len(evidenceHash)}
	}
	if _, err := s.db.GetClaim(productId, txn); err == nil {
		return chain.ErrAlreadyExists
	} else if !errors.Is(err, models.ErrClaimNotFound) {
		return err
	}
	if err := s.db.AddClaim(&models.OriginClaim{
		ProductID:    productId,
		ClaimType:    claimType,
		EvidenceHash: evidenceHash,
		Issuer:       ctx.Caller.String(),
		Timestamp:    ctx.Block,
	}, txn); err != nil {
		return err
	}
	if err := s.audit(txn, ctx, "create_claim", productId, createDetail{
		ClaimType: claimType,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.metrics.claimsCreated.Inc()
	s.logger.Info(
		"created origin claim",
		"component", "claims",
		"product_id", productId,
		"claim_type", claimType,
		"issuer", ctx.Caller.String(),
	)
	s.eventBus.Publish(
		event.NewEvent(
			ClaimCreatedEventType,
			ClaimCreatedEvent{
				ProductID: productId,
				ClaimType: claimType,
				Issuer:    ctx.Caller.String(),
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// UpdateEvidence replaces the evidence hash on an existing claim. The claim
// itself is the addressed entity, so a product without one reports
// ErrInvalidProduct. Only the original issuer may update.
func (s *Store) UpdateEvidence(
	ctx chain.OpContext,
	productId uint64,
	newHash []byte,
) error {
	txn := s.db.Transaction(true)
	defer txn.Release()
	claim, err := s.db.GetClaim(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return chain.ErrInvalidProduct
		}
		return err
	}
	if claim.Issuer != ctx.Caller.String() {
		return chain.ErrUnauthorized
	}
	if !chain.ValidFingerprint(newHash) {
		return chain.FingerprintError{Length: len(newHash)}
	}
	if err := s.db.SetClaimEvidence(productId, newHash, txn); err != nil {
		return err
	}
	if err := s.audit(txn, ctx, "update_evidence", productId, nil); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.metrics.evidenceUpdates.Inc()
	s.logger.Info(
		"updated claim evidence",
		"component", "claims",
		"product_id", productId,
		"issuer", ctx.Caller.String(),
	)
	s.eventBus.Publish(
		event.NewEvent(
			EvidenceUpdatedEventType,
			EvidenceUpdatedEvent{
				ProductID: productId,
				Issuer:    ctx.Caller.String(),
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// Claim returns the origin claim on file for a product
func (s *Store) Claim(productId uint64) (*models.OriginClaim, error) {
	claim, err := s.db.GetClaim(productId, nil)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return nil, chain.ErrNotFound
		}
		return nil, err
	}
	return claim, nil
}

// ClaimByProduct returns the claim row inside the caller's transaction. It
// backs the attestation store's gate. Returns (nil, nil) when no claim is on
// file.
func (s *Store) ClaimByProduct(
	txn *database.Txn,
	productId uint64,
) (*models.OriginClaim, error) {
	claim, err := s.db.GetClaim(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return claim, nil
}
