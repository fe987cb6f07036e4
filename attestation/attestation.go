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

package attestation

import (
	"encoding/json"
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
	AttestationAddedEventType event.EventType = "attestation.attestation_added"
)

const (
	// MaxCommentLen bounds the free-form attestation comment
	MaxCommentLen = 256

	// DefaultAttestationCap bounds each product's attestation sequence
	// unless the host configures otherwise
	DefaultAttestationCap = 50
)

type AttestationAddedEvent struct {
	Verifier  string
	Status    bool
	ProductID uint64
	Block     uint64
	Seq       uint32
}

// ClaimSource is the slice of the claim store the attestation store depends
// on. Attestations are gated on the claim, not the product, so a product
// burned after claiming remains attestable.
type ClaimSource interface {
	ClaimByProduct(
		txn *database.Txn,
		productId uint64,
	) (*models.OriginClaim, error)
}

type StoreConfig struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	EventBus       *event.EventBus
	DB             *database.Database
	Claims         ClaimSource
	AttestationCap int
}

// Store records third-party verdicts over a product's origin claim. Any
// principal may attest; the aggregate verdict is the conjunction of every
// recorded status.
type Store struct {
	config  StoreConfig
	metrics struct {
		attestationsAdded prometheus.Counter
	}
	db             *database.Database
	logger         *slog.Logger
	eventBus       *event.EventBus
	claims         ClaimSource
	attestationCap int
}

func NewStore(config StoreConfig) *Store {
	s := &Store{
		config:         config,
		db:             config.DB,
		eventBus:       config.EventBus,
		claims:         config.Claims,
		attestationCap: config.AttestationCap,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		s.logger = config.Logger
	}
	if s.attestationCap <= 0 {
		s.attestationCap = DefaultAttestationCap
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	s.metrics.attestationsAdded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "attestation_records_total",
			Help: "total attestations recorded",
		},
	)
	return s
}

type attestDetail struct {
	Status bool   `json:"status"`
	Seq    uint32 `json:"seq"`
}

// Attest records the caller's verdict over a product's origin claim at the
// next dense sequence number. There is no ownership gate: any principal may
// attest, and repeat attestors simply append further records.
func (s *Store) Attest(
	ctx chain.OpContext,
	productId uint64,
	status bool,
	comment string,
) error {
	txn := s.db.Transaction(true)
	defer txn.Release()
	claim, err := s.claims.ClaimByProduct(txn, productId)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if claim == nil {
		return chain.ErrInvalidClaim
	}
	if len(comment) > MaxCommentLen {
		return chain.ErrInvalidParameter
	}
	count, err := s.db.GetAttestationCount(productId, txn)
	if err != nil {
		return fmt.Errorf("count attestations: %w", err)
	}
	if count >= int64(s.attestationCap) {
		return chain.ErrCapacityExceeded
	}
	seq := uint32(count) // #nosec G115: bounded by attestationCap above
	if err := s.db.AddAttestation(&models.Attestation{
		ProductID: productId,
		Seq:       seq,
		Verifier:  ctx.Caller.String(),
		Status:    status,
		Comment:   comment,
		Timestamp: ctx.Block,
	}, txn); err != nil {
		return err
	}
	if err := s.audit(txn, ctx, productId, attestDetail{
		Status: status,
		Seq:    seq,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.metrics.attestationsAdded.Inc()
	s.logger.Info(
		"recorded attestation",
		"component", "attestation",
		"product_id", productId,
		"seq", seq,
		"verifier", ctx.Caller.String(),
		"status", status,
	)
	s.eventBus.Publish(
		event.NewEvent(
			AttestationAddedEventType,
			AttestationAddedEvent{
				ProductID: productId,
				Seq:       seq,
				Verifier:  ctx.Caller.String(),
				Status:    status,
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// audit appends the attestation store's entry to the audit log inside the
// operation's transaction
func (s *Store) audit(
	txn *database.Txn,
	ctx chain.OpContext,
	productId uint64,
	detail attestDetail,
) error {
	detailJson, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	if _, err := s.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "attestation",
		Operation: "attest",
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// IsVerified reports the conjunction of every recorded status for a product.
// A product with no attestations is vacuously verified, and a single
// negative verdict is permanent since records are never removed.
func (s *Store) IsVerified(productId uint64) (bool, error) {
	attestations, err := s.db.GetAttestations(productId, nil)
	if err != nil {
		return false, err
	}
	for _, attestation := range attestations {
		if !attestation.Status {
			return false, nil
		}
	}
	return true, nil
}

// Attestations returns the full attestation sequence for a product in
// sequence order. Reads are total: unknown products report an empty
// sequence.
func (s *Store) Attestations(productId uint64) ([]models.Attestation, error) {
	return s.db.GetAttestations(productId, nil)
}

// AttestationCap returns the configured per-product sequence bound
func (s *Store) AttestationCap() int {
	return s.attestationCap
}
