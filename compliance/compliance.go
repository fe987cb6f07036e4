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

package compliance

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
	SnapshotUpdatedEventType event.EventType = "compliance.snapshot_updated"
)

// MaxTariffCodeLen bounds the tariff code label
const MaxTariffCodeLen = 64

type SnapshotUpdatedEvent struct {
	Oracle     string
	TariffCode string
	ProductID  uint64
	Block      uint64
}

// ProductSource is the slice of the registry the compliance feed depends on
type ProductSource interface {
	ProductByID(txn *database.Txn, productId uint64) (*models.Product, error)
}

// PolicyFunc evaluates a stored snapshot during a compliance check. The
// default policy passes everything; hosts plug in real restriction parsing
// without touching the check's signature or failure modes.
type PolicyFunc func(snapshot *models.ComplianceSnapshot) bool

func defaultPolicy(snapshot *models.ComplianceSnapshot) bool {
	return true
}

type FeedConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Products     ProductSource
	Policy       PolicyFunc
}

// Feed holds the per-product customs snapshot written by the designated
// oracle identity. Snapshots carry no history: each oracle update replaces
// the previous snapshot wholesale.
type Feed struct {
	config  FeedConfig
	metrics struct {
		snapshotUpdates prometheus.Counter
		checks          *prometheus.CounterVec // result
	}
	db       *database.Database
	logger   *slog.Logger
	eventBus *event.EventBus
	products ProductSource
	policy   PolicyFunc
}

func NewFeed(config FeedConfig) *Feed {
	f := &Feed{
		config:   config,
		db:       config.DB,
		eventBus: config.EventBus,
		products: config.Products,
		policy:   config.Policy,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		f.logger = config.Logger
	}
	if f.policy == nil {
		f.policy = defaultPolicy
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	f.metrics.snapshotUpdates = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "compliance_snapshot_updates_total",
			Help: "total oracle snapshot updates",
		},
	)
	f.metrics.checks = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_checks_total",
			Help: "total compliance checks by result",
		},
		[]string{"result"},
	)
	return f
}

type snapshotDetail struct {
	TariffCode string `json:"tariffCode"`
}

// audit appends the compliance feed's entry to the audit log inside the
// operation's transaction
func (f *Feed) audit(
	txn *database.Txn,
	ctx chain.OpContext,
	productId uint64,
	detail snapshotDetail,
) error {
	detailJson, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	if _, err := f.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "compliance",
		Operation: "update_snapshot",
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// UpdateSnapshot replaces a product's compliance snapshot. Only the
// designated oracle may write, and the oracle gate runs before the existence
// check so a non-oracle caller learns nothing about the product space.
func (f *Feed) UpdateSnapshot(
	ctx chain.OpContext,
	productId uint64,
	tariffCode string,
	restrictions string,
	sourceFingerprint []byte,
) error {
	txn := f.db.Transaction(true)
	defer txn.Release()
	chainParams, err := f.db.GetChainParams(txn)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	oracle := chain.Principal(chainParams.Oracle)
	if !oracle.Valid() || oracle != ctx.Caller {
		return chain.ErrUnauthorized
	}
	product, err := f.products.ProductByID(txn, productId)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return chain.ErrInvalidProduct
	}
	if tariffCode == "" || len(tariffCode) > MaxTariffCodeLen {
		return chain.ErrInvalidParameter
	}
	if !chain.ValidFingerprint(sourceFingerprint) {
		return chain.FingerprintError{Length: len(sourceFingerprint)}
	}
	if err := f.db.SetComplianceSnapshot(&models.ComplianceSnapshot{
		ProductID:         productId,
		TariffCode:        tariffCode,
		Restrictions:      restrictions,
		SourceFingerprint: sourceFingerprint,
		UpdatedAt:         ctx.Block,
	}, txn); err != nil {
		return err
	}
	if err := f.audit(txn, ctx, productId, snapshotDetail{
		TariffCode: tariffCode,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	f.metrics.snapshotUpdates.Inc()
	f.logger.Info(
		"updated compliance snapshot",
		"component", "compliance",
		"product_id", productId,
		"tariff_code", tariffCode,
	)
	f.eventBus.Publish(
		event.NewEvent(
			SnapshotUpdatedEventType,
			SnapshotUpdatedEvent{
				ProductID:  productId,
				TariffCode: tariffCode,
				Oracle:     ctx.Caller.String(),
				Block:      ctx.Block,
			},
		),
	)
	return nil
}

// CheckCompliance evaluates the configured policy over a product's stored
// snapshot. A product without a snapshot passes by default; an unknown
// product is an error rather than a verdict.
func (f *Feed) CheckCompliance(productId uint64) (bool, error) {
	txn := f.db.Transaction(false)
	defer txn.Release()
	product, err := f.products.ProductByID(txn, productId)
	if err != nil {
		return false, fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return false, chain.ErrInvalidProduct
	}
	snapshot, err := f.db.GetComplianceSnapshot(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrSnapshotNotFound) {
			f.metrics.checks.WithLabelValues("pass").Inc()
			return true, nil
		}
		return false, err
	}
	ok := f.policy(snapshot)
	if ok {
		f.metrics.checks.WithLabelValues("pass").Inc()
	} else {
		f.metrics.checks.WithLabelValues("fail").Inc()
	}
	return ok, nil
}

// Snapshot returns the compliance snapshot on file for a product
func (f *Feed) Snapshot(productId uint64) (*models.ComplianceSnapshot, error) {
	snapshot, err := f.db.GetComplianceSnapshot(productId, nil)
	if err != nil {
		if errors.Is(err, models.ErrSnapshotNotFound) {
			return nil, chain.ErrNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// ApplyOracleRotation writes the designated-oracle slot inside the caller's
// transaction. Governance delegates here during its rotation operation so
// the slot change commits together with the governance audit entry.
func (f *Feed) ApplyOracleRotation(
	txn *database.Txn,
	newOracle chain.Principal,
) error {
	chainParams, err := f.db.GetChainParams(txn)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	chainParams.Oracle = newOracle.String()
	if err := f.db.SetChainParams(chainParams, txn); err != nil {
		return err
	}
	return nil
}

// Oracle returns the currently designated oracle identity, which is empty
// until governance designates one
func (f *Feed) Oracle() (chain.Principal, error) {
	chainParams, err := f.db.GetChainParams(nil)
	if err != nil {
		return "", fmt.Errorf("load params: %w", err)
	}
	return chain.Principal(chainParams.Oracle), nil
}
