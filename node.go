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

package paddock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/paddock/attestation"
	"github.com/blinklabs-io/paddock/chain"
	"github.com/blinklabs-io/paddock/claims"
	"github.com/blinklabs-io/paddock/compliance"
	"github.com/blinklabs-io/paddock/custody"
	"github.com/blinklabs-io/paddock/database"
	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/event"
	"github.com/blinklabs-io/paddock/governance"
	"github.com/blinklabs-io/paddock/registry"
)

// Node composes the registry database, event bus, logical clock, and the six
// registry components into one process. It owns startup (including genesis
// params bootstrap) and phased shutdown; everything else is reached through
// the component accessors.
type Node struct {
	config        Config
	db            *database.Database
	eventBus      *event.EventBus
	clock         chain.Clock
	tickClock     *chain.TickClock
	registry      *registry.Registry
	claims        *claims.Store
	custody       *custody.Ledger
	attestation   *attestation.Store
	compliance    *compliance.Feed
	governance    *governance.Controller
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	ready         chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// bootstrapParams seeds the genesis params row on first start. An existing
// row wins over the configured genesis values, since post-genesis changes
// only happen through governance operations
func (n *Node) bootstrapParams() error {
	_, err := n.db.GetChainParams(nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrChainParamsNotFound) {
		return fmt.Errorf("load params: %w", err)
	}
	if err := n.db.SetChainParams(&models.ChainParams{
		ID:            models.ChainParamsRowId,
		NextProductID: 1,
		MaxProducts:   n.config.maxProducts,
		MintFee:       n.config.mintFee,
		Admin:         n.config.admin.String(),
		Oracle:        n.config.oracle.String(),
	}, nil); err != nil {
		return fmt.Errorf("seed genesis params: %w", err)
	}
	n.config.logger.Info(
		"seeded genesis params",
		"component", "node",
		"admin", n.config.admin.String(),
		"oracle", n.config.oracle.String(),
		"max_products", n.config.maxProducts,
		"mint_fee", n.config.mintFee,
	)
	return nil
}

func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
	})
	if db == nil {
		n.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			// The stores disagree about the last commit, so some operation
			// was torn across them. There is no replay source to rebuild
			// from; refuse to run on inconsistent state.
			n.config.logger.Error(
				"database stores are inconsistent",
				"error", err,
			)
		}
		closeErr := db.Close()
		return errors.Join(
			fmt.Errorf("failed to open database: %w", err),
			closeErr,
		)
	}
	// Seed genesis params if this is a fresh database
	if err := n.bootstrapParams(); err != nil {
		return err
	}
	// Start logical clock
	if n.config.clock != nil {
		n.clock = n.config.clock
	} else {
		genesis := n.config.genesisTime
		if genesis.IsZero() {
			genesis = time.Now()
		}
		n.tickClock = chain.NewTickClock(
			n.config.logger,
			genesis,
			n.config.blockInterval,
		)
		n.tickClock.Start(ctx)
		n.clock = n.tickClock
	}
	// Load components, leaves first
	n.registry = registry.NewRegistry(registry.RegistryConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		DB:           n.db,
		TransferFee:  n.config.feeTransfer,
	})
	n.claims = claims.NewStore(claims.StoreConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		DB:           n.db,
		Products:     n.registry,
	})
	n.custody = custody.NewLedger(custody.LedgerConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		DB:           n.db,
		Products:     n.registry,
		EventCap:     n.config.custodyCap,
	})
	n.attestation = attestation.NewStore(attestation.StoreConfig{
		Logger:         n.config.logger,
		EventBus:       n.eventBus,
		PromRegistry:   n.config.promRegistry,
		DB:             n.db,
		Claims:         n.claims,
		AttestationCap: n.config.attestationCap,
	})
	n.compliance = compliance.NewFeed(compliance.FeedConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		DB:           n.db,
		Products:     n.registry,
	})
	n.governance = governance.NewController(governance.ControllerConfig{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		DB:           n.db,
		Compliance:   n.compliance,
	})
	n.config.logger.Info(
		"registry node started",
		"component", "node",
		"data_dir", n.config.dataDir,
		"block", n.clock.Block(),
	)
	close(n.ready)

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		return n.Stop()
	case <-n.done:
		return nil
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop stamping new operations
	n.config.logger.Debug("shutdown phase 1: stopping clock")

	if n.tickClock != nil {
		n.tickClock.Stop()
	}

	// Phase 2: Drain event delivery
	n.config.logger.Debug("shutdown phase 2: stopping event bus")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Cleanup resources and close database
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}

// Ready returns a channel that closes once Run has finished startup and the
// component accessors are safe to use
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// OpContext mints an operation context for the given caller stamped at the
// current logical block
func (n *Node) OpContext(caller chain.Principal) chain.OpContext {
	return chain.NewOpContext(caller, n.clock.Block())
}

// Block returns the current logical block
func (n *Node) Block() uint64 {
	return n.clock.Block()
}

// Database returns the underlying database instance
func (n *Node) Database() *database.Database {
	return n.db
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Registry returns the product identity registry
func (n *Node) Registry() *registry.Registry {
	return n.registry
}

// Claims returns the origin claim store
func (n *Node) Claims() *claims.Store {
	return n.claims
}

// Custody returns the custody event ledger
func (n *Node) Custody() *custody.Ledger {
	return n.custody
}

// Attestation returns the attestation store
func (n *Node) Attestation() *attestation.Store {
	return n.attestation
}

// Compliance returns the compliance feed
func (n *Node) Compliance() *compliance.Feed {
	return n.compliance
}

// Governance returns the governance controller
func (n *Node) Governance() *governance.Controller {
	return n.governance
}

// ProvenanceTrace is the full cross-component view of one product id.
// Product is nil once the id has been burned; the append-only records
// survive and still appear here.
type ProvenanceTrace struct {
	ProductID    uint64
	Product      *models.Product
	History      []models.OwnershipRecord
	Claim        *models.OriginClaim
	Custody      []models.CustodyEvent
	Attestations []models.Attestation
	Verified     bool
	Snapshot     *models.ComplianceSnapshot
	Disputes     []models.Dispute
}

// Trace aggregates everything the registry knows about a product id into a
// single provenance view. Absent records come back nil/empty rather than as
// errors, so the trace is total over any id
func (n *Node) Trace(productId uint64) (*ProvenanceTrace, error) {
	trace := &ProvenanceTrace{
		ProductID: productId,
	}
	product, err := n.registry.Product(productId)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return nil, fmt.Errorf("trace product: %w", err)
	}
	trace.Product = product
	history, err := n.registry.OwnershipHistory(productId, 0, ^uint64(0))
	if err != nil {
		return nil, fmt.Errorf("trace ownership history: %w", err)
	}
	trace.History = history
	claim, err := n.claims.Claim(productId)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return nil, fmt.Errorf("trace claim: %w", err)
	}
	trace.Claim = claim
	events, err := n.custody.Events(productId)
	if err != nil {
		return nil, fmt.Errorf("trace custody events: %w", err)
	}
	trace.Custody = events
	attestations, err := n.attestation.Attestations(productId)
	if err != nil {
		return nil, fmt.Errorf("trace attestations: %w", err)
	}
	trace.Attestations = attestations
	verified, err := n.attestation.IsVerified(productId)
	if err != nil {
		return nil, fmt.Errorf("trace verification status: %w", err)
	}
	trace.Verified = verified
	snapshot, err := n.compliance.Snapshot(productId)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return nil, fmt.Errorf("trace compliance snapshot: %w", err)
	}
	trace.Snapshot = snapshot
	disputes, err := n.governance.Disputes(productId)
	if err != nil {
		return nil, fmt.Errorf("trace disputes: %w", err)
	}
	trace.Disputes = disputes
	return trace, nil
}

// AuditTrail reads up to count audit envelopes starting at fromId in record
// order. Entries whose payload has been garbage collected are skipped
func (n *Node) AuditTrail(
	fromId uint64,
	count int,
) ([]database.AuditEvent, error) {
	iter := n.db.AuditLogFrom(fromId)
	defer iter.Close()
	ret := []database.AuditEvent{}
	for count <= 0 || len(ret) < count {
		entry, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("audit trail: %w", err)
		}
		if entry == nil {
			break
		}
		ret = append(ret, *entry)
	}
	return ret, nil
}
