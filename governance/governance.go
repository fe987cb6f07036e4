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

package governance

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
	OracleRotatedEventType   event.EventType = "governance.oracle_rotated"
	DisputeFlaggedEventType  event.EventType = "governance.dispute_flagged"
	DisputeResolvedEventType event.EventType = "governance.dispute_resolved"
)

// MaxReasonLen bounds the free-form dispute reason
const MaxReasonLen = 256

type OracleRotatedEvent struct {
	NewOracle string
	Block     uint64
}

type DisputeFlaggedEvent struct {
	RaisedBy  string
	DisputeID uint64
	ProductID uint64
	Block     uint64
}

type DisputeResolvedEvent struct {
	Resolved  bool
	DisputeID uint64
	Block     uint64
}

// OracleRotator is the slice of the compliance feed governance depends on.
// Rotation happens inside governance's transaction so the slot change and
// the governance audit entry commit together.
type OracleRotator interface {
	ApplyOracleRotation(txn *database.Txn, newOracle chain.Principal) error
}

type ControllerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Compliance   OracleRotator
}

// Controller owns the administrative surface that sits above the data
// components: rotating the designated oracle and tracking disputes. Flagging
// a dispute is deliberately open to everyone; resolution is admin-only.
type Controller struct {
	config  ControllerConfig
	metrics struct {
		disputesFlagged  prometheus.Counter
		disputesResolved prometheus.Counter
		openDisputes     prometheus.Gauge
	}
	db         *database.Database
	logger     *slog.Logger
	eventBus   *event.EventBus
	compliance OracleRotator
}

func NewController(config ControllerConfig) *Controller {
	c := &Controller{
		config:     config,
		db:         config.DB,
		eventBus:   config.EventBus,
		compliance: config.Compliance,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		c.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	c.metrics.disputesFlagged = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_disputes_flagged_total",
			Help: "total disputes flagged",
		},
	)
	c.metrics.disputesResolved = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_disputes_resolved_total",
			Help: "total dispute resolution operations",
		},
	)
	c.metrics.openDisputes = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "governance_open_disputes",
		Help: "current count of unresolved disputes",
	})
	return c
}

type rotateDetail struct {
	NewOracle string `json:"newOracle"`
}

type flagDetail struct {
	DisputeID uint64 `json:"disputeId"`
}

type resolveDetail struct {
	DisputeID uint64 `json:"disputeId"`
	Resolved  bool   `json:"resolved"`
}

// audit appends the governance controller's entry to the audit log inside
// the operation's transaction
func (c *Controller) audit(
	txn *database.Txn,
	ctx chain.OpContext,
	operation string,
	productId uint64,
	detail any,
) error {
	detailJson, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	if _, err := c.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "governance",
		Operation: operation,
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// adminGate loads the params row and checks the caller against the admin
// identity
func (c *Controller) adminGate(
	txn *database.Txn,
	caller chain.Principal,
) error {
	chainParams, err := c.db.GetChainParams(txn)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	if chainParams.Admin != caller.String() {
		return chain.ErrNotAdmin
	}
	return nil
}

// RotateOracle hands the designated-oracle role to a new identity. The write
// is delegated into the compliance feed so the slot stays that component's
// concern, but it happens inside this operation's transaction.
func (c *Controller) RotateOracle(
	ctx chain.OpContext,
	newOracle chain.Principal,
) error {
	txn := c.db.Transaction(true)
	defer txn.Release()
	if err := c.adminGate(txn, ctx.Caller); err != nil {
		return err
	}
	if !newOracle.Valid() {
		return chain.ErrInvalidParameter
	}
	if err := c.compliance.ApplyOracleRotation(txn, newOracle); err != nil {
		return fmt.Errorf("apply oracle rotation: %w", err)
	}
	if err := c.audit(txn, ctx, "rotate_oracle", 0, rotateDetail{
		NewOracle: newOracle.String(),
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	c.logger.Info(
		"rotated oracle",
		"component", "governance",
		"new_oracle", newOracle.String(),
	)
	c.eventBus.Publish(
		event.NewEvent(
			OracleRotatedEventType,
			OracleRotatedEvent{
				NewOracle: newOracle.String(),
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// FlagDispute opens a dispute against a product id and returns the assigned
// dispute id. Any caller may flag, and the product need not exist; disputes
// against unknown or burned ids are part of the record.
func (c *Controller) FlagDispute(
	ctx chain.OpContext,
	productId uint64,
	reason string,
) (uint64, error) {
	if reason == "" || len(reason) > MaxReasonLen {
		return 0, chain.ErrInvalidParameter
	}
	txn := c.db.Transaction(true)
	defer txn.Release()
	dispute := models.Dispute{
		ProductID: productId,
		RaisedBy:  ctx.Caller.String(),
		Reason:    reason,
		Block:     ctx.Block,
		Resolved:  false,
	}
	if err := c.db.AddDispute(&dispute, txn); err != nil {
		return 0, err
	}
	if err := c.audit(txn, ctx, "flag_dispute", productId, flagDetail{
		DisputeID: dispute.ID,
	}); err != nil {
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	c.metrics.disputesFlagged.Inc()
	c.metrics.openDisputes.Inc()
	c.logger.Info(
		"flagged dispute",
		"component", "governance",
		"dispute_id", dispute.ID,
		"product_id", productId,
		"raised_by", ctx.Caller.String(),
	)
	c.eventBus.Publish(
		event.NewEvent(
			DisputeFlaggedEventType,
			DisputeFlaggedEvent{
				DisputeID: dispute.ID,
				ProductID: productId,
				RaisedBy:  ctx.Caller.String(),
				Block:     ctx.Block,
			},
		),
	)
	return dispute.ID, nil
}

// ResolveDispute sets the resolved flag on a dispute in either direction, so
// the admin can re-open a dispute that was closed in error. Reason and
// product are immutable.
func (c *Controller) ResolveDispute(
	ctx chain.OpContext,
	disputeId uint64,
	resolved bool,
) error {
	txn := c.db.Transaction(true)
	defer txn.Release()
	if err := c.adminGate(txn, ctx.Caller); err != nil {
		return err
	}
	dispute, err := c.db.GetDispute(disputeId, txn)
	if err != nil {
		if errors.Is(err, models.ErrDisputeNotFound) {
			return chain.ErrNotFound
		}
		return err
	}
	if err := c.db.SetDisputeResolved(disputeId, resolved, txn); err != nil {
		return err
	}
	if err := c.audit(
		txn, ctx, "resolve_dispute", dispute.ProductID, resolveDetail{
			DisputeID: disputeId,
			Resolved:  resolved,
		},
	); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	c.metrics.disputesResolved.Inc()
	if dispute.Resolved != resolved {
		if resolved {
			c.metrics.openDisputes.Dec()
		} else {
			c.metrics.openDisputes.Inc()
		}
	}
	c.logger.Info(
		"resolved dispute",
		"component", "governance",
		"dispute_id", disputeId,
		"resolved", resolved,
	)
	c.eventBus.Publish(
		event.NewEvent(
			DisputeResolvedEventType,
			DisputeResolvedEvent{
				DisputeID: disputeId,
				Resolved:  resolved,
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// Dispute returns a dispute by id
func (c *Controller) Dispute(disputeId uint64) (*models.Dispute, error) {
	dispute, err := c.db.GetDispute(disputeId, nil)
	if err != nil {
		if errors.Is(err, models.ErrDisputeNotFound) {
			return nil, chain.ErrNotFound
		}
		return nil, err
	}
	return dispute, nil
}

// Disputes returns every dispute raised against a product in ascending
// dispute id order. Reads are total: unknown products report an empty
// slice.
func (c *Controller) Disputes(productId uint64) ([]models.Dispute, error) {
	return c.db.GetDisputesByProduct(productId, nil)
}
