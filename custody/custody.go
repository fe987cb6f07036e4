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

package custody

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
	EventAppendedEventType event.EventType = "custody.event_appended"
)

const (
	// MaxFieldLen bounds the action and location labels
	MaxFieldLen = 128

	// DefaultEventCap bounds each product's custody trail unless the host
	// configures otherwise
	DefaultEventCap = 100
)

type EventAppendedEvent struct {
	Handler   string
	Action    string
	Location  string
	ProductID uint64
	Block     uint64
	Seq       uint32
}

// ProductSource is the slice of the registry the custody ledger depends on
type ProductSource interface {
	ProductByID(txn *database.Txn, productId uint64) (*models.Product, error)
}

type LedgerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	Products     ProductSource
	EventCap     int
}

// Ledger records the append-only chain-of-custody trail for each product.
// Entries are written by the product's current owner and capped per product,
// so a runaway writer cannot grow a trail without bound.
type Ledger struct {
	config  LedgerConfig
	metrics struct {
		eventsAppended prometheus.Counter
	}
	db       *database.Database
	logger   *slog.Logger
	eventBus *event.EventBus
	products ProductSource
	eventCap int
}

func NewLedger(config LedgerConfig) *Ledger {
	l := &Ledger{
		config:   config,
		db:       config.DB,
		eventBus: config.EventBus,
		products: config.Products,
		eventCap: config.EventCap,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = config.Logger
	}
	if l.eventCap <= 0 {
		l.eventCap = DefaultEventCap
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	l.metrics.eventsAppended = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "custody_events_total",
			Help: "total custody events appended",
		},
	)
	return l
}

type appendDetail struct {
	Action   string `json:"action"`
	Location string `json:"location"`
	Seq      uint32 `json:"seq"`
}

// Append records a custody event for a product at the next dense sequence
// number. Only the current owner may append, and the trail is capped.
func (l *Ledger) Append(
	ctx chain.OpContext,
	productId uint64,
	action string,
	location string,
) error {
	txn := l.db.Transaction(true)
	defer txn.Release()
	product, err := l.products.ProductByID(txn, productId)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return chain.ErrInvalidProduct
	}
	if product.Owner != ctx.Caller.String() {
		return chain.ErrUnauthorized
	}
	if action == "" || len(action) > MaxFieldLen {
		return chain.ErrInvalidParameter
	}
	if location == "" || len(location) > MaxFieldLen {
		return chain.ErrInvalidParameter
	}
	count, err := l.db.GetCustodyEventCount(productId, txn)
	if err != nil {
		return fmt.Errorf("count custody events: %w", err)
	}
	if count >= int64(l.eventCap) {
		return chain.ErrCapacityExceeded
	}
	seq := uint32(count) // #nosec G115: bounded by eventCap above
	if err := l.db.AddCustodyEvent(&models.CustodyEvent{
		ProductID: productId,
		Seq:       seq,
		Handler:   ctx.Caller.String(),
		Action:    action,
		Location:  location,
		Timestamp: ctx.Block,
	}, txn); err != nil {
		return err
	}
	if err := l.audit(txn, ctx, productId, appendDetail{
		Action:   action,
		Location: location,
		Seq:      seq,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	l.metrics.eventsAppended.Inc()
	l.logger.Info(
		"appended custody event",
		"component", "custody",
		"product_id", productId,
		"seq", seq,
		"action", action,
	)
	l.eventBus.Publish(
		event.NewEvent(
			EventAppendedEventType,
			EventAppendedEvent{
				ProductID: productId,
				Seq:       seq,
				Handler:   ctx.Caller.String(),
				Action:    action,
				Location:  location,
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// audit appends the custody ledger's entry to the audit log inside the
// operation's transaction
func (l *Ledger) audit(
	txn *database.Txn,
	ctx chain.OpContext,
	productId uint64,
	detail appendDetail,
) error {
	detailJson, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	if _, err := l.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "custody",
		Operation: "append_event",
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

// Events returns the full custody trail for a product in sequence order.
// Reads are total: unknown products report an empty trail.
func (l *Ledger) Events(productId uint64) ([]models.CustodyEvent, error) {
	return l.db.GetCustodyChain(productId, nil)
}

// EventCap returns the configured per-product trail bound
func (l *Ledger) EventCap() int {
	return l.eventCap
}
