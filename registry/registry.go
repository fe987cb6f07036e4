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

package registry

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
	ProductRegisteredEventType  event.EventType = "registry.product_registered"
	ProductTransferredEventType event.EventType = "registry.product_transferred"
	ProductBurnedEventType      event.EventType = "registry.product_burned"
	ParamsUpdatedEventType      event.EventType = "registry.params_updated"
	PausedEventType             event.EventType = "registry.paused"
	UnpausedEventType           event.EventType = "registry.unpaused"
	AuthorityHandoffEventType   event.EventType = "registry.authority_handoff"
)

// Validation bounds for caller-supplied product metadata
const (
	MaxCountryLen     = 64
	MaxDescriptionLen = 256
	MaxBatchSize      = 1_000_000
)

type ProductRegisteredEvent struct {
	Manufacturer string
	Category     string
	ProductID    uint64
	Block        uint64
}

type ProductTransferredEvent struct {
	From      string
	To        string
	ProductID uint64
	Block     uint64
}

type ProductBurnedEvent struct {
	Owner     string
	ProductID uint64
	Block     uint64
}

type ParamsUpdatedEvent struct {
	Param string
	Block uint64
}

type AuthorityHandoffEvent struct {
	Designee string
	Block    uint64
}

// ProductParams carries the caller-supplied metadata for a mint. Everything
// here is immutable once the product exists.
type ProductParams struct {
	OriginCountry     string
	Description       string
	Category          chain.Category
	CertificationHash []byte
	BatchSize         uint64
	CreatedAt         uint64
}

// FeeTransferFunc moves the mint fee between principals inside the
// registration transaction. The node wires this to the database account
// ledger; hosts with their own asset layer substitute it.
type FeeTransferFunc func(
	txn *database.Txn,
	from string,
	to string,
	amount uint64,
) error

type RegistryConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
	DB           *database.Database
	TransferFee  FeeTransferFunc
}

// Registry issues product identities and tracks their ownership. It is the
// leaf component: every other component validates products against it.
type Registry struct {
	config  RegistryConfig
	metrics struct {
		productsRegistered  prometheus.Counter
		productsTransferred prometheus.Counter
		productsBurned      prometheus.Counter
		activeProducts      prometheus.Gauge
		paused              prometheus.Gauge
		mintFee             prometheus.Gauge
	}
	db          *database.Database
	logger      *slog.Logger
	eventBus    *event.EventBus
	transferFee FeeTransferFunc
}

func NewRegistry(config RegistryConfig) *Registry {
	r := &Registry{
		config:      config,
		db:          config.DB,
		eventBus:    config.EventBus,
		transferFee: config.TransferFee,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	if r.transferFee == nil {
		r.transferFee = func(
			txn *database.Txn,
			from string,
			to string,
			amount uint64,
		) error {
			return r.db.TransferFunds(from, to, amount, txn)
		}
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.productsRegistered = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_products_registered_total",
			Help: "total product identities registered",
		},
	)
	r.metrics.productsTransferred = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_products_transferred_total",
			Help: "total product ownership transfers",
		},
	)
	r.metrics.productsBurned = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_products_burned_total",
			Help: "total product identities burned",
		},
	)
	r.metrics.activeProducts = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "registry_active_products",
		Help: "current count of live product identities",
	})
	r.metrics.paused = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "registry_paused",
		Help: "whether product mutations are paused (1) or live (0)",
	})
	r.metrics.mintFee = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "registry_mint_fee",
		Help: "current mint fee in ledger units",
	})
	return r
}

type registerDetail struct {
	OriginCountry string `json:"originCountry"`
	Category      string `json:"category"`
	BatchSize     uint64 `json:"batchSize"`
	MintFee       uint64 `json:"mintFee"`
}

type transferDetail struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type burnDetail struct {
	Owner string `json:"owner"`
}

type paramsUpdateDetail struct {
	Param string `json:"param"`
	Value string `json:"value"`
}

// audit appends the registry's entry to the audit log inside the
// operation's transaction
func (r *Registry) audit(
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
	if _, err := r.db.AddAuditEvent(database.AuditEvent{
		Block:     ctx.Block,
		Component: "registry",
		Operation: operation,
		ProductID: productId,
		Actor:     ctx.Caller.String(),
		Detail:    detailJson,
	}, txn); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

func validateProductParams(params ProductParams, block uint64) error {
	if params.OriginCountry == "" ||
		len(params.OriginCountry) > MaxCountryLen {
		return chain.ErrInvalidCountry
	}
	if params.Description == "" ||
		len(params.Description) > MaxDescriptionLen {
		return chain.ErrInvalidDescription
	}
	if !params.Category.Valid() {
		return chain.ErrInvalidCategory
	}
	if params.BatchSize == 0 || params.BatchSize > MaxBatchSize {
		return chain.ErrInvalidBatchSize
	}
	if !chain.ValidFingerprint(params.CertificationHash) {
		return chain.FingerprintError{Length: len(params.CertificationHash)}
	}
	if params.CreatedAt < block {
		return chain.ErrInvalidTimestamp
	}
	return nil
}

// Register mints a new product identity owned by the caller and returns the
// assigned id. The mint fee moves from the caller to the admin in the same
// transaction as the registration it pays for, so a failed debit aborts
// everything.
func (r *Registry) Register(
	ctx chain.OpContext,
	params ProductParams,
) (uint64, error) {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.db.GetChainParams(txn)
	if err != nil {
		return 0, fmt.Errorf("load params: %w", err)
	}
	if chainParams.Paused {
		return 0, chain.ErrPaused
	}
	if chainParams.NextProductID >= chainParams.MaxProducts {
		return 0, chain.ErrCapacityExceeded
	}
	if err := validateProductParams(params, ctx.Block); err != nil {
		return 0, err
	}
	productId := chainParams.NextProductID
	if chainParams.MintFee > 0 {
		if err := r.transferFee(
			txn,
			ctx.Caller.String(),
			chainParams.Admin,
			chainParams.MintFee,
		); err != nil {
			return 0, fmt.Errorf("mint fee transfer: %w", err)
		}
	}
	product := models.Product{
		ID:                productId,
		OriginCountry:     params.OriginCountry,
		Description:       params.Description,
		Category:          params.Category.String(),
		BatchSize:         params.BatchSize,
		CertificationHash: params.CertificationHash,
		CreatedAt:         params.CreatedAt,
		Manufacturer:      ctx.Caller.String(),
		Owner:             ctx.Caller.String(),
	}
	if err := r.db.AddProduct(&product, txn); err != nil {
		return 0, err
	}
	if err := r.db.AddOwnershipRecord(&models.OwnershipRecord{
		ProductID: productId,
		Block:     ctx.Block,
		FromOwner: ctx.Caller.String(),
		ToOwner:   ctx.Caller.String(),
		Timestamp: ctx.Block,
	}, txn); err != nil {
		return 0, err
	}
	chainParams.NextProductID++
	if err := r.db.SetChainParams(chainParams, txn); err != nil {
		return 0, err
	}
	if err := r.audit(txn, ctx, "register", productId, registerDetail{
		OriginCountry: params.OriginCountry,
		Category:      params.Category.String(),
		BatchSize:     params.BatchSize,
		MintFee:       chainParams.MintFee,
	}); err != nil {
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	r.metrics.productsRegistered.Inc()
	r.metrics.activeProducts.Inc()
	r.logger.Info(
		"registered product",
		"component", "registry",
		"product_id", productId,
		"manufacturer", ctx.Caller.String(),
		"category", params.Category.String(),
	)
	r.eventBus.Publish(
		event.NewEvent(
			ProductRegisteredEventType,
			ProductRegisteredEvent{
				ProductID:    productId,
				Manufacturer: ctx.Caller.String(),
				Category:     params.Category.String(),
				Block:        ctx.Block,
			},
		),
	)
	return productId, nil
}

// Transfer reassigns a product to the recipient. Only the current owner may
// transfer; a missing product also reports ErrUnauthorized so existence
// cannot be probed through this path.
func (r *Registry) Transfer(
	ctx chain.OpContext,
	productId uint64,
	recipient chain.Principal,
) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.db.GetChainParams(txn)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	if chainParams.Paused {
		return chain.ErrPaused
	}
	product, err := r.db.GetProduct(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return chain.ErrUnauthorized
		}
		return err
	}
	if product.Owner != ctx.Caller.String() {
		return chain.ErrUnauthorized
	}
	if !recipient.Valid() {
		return chain.ErrInvalidParameter
	}
	if err := r.db.SetProductOwner(productId, recipient.String(), txn); err != nil {
		return err
	}
	if err := r.db.AddOwnershipRecord(&models.OwnershipRecord{
		ProductID: productId,
		Block:     ctx.Block,
		FromOwner: product.Owner,
		ToOwner:   recipient.String(),
		Timestamp: ctx.Block,
	}, txn); err != nil {
		return err
	}
	if err := r.audit(txn, ctx, "transfer", productId, transferDetail{
		From: product.Owner,
		To:   recipient.String(),
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.metrics.productsTransferred.Inc()
	r.logger.Info(
		"transferred product",
		"component", "registry",
		"product_id", productId,
		"from", product.Owner,
		"to", recipient.String(),
	)
	r.eventBus.Publish(
		event.NewEvent(
			ProductTransferredEventType,
			ProductTransferredEvent{
				ProductID: productId,
				From:      product.Owner,
				To:        recipient.String(),
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// Burn retires a product identity. The row and its current owner are
// removed; ownership history persists. Authorization matches Transfer.
func (r *Registry) Burn(ctx chain.OpContext, productId uint64) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.db.GetChainParams(txn)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	if chainParams.Paused {
		return chain.ErrPaused
	}
	product, err := r.db.GetProduct(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return chain.ErrUnauthorized
		}
		return err
	}
	if product.Owner != ctx.Caller.String() {
		return chain.ErrUnauthorized
	}
	if err := r.db.DeleteProduct(productId, txn); err != nil {
		return err
	}
	if err := r.audit(txn, ctx, "burn", productId, burnDetail{
		Owner: product.Owner,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.metrics.productsBurned.Inc()
	r.metrics.activeProducts.Dec()
	r.logger.Info(
		"burned product",
		"component", "registry",
		"product_id", productId,
		"owner", product.Owner,
	)
	r.eventBus.Publish(
		event.NewEvent(
			ProductBurnedEventType,
			ProductBurnedEvent{
				ProductID: productId,
				Owner:     product.Owner,
				Block:     ctx.Block,
			},
		),
	)
	return nil
}

// adminParams loads the params row and gates on the admin identity
func (r *Registry) adminParams(
	txn *database.Txn,
	caller chain.Principal,
) (*models.ChainParams, error) {
	chainParams, err := r.db.GetChainParams(txn)
	if err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	if chainParams.Admin != caller.String() {
		return nil, chain.ErrNotAdmin
	}
	return chainParams, nil
}

// setParam runs the shared tail of every parameter setter: persist, audit,
// commit, publish
func (r *Registry) setParam(
	txn *database.Txn,
	ctx chain.OpContext,
	chainParams *models.ChainParams,
	param string,
	value string,
) error {
	if err := r.db.SetChainParams(chainParams, txn); err != nil {
		return err
	}
	if err := r.audit(txn, ctx, "set_"+param, 0, paramsUpdateDetail{
		Param: param,
		Value: value,
	}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.logger.Info(
		"updated registry params",
		"component", "registry",
		"param", param,
		"value", value,
	)
	r.eventBus.Publish(
		event.NewEvent(
			ParamsUpdatedEventType,
			ParamsUpdatedEvent{
				Param: param,
				Block: ctx.Block,
			},
		),
	)
	return nil
}

// SetPaused toggles the pause flag gating Register, Transfer, and Burn.
// Parameter setters and the other components stay live while paused.
func (r *Registry) SetPaused(ctx chain.OpContext, paused bool) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.adminParams(txn, ctx.Caller)
	if err != nil {
		return err
	}
	chainParams.Paused = paused
	if err := r.setParam(
		txn, ctx, chainParams, "paused", fmt.Sprintf("%t", paused),
	); err != nil {
		return err
	}
	if paused {
		r.metrics.paused.Set(1)
		r.eventBus.Publish(
			event.NewEvent(PausedEventType, ParamsUpdatedEvent{
				Param: "paused",
				Block: ctx.Block,
			}),
		)
	} else {
		r.metrics.paused.Set(0)
		r.eventBus.Publish(
			event.NewEvent(UnpausedEventType, ParamsUpdatedEvent{
				Param: "paused",
				Block: ctx.Block,
			}),
		)
	}
	return nil
}

// SetMintFee updates the fee debited on each registration
func (r *Registry) SetMintFee(ctx chain.OpContext, fee uint64) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.adminParams(txn, ctx.Caller)
	if err != nil {
		return err
	}
	if fee == 0 {
		return chain.ErrInvalidParameter
	}
	chainParams.MintFee = fee
	if err := r.setParam(
		txn, ctx, chainParams, "mint_fee", fmt.Sprintf("%d", fee),
	); err != nil {
		return err
	}
	r.metrics.mintFee.Set(float64(fee))
	return nil
}

// SetMaxProducts updates the registration capacity
func (r *Registry) SetMaxProducts(ctx chain.OpContext, max uint64) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.adminParams(txn, ctx.Caller)
	if err != nil {
		return err
	}
	if max == 0 {
		return chain.ErrInvalidParameter
	}
	chainParams.MaxProducts = max
	return r.setParam(
		txn, ctx, chainParams, "max_products", fmt.Sprintf("%d", max),
	)
}

// SetAdmin hands the admin role to another principal
func (r *Registry) SetAdmin(
	ctx chain.OpContext,
	principal chain.Principal,
) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.adminParams(txn, ctx.Caller)
	if err != nil {
		return err
	}
	if !principal.Valid() {
		return chain.ErrInvalidParameter
	}
	chainParams.Admin = principal.String()
	return r.setParam(txn, ctx, chainParams, "admin", principal.String())
}

// SetAuthorityHandoff records the one-shot successor authority. Once set
// the value can never change, not even by the admin; a second call fails
// ErrAlreadyExists.
func (r *Registry) SetAuthorityHandoff(
	ctx chain.OpContext,
	principal chain.Principal,
) error {
	txn := r.db.Transaction(true)
	defer txn.Release()
	chainParams, err := r.adminParams(txn, ctx.Caller)
	if err != nil {
		return err
	}
	if !principal.Valid() {
		return chain.ErrInvalidParameter
	}
	if chainParams.AuthorityHandoff != "" {
		return chain.ErrAlreadyExists
	}
	chainParams.AuthorityHandoff = principal.String()
	if err := r.setParam(
		txn, ctx, chainParams, "authority_handoff", principal.String(),
	); err != nil {
		return err
	}
	r.eventBus.Publish(
		event.NewEvent(
			AuthorityHandoffEventType,
			AuthorityHandoffEvent{
				Designee: principal.String(),
				Block:    ctx.Block,
			},
		),
	)
	return nil
}

// Product returns the metadata for a live product
func (r *Registry) Product(productId uint64) (*models.Product, error) {
	product, err := r.db.GetProduct(productId, nil)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, chain.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// Owner returns the current owner of a live product
func (r *Registry) Owner(productId uint64) (chain.Principal, error) {
	product, err := r.Product(productId)
	if err != nil {
		return "", err
	}
	return chain.Principal(product.Owner), nil
}

// OwnershipHistory returns the ownership records for a product whose block
// falls in the inclusive range [startBlock, endBlock], in ascending block
// order. History survives burn, so this works for retired ids too.
func (r *Registry) OwnershipHistory(
	productId uint64,
	startBlock uint64,
	endBlock uint64,
) ([]models.OwnershipRecord, error) {
	records, err := r.db.GetOwnershipHistory(productId, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]models.OwnershipRecord, 0, len(records))
	for _, record := range records {
		if record.Block < startBlock || record.Block > endBlock {
			continue
		}
		ret = append(ret, record)
	}
	return ret, nil
}

// Params is the caller-facing view of the registry configuration.
// HandoffSet distinguishes "no successor designated" from a designated one,
// since the handoff is locked once set.
type Params struct {
	Admin            chain.Principal
	Oracle           chain.Principal
	AuthorityHandoff chain.Principal
	HandoffSet       bool
	MintFee          uint64
	MaxProducts      uint64
	Paused           bool
}

// Params returns the current registry configuration
func (r *Registry) Params() (Params, error) {
	chainParams, err := r.db.GetChainParams(nil)
	if err != nil {
		return Params{}, fmt.Errorf("load params: %w", err)
	}
	return Params{
		Admin:            chain.Principal(chainParams.Admin),
		Oracle:           chain.Principal(chainParams.Oracle),
		AuthorityHandoff: chain.Principal(chainParams.AuthorityHandoff),
		HandoffSet:       chainParams.AuthorityHandoff != "",
		MintFee:          chainParams.MintFee,
		MaxProducts:      chainParams.MaxProducts,
		Paused:           chainParams.Paused,
	}, nil
}

// NextProductID returns the id the next successful registration will be
// assigned
func (r *Registry) NextProductID() (uint64, error) {
	chainParams, err := r.db.GetChainParams(nil)
	if err != nil {
		return 0, fmt.Errorf("load params: %w", err)
	}
	return chainParams.NextProductID, nil
}

// ProductByID returns the product row inside the caller's transaction. It
// backs the existence and ownership checks other components make against
// the registry. Returns (nil, nil) when the product does not exist.
func (r *Registry) ProductByID(
	txn *database.Txn,
	productId uint64,
) (*models.Product, error) {
	product, err := r.db.GetProduct(productId, txn)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}
