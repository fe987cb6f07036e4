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
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blinklabs-io/paddock/chain"
	"github.com/blinklabs-io/paddock/database"
	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

const (
	testAdmin    = "acct:admin"
	testOracle   = "acct:oracle"
	testAlice    = "acct:alice"
	testBob      = "acct:bob"
	testCarol    = "acct:carol"
	testGenBlock = uint64(100)
)

// newTestRegistry creates a Registry backed by an in-memory database seeded
// with a default genesis params row
func newTestRegistry(t *testing.T) (*Registry, *database.Database) {
	t.Helper()
	db, err := database.New(database.Config{
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		DataDir: "",
	})
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	require.NoError(t, db.SetChainParams(&models.ChainParams{
		ID:            models.ChainParamsRowId,
		NextProductID: 1,
		MaxProducts:   100,
		MintFee:       0,
		Admin:         testAdmin,
		Oracle:        testOracle,
	}, nil))
	r := NewRegistry(RegistryConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:     event.NewEventBus(nil, nil),
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
	})
	return r, db
}

// updateTestParams applies a mutation to the stored params row outside any
// registry operation
func updateTestParams(
	t *testing.T,
	db *database.Database,
	mutate func(*models.ChainParams),
) {
	t.Helper()
	params, err := db.GetChainParams(nil)
	require.NoError(t, err)
	mutate(params)
	require.NoError(t, db.SetChainParams(params, nil))
}

func testProductParams(block uint64) ProductParams {
	return ProductParams{
		OriginCountry:     "DE",
		Description:       "precision bearing assembly",
		Category:          chain.CategoryElectronics,
		CertificationHash: bytes.Repeat([]byte{0x42}, chain.FingerprintSize),
		BatchSize:         500,
		CreatedAt:         block,
	}
}

func mustRegister(
	t *testing.T,
	r *Registry,
	caller string,
	block uint64,
) uint64 {
	t.Helper()
	productId, err := r.Register(
		chain.NewOpContext(chain.Principal(caller), block),
		testProductParams(block),
	)
	require.NoError(t, err, "registration should succeed")
	return productId
}

// recvEvent waits briefly for an event on a subscription channel
func recvEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return event.Event{}
}

// =============================================================================
// Registration Tests
// =============================================================================

func TestRegisterRoundTrip(t *testing.T) {
	r, _ := newTestRegistry(t)
	params := testProductParams(testGenBlock)
	productId, err := r.Register(
		chain.NewOpContext(testAlice, testGenBlock),
		params,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), productId, "first product should get id 1")

	product, err := r.Product(productId)
	require.NoError(t, err)
	assert.Equal(t, params.OriginCountry, product.OriginCountry)
	assert.Equal(t, params.Description, product.Description)
	assert.Equal(t, params.Category.String(), product.Category)
	assert.Equal(t, params.BatchSize, product.BatchSize)
	assert.Equal(t, params.CertificationHash, product.CertificationHash)
	assert.Equal(t, params.CreatedAt, product.CreatedAt)
	assert.Equal(
		t,
		string(testAlice),
		product.Manufacturer,
		"manufacturer should be the registering caller",
	)
	assert.Equal(
		t,
		string(testAlice),
		product.Owner,
		"initial owner should be the manufacturer",
	)

	// The mint shows up as a self-transfer in the ownership history
	history, err := r.OwnershipHistory(productId, 0, ^uint64(0))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(testAlice), history[0].FromOwner)
	assert.Equal(t, string(testAlice), history[0].ToOwner)
	assert.Equal(t, testGenBlock, history[0].Block)

	nextId, err := r.NextProductID()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nextId)

	assert.Equal(
		t,
		float64(1),
		testutil.ToFloat64(r.metrics.productsRegistered),
	)
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.activeProducts))
}

func TestRegisterSequentialIds(t *testing.T) {
	r, _ := newTestRegistry(t)
	for i := range 5 {
		productId := mustRegister(t, r, testAlice, testGenBlock+uint64(i))
		assert.Equal(t, uint64(i+1), productId, "ids should be dense")
	}
	nextId, err := r.NextProductID()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), nextId)
}

func TestRegisterValidation(t *testing.T) {
	r, db := newTestRegistry(t)
	testCases := []struct {
		name        string
		mutate      func(*ProductParams)
		expectedErr error
	}{
		{
			name:        "empty country",
			mutate:      func(p *ProductParams) { p.OriginCountry = "" },
			expectedErr: chain.ErrInvalidCountry,
		},
		{
			name: "oversized country",
			mutate: func(p *ProductParams) {
				p.OriginCountry = string(
					bytes.Repeat([]byte{'x'}, MaxCountryLen+1),
				)
			},
			expectedErr: chain.ErrInvalidCountry,
		},
		{
			name:        "empty description",
			mutate:      func(p *ProductParams) { p.Description = "" },
			expectedErr: chain.ErrInvalidDescription,
		},
		{
			name: "oversized description",
			mutate: func(p *ProductParams) {
				p.Description = string(
					bytes.Repeat([]byte{'x'}, MaxDescriptionLen+1),
				)
			},
			expectedErr: chain.ErrInvalidDescription,
		},
		{
			name: "unknown category",
			mutate: func(p *ProductParams) {
				p.Category = chain.Category("vaporware")
			},
			expectedErr: chain.ErrInvalidCategory,
		},
		{
			name:        "zero batch size",
			mutate:      func(p *ProductParams) { p.BatchSize = 0 },
			expectedErr: chain.ErrInvalidBatchSize,
		},
		{
			name:        "oversized batch",
			mutate:      func(p *ProductParams) { p.BatchSize = MaxBatchSize + 1 },
			expectedErr: chain.ErrInvalidBatchSize,
		},
		{
			name: "short fingerprint",
			mutate: func(p *ProductParams) {
				p.CertificationHash = make([]byte, chain.FingerprintSize-1)
			},
			expectedErr: chain.FingerprintError{
				Length: chain.FingerprintSize - 1,
			},
		},
		{
			name: "missing fingerprint",
			mutate: func(p *ProductParams) {
				p.CertificationHash = nil
			},
			expectedErr: chain.FingerprintError{Length: 0},
		},
		{
			name: "timestamp before current block",
			mutate: func(p *ProductParams) {
				p.CreatedAt = testGenBlock - 1
			},
			expectedErr: chain.ErrInvalidTimestamp,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := testProductParams(testGenBlock)
			tc.mutate(&params)
			_, err := r.Register(
				chain.NewOpContext(testAlice, testGenBlock),
				params,
			)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
	// None of the rejected registrations should have left any trace
	nextId, err := r.NextProductID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nextId, "failed registrations must not consume ids")
	_, err = r.Product(1)
	assert.ErrorIs(t, err, chain.ErrNotFound)
	trail, err := db.GetAuditTrail(1, nil)
	require.NoError(t, err)
	assert.Empty(t, trail, "failed registrations must not be audited")
	assert.Equal(
		t,
		float64(0),
		testutil.ToFloat64(r.metrics.productsRegistered),
	)
}

func TestRegisterWhilePaused(t *testing.T) {
	r, _ := newTestRegistry(t)
	adminCtx := chain.NewOpContext(testAdmin, testGenBlock)
	require.NoError(t, r.SetPaused(adminCtx, true))

	_, err := r.Register(
		chain.NewOpContext(testAlice, testGenBlock),
		testProductParams(testGenBlock),
	)
	assert.ErrorIs(t, err, chain.ErrPaused)

	require.NoError(t, r.SetPaused(adminCtx, false))
	mustRegister(t, r, testAlice, testGenBlock)
}

func TestRegisterCapacity(t *testing.T) {
	r, db := newTestRegistry(t)
	updateTestParams(t, db, func(p *models.ChainParams) {
		p.MaxProducts = 2
	})
	mustRegister(t, r, testAlice, testGenBlock)
	_, err := r.Register(
		chain.NewOpContext(testBob, testGenBlock),
		testProductParams(testGenBlock),
	)
	assert.ErrorIs(t, err, chain.ErrCapacityExceeded)
	nextId, err := r.NextProductID()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nextId)
}

func TestRegisterMintFee(t *testing.T) {
	r, db := newTestRegistry(t)
	updateTestParams(t, db, func(p *models.ChainParams) {
		p.MintFee = 500
	})
	require.NoError(t, db.SetAccountBalance(testAlice, 800, nil))

	mustRegister(t, r, testAlice, testGenBlock)

	alice, err := db.GetAccount(testAlice, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), uint64(alice.Balance), "fee should be debited")
	admin, err := db.GetAccount(testAdmin, nil)
	require.NoError(t, err)
	assert.Equal(
		t,
		uint64(500),
		uint64(admin.Balance),
		"fee should be credited to admin",
	)
}

func TestRegisterMintFeeAdminSelfRegister(t *testing.T) {
	r, db := newTestRegistry(t)
	updateTestParams(t, db, func(p *models.ChainParams) {
		p.MintFee = 500
	})
	require.NoError(t, db.SetAccountBalance(testAdmin, 800, nil))

	// The admin pays themselves: the fee is a no-op, not a credit
	mustRegister(t, r, testAdmin, testGenBlock)

	admin, err := db.GetAccount(testAdmin, nil)
	require.NoError(t, err)
	assert.Equal(
		t,
		uint64(800),
		uint64(admin.Balance),
		"self-paid fee must not change the balance",
	)
}

func TestRegisterMintFeeInsufficientFunds(t *testing.T) {
	r, db := newTestRegistry(t)
	updateTestParams(t, db, func(p *models.ChainParams) {
		p.MintFee = 500
	})
	require.NoError(t, db.SetAccountBalance(testBob, 100, nil))

	_, err := r.Register(
		chain.NewOpContext(testBob, testGenBlock),
		testProductParams(testGenBlock),
	)
	require.Error(t, err)
	var fundsErr database.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, string(testBob), fundsErr.Principal)
	assert.Equal(t, uint64(100), fundsErr.Balance)
	assert.Equal(t, uint64(500), fundsErr.Amount)

	// The failed debit must abort the whole registration
	nextId, err := r.NextProductID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nextId)
	_, err = r.Product(1)
	assert.ErrorIs(t, err, chain.ErrNotFound)
	bob, err := db.GetAccount(testBob, nil)
	require.NoError(t, err)
	assert.Equal(
		t,
		uint64(100),
		uint64(bob.Balance),
		"failed fee must not move funds",
	)
	trail, err := db.GetAuditTrail(1, nil)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestRegisterMintFeeNoAccount(t *testing.T) {
	r, db := newTestRegistry(t)
	updateTestParams(t, db, func(p *models.ChainParams) {
		p.MintFee = 500
	})
	_, err := r.Register(
		chain.NewOpContext(testCarol, testGenBlock),
		testProductParams(testGenBlock),
	)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestRegisterPublishesEvent(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, subCh := r.eventBus.Subscribe(ProductRegisteredEventType)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	evt := recvEvent(t, subCh)
	assert.Equal(t, ProductRegisteredEventType, evt.Type)
	data, ok := evt.Data.(ProductRegisteredEvent)
	require.True(t, ok, "unexpected event payload type")
	assert.Equal(t, productId, data.ProductID)
	assert.Equal(t, string(testAlice), data.Manufacturer)
	assert.Equal(t, chain.CategoryElectronics.String(), data.Category)
	assert.Equal(t, testGenBlock, data.Block)
}

// =============================================================================
// Transfer Tests
// =============================================================================

func TestTransferChain(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	owners := []chain.Principal{testBob, testCarol, testAlice}
	current := chain.Principal(testAlice)
	for i, recipient := range owners {
		err := r.Transfer(
			chain.NewOpContext(current, testGenBlock+uint64(i+1)),
			productId,
			recipient,
		)
		require.NoError(t, err, "transfer %d should succeed", i)
		current = recipient
	}

	owner, err := r.Owner(productId)
	require.NoError(t, err)
	assert.Equal(
		t,
		chain.Principal(testAlice),
		owner,
		"final owner should be last recipient",
	)

	history, err := r.OwnershipHistory(productId, 0, ^uint64(0))
	require.NoError(t, err)
	require.Len(t, history, 4, "mint plus three transfers")
	for i, record := range history[1:] {
		assert.Equal(t, string(owners[i]), record.ToOwner)
		assert.Equal(t, testGenBlock+uint64(i+1), record.Block)
	}
	assert.Equal(
		t,
		float64(3),
		testutil.ToFloat64(r.metrics.productsTransferred),
	)
}

func TestTransferAuthorization(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)

	t.Run("non-owner", func(t *testing.T) {
		err := r.Transfer(
			chain.NewOpContext(testBob, testGenBlock+1),
			productId,
			testCarol,
		)
		assert.ErrorIs(t, err, chain.ErrUnauthorized)
	})
	t.Run("unknown product", func(t *testing.T) {
		// Missing products report the same error as foreign ones
		err := r.Transfer(
			chain.NewOpContext(testAlice, testGenBlock+1),
			productId+99,
			testBob,
		)
		assert.ErrorIs(t, err, chain.ErrUnauthorized)
	})
	t.Run("empty recipient", func(t *testing.T) {
		err := r.Transfer(
			chain.NewOpContext(testAlice, testGenBlock+1),
			productId,
			chain.Principal(""),
		)
		assert.ErrorIs(t, err, chain.ErrInvalidParameter)
	})
	t.Run("paused", func(t *testing.T) {
		adminCtx := chain.NewOpContext(testAdmin, testGenBlock+1)
		require.NoError(t, r.SetPaused(adminCtx, true))
		defer func() {
			require.NoError(t, r.SetPaused(adminCtx, false))
		}()
		err := r.Transfer(
			chain.NewOpContext(testAlice, testGenBlock+1),
			productId,
			testBob,
		)
		assert.ErrorIs(t, err, chain.ErrPaused)
	})

	// Ownership should be untouched by the rejected attempts
	owner, err := r.Owner(productId)
	require.NoError(t, err)
	assert.Equal(t, chain.Principal(testAlice), owner)
	history, err := r.OwnershipHistory(productId, 0, ^uint64(0))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTransferSameBlockOverwrite(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	transferBlock := testGenBlock + 1
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testAlice, transferBlock),
		productId,
		testBob,
	))
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testBob, transferBlock),
		productId,
		testCarol,
	))

	owner, err := r.Owner(productId)
	require.NoError(t, err)
	assert.Equal(t, chain.Principal(testCarol), owner)

	// The second same-block hop overwrites the first in the history
	history, err := r.OwnershipHistory(productId, 0, ^uint64(0))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, transferBlock, history[1].Block)
	assert.Equal(t, string(testBob), history[1].FromOwner)
	assert.Equal(t, string(testCarol), history[1].ToOwner)
}

func TestTransferPublishesEvent(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	_, subCh := r.eventBus.Subscribe(ProductTransferredEventType)
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+1),
		productId,
		testBob,
	))
	evt := recvEvent(t, subCh)
	data, ok := evt.Data.(ProductTransferredEvent)
	require.True(t, ok, "unexpected event payload type")
	assert.Equal(t, productId, data.ProductID)
	assert.Equal(t, string(testAlice), data.From)
	assert.Equal(t, string(testBob), data.To)
}

// =============================================================================
// Burn Tests
// =============================================================================

func TestBurn(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+1),
		productId,
		testBob,
	))
	require.NoError(
		t,
		r.Burn(chain.NewOpContext(testBob, testGenBlock+2), productId),
	)

	_, err := r.Product(productId)
	assert.ErrorIs(t, err, chain.ErrNotFound)
	_, err = r.Owner(productId)
	assert.ErrorIs(t, err, chain.ErrNotFound)

	// History outlives the product
	history, err := r.OwnershipHistory(productId, 0, ^uint64(0))
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Burned ids are never reused
	nextProductId := mustRegister(t, r, testCarol, testGenBlock+3)
	assert.Equal(t, productId+1, nextProductId)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.productsBurned))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.activeProducts))
}

func TestBurnAuthorization(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)

	err := r.Burn(chain.NewOpContext(testBob, testGenBlock+1), productId)
	assert.ErrorIs(t, err, chain.ErrUnauthorized)
	err = r.Burn(chain.NewOpContext(testAlice, testGenBlock+1), productId+99)
	assert.ErrorIs(t, err, chain.ErrUnauthorized)

	// Still live after the rejected attempts
	_, err = r.Product(productId)
	require.NoError(t, err)

	// Operations on a burned id degrade to unauthorized
	require.NoError(
		t,
		r.Burn(chain.NewOpContext(testAlice, testGenBlock+2), productId),
	)
	err = r.Burn(chain.NewOpContext(testAlice, testGenBlock+3), productId)
	assert.ErrorIs(t, err, chain.ErrUnauthorized)
	err = r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+3),
		productId,
		testBob,
	)
	assert.ErrorIs(t, err, chain.ErrUnauthorized)
}

// =============================================================================
// Parameter Tests
// =============================================================================

func TestParamSettersRequireAdmin(t *testing.T) {
	r, _ := newTestRegistry(t)
	strangerCtx := chain.NewOpContext(testAlice, testGenBlock)
	testCases := []struct {
		name string
		op   func() error
	}{
		{"SetPaused", func() error { return r.SetPaused(strangerCtx, true) }},
		{"SetMintFee", func() error { return r.SetMintFee(strangerCtx, 10) }},
		{
			"SetMaxProducts",
			func() error { return r.SetMaxProducts(strangerCtx, 10) },
		},
		{"SetAdmin", func() error { return r.SetAdmin(strangerCtx, testBob) }},
		{
			"SetAuthorityHandoff",
			func() error { return r.SetAuthorityHandoff(strangerCtx, testBob) },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.op(), chain.ErrNotAdmin)
		})
	}
}

func TestParamSetterValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	adminCtx := chain.NewOpContext(testAdmin, testGenBlock)
	assert.ErrorIs(
		t,
		r.SetMintFee(adminCtx, 0),
		chain.ErrInvalidParameter,
	)
	assert.ErrorIs(
		t,
		r.SetMaxProducts(adminCtx, 0),
		chain.ErrInvalidParameter,
	)
	assert.ErrorIs(
		t,
		r.SetAdmin(adminCtx, chain.Principal("")),
		chain.ErrInvalidParameter,
	)
	assert.ErrorIs(
		t,
		r.SetAuthorityHandoff(adminCtx, chain.Principal("")),
		chain.ErrInvalidParameter,
	)
	// The admin gate is checked before the value
	assert.ErrorIs(
		t,
		r.SetMintFee(chain.NewOpContext(testAlice, testGenBlock), 0),
		chain.ErrNotAdmin,
	)
}

func TestParamSetterUpdates(t *testing.T) {
	r, _ := newTestRegistry(t)
	adminCtx := chain.NewOpContext(testAdmin, testGenBlock)
	require.NoError(t, r.SetMintFee(adminCtx, 250))
	require.NoError(t, r.SetMaxProducts(adminCtx, 5000))

	params, err := r.Params()
	require.NoError(t, err)
	assert.Equal(t, uint64(250), params.MintFee)
	assert.Equal(t, uint64(5000), params.MaxProducts)
	assert.False(t, params.Paused)
	assert.Equal(t, float64(250), testutil.ToFloat64(r.metrics.mintFee))
}

func TestSetAdminHandover(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(
		t,
		r.SetAdmin(chain.NewOpContext(testAdmin, testGenBlock), testBob),
	)

	// The old admin loses the role in the same operation
	err := r.SetMintFee(chain.NewOpContext(testAdmin, testGenBlock+1), 10)
	assert.ErrorIs(t, err, chain.ErrNotAdmin)
	require.NoError(
		t,
		r.SetMintFee(chain.NewOpContext(testBob, testGenBlock+1), 10),
	)
	params, err := r.Params()
	require.NoError(t, err)
	assert.Equal(t, chain.Principal(testBob), params.Admin)
}

func TestAuthorityHandoffOneShot(t *testing.T) {
	r, _ := newTestRegistry(t)
	adminCtx := chain.NewOpContext(testAdmin, testGenBlock)

	params, err := r.Params()
	require.NoError(t, err)
	assert.False(t, params.HandoffSet)

	require.NoError(t, r.SetAuthorityHandoff(adminCtx, testBob))
	params, err = r.Params()
	require.NoError(t, err)
	assert.True(t, params.HandoffSet)
	assert.Equal(t, chain.Principal(testBob), params.AuthorityHandoff)

	// Locked forever once set, even for the admin
	err = r.SetAuthorityHandoff(adminCtx, testCarol)
	assert.ErrorIs(t, err, chain.ErrAlreadyExists)
	params, err = r.Params()
	require.NoError(t, err)
	assert.Equal(t, chain.Principal(testBob), params.AuthorityHandoff)
}

// =============================================================================
// Read Path Tests
// =============================================================================

func TestOwnershipHistoryRange(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+5),
		productId,
		testBob,
	))
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testBob, testGenBlock+10),
		productId,
		testCarol,
	))

	testCases := []struct {
		name       string
		startBlock uint64
		endBlock   uint64
		expected   int
	}{
		{"full range", 0, ^uint64(0), 3},
		{"bounds are inclusive", testGenBlock, testGenBlock + 10, 3},
		{"excludes mint", testGenBlock + 1, testGenBlock + 10, 2},
		{"single block", testGenBlock + 5, testGenBlock + 5, 1},
		{"empty window", testGenBlock + 6, testGenBlock + 9, 0},
		{"inverted window", testGenBlock + 10, testGenBlock + 5, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			history, err := r.OwnershipHistory(
				productId,
				tc.startBlock,
				tc.endBlock,
			)
			require.NoError(t, err)
			assert.Len(t, history, tc.expected)
		})
	}
}

func TestProductByID(t *testing.T) {
	r, _ := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)

	product, err := r.ProductByID(nil, productId)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, productId, product.ID)

	// Missing products are (nil, nil) so consumers map their own errors
	product, err = r.ProductByID(nil, productId+99)
	require.NoError(t, err)
	assert.Nil(t, product)
}

// =============================================================================
// Audit Trail Tests
// =============================================================================

func TestAuditTrailPerOperation(t *testing.T) {
	r, db := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	require.NoError(t, r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+1),
		productId,
		testBob,
	))
	require.NoError(
		t,
		r.Burn(chain.NewOpContext(testBob, testGenBlock+2), productId),
	)
	// Rejected operations leave no audit entries
	err := r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock+3),
		productId,
		testBob,
	)
	require.Error(t, err)

	trail, err := db.GetAuditTrail(productId, nil)
	require.NoError(t, err)
	require.Len(t, trail, 3, "one envelope per successful operation")
	operations := make([]string, 0, len(trail))
	for _, entry := range trail {
		assert.Equal(t, "registry", entry.Component)
		assert.NotEmpty(t, entry.Actor)
		operations = append(operations, entry.Operation)
	}
	assert.Equal(t, []string{"register", "transfer", "burn"}, operations)
	assert.Equal(t, string(testAlice), trail[0].Actor)
	assert.Equal(t, testGenBlock, trail[0].Block)
	assert.Equal(t, string(testBob), trail[2].Actor)
}

func TestAuditDetailContent(t *testing.T) {
	r, db := newTestRegistry(t)
	productId := mustRegister(t, r, testAlice, testGenBlock)
	trail, err := db.GetAuditTrail(productId, nil)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.JSONEq(
		t,
		`{"originCountry":"DE","category":"electronics","batchSize":500,"mintFee":0}`,
		string(trail[0].Detail),
	)
}

func TestRejectedOperationsNotAudited(t *testing.T) {
	r, db := newTestRegistry(t)
	// Unauthorized probe against a missing product
	err := r.Transfer(
		chain.NewOpContext(testAlice, testGenBlock),
		42,
		testBob,
	)
	require.ErrorIs(t, err, chain.ErrUnauthorized)
	trail, err := db.GetAuditTrail(42, nil)
	require.NoError(t, err)
	assert.Empty(t, trail)
}
