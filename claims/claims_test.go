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
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"

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
// Test Helpers and Mocks
// =============================================================================

const (
	testMaker  = "acct:maker"
	testOther  = "acct:other"
	testBlock  = uint64(70)
	testClaim  = "organic-origin"
	testProdId = uint64(7)
)

// mockProductSource serves a fixed product set without a registry
type mockProductSource struct {
	mu       sync.Mutex
	products map[uint64]*models.Product
}

func newMockProductSource() *mockProductSource {
	return &mockProductSource{
		products: make(map[uint64]*models.Product),
	}
}

func (m *mockProductSource) ProductByID(
	txn *database.Txn,
	productId uint64,
) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productId], nil
}

func (m *mockProductSource) add(product *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
}

func (m *mockProductSource) remove(productId uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, productId)
}

func newTestStore(t *testing.T) (*Store, *mockProductSource, *database.Database) {
	t.Helper()
	db, err := database.New(database.Config{
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		DataDir: "",
	})
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	products := newMockProductSource()
	products.add(&models.Product{
		ID:           testProdId,
		Manufacturer: testMaker,
		Owner:        testMaker,
	})
	s := NewStore(StoreConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:     event.NewEventBus(nil, nil),
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
		Products:     products,
	})
	return s, products, db
}

func testHash(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, chain.FingerprintSize)
}

func mustCreateClaim(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.Create(
		chain.NewOpContext(testMaker, testBlock),
		testProdId,
		testClaim,
		testHash(0x01),
	))
}

// =============================================================================
// Create Tests
// =============================================================================

func TestCreateClaimRoundTrip(t *testing.T) {
	s, _, db := newTestStore(t)
	mustCreateClaim(t, s)

	claim, err := s.Claim(testProdId)
	require.NoError(t, err)
	assert.Equal(t, testProdId, claim.ProductID)
	assert.Equal(t, testClaim, claim.ClaimType)
	assert.Equal(t, testHash(0x01), claim.EvidenceHash)
	assert.Equal(t, testMaker, claim.Issuer, "issuer should be the caller")
	assert.Equal(t, testBlock, claim.Timestamp)

	trail, err := db.GetAuditTrail(testProdId, nil)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "claims", trail[0].Component)
	assert.Equal(t, "create_claim", trail[0].Operation)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.claimsCreated))
}

func TestCreateClaimValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	makerCtx := chain.NewOpContext(testMaker, testBlock)

	t.Run("unknown product", func(t *testing.T) {
		err := s.Create(makerCtx, testProdId+1, testClaim, testHash(0x01))
		assert.ErrorIs(t, err, chain.ErrInvalidProduct)
	})
	t.Run("non-manufacturer", func(t *testing.T) {
		err := s.Create(
			chain.NewOpContext(testOther, testBlock),
			testProdId,
			testClaim,
			testHash(0x01),
		)
		assert.ErrorIs(t, err, chain.ErrUnauthorized)
	})
	t.Run("empty claim type", func(t *testing.T) {
		err := s.Create(makerCtx, testProdId, "", testHash(0x01))
		assert.ErrorIs(t, err, chain.ErrInvalidParameter)
	})
	t.Run("oversized claim type", func(t *testing.T) {
		oversized := string(bytes.Repeat([]byte{'x'}, MaxClaimTypeLen+1))
		err := s.Create(makerCtx, testProdId, oversized, testHash(0x01))
		assert.ErrorIs(t, err, chain.ErrInvalidParameter)
	})
	t.Run("bad fingerprint", func(t *testing.T) {
		err := s.Create(makerCtx, testProdId, testClaim, []byte{0x01})
		assert.ErrorIs(t, err, chain.ErrInvalidFingerprint)
		var fpErr chain.FingerprintError
		require.ErrorAs(t, err, &fpErr)
		assert.Equal(t, 1, fpErr.Length)
	})

	// Nothing was filed by the rejected attempts
	_, err := s.Claim(testProdId)
	assert.ErrorIs(t, err, chain.ErrNotFound)
	assert.Equal(t, float64(0), testutil.ToFloat64(s.metrics.claimsCreated))
}

func TestCreateClaimOnlyOnce(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateClaim(t, s)

	// A second claim is refused even for the manufacturer with new evidence
	err := s.Create(
		chain.NewOpContext(testMaker, testBlock+1),
		testProdId,
		"fair-trade",
		testHash(0x02),
	)
	assert.ErrorIs(t, err, chain.ErrAlreadyExists)

	claim, err := s.Claim(testProdId)
	require.NoError(t, err)
	assert.Equal(t, testClaim, claim.ClaimType, "original claim should stand")
}

func TestCreateClaimPublishesEvent(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, subCh := s.eventBus.Subscribe(ClaimCreatedEventType)
	mustCreateClaim(t, s)
	evt := <-subCh
	data, ok := evt.Data.(ClaimCreatedEvent)
	require.True(t, ok, "unexpected event payload type")
	assert.Equal(t, testProdId, data.ProductID)
	assert.Equal(t, testClaim, data.ClaimType)
	assert.Equal(t, testMaker, data.Issuer)
	assert.Equal(t, testBlock, data.Block)
}

// =============================================================================
// UpdateEvidence Tests
// =============================================================================

func TestUpdateEvidence(t *testing.T) {
	s, _, db := newTestStore(t)
	mustCreateClaim(t, s)

	require.NoError(t, s.UpdateEvidence(
		chain.NewOpContext(testMaker, testBlock+5),
		testProdId,
		testHash(0x02),
	))

	claim, err := s.Claim(testProdId)
	require.NoError(t, err)
	assert.Equal(t, testHash(0x02), claim.EvidenceHash)
	assert.Equal(
		t,
		testBlock,
		claim.Timestamp,
		"creation timestamp is immutable",
	)
	assert.Equal(t, testClaim, claim.ClaimType, "claim type is immutable")
	assert.Equal(t, testMaker, claim.Issuer, "issuer is immutable")

	trail, err := db.GetAuditTrail(testProdId, nil)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "update_evidence", trail[1].Operation)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.evidenceUpdates))
}

func TestUpdateEvidenceValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateClaim(t, s)

	t.Run("no claim on file", func(t *testing.T) {
		err := s.UpdateEvidence(
			chain.NewOpContext(testMaker, testBlock+1),
			testProdId+1,
			testHash(0x02),
		)
		assert.ErrorIs(t, err, chain.ErrInvalidProduct)
	})
	t.Run("non-issuer", func(t *testing.T) {
		err := s.UpdateEvidence(
			chain.NewOpContext(testOther, testBlock+1),
			testProdId,
			testHash(0x02),
		)
		assert.ErrorIs(t, err, chain.ErrUnauthorized)
	})
	t.Run("bad fingerprint", func(t *testing.T) {
		err := s.UpdateEvidence(
			chain.NewOpContext(testMaker, testBlock+1),
			testProdId,
			nil,
		)
		assert.ErrorIs(t, err, chain.ErrInvalidFingerprint)
	})

	claim, err := s.Claim(testProdId)
	require.NoError(t, err)
	assert.Equal(
		t,
		testHash(0x01),
		claim.EvidenceHash,
		"rejected updates must not touch the evidence",
	)
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestClaimSurvivesProductRemoval(t *testing.T) {
	s, products, _ := newTestStore(t)
	mustCreateClaim(t, s)
	products.remove(testProdId)

	// The claim is still readable and updatable after the product is gone
	claim, err := s.Claim(testProdId)
	require.NoError(t, err)
	assert.Equal(t, testClaim, claim.ClaimType)
	require.NoError(t, s.UpdateEvidence(
		chain.NewOpContext(testMaker, testBlock+1),
		testProdId,
		testHash(0x03),
	))

	// New claims still require a live product
	err = s.Create(
		chain.NewOpContext(testMaker, testBlock+1),
		testProdId+10,
		testClaim,
		testHash(0x01),
	)
	assert.ErrorIs(t, err, chain.ErrInvalidProduct)
}

func TestClaimByProduct(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreateClaim(t, s)

	claim, err := s.ClaimByProduct(nil, testProdId)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, testClaim, claim.ClaimType)

	// Missing claims are (nil, nil) so consumers map their own errors
	claim, err = s.ClaimByProduct(nil, testProdId+1)
	require.NoError(t, err)
	assert.Nil(t, claim)
}
