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
	"bytes"
	"fmt"
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
	testVerifier = "acct:verifier"
	testAuditor  = "acct:auditor"
	testBlock    = uint64(55)
	testProdId   = uint64(11)
)

// mockClaimSource serves a fixed claim set without a claim store
type mockClaimSource struct {
	mu     sync.Mutex
	claims map[uint64]*models.OriginClaim
}

func newMockClaimSource() *mockClaimSource {
	return &mockClaimSource{
		claims: make(map[uint64]*models.OriginClaim),
	}
}

func (m *mockClaimSource) ClaimByProduct(
	txn *database.Txn,
	productId uint64,
) (*models.OriginClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[productId], nil
}

func (m *mockClaimSource) add(claim *models.OriginClaim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ProductID] = claim
}

func newTestStore(t *testing.T, attestationCap int) (*Store, *mockClaimSource) {
	t.Helper()
	db, err := database.New(database.Config{
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		DataDir: "",
	})
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	claims := newMockClaimSource()
	claims.add(&models.OriginClaim{
		ProductID: testProdId,
		ClaimType: "organic-origin",
		Issuer:    "acct:maker",
	})
	s := NewStore(StoreConfig{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:       event.NewEventBus(nil, nil),
		PromRegistry:   prometheus.NewRegistry(),
		DB:             db,
		Claims:         claims,
		AttestationCap: attestationCap,
	})
	return s, claims
}

// =============================================================================
// Attest Tests
// =============================================================================

func TestAttestRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 0)
	require.NoError(t, s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId,
		true,
		"meets the claimed origin",
	))
	require.NoError(t, s.Attest(
		chain.NewOpContext(testAuditor, testBlock+1),
		testProdId,
		false,
		"paperwork inconsistent",
	))

	attestations, err := s.Attestations(testProdId)
	require.NoError(t, err)
	require.Len(t, attestations, 2)
	assert.Equal(t, uint32(0), attestations[0].Seq)
	assert.Equal(t, testVerifier, attestations[0].Verifier)
	assert.True(t, attestations[0].Status)
	assert.Equal(t, "meets the claimed origin", attestations[0].Comment)
	assert.Equal(t, testBlock, attestations[0].Timestamp)
	assert.Equal(t, uint32(1), attestations[1].Seq)
	assert.Equal(t, testAuditor, attestations[1].Verifier)
	assert.False(t, attestations[1].Status)

	assert.Equal(
		t,
		float64(2),
		testutil.ToFloat64(s.metrics.attestationsAdded),
	)
}

func TestAttestRequiresClaim(t *testing.T) {
	s, _ := newTestStore(t, 0)
	err := s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId+1,
		true,
		"",
	)
	assert.ErrorIs(t, err, chain.ErrInvalidClaim)
}

func TestAttestCommentValidation(t *testing.T) {
	s, _ := newTestStore(t, 0)
	oversized := string(bytes.Repeat([]byte{'x'}, MaxCommentLen+1))
	err := s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId,
		true,
		oversized,
	)
	assert.ErrorIs(t, err, chain.ErrInvalidParameter)

	// The empty comment is allowed
	require.NoError(t, s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId,
		true,
		"",
	))
}

func TestAttestCapacity(t *testing.T) {
	s, _ := newTestStore(t, 3)
	for i := range 3 {
		require.NoError(t, s.Attest(
			chain.NewOpContext(testVerifier, testBlock+uint64(i)),
			testProdId,
			true,
			fmt.Sprintf("pass %d", i),
		))
	}
	err := s.Attest(
		chain.NewOpContext(testAuditor, testBlock+3),
		testProdId,
		false,
		"too late",
	)
	assert.ErrorIs(t, err, chain.ErrCapacityExceeded)

	attestations, err := s.Attestations(testProdId)
	require.NoError(t, err)
	assert.Len(t, attestations, 3)
}

func TestAttestRepeatVerifier(t *testing.T) {
	s, _ := newTestStore(t, 0)
	// The same verifier may attest repeatedly; each verdict is kept
	for i := range 3 {
		require.NoError(t, s.Attest(
			chain.NewOpContext(testVerifier, testBlock+uint64(i)),
			testProdId,
			i != 1,
			"",
		))
	}
	attestations, err := s.Attestations(testProdId)
	require.NoError(t, err)
	require.Len(t, attestations, 3)
	assert.True(t, attestations[0].Status)
	assert.False(t, attestations[1].Status)
	assert.True(t, attestations[2].Status)
}

func TestAttestPublishesEvent(t *testing.T) {
	s, _ := newTestStore(t, 0)
	_, subCh := s.eventBus.Subscribe(AttestationAddedEventType)
	require.NoError(t, s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId,
		true,
		"",
	))
	evt := <-subCh
	data, ok := evt.Data.(AttestationAddedEvent)
	require.True(t, ok, "unexpected event payload type")
	assert.Equal(t, testProdId, data.ProductID)
	assert.Equal(t, uint32(0), data.Seq)
	assert.Equal(t, testVerifier, data.Verifier)
	assert.True(t, data.Status)
}

// =============================================================================
// IsVerified Tests
// =============================================================================

func TestIsVerified(t *testing.T) {
	s, _ := newTestStore(t, 0)

	// Vacuously verified with no attestations on file
	verified, err := s.IsVerified(testProdId)
	require.NoError(t, err)
	assert.True(t, verified)

	require.NoError(t, s.Attest(
		chain.NewOpContext(testVerifier, testBlock),
		testProdId,
		true,
		"",
	))
	verified, err = s.IsVerified(testProdId)
	require.NoError(t, err)
	assert.True(t, verified)

	// One negative verdict flips the conjunction for good
	require.NoError(t, s.Attest(
		chain.NewOpContext(testAuditor, testBlock+1),
		testProdId,
		false,
		"",
	))
	require.NoError(t, s.Attest(
		chain.NewOpContext(testVerifier, testBlock+2),
		testProdId,
		true,
		"",
	))
	verified, err = s.IsVerified(testProdId)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestIsVerifiedIsTotal(t *testing.T) {
	s, _ := newTestStore(t, 0)
	// No claim, no product, no attestations: still a valid (vacuous) read
	verified, err := s.IsVerified(9999)
	require.NoError(t, err)
	assert.True(t, verified)
}
