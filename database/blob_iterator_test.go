// Copyright 2026 Blink Labs Software
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

package database

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates an in-memory Database instance for testing.
func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(Config{
		DataDir: "", // In-memory
	})
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "failed to close test database")
	})
	return db
}

// insertTestAudit appends an audit entry and returns the assigned record id.
func insertTestAudit(
	t *testing.T,
	db *Database,
	block uint64,
	productId uint64,
	operation string,
) uint64 {
	t.Helper()
	id, err := db.AddAuditEvent(
		AuditEvent{
			Block:     block,
			Component: "registry",
			Operation: operation,
			ProductID: productId,
			Actor:     "acct:test",
		},
		nil,
	)
	require.NoError(t, err, "failed to insert audit entry at block %d", block)
	return id
}

func TestAuditLogIterator_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	iter := db.AuditLogFrom(0)
	defer iter.Close()

	event, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event, "event should be nil for empty database")
}

// collectIterIds drains an AuditLogIterator via Next and returns all
// yielded record ids. Each event's actor is also checked for non-empty.
func collectIterIds(
	t *testing.T, iter *AuditLogIterator,
) []uint64 {
	t.Helper()
	var ids []uint64
	for {
		event, err := iter.Next()
		require.NoError(t, err)
		if event == nil {
			break
		}
		assert.NotEmpty(
			t, event.Actor,
			"actor should not be empty for record %d", event.ID,
		)
		ids = append(ids, event.ID)
	}
	return ids
}

func TestAuditLogIterator_IdRanges(t *testing.T) {
	// Five entries are seeded per subtest, so record ids run 1 through 5

	tests := []struct {
		name     string
		start    uint64
		end      *uint64 // nil = AuditLogFrom, non-nil = AuditLogRange
		expected []uint64
	}{
		{
			name:     "AuditLogFrom/all",
			start:    0,
			expected: []uint64{1, 2, 3, 4, 5},
		},
		{
			name:     "AuditLogFrom/mid_range",
			start:    3,
			expected: []uint64{3, 4, 5},
		},
		{
			name:     "AuditLogRange/inclusive",
			start:    2,
			end:      ptr(uint64(4)),
			expected: []uint64{2, 3, 4},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			for i := range 5 {
				insertTestAudit(
					t, db, uint64(i+1), uint64(i+1), "mint",
				)
			}

			var iter *AuditLogIterator
			if tc.end != nil {
				iter = db.AuditLogRange(tc.start, *tc.end)
			} else {
				iter = db.AuditLogFrom(tc.start)
			}
			defer iter.Close()

			collected := collectIterIds(t, iter)
			assert.Equal(t, tc.expected, collected)
		})
	}
}

// ptr returns a pointer to the given value.
func ptr[T any](v T) *T { return &v }

func TestAuditLogIterator_Progress(t *testing.T) {
	db := newTestDB(t)

	// Insert entries
	for i := range 3 {
		insertTestAudit(t, db, uint64(i+100), 7, "transfer")
	}

	// Test with endId
	iter := db.AuditLogRange(0, 500)
	defer iter.Close()

	// Before any iteration, current should be 0
	current, end := iter.Progress()
	assert.Equal(t, uint64(0), current, "initial current id should be 0")
	assert.Equal(t, uint64(500), end, "end id should match constructor")

	// After iterating one entry
	event, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, uint64(1), event.ID)

	current, end = iter.Progress()
	assert.Equal(t, uint64(1), current, "current should track last yielded id")
	assert.Equal(t, uint64(500), end, "end should remain unchanged")
}

func TestAuditLogIterator_ProgressNoEndId(t *testing.T) {
	db := newTestDB(t)

	iter := db.AuditLogFrom(0)
	defer iter.Close()

	_, end := iter.Progress()
	assert.Equal(t, uint64(0), end, "end should be 0 when not specified")
}

func TestAuditLogIterator_CloseMultipleTimes(t *testing.T) {
	db := newTestDB(t)

	iter := db.AuditLogFrom(0)

	// Close multiple times, should not panic
	iter.Close()
	iter.Close()
	iter.Close()

	// Next after close should return nil
	event, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestAuditLogIterator_CloseWhileIterating(t *testing.T) {
	db := newTestDB(t)

	// Insert entries
	for i := range 5 {
		insertTestAudit(t, db, uint64(i+10), 3, "custody")
	}

	iter := db.AuditLogFrom(0)

	// Read one entry
	event, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, uint64(1), event.ID)

	// Close mid-iteration
	iter.Close()

	// Subsequent reads should return nil
	event, err = iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestAuditLogIterator_EnvelopeContent(t *testing.T) {
	db := newTestDB(t)

	detail, err := json.Marshal(map[string]string{"owner": "acct:alice"})
	require.NoError(t, err)
	id, err := db.AddAuditEvent(
		AuditEvent{
			Block:     42,
			Component: "registry",
			Operation: "mint",
			ProductID: 9,
			Actor:     "acct:alice",
			Detail:    detail,
		},
		nil,
	)
	require.NoError(t, err)

	iter := db.AuditLogFrom(0)
	defer iter.Close()

	event, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, id, event.ID)
	assert.Equal(t, uint64(42), event.Block)
	assert.Equal(t, "registry", event.Component)
	assert.Equal(t, "mint", event.Operation)
	assert.Equal(t, uint64(9), event.ProductID)
	assert.Equal(t, "acct:alice", event.Actor)
	assert.JSONEq(t, string(detail), string(event.Detail))
	assert.False(t, event.Timestamp.IsZero(), "timestamp should be filled in")
}

func TestAuditLogIterator_EmptyRange(t *testing.T) {
	db := newTestDB(t)

	// Insert entries below the requested range
	insertTestAudit(t, db, 10, 1, "mint")
	insertTestAudit(t, db, 11, 2, "mint")

	// Request range with no entries
	iter := db.AuditLogRange(5, 10)
	defer iter.Close()

	event, err := iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestAuditLogIterator_SingleEntry(t *testing.T) {
	db := newTestDB(t)

	id := insertTestAudit(t, db, 100, 4, "burn")

	iter := db.AuditLogFrom(id)
	defer iter.Close()

	// First call should return the entry
	event, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, id, event.ID)
	assert.Equal(t, "burn", event.Operation)

	// Second call should indicate end
	event, err = iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestAuditLogIterator_MultiBatchResume(t *testing.T) {
	db := newTestDB(t)

	// Insert more entries than auditIteratorBatchSize (1000) to
	// exercise the resume-key carry-over between batches.
	const numEntries = 1050
	expectedIds := make([]uint64, numEntries)
	for i := range numEntries {
		id := insertTestAudit(
			t, db, uint64(i+1), uint64(i%10), "transfer",
		)
		expectedIds[i] = id
	}

	iter := db.AuditLogFrom(0)
	defer iter.Close()

	var collected []uint64
	for {
		event, err := iter.Next()
		require.NoError(t, err)
		if event == nil {
			break
		}
		collected = append(collected, event.ID)
	}

	require.Len(
		t, collected, numEntries,
		"should iterate all entries across multiple batches",
	)
	assert.Equal(
		t, expectedIds, collected,
		"entries should be in ascending id order across batches",
	)
}

func TestAuditLogIterator_MaxEndId(t *testing.T) {
	db := newTestDB(t)

	id := insertTestAudit(t, db, 100, 2, "mint")

	// Using max uint64 as endId must not overflow
	iter := db.AuditLogRange(0, ^uint64(0))
	defer iter.Close()

	event, err := iter.Next()
	require.NoError(t, err)
	require.NotNil(t, event, "entry should be found with max endId")
	assert.Equal(t, id, event.ID)

	event, err = iter.Next()
	require.NoError(t, err)
	assert.Nil(t, event)
}
