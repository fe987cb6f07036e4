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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/paddock/database/types"
)

const (
	// auditIteratorBatchSize controls how many audit keys are fetched per
	// batch from the blob iterator. This avoids loading the entire log
	// into memory while keeping I/O efficient.
	auditIteratorBatchSize = 1000
)

// auditLogEntry holds an audit key discovered during batch scanning.
type auditLogEntry struct {
	key []byte
	id  uint64
}

// AuditLogIterator iterates audit envelopes from the blob store in append
// order. The blob store keys are formatted as "a" + big-endian(record id),
// so forward iteration naturally yields entries in ascending id order.
//
// The iterator fetches keys in batches to avoid loading the entire log
// index into memory, and retrieves envelope payloads on demand for each
// call to Next.
type AuditLogIterator struct {
	db       *Database
	startId  uint64
	endId    uint64
	hasEndId bool

	// internal state
	mu        sync.Mutex
	batch     []auditLogEntry
	batchIdx  int
	currentId uint64
	exhausted bool
	closed    bool

	// resumeKey is the blob key to seek past when fetching the next batch.
	// nil means start from the beginning (or from startId).
	resumeKey []byte
}

// AuditLogFrom returns an iterator that yields audit entries starting from
// startId, continuing through all subsequent entries in the blob store.
func (d *Database) AuditLogFrom(startId uint64) *AuditLogIterator {
	return &AuditLogIterator{
		db:      d,
		startId: startId,
	}
}

// AuditLogRange returns an iterator for a specific record id range
// [start, end]. Both endpoints are inclusive.
func (d *Database) AuditLogRange(
	startId, endId uint64,
) *AuditLogIterator {
	return &AuditLogIterator{
		db:       d,
		startId:  startId,
		endId:    endId,
		hasEndId: true,
	}
}

// Next returns the next audit entry. When iteration is complete, it
// returns (nil, nil). Entries whose payload cannot be fetched from the
// blob store are skipped with a warning log.
func (it *AuditLogIterator) Next() (*AuditEvent, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil
	}

	for {
		// Refill batch if needed
		if it.batchIdx >= len(it.batch) {
			if it.exhausted {
				return nil, nil
			}
			if err := it.fetchBatch(); err != nil {
				return nil, err
			}
			if len(it.batch) == 0 {
				it.exhausted = true
				return nil, nil
			}
		}

		entry := it.batch[it.batchIdx]
		it.batchIdx++
		it.currentId = entry.id

		event, fetchErr := it.fetchEvent(entry.id)
		if fetchErr != nil {
			if errors.Is(fetchErr, types.ErrBlobKeyNotFound) {
				it.db.logger.Warn(
					"audit iterator: skipping entry with missing payload",
					"record_id", entry.id,
					"error", fetchErr,
				)
				continue
			}
			return nil, fmt.Errorf(
				"fetching audit entry %d: %w",
				entry.id, fetchErr,
			)
		}

		return event, nil
	}
}

// Progress returns the current record id being iterated and the end id.
// If no end id was specified (iterate to tip), end returns 0.
func (it *AuditLogIterator) Progress() (current, end uint64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.currentId, it.endId
}

// Close releases any resources held by the iterator. It is safe to call
// Close multiple times.
func (it *AuditLogIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch retrieves the next batch of audit keys from the blob store.
// Must be called with it.mu held.
func (it *AuditLogIterator) fetchBatch() error {
	blob := it.db.Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	iterOpts := types.BlobIteratorOptions{
		Prefix: []byte(types.AuditBlobKeyPrefix),
	}
	blobIter := blob.NewIterator(txn, iterOpts)
	if blobIter == nil {
		return errors.New("blob iterator is nil")
	}
	defer blobIter.Close()

	// Determine seek position
	var seekKey []byte
	if it.resumeKey != nil {
		// Seek past the last key we processed
		seekKey = it.resumeKey
	} else {
		// Start from the configured start id
		seekKey = types.AuditBlobKey(it.startId)
	}

	// Build end key for range limiting.
	// When endId is max uint64, all ids are in range so we
	// skip the bound check to avoid overflow on endId+1.
	var endKey []byte
	if it.hasEndId && it.endId < ^uint64(0) {
		endKey = types.AuditBlobKey(it.endId + 1)
	}

	batch := make([]auditLogEntry, 0, auditIteratorBatchSize)
	prefix := []byte(types.AuditBlobKeyPrefix)

	resuming := it.resumeKey != nil

	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		if item == nil {
			continue
		}
		key := item.Key()
		if key == nil {
			continue
		}

		// When resuming, skip the exact key we left off at.
		// If resumeKey was deleted (compaction), Seek lands on the
		// next key which should be included, so we only continue
		// when there is an exact match.
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}

		// Check end range
		if endKey != nil && bytes.Compare(key, endKey) >= 0 {
			break
		}

		// Parse record id from key
		if len(key) != len(types.AuditBlobKeyPrefix)+8 {
			it.db.logger.Warn(
				"audit iterator: skipping unparseable key",
				"key", fmt.Sprintf("%x", key),
			)
			continue
		}

		entry := auditLogEntry{
			key: make([]byte, len(key)),
			id:  types.AuditBlobKeyRecordId(key),
		}
		copy(entry.key, key)

		batch = append(batch, entry)
		if len(batch) >= auditIteratorBatchSize {
			break
		}
	}

	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("scanning audit keys: %w", err)
	}

	it.batch = batch
	it.batchIdx = 0

	if len(batch) > 0 {
		it.resumeKey = batch[len(batch)-1].key
	}

	// If we got fewer than a full batch, we've exhausted the range
	if len(batch) < auditIteratorBatchSize {
		it.exhausted = true
	}

	return nil
}

// fetchEvent retrieves and decodes the envelope payload for a record id.
// Must be called with it.mu held.
func (it *AuditLogIterator) fetchEvent(id uint64) (*AuditEvent, error) {
	blob := it.db.Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	payload, err := blob.Get(txn, types.AuditBlobKey(id))
	if err != nil {
		return nil, err
	}
	var event AuditEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decoding audit envelope: %w", err)
	}
	return &event, nil
}
