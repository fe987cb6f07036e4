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

package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/database/types"
)

// AuditEvent is the serialized form of one audit-log entry. The metadata
// store holds an index row for querying by product, and the full envelope
// lives in the blob store keyed by record id
type AuditEvent struct {
	ID        uint64          `json:"id"`
	Block     uint64          `json:"block"`
	Component string          `json:"component"`
	Operation string          `json:"operation"`
	ProductID uint64          `json:"productId,omitempty"`
	Actor     string          `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// AddAuditEvent appends an entry to the audit log and returns the record id
// assigned by the metadata store. The index row and the blob payload are
// written in the same transaction, so the index can never reference a
// payload that was not committed
func (d *Database) AddAuditEvent(event AuditEvent, txn *Txn) (uint64, error) {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	record := models.AuditRecord{
		Block:     event.Block,
		Component: event.Component,
		Operation: event.Operation,
		ProductID: event.ProductID,
		Actor:     event.Actor,
	}
	if err := d.metadata.AddAuditRecord(&record, txn.Metadata()); err != nil {
		return 0, fmt.Errorf("failed to add audit record: %w", err)
	}
	event.ID = record.ID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(&event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if err := d.blob.Set(txn.Blob(), types.AuditBlobKey(record.ID), payload); err != nil {
		return 0, fmt.Errorf("failed to store audit event payload: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return 0, fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return record.ID, nil
}

// GetAuditTrail returns the audit entries recorded for a product in append
// order
func (d *Database) GetAuditTrail(
	productId uint64,
	txn *Txn,
) ([]AuditEvent, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	records, err := d.metadata.GetAuditRecords(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get audit records for product %d: %w",
			productId,
			err,
		)
	}
	ret := make([]AuditEvent, 0, len(records))
	for _, record := range records {
		payload, err := d.blob.Get(
			txn.Blob(),
			types.AuditBlobKey(record.ID),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to get audit event payload %d: %w",
				record.ID,
				err,
			)
		}
		var event AuditEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf(
				"failed to unmarshal audit event %d: %w",
				record.ID,
				err,
			)
		}
		ret = append(ret, event)
	}
	return ret, nil
}
