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

package sqlite

import (
	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/database/types"
)

// AddAuditRecord inserts an audit index row. The database assigns the
// record id and fills it into the model; the caller uses that id as the
// blob key for the serialized envelope.
func (d *MetadataStoreSqlite) AddAuditRecord(
	record *models.AuditRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(record); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetAuditRecords retrieves the audit index rows for a product in record order.
func (d *MetadataStoreSqlite) GetAuditRecords(
	productId uint64,
	txn types.Txn,
) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).Order("id").Find(&records); result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}
