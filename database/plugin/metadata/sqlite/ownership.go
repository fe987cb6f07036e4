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
	"gorm.io/gorm/clause"
)

// AddOwnershipRecord inserts an ownership history entry keyed by
// (product_id, block). A second write for the same key replaces the first;
// this mirrors the history map layout the registry inherited.
func (d *MetadataStoreSqlite) AddOwnershipRecord(
	record *models.OwnershipRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "product_id"},
			{Name: "block"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"from_owner",
			"to_owner",
			"timestamp",
		}),
	}
	if result := db.Clauses(onConflict).Create(record); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetOwnershipHistory retrieves the ownership history for a product in
// block order. Returns an empty slice for unknown products; history also
// survives product burn.
func (d *MetadataStoreSqlite) GetOwnershipHistory(
	productId uint64,
	txn types.Txn,
) ([]models.OwnershipRecord, error) {
	var records []models.OwnershipRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).Order("block").Find(&records); result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}
