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
	"errors"

	"github.com/blinklabs-io/paddock/database/models"
	"github.com/blinklabs-io/paddock/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetComplianceSnapshot creates or replaces the compliance snapshot for a
// product. Snapshots are whole-row overwrites; no history is kept.
func (d *MetadataStoreSqlite) SetComplianceSnapshot(
	snapshot *models.ComplianceSnapshot,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tariff_code",
			"restrictions",
			"source_fingerprint",
			"updated_at",
		}),
	}
	if result := db.Clauses(onConflict).Create(snapshot); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetComplianceSnapshot retrieves the compliance snapshot for a product.
func (d *MetadataStoreSqlite) GetComplianceSnapshot(
	productId uint64,
	txn types.Txn,
) (*models.ComplianceSnapshot, error) {
	var snapshot models.ComplianceSnapshot
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).First(&snapshot); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &snapshot, nil
}
