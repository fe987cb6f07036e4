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
)

// AddDispute inserts a dispute row. The database assigns the next dense
// dispute id and fills it into the model.
func (d *MetadataStoreSqlite) AddDispute(
	dispute *models.Dispute,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(dispute); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetDispute retrieves a dispute by id.
func (d *MetadataStoreSqlite) GetDispute(
	disputeId uint64,
	txn types.Txn,
) (*models.Dispute, error) {
	var dispute models.Dispute
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"id = ?",
		disputeId,
	).First(&dispute); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &dispute, nil
}

// GetDisputesByProduct retrieves all disputes raised against a product id in
// creation order.
func (d *MetadataStoreSqlite) GetDisputesByProduct(
	productId uint64,
	txn types.Txn,
) ([]models.Dispute, error) {
	var disputes []models.Dispute
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).Order("id").Find(&disputes); result.Error != nil {
		return nil, result.Error
	}
	return disputes, nil
}

// SetDisputeResolved updates the resolved flag on a dispute. Resolution is
// not terminal; the flag can be set in either direction.
func (d *MetadataStoreSqlite) SetDisputeResolved(
	disputeId uint64,
	resolved bool,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Model(&models.Dispute{}).Where(
		"id = ?",
		disputeId,
	).Update("resolved", resolved); result.Error != nil {
		return result.Error
	}
	return nil
}
