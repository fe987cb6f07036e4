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

// AddCustodyEvent appends an entry to a product's custody trail. Seq is
// assigned by the caller from the current count.
func (d *MetadataStoreSqlite) AddCustodyEvent(
	event *models.CustodyEvent,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(event); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetCustodyChain retrieves the custody trail for a product in insertion order.
func (d *MetadataStoreSqlite) GetCustodyChain(
	productId uint64,
	txn types.Txn,
) ([]models.CustodyEvent, error) {
	var events []models.CustodyEvent
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).Order("seq").Find(&events); result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

// GetCustodyEventCount returns the number of custody entries for a product.
func (d *MetadataStoreSqlite) GetCustodyEventCount(
	productId uint64,
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Model(&models.CustodyEvent{}).Where(
		"product_id = ?",
		productId,
	).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
