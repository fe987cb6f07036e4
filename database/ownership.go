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
	"fmt"

	"github.com/blinklabs-io/paddock/database/models"
)

// AddOwnershipRecord writes an ownership history entry. An entry with the
// same (product, block) key as an earlier one replaces it.
func (d *Database) AddOwnershipRecord(
	record *models.OwnershipRecord,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	if err := d.metadata.AddOwnershipRecord(record, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to add ownership record for product %d: %w",
			record.ProductID,
			err,
		)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// GetOwnershipHistory returns the ownership history for a product in block
// order. The result is empty for products that were never minted; history
// survives burn.
func (d *Database) GetOwnershipHistory(
	productId uint64,
	txn *Txn,
) ([]models.OwnershipRecord, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	records, err := d.metadata.GetOwnershipHistory(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get ownership history for product %d: %w",
			productId,
			err,
		)
	}
	return records, nil
}
