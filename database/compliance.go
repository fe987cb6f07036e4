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

// SetComplianceSnapshot writes the compliance snapshot for a product,
// replacing any earlier snapshot wholesale
func (d *Database) SetComplianceSnapshot(
	snapshot *models.ComplianceSnapshot,
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
	if err := d.metadata.SetComplianceSnapshot(snapshot, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to set compliance snapshot for product %d: %w",
			snapshot.ProductID,
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

// GetComplianceSnapshot returns the compliance snapshot for a product
func (d *Database) GetComplianceSnapshot(
	productId uint64,
	txn *Txn,
) (*models.ComplianceSnapshot, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	snapshot, err := d.metadata.GetComplianceSnapshot(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get compliance snapshot for product %d: %w",
			productId,
			err,
		)
	}
	if snapshot == nil {
		return nil, models.ErrSnapshotNotFound
	}
	return snapshot, nil
}
