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

// AddDispute inserts a dispute row and fills in its database-assigned id
func (d *Database) AddDispute(dispute *models.Dispute, txn *Txn) error {
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
	if err := d.metadata.AddDispute(dispute, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to add dispute for product %d: %w",
			dispute.ProductID,
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

// GetDispute returns a dispute by id
func (d *Database) GetDispute(
	disputeId uint64,
	txn *Txn,
) (*models.Dispute, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	dispute, err := d.metadata.GetDispute(disputeId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute %d: %w", disputeId, err)
	}
	if dispute == nil {
		return nil, models.ErrDisputeNotFound
	}
	return dispute, nil
}

// GetDisputesByProduct returns all disputes raised against a product id
func (d *Database) GetDisputesByProduct(
	productId uint64,
	txn *Txn,
) ([]models.Dispute, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	disputes, err := d.metadata.GetDisputesByProduct(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get disputes for product %d: %w",
			productId,
			err,
		)
	}
	return disputes, nil
}

// SetDisputeResolved updates the resolved flag on an existing dispute. It
// returns models.ErrDisputeNotFound when the dispute id is unknown.
func (d *Database) SetDisputeResolved(
	disputeId uint64,
	resolved bool,
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
	dispute, err := d.metadata.GetDispute(disputeId, txn.Metadata())
	if err != nil {
		return fmt.Errorf("failed to get dispute %d: %w", disputeId, err)
	}
	if dispute == nil {
		return models.ErrDisputeNotFound
	}
	if err := d.metadata.SetDisputeResolved(
		disputeId,
		resolved,
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf(
			"failed to set resolved for dispute %d: %w",
			disputeId,
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
