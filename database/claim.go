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

// AddClaim inserts the origin claim for a product
func (d *Database) AddClaim(claim *models.OriginClaim, txn *Txn) error {
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
	if err := d.metadata.AddClaim(claim, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to add claim for product %d: %w",
			claim.ProductID,
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

// GetClaim returns the origin claim for a product
func (d *Database) GetClaim(
	productId uint64,
	txn *Txn,
) (*models.OriginClaim, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	claim, err := d.metadata.GetClaim(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get claim for product %d: %w",
			productId,
			err,
		)
	}
	if claim == nil {
		return nil, models.ErrClaimNotFound
	}
	return claim, nil
}

// SetClaimEvidence replaces the evidence hash on an existing claim
func (d *Database) SetClaimEvidence(
	productId uint64,
	evidenceHash []byte,
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
	if err := d.metadata.SetClaimEvidence(
		productId,
		evidenceHash,
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf(
			"failed to set claim evidence for product %d: %w",
			productId,
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
