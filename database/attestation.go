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

// AddAttestation appends a verdict to a product's attestation sequence
func (d *Database) AddAttestation(
	attestation *models.Attestation,
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
	if err := d.metadata.AddAttestation(attestation, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to add attestation for product %d: %w",
			attestation.ProductID,
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

// GetAttestations returns the attestations for a product in insertion order
func (d *Database) GetAttestations(
	productId uint64,
	txn *Txn,
) ([]models.Attestation, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	attestations, err := d.metadata.GetAttestations(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get attestations for product %d: %w",
			productId,
			err,
		)
	}
	return attestations, nil
}

// GetAttestationCount returns the number of attestations for a product
func (d *Database) GetAttestationCount(
	productId uint64,
	txn *Txn,
) (int64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	count, err := d.metadata.GetAttestationCount(productId, txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf(
			"failed to count attestations for product %d: %w",
			productId,
			err,
		)
	}
	return count, nil
}
