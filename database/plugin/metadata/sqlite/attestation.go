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

// AddAttestation appends a verdict to a product's attestation sequence. Seq
// is assigned by the caller from the current count.
func (d *MetadataStoreSqlite) AddAttestation(
	attestation *models.Attestation,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(attestation); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetAttestations retrieves the attestations for a product in insertion order.
func (d *MetadataStoreSqlite) GetAttestations(
	productId uint64,
	txn types.Txn,
) ([]models.Attestation, error) {
	var attestations []models.Attestation
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).Order("seq").Find(&attestations); result.Error != nil {
		return nil, result.Error
	}
	return attestations, nil
}

// GetAttestationCount returns the number of attestations for a product.
func (d *MetadataStoreSqlite) GetAttestationCount(
	productId uint64,
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Model(&models.Attestation{}).Where(
		"product_id = ?",
		productId,
	).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
