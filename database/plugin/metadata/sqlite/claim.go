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

// AddClaim inserts the origin claim for a product. The unique index on
// product_id enforces the one-claim-per-product rule at the schema level.
func (d *MetadataStoreSqlite) AddClaim(
	claim *models.OriginClaim,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(claim); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetClaim retrieves the origin claim for a product.
func (d *MetadataStoreSqlite) GetClaim(
	productId uint64,
	txn types.Txn,
) (*models.OriginClaim, error) {
	var claim models.OriginClaim
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"product_id = ?",
		productId,
	).First(&claim); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &claim, nil
}

// SetClaimEvidence replaces the evidence hash on an existing claim. Claim
// type, issuer, and the creation timestamp never change.
func (d *MetadataStoreSqlite) SetClaimEvidence(
	productId uint64,
	evidenceHash []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Model(&models.OriginClaim{}).Where(
		"product_id = ?",
		productId,
	).Update("evidence_hash", evidenceHash); result.Error != nil {
		return result.Error
	}
	return nil
}
