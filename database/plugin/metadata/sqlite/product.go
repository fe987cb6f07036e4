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

// AddProduct inserts a product identity row. The product id is assigned by
// the registry, not the database.
func (d *MetadataStoreSqlite) AddProduct(
	product *models.Product,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(product); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProduct retrieves a product identity by id.
func (d *MetadataStoreSqlite) GetProduct(
	productId uint64,
	txn types.Txn,
) (*models.Product, error) {
	var product models.Product
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"id = ?",
		productId,
	).First(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &product, nil
}

// GetProductsByOwner retrieves all live products currently assigned to an owner.
func (d *MetadataStoreSqlite) GetProductsByOwner(
	owner string,
	txn types.Txn,
) ([]models.Product, error) {
	var products []models.Product
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"owner = ?",
		owner,
	).Order("id").Find(&products); result.Error != nil {
		return nil, result.Error
	}
	return products, nil
}

// SetProductOwner updates the current owner of a product.
func (d *MetadataStoreSqlite) SetProductOwner(
	productId uint64,
	owner string,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Model(&models.Product{}).Where(
		"id = ?",
		productId,
	).Update("owner", owner); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteProduct removes a product identity row. Ownership history rows are
// left in place.
func (d *MetadataStoreSqlite) DeleteProduct(
	productId uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Where(
		"id = ?",
		productId,
	).Delete(&models.Product{}); result.Error != nil {
		return result.Error
	}
	return nil
}
