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

// AddProduct inserts a product identity row
func (d *Database) AddProduct(product *models.Product, txn *Txn) error {
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
	if err := d.metadata.AddProduct(product, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to add product %d: %w", product.ID, err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// GetProduct returns a product identity by id
func (d *Database) GetProduct(
	productId uint64,
	txn *Txn,
) (*models.Product, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	product, err := d.metadata.GetProduct(productId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", productId, err)
	}
	if product == nil {
		return nil, models.ErrProductNotFound
	}
	return product, nil
}

// GetProductsByOwner returns all live products currently assigned to an owner
func (d *Database) GetProductsByOwner(
	owner string,
	txn *Txn,
) ([]models.Product, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	products, err := d.metadata.GetProductsByOwner(owner, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get products for owner %s: %w",
			owner,
			err,
		)
	}
	return products, nil
}

// SetProductOwner updates the current owner of a product
func (d *Database) SetProductOwner(
	productId uint64,
	owner string,
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
	if err := d.metadata.SetProductOwner(productId, owner, txn.Metadata()); err != nil {
		return fmt.Errorf(
			"failed to set owner for product %d: %w",
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

// DeleteProduct removes a product identity row, leaving its ownership
// history in place
func (d *Database) DeleteProduct(productId uint64, txn *Txn) error {
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
	if err := d.metadata.DeleteProduct(productId, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productId, err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}
