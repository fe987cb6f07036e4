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

// GetChainParams returns the registry configuration singleton
func (d *Database) GetChainParams(txn *Txn) (*models.ChainParams, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	params, err := d.metadata.GetChainParams(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain params: %w", err)
	}
	if params == nil {
		return nil, models.ErrChainParamsNotFound
	}
	return params, nil
}

// SetChainParams writes the registry configuration singleton
func (d *Database) SetChainParams(
	params *models.ChainParams,
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
	if err := d.metadata.SetChainParams(params, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set chain params: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}
