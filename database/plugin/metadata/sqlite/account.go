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
	"gorm.io/gorm/clause"
)

// GetAccount retrieves the fee account for a principal.
func (d *MetadataStoreSqlite) GetAccount(
	principal string,
	txn types.Txn,
) (*models.Account, error) {
	var account models.Account
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"principal = ?",
		principal,
	).First(&account); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &account, nil
}

// SetAccountBalance creates or replaces the fee account balance for a principal.
func (d *MetadataStoreSqlite) SetAccountBalance(
	principal string,
	balance uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	account := models.Account{
		Principal: principal,
		Balance:   types.Uint64(balance),
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance"}),
	}
	if result := db.Clauses(onConflict).Create(&account); result.Error != nil {
		return result.Error
	}
	return nil
}
