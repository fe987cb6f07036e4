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

package models

import "github.com/blinklabs-io/paddock/database/types"

// Account holds a fee-asset balance for a principal. This is the embedded
// stand-in for the host's asset ledger: mint fees move between accounts in
// the same transaction as the registration they pay for.
type Account struct {
	ID        uint64       `gorm:"primarykey"`
	Principal string       `gorm:"size:128;uniqueIndex;not null"`
	Balance   types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Account) TableName() string {
	return "account"
}
