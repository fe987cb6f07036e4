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

// OwnershipRecord is one entry in the append-only ownership history: the
// mint record (from == to) or a transfer. Records are keyed by
// (product_id, block) and survive product burn.
//
// Known limitation carried from the on-chain layout: two owner changes of
// the same product within one logical block share a key, and the later
// write replaces the earlier one.
type OwnershipRecord struct {
	ID        uint64 `gorm:"primarykey"`
	ProductID uint64 `gorm:"uniqueIndex:idx_ownership_product_block,priority:1;not null"`
	Block     uint64 `gorm:"uniqueIndex:idx_ownership_product_block,priority:2;not null"`
	FromOwner string `gorm:"size:128;not null"`
	ToOwner   string `gorm:"size:128;not null"`
	Timestamp uint64 `gorm:"not null"`
}

// TableName returns the table name
func (OwnershipRecord) TableName() string {
	return "ownership_record"
}
