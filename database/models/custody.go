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

// CustodyEvent is one entry in a product's bounded custody trail. Seq is
// dense per product starting at zero and fixes the insertion order.
type CustodyEvent struct {
	ID        uint64 `gorm:"primarykey"`
	ProductID uint64 `gorm:"uniqueIndex:idx_custody_product_seq,priority:1;not null"`
	Seq       uint32 `gorm:"uniqueIndex:idx_custody_product_seq,priority:2;not null"`
	Handler   string `gorm:"size:128;not null"`
	Action    string `gorm:"size:128;not null"`
	Location  string `gorm:"size:128;not null"`
	Timestamp uint64 `gorm:"not null"`
}

// TableName returns the table name
func (CustodyEvent) TableName() string {
	return "custody_event"
}
