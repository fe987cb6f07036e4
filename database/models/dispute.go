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

// Dispute is a flag raised against a product id. Creation is open to any
// caller and the referenced product is not required to exist; only the
// resolved flag ever changes after creation. Dispute ids are assigned by
// the database and stay dense because disputes are never deleted.
type Dispute struct {
	ID        uint64 `gorm:"primarykey"`
	ProductID uint64 `gorm:"index;not null"`
	RaisedBy  string `gorm:"size:128;not null"`
	Reason    string `gorm:"size:256;not null"`
	Block     uint64 `gorm:"not null"`
	Resolved  bool   `gorm:"not null"`
}

// TableName returns the table name
func (Dispute) TableName() string {
	return "dispute"
}
