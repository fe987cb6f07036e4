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

// Product represents a registered product identity. The row carries both the
// immutable mint-time metadata and the mutable current owner; both are
// removed together on burn while ownership history rows persist.
type Product struct {
	ID                uint64 `gorm:"primarykey;autoIncrement:false"`
	OriginCountry     string `gorm:"size:64;not null"`
	Description       string `gorm:"size:256;not null"`
	Category          string `gorm:"size:16;index;not null"`
	BatchSize         uint64 `gorm:"not null"`
	CertificationHash []byte `gorm:"size:32;not null"`
	CreatedAt         uint64 `gorm:"autoCreateTime:false;not null"` // logical block supplied at mint
	Manufacturer      string `gorm:"size:128;index;not null"`
	Owner             string `gorm:"size:128;index;not null"`
}

// TableName returns the table name
func (Product) TableName() string {
	return "product"
}
