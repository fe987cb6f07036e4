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

// OriginClaim is the single origin claim attached to a product by its
// manufacturer. Only the evidence hash may change after creation, and only
// at the hands of the original issuer. A claim may outlive its product.
type OriginClaim struct {
	ID           uint64 `gorm:"primarykey"`
	ProductID    uint64 `gorm:"uniqueIndex;not null"`
	ClaimType    string `gorm:"size:64;not null"`
	EvidenceHash []byte `gorm:"size:32;not null"`
	Issuer       string `gorm:"size:128;index;not null"`
	Timestamp    uint64 `gorm:"not null"`
}

// TableName returns the table name
func (OriginClaim) TableName() string {
	return "origin_claim"
}
