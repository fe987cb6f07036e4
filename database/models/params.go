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

// ChainParamsRowId is the fixed row id of the params singleton
const ChainParamsRowId = 1

// ChainParams is the process-wide registry configuration singleton. It is
// written once at genesis and after that only through registry and
// governance operations. Every validation path reads it.
type ChainParams struct {
	ID               uint64 `gorm:"primarykey"`
	NextProductID    uint64 `gorm:"not null"`
	MaxProducts      uint64 `gorm:"not null"`
	MintFee          uint64 `gorm:"not null"`
	Admin            string `gorm:"size:128;not null"`
	Paused           bool   `gorm:"not null"`
	Oracle           string `gorm:"size:128"`
	AuthorityHandoff string `gorm:"size:128"` // empty until the one-shot handoff
}

// TableName returns the table name
func (ChainParams) TableName() string {
	return "chain_params"
}
