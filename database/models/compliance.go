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

// ComplianceSnapshot is the latest customs/compliance data for a product as
// written by the designated oracle. Each oracle update replaces the whole
// row; no snapshot history is retained.
type ComplianceSnapshot struct {
	ID                uint64 `gorm:"primarykey"`
	ProductID         uint64 `gorm:"uniqueIndex;not null"`
	TariffCode        string `gorm:"size:64;not null"`
	Restrictions      string `gorm:"size:512"`
	SourceFingerprint []byte `gorm:"size:32;not null"`
	UpdatedAt         uint64 `gorm:"autoUpdateTime:false;not null"` // logical block of the update
}

// TableName returns the table name
func (ComplianceSnapshot) TableName() string {
	return "compliance_snapshot"
}
