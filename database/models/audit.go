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

// AuditRecord is the metadata index row for one audit-log envelope. The
// serialized payload lives in the blob store under the record id and is
// written in the same transaction, so the log can never reference a payload
// that was not committed.
type AuditRecord struct {
	ID        uint64 `gorm:"primarykey"`
	Block     uint64 `gorm:"index;not null"`
	Component string `gorm:"size:32;index;not null"`
	Operation string `gorm:"size:32;not null"`
	ProductID uint64 `gorm:"index"` // zero when the operation has no product subject
	Actor     string `gorm:"size:128;not null"`
}

// TableName returns the table name
func (AuditRecord) TableName() string {
	return "audit_record"
}
