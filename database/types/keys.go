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

package types

import (
	"encoding/binary"
)

const (
	AuditBlobKeyPrefix = "a"
)

func AuditBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// AuditBlobKey builds the blob key for an audit envelope. Keys sort by
// record id, so prefix iteration walks the log in append order.
func AuditBlobKey(recordId uint64) []byte {
	key := []byte(AuditBlobKeyPrefix)
	key = append(key, AuditBlobKeyUint64ToBytes(recordId)...)
	return key
}

// AuditBlobKeyRecordId recovers the record id from an audit blob key
func AuditBlobKeyRecordId(key []byte) uint64 {
	if len(key) != len(AuditBlobKeyPrefix)+8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(AuditBlobKeyPrefix):])
}
