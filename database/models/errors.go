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

import "errors"

var (
	// ErrChainParamsNotFound is returned when the params singleton has not
	// been written yet
	ErrChainParamsNotFound = errors.New("chain params not found")

	// ErrProductNotFound is returned when a lookup by product id finds no row
	ErrProductNotFound = errors.New("product not found")

	// ErrClaimNotFound is returned when a product has no origin claim
	ErrClaimNotFound = errors.New("origin claim not found")

	// ErrSnapshotNotFound is returned when a product has no compliance snapshot
	ErrSnapshotNotFound = errors.New("compliance snapshot not found")

	// ErrDisputeNotFound is returned when a lookup by dispute id finds no row
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrAccountNotFound is returned when a principal has no fee account
	ErrAccountNotFound = errors.New("account not found")

	// ErrAuditRecordNotFound is returned when a lookup by audit record id
	// finds no row
	ErrAuditRecordNotFound = errors.New("audit record not found")
)
