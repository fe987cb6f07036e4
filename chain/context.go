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

package chain

// OpContext carries the host-supplied facts about a single operation: who is
// calling and at what logical time. Components trust both values; forgery
// protection is the host's responsibility, not the registry's.
type OpContext struct {
	// Caller is the identity invoking the operation
	Caller Principal

	// Block is the current logical clock value. It is used for record
	// timestamps and as the ownership-history key, and is assumed to be
	// monotonically non-decreasing across operations.
	Block uint64
}

// NewOpContext builds an operation context for the given caller at the given
// block
func NewOpContext(caller Principal, block uint64) OpContext {
	return OpContext{
		Caller: caller,
		Block:  block,
	}
}
