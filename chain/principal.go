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

// Principal is an opaque caller identity supplied by the host environment.
// The registry never mints or derives principals; it only compares them.
// The empty string is the unset value and never authorizes anything.
type Principal string

func (p Principal) String() string {
	return string(p)
}

// Valid reports whether the principal is usable as an identity
func (p Principal) Valid() bool {
	return p != ""
}

// FingerprintSize is the fixed length of every certification and evidence
// fingerprint accepted by the registry
const FingerprintSize = 32

// ValidFingerprint reports whether the given digest has the required fixed
// length
func ValidFingerprint(fingerprint []byte) bool {
	return len(fingerprint) == FingerprintSize
}

// Category classifies a registered product
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryPharma      Category = "pharma"
	CategoryAgri        Category = "agri"
	CategoryLuxury      Category = "luxury"
)

// Valid reports whether the category is one of the enumerated values
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryPharma, CategoryAgri, CategoryLuxury:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
