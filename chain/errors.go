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

import (
	"errors"
	"fmt"
)

// Every operation failure wraps exactly one of these sentinels, so callers
// can match on the discriminated code with errors.Is regardless of the
// wrapping component.
var (
	// ErrUnauthorized is returned when the caller does not hold the role an
	// operation requires. Ownership checks against unknown products also
	// return this rather than ErrNotFound, so probing cannot distinguish
	// "wrong owner" from "no such product".
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrNotAdmin is returned by administrative operations when the caller
	// is not the current admin identity.
	ErrNotAdmin = errors.New("caller is not admin")

	// ErrPaused is returned by product mutations while the registry pause
	// flag is set.
	ErrPaused = errors.New("registry is paused")

	// ErrCapacityExceeded is returned when a mint would pass the product
	// cap or an append would pass a bounded sequence cap.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidProduct is returned when a referenced product does not
	// exist and the operation does not hide existence.
	ErrInvalidProduct = errors.New("product does not exist")

	// ErrInvalidClaim is returned when a referenced origin claim does not
	// exist.
	ErrInvalidClaim = errors.New("no claim on file")

	ErrInvalidCountry     = errors.New("invalid origin country")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidBatchSize   = errors.New("invalid batch size")
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrInvalidParameter   = errors.New("invalid parameter")

	// ErrAlreadyExists is returned when creating a record that is already
	// on file, including the one-shot authority handoff.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound is returned by reads and by dispute resolution when the
	// addressed record does not exist.
	ErrNotFound = errors.New("record not found")
)

// FingerprintError wraps ErrInvalidFingerprint with the offending length.
type FingerprintError struct {
	Length int
}

func (e FingerprintError) Error() string {
	return fmt.Sprintf(
		"invalid fingerprint: expected %d bytes, got %d",
		FingerprintSize,
		e.Length,
	)
}

func (e FingerprintError) Unwrap() error {
	return ErrInvalidFingerprint
}
