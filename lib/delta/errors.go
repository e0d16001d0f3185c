// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/shipwright/lib/binhash"
)

var (
	// ErrPatchCorrupt matches any *PatchCorruptError.
	ErrPatchCorrupt = errors.New("patch is corrupt")

	// ErrPatchMismatch matches any *PatchMismatchError.
	ErrPatchMismatch = errors.New("patch does not apply to this base")
)

// PatchCorruptError reports a patch whose own integrity checks fail:
// bad magic, checksum mismatch, truncated streams, out-of-range control
// steps, or a reconstruction that does not hash to the recorded target.
type PatchCorruptError struct {
	Reason string
}

func (e *PatchCorruptError) Error() string {
	return "patch is corrupt: " + e.Reason
}

func (e *PatchCorruptError) Is(target error) bool {
	return target == ErrPatchCorrupt
}

func corrupt(format string, args ...any) error {
	return &PatchCorruptError{Reason: fmt.Sprintf(format, args...)}
}

// PatchMismatchError reports a valid patch applied to the wrong base.
type PatchMismatchError struct {
	WantSize uint64
	GotSize  uint64
	WantHash binhash.Digest
	GotHash  binhash.Digest
}

func (e *PatchMismatchError) Error() string {
	if e.WantSize != e.GotSize {
		return fmt.Sprintf("patch expects a %d-byte base, got %d bytes", e.WantSize, e.GotSize)
	}
	return fmt.Sprintf("patch expects base %s, got %s", e.WantHash.Short(), e.GotHash.Short())
}

func (e *PatchMismatchError) Is(target error) bool {
	return target == ErrPatchMismatch
}
