// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"generic", errors.New("disk full"), ExitFailure},
		{"explicit", &ExitError{Code: 3}, 3},
		{"wrapped explicit", fmt.Errorf("verify: %w", &ExitError{Code: 12}), 12},
		{"usage", &UsageError{Command: "shipwright", Message: "unknown flag: --x"}, ExitUsage},
		{"patch corrupt", fmt.Errorf("applying: %w", delta.ErrPatchCorrupt), ExitPatchCorrupt},
		{"patch mismatch", fmt.Errorf("applying: %w", delta.ErrPatchMismatch), ExitPatchMismatch},
		{"hash mismatch", &integrity.HashMismatchError{Artifact: "a.pkg"}, ExitHashMismatch},
		{"size mismatch", &integrity.SizeMismatchError{Artifact: "a.pkg", Want: 2, Got: 1}, ExitSizeMismatch},
		{"version not found", fmt.Errorf("resolve: %w", release.ErrVersionNotFound), ExitVersionNotFound},
		{"duplicate entry", fmt.Errorf("build: %w", release.ErrDuplicateEntry), ExitDuplicateEntry},
		{"malformed name", fmt.Errorf("verify: %w", release.ErrMalformedFileName), ExitMalformedFileName},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCodeFor(test.err); got != test.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	seen := map[int]bool{ExitFailure: true, ExitUsage: true}
	for _, entry := range exitCodes {
		if seen[entry.code] {
			t.Errorf("exit code %d used twice", entry.code)
		}
		seen[entry.code] = true
	}
}
