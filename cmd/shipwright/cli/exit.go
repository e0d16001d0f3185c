// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
)

// Exit codes. Each error kind a release script may want to branch on
// gets its own code; everything else exits with ExitFailure.
const (
	ExitFailure           = 1
	ExitUsage             = 2
	ExitPatchCorrupt      = 10
	ExitPatchMismatch     = 11
	ExitHashMismatch      = 12
	ExitSizeMismatch      = 13
	ExitVersionNotFound   = 14
	ExitDuplicateEntry    = 15
	ExitMalformedFileName = 16
)

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command handler returns an ExitError, main
// exits with the specified code without printing the error string:
// the command is expected to have already written its own output.
//
// "release status" uses this when the recorded update did not take.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface on
// returned errors to distinguish "handled non-zero exit" from
// "unexpected error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}

// exitCodes is checked in order; the first sentinel err matches wins.
var exitCodes = []struct {
	sentinel error
	code     int
}{
	{delta.ErrPatchCorrupt, ExitPatchCorrupt},
	{delta.ErrPatchMismatch, ExitPatchMismatch},
	{integrity.ErrHashMismatch, ExitHashMismatch},
	{integrity.ErrSizeMismatch, ExitSizeMismatch},
	{release.ErrVersionNotFound, ExitVersionNotFound},
	{release.ErrDuplicateEntry, ExitDuplicateEntry},
	{release.ErrMalformedFileName, ExitMalformedFileName},
}

// ExitCodeFor returns the process exit code for err: 0 for nil, the
// code of an *ExitError, ExitUsage for a *UsageError, the code of the
// first recognized error kind, or ExitFailure.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	var usageError *UsageError
	if errors.As(err, &usageError) {
		return ExitUsage
	}
	for _, entry := range exitCodes {
		if errors.Is(err, entry.sentinel) {
			return entry.code
		}
	}
	return ExitFailure
}
