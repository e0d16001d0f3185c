// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/shipwright/lib/semver"
)

var (
	// ErrDuplicateEntry matches any *DuplicateEntryError.
	ErrDuplicateEntry = errors.New("duplicate release entry")

	// ErrMalformedFileName matches any *MalformedFileNameError.
	ErrMalformedFileName = errors.New("malformed artifact file name")

	// ErrVersionNotFound matches any *VersionNotFoundError.
	ErrVersionNotFound = errors.New("version not found")

	// ErrUnanchoredDelta is returned when a delta's base version has no
	// entry in the channel.
	ErrUnanchoredDelta = errors.New("delta base not present in channel")

	// ErrProductMismatch is returned when a manifest for one product is
	// inserted into another product's index.
	ErrProductMismatch = errors.New("manifest belongs to a different product")
)

// DuplicateEntryError reports an insert that would overwrite an
// existing (channel, version, kind, delta base) entry.
type DuplicateEntryError struct {
	Channel   string
	Version   semver.Version
	Kind      Kind
	DeltaBase *semver.Version
}

func (e *DuplicateEntryError) Error() string {
	if e.DeltaBase != nil {
		return fmt.Sprintf("duplicate release entry: %s %s %s from %s already exists",
			e.Channel, e.Version, e.Kind, e.DeltaBase)
	}
	return fmt.Sprintf("duplicate release entry: %s %s %s already exists",
		e.Channel, e.Version, e.Kind)
}

func (e *DuplicateEntryError) Is(target error) bool {
	return target == ErrDuplicateEntry
}

// MalformedFileNameError reports an artifact file name that does not
// follow the naming grammar.
type MalformedFileNameError struct {
	Name   string
	Reason string
}

func (e *MalformedFileNameError) Error() string {
	return fmt.Sprintf("malformed artifact file name %q: %s", e.Name, e.Reason)
}

func (e *MalformedFileNameError) Is(target error) bool {
	return target == ErrMalformedFileName
}

// VersionNotFoundError reports that a channel has no release that
// satisfies a request.
type VersionNotFoundError struct {
	Channel string
	// Version is nil when the request was for the latest version.
	Version *semver.Version
}

func (e *VersionNotFoundError) Error() string {
	if e.Version == nil {
		return fmt.Sprintf("no releases on channel %q", e.Channel)
	}
	return fmt.Sprintf("version %s not found on channel %q", e.Version, e.Channel)
}

func (e *VersionNotFoundError) Is(target error) bool {
	return target == ErrVersionNotFound
}
