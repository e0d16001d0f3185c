// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/renameio"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// DefaultMaxAge is how long a state file stays relevant when the
// caller has no better bound.
const DefaultMaxAge = 10 * time.Minute

// State records a package replacement. Written before the swap and
// read on the next start to determine the outcome.
type State struct {
	// Product and Channel identify what is being updated.
	Product string `json:"product"`
	Channel string `json:"channel"`

	PreviousVersion semver.Version `json:"previous_version"`
	PreviousDigest  binhash.Digest `json:"previous_sha256"`

	NewVersion semver.Version `json:"new_version"`
	NewDigest  binhash.Digest `json:"new_sha256"`

	// Timestamp is when the replacement was initiated. Used by Check to
	// discard stale state files.
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is what an installed package's digest says about a recorded
// replacement.
type Outcome string

const (
	// Updated means the installed package is the new one.
	Updated Outcome = "updated"

	// RolledBack means the installed package is the previous one.
	RolledBack Outcome = "rolled-back"

	// Unknown means the installed package is neither.
	Unknown Outcome = "unknown"
)

// Outcome compares the digest of the installed package with the
// recorded transition.
func (s State) Outcome(installed binhash.Digest) Outcome {
	switch installed {
	case s.NewDigest:
		return Updated
	case s.PreviousDigest:
		return RolledBack
	default:
		return Unknown
	}
}

// Write atomically writes a state file with mode 0600. The parent
// directory must already exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watchdog state: %w", err)
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing watchdog file: %w", err)
	}
	return nil
}

// Read reads and parses a state file. When the file does not exist,
// the returned error wraps fs.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing watchdog file %s: %w", path, err)
	}
	return state, nil
}

// Check reads a state file and reports whether it is recent enough to
// act on: it exists and its Timestamp is within maxAge of c.Now(). A
// nil clock uses the real one.
//
// Any other error (permission denied, corrupt JSON) is returned as-is
// so the caller can distinguish "no update recorded" from "record
// exists but is unreadable".
func Check(path string, maxAge time.Duration, c clock.Clock) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if clock.Since(clock.OrReal(c), state.Timestamp) > maxAge {
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear removes a state file. Returns nil when the file does not
// exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing watchdog file: %w", err)
	}
	return nil
}
