// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

var initiated = time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

func sampleState() State {
	return State{
		Product:         "Acme.App",
		Channel:         "stable",
		PreviousVersion: semver.MustParse("1.0.0"),
		PreviousDigest:  binhash.Sum([]byte("old package")),
		NewVersion:      semver.MustParse("1.1.0"),
		NewDigest:       binhash.Sum([]byte("new package")),
		Timestamp:       initiated,
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.json")
	state := sampleState()

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Product != state.Product || got.Channel != state.Channel {
		t.Errorf("Product/Channel = %q/%q, want %q/%q", got.Product, got.Channel, state.Product, state.Channel)
	}
	if !got.PreviousVersion.Equal(state.PreviousVersion) || !got.NewVersion.Equal(state.NewVersion) {
		t.Errorf("versions = %s -> %s, want %s -> %s", got.PreviousVersion, got.NewVersion, state.PreviousVersion, state.NewVersion)
	}
	if got.PreviousDigest != state.PreviousDigest || got.NewDigest != state.NewDigest {
		t.Error("digests did not survive the round trip")
	}
	if !got.Timestamp.Equal(state.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, state.Timestamp)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.json")
	first := sampleState()
	if err := Write(path, first); err != nil {
		t.Fatalf("Write first: %v", err)
	}

	second := sampleState()
	second.PreviousVersion = semver.MustParse("1.1.0")
	second.NewVersion = semver.MustParse("1.2.0")
	if err := Write(path, second); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.NewVersion.String() != "1.2.0" {
		t.Errorf("NewVersion = %s, want 1.2.0 (second write should overwrite)", got.NewVersion)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries after two writes, want only the state file", len(entries))
	}
}

func TestReadErrors(t *testing.T) {
	directory := t.TempDir()
	if _, err := Read(filepath.Join(directory, "absent.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read(absent) = %v, want fs.ErrNotExist", err)
	}

	corrupt := filepath.Join(directory, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(corrupt); err == nil {
		t.Error("Read(corrupt) succeeded")
	}
	if _, _, err := Check(corrupt, time.Hour, nil); err == nil {
		t.Error("Check(corrupt) should surface the parse error")
	}
}

func TestCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.json")
	fakeClock := clock.Fake(initiated.Add(5 * time.Minute))

	if _, found, err := Check(path, DefaultMaxAge, fakeClock); err != nil || found {
		t.Errorf("Check with no file = %v, %v; want not found", found, err)
	}

	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	state, found, err := Check(path, DefaultMaxAge, fakeClock)
	if err != nil || !found {
		t.Fatalf("Check within max age = %v, %v; want found", found, err)
	}
	if state.Product != "Acme.App" {
		t.Errorf("Product = %q", state.Product)
	}

	fakeClock.Advance(DefaultMaxAge)
	if _, found, err := Check(path, DefaultMaxAge, fakeClock); err != nil || found {
		t.Errorf("Check past max age = %v, %v; want stale", found, err)
	}
}

func TestOutcome(t *testing.T) {
	state := sampleState()
	tests := []struct {
		installed binhash.Digest
		want      Outcome
	}{
		{state.NewDigest, Updated},
		{state.PreviousDigest, RolledBack},
		{binhash.Sum([]byte("something else")), Unknown},
	}
	for _, test := range tests {
		if got := state.Outcome(test.installed); got != test.want {
			t.Errorf("Outcome(%s) = %s, want %s", test.installed.Short(), got, test.want)
		}
	}
}

func TestClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.json")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for range 2 {
		if err := Clear(path); err != nil {
			t.Errorf("Clear: %v", err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Error("state file still present")
	}
}
