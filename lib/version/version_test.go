// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty, savedVersion := GitCommit, GitDirty, Version
	t.Cleanup(func() { GitCommit, GitDirty, Version = savedCommit, savedDirty, savedVersion })

	GitCommit, GitDirty, Version = "abc1234", "true", "1.4.0"
	if info := Info(); !strings.HasPrefix(info, "1.4.0 (abc1234-dirty, ") {
		t.Errorf("Info() = %q", info)
	}
	if full := Full(); !strings.Contains(full, "Platform: ") {
		t.Errorf("Full() = %q", full)
	}
	if Short() != "1.4.0" {
		t.Errorf("Short() = %q", Short())
	}
}

func TestParsed(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "2.0.0-rc.1+abc"
	parsed, err := Parsed()
	if err != nil {
		t.Fatalf("Parsed: %v", err)
	}
	if parsed.Major != 2 || parsed.Prerelease != "rc.1" {
		t.Errorf("Parsed() = %+v", parsed)
	}

	Version = "not-a-version"
	if _, err := Parsed(); err == nil {
		t.Error("Parsed() accepted an invalid version")
	}
}

func TestSelfDigest(t *testing.T) {
	digest, err := SelfDigest()
	if err != nil {
		t.Fatalf("SelfDigest: %v", err)
	}
	if digest.IsZero() {
		t.Error("SelfDigest() returned the zero digest")
	}
}
