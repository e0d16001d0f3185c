// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// These variables are set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns a formatted version string suitable for version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Parsed returns Version as a semantic version.
func Parsed() (semver.Version, error) {
	parsed, err := semver.Parse(Version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("build version: %w", err)
	}
	return parsed, nil
}

// SelfDigest returns the SHA-256 of the running executable.
func SelfDigest() (binhash.Digest, error) {
	path, err := os.Executable()
	if err != nil {
		return binhash.Digest{}, fmt.Errorf("locating executable: %w", err)
	}
	digest, _, err := binhash.HashFile(path)
	if err != nil {
		return binhash.Digest{}, fmt.Errorf("hashing executable: %w", err)
	}
	return digest, nil
}
