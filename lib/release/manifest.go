// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// Kind distinguishes full packages from delta packages.
type Kind string

const (
	// KindFull is a complete standalone build.
	KindFull Kind = "full"

	// KindDelta is a binary patch from an earlier version.
	KindDelta Kind = "delta"
)

// OS identifies the operating system a package targets.
type OS string

const (
	Windows OS = "windows"
	MacOS   OS = "osx"
	Linux   OS = "linux"
)

// Arch identifies the processor architecture a package targets.
type Arch string

const (
	X64   Arch = "x64"
	X86   Arch = "x86"
	Arm64 Arch = "arm64"
)

// ParseOS validates an operating system name.
func ParseOS(name string) (OS, error) {
	switch os := OS(strings.ToLower(name)); os {
	case Windows, MacOS, Linux:
		return os, nil
	default:
		return "", fmt.Errorf("unknown target os %q (want windows, osx, or linux)", name)
	}
}

// ParseArch validates an architecture name.
func ParseArch(name string) (Arch, error) {
	switch arch := Arch(strings.ToLower(name)); arch {
	case X64, X86, Arm64:
		return arch, nil
	default:
		return "", fmt.Errorf("unknown target arch %q (want x64, x86, or arm64)", name)
	}
}

// DefaultChannel returns the channel a package is released to when the
// author does not name one. Each OS gets its own default so that
// packages for different platforms never share a version sequence by
// accident.
func DefaultChannel(os OS) string {
	switch os {
	case Windows:
		return "win"
	case MacOS:
		return "osx"
	default:
		return "linux"
	}
}

var (
	productPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]*$`)
	channelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)
)

// NormalizeChannel trims and lowercases a channel name. Channels are
// case-insensitive; the normalized form is what manifests store and
// what every lookup compares against.
func NormalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimSpace(channel))
}

// Manifest describes one package artifact. Manifests are values: once
// inserted into an [Index] they are never modified, and a rebuild
// produces a new manifest rather than editing an old one.
type Manifest struct {
	ProductID string         `json:"product_id"`
	Version   semver.Version `json:"version"`
	Channel   string         `json:"channel"`
	Kind      Kind           `json:"kind"`

	// DeltaBase is the version this delta applies to. Nil for full
	// packages.
	DeltaBase *semver.Version `json:"delta_base,omitempty"`

	OS   OS   `json:"os"`
	Arch Arch `json:"arch"`

	// ContentHash and Size describe the artifact bytes as stored and
	// downloaded: the package itself for a full, the patch for a delta.
	ContentHash binhash.Digest `json:"sha256"`
	Size        uint64         `json:"size"`

	// TargetHash and TargetSize describe the full package a delta
	// reconstructs. Set only on deltas.
	TargetHash *binhash.Digest `json:"target_sha256,omitempty"`
	TargetSize uint64          `json:"target_size,omitempty"`
}

// IsDelta reports whether the manifest describes a delta package.
func (m Manifest) IsDelta() bool {
	return m.Kind == KindDelta
}

// Validate checks the manifest's structural invariants.
func (m Manifest) Validate() error {
	if !productPattern.MatchString(m.ProductID) {
		return fmt.Errorf("invalid product id %q", m.ProductID)
	}
	if !channelPattern.MatchString(m.Channel) {
		return fmt.Errorf("invalid channel %q (must be lowercase letters, digits, dots, hyphens)", m.Channel)
	}
	switch m.OS {
	case Windows, MacOS, Linux:
	default:
		return fmt.Errorf("invalid target os %q", m.OS)
	}
	switch m.Arch {
	case X64, X86, Arm64:
	default:
		return fmt.Errorf("invalid target arch %q", m.Arch)
	}

	switch m.Kind {
	case KindFull:
		if m.DeltaBase != nil {
			return fmt.Errorf("full package %s must not have a delta base", m.Version)
		}
		if m.TargetHash != nil || m.TargetSize != 0 {
			return fmt.Errorf("full package %s must not carry a target hash", m.Version)
		}
	case KindDelta:
		if m.DeltaBase == nil {
			return fmt.Errorf("delta package %s has no delta base", m.Version)
		}
		if !m.DeltaBase.Less(m.Version) {
			return fmt.Errorf("delta package %s has base %s, which is not an earlier version",
				m.Version, m.DeltaBase)
		}
	default:
		return fmt.Errorf("unknown artifact kind %q", m.Kind)
	}
	return nil
}

// Equal reports whether two manifests describe the same artifact with
// identical metadata. Pointer fields are compared by value.
func (m Manifest) Equal(other Manifest) bool {
	if m.ProductID != other.ProductID || m.Version != other.Version ||
		m.Channel != other.Channel || m.Kind != other.Kind ||
		m.OS != other.OS || m.Arch != other.Arch ||
		m.ContentHash != other.ContentHash || m.Size != other.Size ||
		m.TargetSize != other.TargetSize {
		return false
	}
	if (m.DeltaBase == nil) != (other.DeltaBase == nil) {
		return false
	}
	if m.DeltaBase != nil && *m.DeltaBase != *other.DeltaBase {
		return false
	}
	if (m.TargetHash == nil) != (other.TargetHash == nil) {
		return false
	}
	return m.TargetHash == nil || *m.TargetHash == *other.TargetHash
}

// String returns the artifact file name, which identifies the
// manifest for log output.
func (m Manifest) String() string {
	return m.FileName()
}

// entryKey identifies a manifest within one channel of an index.
// Versions are keyed by precedence, so 1.0.0+a and 1.0.0+b collide.
type entryKey struct {
	version string
	kind    Kind
	base    string
}

func (m Manifest) key() entryKey {
	key := entryKey{version: precedenceKey(m.Version), kind: m.Kind}
	if m.DeltaBase != nil {
		key.base = precedenceKey(*m.DeltaBase)
	}
	return key
}

// precedenceKey formats a version without build metadata.
func precedenceKey(version semver.Version) string {
	version.Build = ""
	return version.String()
}
