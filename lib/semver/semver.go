// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package semver parses and orders Semantic Versioning 2.0 version
// strings. Release versions must be totally ordered within a channel,
// so [Compare] implements full SemVer precedence including dotted
// prerelease identifiers. Build metadata is carried for display and
// file names but never participates in ordering.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed semantic version. The zero value is 0.0.0.
// Version is comparable with ==, but two versions that differ only in
// build metadata are == false while Compare reports them equal; use
// [Version.Equal] when precedence equality is what matters.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64

	// Prerelease is the dot-separated prerelease suffix without the
	// leading hyphen ("beta.2"). Empty for a stable release.
	Prerelease string

	// Build is the build metadata without the leading plus sign.
	Build string
}

// Parse parses a version string. A single leading "v" is accepted and
// discarded; [Version.String] never emits it.
func Parse(text string) (Version, error) {
	original := text
	text = strings.TrimPrefix(strings.TrimSpace(text), "v")
	if text == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	var version Version
	if index := strings.IndexByte(text, '+'); index >= 0 {
		version.Build = text[index+1:]
		text = text[:index]
		if err := validateIdentifiers(version.Build, false); err != nil {
			return Version{}, fmt.Errorf("invalid build metadata in %q: %w", original, err)
		}
	}
	if index := strings.IndexByte(text, '-'); index >= 0 {
		version.Prerelease = text[index+1:]
		text = text[:index]
		if err := validateIdentifiers(version.Prerelease, true); err != nil {
			return Version{}, fmt.Errorf("invalid prerelease in %q: %w", original, err)
		}
	}

	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: want MAJOR.MINOR.PATCH", original)
	}
	numbers := [3]uint64{}
	for i, part := range parts {
		number, err := parseNumeric(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", original, err)
		}
		numbers[i] = number
	}
	version.Major, version.Minor, version.Patch = numbers[0], numbers[1], numbers[2]
	return version, nil
}

// MustParse is like Parse but panics on error. Intended for constants
// and tests.
func MustParse(text string) Version {
	version, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return version
}

// String returns the canonical form: MAJOR.MINOR.PATCH, then
// -PRERELEASE and +BUILD when present.
func (v Version) String() string {
	var builder strings.Builder
	builder.WriteString(strconv.FormatUint(v.Major, 10))
	builder.WriteByte('.')
	builder.WriteString(strconv.FormatUint(v.Minor, 10))
	builder.WriteByte('.')
	builder.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Prerelease != "" {
		builder.WriteByte('-')
		builder.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		builder.WriteByte('+')
		builder.WriteString(v.Build)
	}
	return builder.String()
}

// IsPrerelease reports whether the version carries a prerelease suffix.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// Compare returns -1, 0, or 1 as v has lower, equal, or higher
// precedence than other.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	return comparePrerelease(v.Prerelease, other.Prerelease)
}

// Less reports whether v has lower precedence than other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other have equal precedence.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// MarshalText implements encoding.TextMarshaler. JSON and CBOR both
// encode versions as their canonical string.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare is a free-function form of [Version.Compare], suitable for
// slices.SortFunc.
func Compare(a, b Version) int {
	return a.Compare(b)
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrerelease applies SemVer rule 11: a version without a
// prerelease outranks one with; otherwise identifiers are compared
// left to right, numeric identifiers numerically and below
// alphanumeric ones, and a longer identifier list wins a shared prefix.
func comparePrerelease(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}

	left := strings.Split(a, ".")
	right := strings.Split(b, ".")
	for i := 0; i < len(left) && i < len(right); i++ {
		leftNumber, leftErr := strconv.ParseUint(left[i], 10, 64)
		rightNumber, rightErr := strconv.ParseUint(right[i], 10, 64)
		leftNumeric, rightNumeric := leftErr == nil, rightErr == nil

		switch {
		case leftNumeric && rightNumeric:
			if c := compareUint(leftNumber, rightNumber); c != 0 {
				return c
			}
		case leftNumeric:
			return -1
		case rightNumeric:
			return 1
		default:
			if c := strings.Compare(left[i], right[i]); c != 0 {
				return c
			}
		}
	}
	return compareUint(uint64(len(left)), uint64(len(right)))
}

func parseNumeric(part string) (uint64, error) {
	if part == "" {
		return 0, fmt.Errorf("empty numeric component")
	}
	if len(part) > 1 && part[0] == '0' {
		return 0, fmt.Errorf("numeric component %q has a leading zero", part)
	}
	for i := 0; i < len(part); i++ {
		if part[i] < '0' || part[i] > '9' {
			return 0, fmt.Errorf("numeric component %q is not a number", part)
		}
	}
	number, err := strconv.ParseUint(part, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("numeric component %q: %w", part, err)
	}
	return number, nil
}

// validateIdentifiers checks a dot-separated identifier list. Numeric
// prerelease identifiers may not carry leading zeros; build metadata
// identifiers may.
func validateIdentifiers(list string, prerelease bool) error {
	if list == "" {
		return fmt.Errorf("empty identifier list")
	}
	for _, identifier := range strings.Split(list, ".") {
		if identifier == "" {
			return fmt.Errorf("empty identifier")
		}
		numeric := true
		for i := 0; i < len(identifier); i++ {
			c := identifier[i]
			switch {
			case c >= '0' && c <= '9':
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-':
				numeric = false
			default:
				return fmt.Errorf("identifier %q contains %q", identifier, c)
			}
		}
		if prerelease && numeric && len(identifier) > 1 && identifier[0] == '0' {
			return fmt.Errorf("numeric identifier %q has a leading zero", identifier)
		}
	}
	return nil
}
