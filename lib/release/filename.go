// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/shipwright/lib/semver"
)

// PackageExtension is the file extension of every package artifact.
const PackageExtension = ".pkg"

const (
	fileNameSeparator = "_"
	deltaKindPrefix   = "delta-"
)

// FileName returns the artifact file name derived from the manifest's
// identifying fields. [ParseFileName] inverts it exactly.
func (m Manifest) FileName() string {
	kind := string(KindFull)
	if m.Kind == KindDelta && m.DeltaBase != nil {
		kind = deltaKindPrefix + m.DeltaBase.String()
	}
	return strings.Join([]string{
		m.ProductID,
		m.Version.String(),
		m.Channel,
		string(m.OS) + "-" + string(m.Arch),
		kind,
	}, fileNameSeparator) + PackageExtension
}

// ParseFileName recovers the identifying fields of a manifest from an
// artifact file name. The returned manifest has no hash or size. Names
// that would not be reproduced byte-for-byte by [Manifest.FileName]
// (uppercase channels, "v"-prefixed versions, unknown platforms) are
// rejected with a *MalformedFileNameError.
func ParseFileName(name string) (Manifest, error) {
	malformed := func(format string, args ...any) (Manifest, error) {
		return Manifest{}, &MalformedFileNameError{Name: name, Reason: fmt.Sprintf(format, args...)}
	}

	stem, found := strings.CutSuffix(name, PackageExtension)
	if !found {
		return malformed("missing %s extension", PackageExtension)
	}
	fields := strings.Split(stem, fileNameSeparator)
	if len(fields) != 5 {
		return malformed("want product_version_channel_os-arch_kind")
	}
	product, versionText, channel, platform, kindText := fields[0], fields[1], fields[2], fields[3], fields[4]

	if !productPattern.MatchString(product) {
		return malformed("invalid product id %q", product)
	}

	version, err := parseCanonicalVersion(versionText)
	if err != nil {
		return malformed("%v", err)
	}

	if !channelPattern.MatchString(channel) {
		return malformed("invalid channel %q", channel)
	}

	osText, archText, found := strings.Cut(platform, "-")
	if !found {
		return malformed("platform %q is not os-arch", platform)
	}
	os := OS(osText)
	arch := Arch(archText)
	switch os {
	case Windows, MacOS, Linux:
	default:
		return malformed("unknown os %q", osText)
	}
	switch arch {
	case X64, X86, Arm64:
	default:
		return malformed("unknown arch %q", archText)
	}

	manifest := Manifest{
		ProductID: product,
		Version:   version,
		Channel:   channel,
		OS:        os,
		Arch:      arch,
	}

	switch {
	case kindText == string(KindFull):
		manifest.Kind = KindFull
	case strings.HasPrefix(kindText, deltaKindPrefix):
		base, err := parseCanonicalVersion(strings.TrimPrefix(kindText, deltaKindPrefix))
		if err != nil {
			return malformed("delta base: %v", err)
		}
		if !base.Less(version) {
			return malformed("delta base %s is not earlier than %s", base, version)
		}
		manifest.Kind = KindDelta
		manifest.DeltaBase = &base
	default:
		return malformed("unknown artifact kind %q", kindText)
	}

	return manifest, nil
}

// parseCanonicalVersion parses a version and rejects any spelling other
// than the canonical one, so that parse followed by format is the
// identity on file names.
func parseCanonicalVersion(text string) (semver.Version, error) {
	version, err := semver.Parse(text)
	if err != nil {
		return semver.Version{}, err
	}
	if version.String() != text {
		return semver.Version{}, fmt.Errorf("version %q is not canonical (want %q)", text, version.String())
	}
	return version, nil
}
