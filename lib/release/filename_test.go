// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/shipwright/lib/semver"
)

func fullManifest(version string) Manifest {
	return Manifest{
		ProductID: "Acme.App",
		Version:   semver.MustParse(version),
		Channel:   "stable",
		Kind:      KindFull,
		OS:        Linux,
		Arch:      X64,
		Size:      1024,
	}
}

func deltaManifest(base, version string) Manifest {
	baseVersion := semver.MustParse(base)
	manifest := fullManifest(version)
	manifest.Kind = KindDelta
	manifest.DeltaBase = &baseVersion
	manifest.Size = 64
	return manifest
}

func TestFileNameRoundTrip(t *testing.T) {
	tests := []struct {
		manifest Manifest
		want     string
	}{
		{fullManifest("1.2.3"), "Acme.App_1.2.3_stable_linux-x64_full.pkg"},
		{deltaManifest("1.2.3", "1.3.0"), "Acme.App_1.3.0_stable_linux-x64_delta-1.2.3.pkg"},
		{deltaManifest("1.0.0-rc.1", "1.0.0"), "Acme.App_1.0.0_stable_linux-x64_delta-1.0.0-rc.1.pkg"},
		{fullManifest("2.0.0-beta.1+build.5"), "Acme.App_2.0.0-beta.1+build.5_stable_linux-x64_full.pkg"},
	}

	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			name := test.manifest.FileName()
			if name != test.want {
				t.Fatalf("FileName() = %q, want %q", name, test.want)
			}

			parsed, err := ParseFileName(name)
			if err != nil {
				t.Fatalf("ParseFileName(%q): %v", name, err)
			}

			// The file name carries identity only, not content metadata.
			expected := test.manifest
			expected.Size = 0
			if !parsed.Equal(expected) {
				t.Errorf("ParseFileName(%q) = %+v, want %+v", name, parsed, expected)
			}
			if parsed.FileName() != name {
				t.Errorf("re-formatted name = %q, want %q", parsed.FileName(), name)
			}
		})
	}
}

func TestParseFileNameMalformed(t *testing.T) {
	for _, name := range []string{
		"Acme.App_1.2.3_stable_linux-x64_full.zip",
		"Acme.App_1.2.3_stable_linux-x64.pkg",
		"Acme.App_1.2.3_stable_linux-x64_full_extra.pkg",
		"Acme.App_v1.2.3_stable_linux-x64_full.pkg",
		"Acme.App_01.2.3_stable_linux-x64_full.pkg",
		"Acme.App_1.2.3_Stable_linux-x64_full.pkg",
		"Acme.App_1.2.3_stable_linux_full.pkg",
		"Acme.App_1.2.3_stable_beos-x64_full.pkg",
		"Acme.App_1.2.3_stable_linux-sparc_full.pkg",
		"Acme.App_1.2.3_stable_linux-x64_partial.pkg",
		"Acme.App_1.2.3_stable_linux-x64_delta-1.2.3.pkg",
		"Acme.App_1.2.3_stable_linux-x64_delta-2.0.0.pkg",
		"Acme.App_1.2.3_stable_linux-x64_delta-bogus.pkg",
		"-Acme_1.2.3_stable_linux-x64_full.pkg",
		"",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFileName(name)
			if err == nil {
				t.Fatalf("ParseFileName(%q) should fail", name)
			}
			if !errors.Is(err, ErrMalformedFileName) {
				t.Errorf("error %v should match ErrMalformedFileName", err)
			}
			var malformed *MalformedFileNameError
			if !errors.As(err, &malformed) || malformed.Name != name {
				t.Errorf("error %v should be a *MalformedFileNameError naming %q", err, name)
			}
		})
	}
}

func TestManifestValidate(t *testing.T) {
	digest := fullManifest("1.0.0").ContentHash
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"empty product", func(m *Manifest) { m.ProductID = "" }},
		{"underscore in product", func(m *Manifest) { m.ProductID = "acme_app" }},
		{"uppercase channel", func(m *Manifest) { m.Channel = "Stable" }},
		{"unknown os", func(m *Manifest) { m.OS = "plan9" }},
		{"unknown arch", func(m *Manifest) { m.Arch = "mips" }},
		{"unknown kind", func(m *Manifest) { m.Kind = "patch" }},
		{"full with base", func(m *Manifest) {
			base := semver.MustParse("0.9.0")
			m.DeltaBase = &base
		}},
		{"full with target hash", func(m *Manifest) { m.TargetHash = &digest }},
		{"delta without base", func(m *Manifest) { m.Kind = KindDelta }},
		{"delta from later version", func(m *Manifest) {
			base := semver.MustParse("1.0.1")
			m.Kind = KindDelta
			m.DeltaBase = &base
		}},
	}

	if err := fullManifest("1.0.0").Validate(); err != nil {
		t.Fatalf("valid full manifest rejected: %v", err)
	}
	if err := deltaManifest("0.9.0", "1.0.0").Validate(); err != nil {
		t.Fatalf("valid delta manifest rejected: %v", err)
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			manifest := fullManifest("1.0.0")
			test.mutate(&manifest)
			if err := manifest.Validate(); err == nil {
				t.Errorf("Validate() should reject %+v", manifest)
			}
		})
	}
}

func TestParsePlatform(t *testing.T) {
	if os, err := ParseOS("Windows"); err != nil || os != Windows {
		t.Errorf("ParseOS(Windows) = %q, %v", os, err)
	}
	if _, err := ParseOS("darwin"); err == nil {
		t.Error("ParseOS(darwin) should fail")
	}
	if arch, err := ParseArch("ARM64"); err != nil || arch != Arm64 {
		t.Errorf("ParseArch(ARM64) = %q, %v", arch, err)
	}
	if _, err := ParseArch("amd64"); err == nil {
		t.Error("ParseArch(amd64) should fail")
	}

	for os, want := range map[OS]string{Windows: "win", MacOS: "osx", Linux: "linux"} {
		if got := DefaultChannel(os); got != want {
			t.Errorf("DefaultChannel(%s) = %q, want %q", os, got, want)
		}
	}
	if got := NormalizeChannel("  Beta "); got != "beta" {
		t.Errorf("NormalizeChannel = %q, want beta", got)
	}
}
