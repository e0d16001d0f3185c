// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "shipwright.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Delta.Mode != "smallest" {
		t.Errorf("expected delta.mode=smallest, got %s", cfg.Delta.Mode)
	}
	if cfg.Resolver.MaxHops != 10 || cfg.Resolver.MaxChainRatio != 1.0 {
		t.Errorf("unexpected resolver defaults: %+v", cfg.Resolver)
	}
	if filepath.Dir(cfg.Paths.Releases) != cfg.Paths.Root {
		t.Errorf("releases %s should live under root %s", cfg.Paths.Releases, cfg.Paths.Root)
	}

	// Defaults are complete except for the product id.
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "product.id") {
		t.Errorf("Validate() on defaults = %v, want only a product.id error", err)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SHIPWRIGHT_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "SHIPWRIGHT_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err)
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, `
environment: staging
product:
  id: Acme.App
paths:
  releases: /srv/releases
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging || cfg.Product.ID != "Acme.App" || cfg.Paths.Releases != "/srv/releases" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: production

product:
  id: Acme.App
  channel: beta
  os: osx
  arch: arm64

paths:
  root: /var/lib/acme
  releases: ${SHIPWRIGHT_ROOT}/out
  catalog: ${SHIPWRIGHT_ROOT}/catalog.db

delta:
  mode: fastest
  retention: 5
  workers: 2
  timeout: 90s

resolver:
  max_hops: 4
  max_chain_ratio: 0.5
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Product.Channel != "beta" || cfg.Product.OS != "osx" || cfg.Product.Arch != "arm64" {
		t.Errorf("product = %+v", cfg.Product)
	}
	if cfg.Paths.Releases != "/var/lib/acme/out" || cfg.Paths.Catalog != "/var/lib/acme/catalog.db" {
		t.Errorf("paths not expanded: %+v", cfg.Paths)
	}
	if cfg.Delta.Mode != "fastest" || cfg.Delta.Retention != 5 || cfg.Delta.Workers != 2 {
		t.Errorf("delta = %+v", cfg.Delta)
	}
	timeout, err := cfg.PairTimeout()
	if err != nil || timeout != 90*time.Second {
		t.Errorf("PairTimeout() = %v, %v", timeout, err)
	}
	if cfg.Resolver.MaxHops != 4 || cfg.Resolver.MaxChainRatio != 0.5 {
		t.Errorf("resolver = %+v", cfg.Resolver)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	content := `
environment: %s
product:
  id: Acme.App
delta:
  mode: smallest
  workers: 8
development:
  delta:
    mode: none
    workers: 1
  paths:
    releases: /tmp/dev-releases
production:
  resolver:
    max_hops: 3
`
	tests := []struct {
		environment  string
		wantMode     string
		wantWorkers  int
		wantMaxHops  int
		wantReleases string
	}{
		{"development", "none", 1, 10, "/tmp/dev-releases"},
		{"production", "smallest", 8, 3, ""},
		{"staging", "smallest", 8, 10, ""},
	}
	for _, test := range tests {
		t.Run(test.environment, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, strings.Replace(content, "%s", test.environment, 1)))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if cfg.Delta.Mode != test.wantMode || cfg.Delta.Workers != test.wantWorkers {
				t.Errorf("delta = %+v, want mode %s workers %d", cfg.Delta, test.wantMode, test.wantWorkers)
			}
			if cfg.Resolver.MaxHops != test.wantMaxHops {
				t.Errorf("max_hops = %d, want %d", cfg.Resolver.MaxHops, test.wantMaxHops)
			}
			if test.wantReleases != "" && cfg.Paths.Releases != test.wantReleases {
				t.Errorf("releases = %s, want %s", cfg.Paths.Releases, test.wantReleases)
			}
		})
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("SHIPWRIGHT_TEST_DIR", "/from/env")
	vars := map[string]string{"SHIPWRIGHT_ROOT": "/root/dir"}

	tests := []struct {
		input string
		want  string
	}{
		{"${SHIPWRIGHT_ROOT}/releases", "/root/dir/releases"},
		{"${SHIPWRIGHT_TEST_DIR}/x", "/from/env/x"},
		{"${SHIPWRIGHT_UNSET_VAR:-/fallback}/x", "/fallback/x"},
		{"${SHIPWRIGHT_UNSET_VAR}/x", "/x"},
		{"/no/variables", "/no/variables"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Environment = "qa"
	cfg.Product.OS = "beos"
	cfg.Product.Arch = "sparc"
	cfg.Delta.Mode = "bzip2"
	cfg.Delta.Timeout = "soon"
	cfg.Resolver.MaxChainRatio = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"environment", "product.id", "product.os", "product.arch", "delta.mode", "delta.timeout", "max_chain_ratio"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error does not mention %s:\n%v", want, err)
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile on a missing file should fail")
	}
	if _, err := LoadFile(writeConfig(t, "product: [unterminated")); err == nil {
		t.Error("LoadFile on invalid YAML should fail")
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths.Releases = filepath.Join(root, "a", "releases")
	cfg.Paths.Catalog = filepath.Join(root, "b", "catalog.db")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, dir := range []string{cfg.Paths.Releases, filepath.Dir(cfg.Paths.Catalog)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s was not created: %v", dir, err)
		}
	}
}
