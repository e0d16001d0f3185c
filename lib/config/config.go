// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/release"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "SHIPWRIGHT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete shipwright configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Product identifies what is being released.
	Product ProductConfig `yaml:"product"`

	Paths PathsConfig `yaml:"paths"`

	// Delta controls patch generation during release builds.
	Delta DeltaConfig `yaml:"delta"`

	// Resolver controls when update clients prefer a delta chain.
	Resolver ResolverConfig `yaml:"resolver"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the fields that can be overridden per
// environment. Empty and zero values leave the base value alone.
type ConfigOverrides struct {
	Product  *ProductConfig  `yaml:"product,omitempty"`
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Delta    *DeltaConfig    `yaml:"delta,omitempty"`
	Resolver *ResolverConfig `yaml:"resolver,omitempty"`
}

// ProductConfig identifies the product, channel, and platform.
type ProductConfig struct {
	ID string `yaml:"id"`

	// Channel defaults to the platform's channel (win, osx, linux).
	Channel string `yaml:"channel"`

	// OS is windows, osx, or linux.
	OS string `yaml:"os"`

	// Arch is x64, x86, or arm64.
	Arch string `yaml:"arch"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory for shipwright data.
	Root string `yaml:"root"`

	// Releases is the directory holding artifacts and feeds.
	Releases string `yaml:"releases"`

	// Catalog is the SQLite catalog database. Empty disables the
	// catalog; the feeds in Releases are then the only record.
	Catalog string `yaml:"catalog"`
}

// DeltaConfig controls patch generation.
type DeltaConfig struct {
	// Mode is none, fastest, or smallest.
	Mode string `yaml:"mode"`

	// Retention is how many of the newest version pairs get a delta.
	// Negative disables deltas.
	Retention int `yaml:"retention"`

	// Workers bounds concurrent diffs. Zero uses every core.
	Workers int `yaml:"workers"`

	// Timeout bounds the work on one pair, as a Go duration string.
	// Empty means no limit.
	Timeout string `yaml:"timeout"`
}

// ResolverConfig mirrors resolve.Policy.
type ResolverConfig struct {
	MaxHops       int     `yaml:"max_hops"`
	MaxChainRatio float64 `yaml:"max_chain_ratio"`
}

// Default returns the configuration a file is merged onto.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "shipwright")

	return &Config{
		Environment: Development,
		Product: ProductConfig{
			OS:   string(release.Linux),
			Arch: string(release.X64),
		},
		Paths: PathsConfig{
			Root:     defaultRoot,
			Releases: filepath.Join(defaultRoot, "releases"),
			Catalog:  filepath.Join(defaultRoot, "catalog.db"),
		},
		Delta: DeltaConfig{
			Mode:      string(delta.DefaultMode),
			Retention: 3,
		},
		Resolver: ResolverConfig{
			MaxHops:       10,
			MaxChainRatio: 1.0,
		},
	}
}

// Load loads configuration from the file named by SHIPWRIGHT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your shipwright.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the matching
// environment section, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if product := overrides.Product; product != nil {
		override(&c.Product.ID, product.ID)
		override(&c.Product.Channel, product.Channel)
		override(&c.Product.OS, product.OS)
		override(&c.Product.Arch, product.Arch)
	}
	if paths := overrides.Paths; paths != nil {
		override(&c.Paths.Root, paths.Root)
		override(&c.Paths.Releases, paths.Releases)
		override(&c.Paths.Catalog, paths.Catalog)
	}
	if deltaOverrides := overrides.Delta; deltaOverrides != nil {
		override(&c.Delta.Mode, deltaOverrides.Mode)
		override(&c.Delta.Retention, deltaOverrides.Retention)
		override(&c.Delta.Workers, deltaOverrides.Workers)
		override(&c.Delta.Timeout, deltaOverrides.Timeout)
	}
	if resolver := overrides.Resolver; resolver != nil {
		override(&c.Resolver.MaxHops, resolver.MaxHops)
		override(&c.Resolver.MaxChainRatio, resolver.MaxChainRatio)
	}
}

func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"SHIPWRIGHT_ROOT": c.Paths.Root,
		"HOME":            os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["SHIPWRIGHT_ROOT"] = c.Paths.Root

	c.Paths.Releases = expandVars(c.Paths.Releases, vars)
	c.Paths.Catalog = expandVars(c.Paths.Catalog, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Values in vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Product.ID == "" {
		errs = append(errs, fmt.Errorf("product.id is required"))
	}
	if _, err := release.ParseOS(c.Product.OS); err != nil {
		errs = append(errs, fmt.Errorf("product.os: %w", err))
	}
	if _, err := release.ParseArch(c.Product.Arch); err != nil {
		errs = append(errs, fmt.Errorf("product.arch: %w", err))
	}
	if c.Paths.Releases == "" {
		errs = append(errs, fmt.Errorf("paths.releases is required"))
	}
	if _, err := delta.ParseMode(c.Delta.Mode); err != nil {
		errs = append(errs, fmt.Errorf("delta.mode: %w", err))
	}
	if c.Delta.Workers < 0 {
		errs = append(errs, fmt.Errorf("delta.workers must not be negative"))
	}
	if _, err := c.PairTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Resolver.MaxChainRatio < 0 {
		errs = append(errs, fmt.Errorf("resolver.max_chain_ratio must not be negative"))
	}

	return errors.Join(errs...)
}

// PairTimeout parses Delta.Timeout. Empty yields zero.
func (c *Config) PairTimeout() (time.Duration, error) {
	if c.Delta.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(c.Delta.Timeout)
	if err != nil {
		return 0, fmt.Errorf("delta.timeout: %w", err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("delta.timeout must not be negative")
	}
	return timeout, nil
}

// EnsurePaths creates the releases directory and the catalog's parent.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Releases}
	if c.Paths.Catalog != "" {
		paths = append(paths, filepath.Dir(c.Paths.Catalog))
	}
	for _, path := range paths {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
