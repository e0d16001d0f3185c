// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package release implements the "shipwright release" command group,
// which builds release directories and answers questions about them
// the way an update client would.
package release

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/artifactstore"
	"github.com/bureau-foundation/shipwright/lib/config"
	"github.com/bureau-foundation/shipwright/lib/event"
	librelease "github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/resolve"
)

// Command returns the "release" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "release",
		Summary: "Build and query release directories",
		Description: `Build and query a releases directory.

A releases directory holds one file per full package and delta, named
{product}_{version}_{channel}_{os}-{arch}_{full|delta}.pkg, next to a
releases.{channel}.json feed (and a CBOR twin) per channel. Serve the
directory over HTTP as-is; update clients read the feed and fetch the
files it names.

Flags override the configuration file. Without --config or
SHIPWRIGHT_CONFIG, --product and --releases are required.`,
		Subcommands: []*cli.Command{
			buildCommand(),
			resolveCommand(),
			latestCommand(),
			verifyCommand(),
			feedCommand(),
			applyCommand(),
			statusCommand(),
		},
	}
}

// DirectoryParams select the product and releases directory. Every
// release subcommand embeds them.
type DirectoryParams struct {
	cli.GlobalParams
	Releases string `flag:"releases" desc:"releases directory (default: paths.releases)"`
	Product  string `flag:"product"  desc:"product id (default: product.id)"`
	Channel  string `flag:"channel"  desc:"release channel (default: product.channel, then the platform's channel)"`
	OS       string `flag:"os"       desc:"windows, osx, or linux (default: product.os)"`
	Arch     string `flag:"arch"     desc:"x64, x86, or arm64 (default: product.arch)"`
}

// session is the validated state shared by release subcommands.
type session struct {
	config  *config.Config
	logger  *slog.Logger
	dir     *artifactstore.Dir
	channel string
	os      librelease.OS
	arch    librelease.Arch
}

// open loads the configuration, applies flag overrides, validates the
// result, and opens the releases directory.
func (p DirectoryParams) open(command string) (*session, error) {
	cfg, logger, err := p.Setup(command)
	if err != nil {
		return nil, err
	}
	override(&cfg.Paths.Releases, p.Releases)
	override(&cfg.Product.ID, p.Product)
	override(&cfg.Product.Channel, p.Channel)
	override(&cfg.Product.OS, p.OS)
	override(&cfg.Product.Arch, p.Arch)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Both parse: Validate checked them.
	osName, _ := librelease.ParseOS(cfg.Product.OS)
	arch, _ := librelease.ParseArch(cfg.Product.Arch)
	channel := cfg.Product.Channel
	if channel == "" {
		channel = librelease.DefaultChannel(osName)
	}

	logger = logger.With("product", cfg.Product.ID)
	dir, err := artifactstore.OpenDir(artifactstore.DirConfig{Path: cfg.Paths.Releases, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &session{
		config:  cfg,
		logger:  logger,
		dir:     dir,
		channel: librelease.NormalizeChannel(channel),
		os:      osName,
		arch:    arch,
	}, nil
}

// index loads what clients see: the feeds in the releases directory.
func (s *session) index() (*librelease.Index, error) {
	return s.dir.LoadIndex(s.config.Product.ID)
}

func (s *session) resolver() *resolve.Resolver {
	return &resolve.Resolver{
		Policy: resolve.Policy{
			MaxHops:       s.config.Resolver.MaxHops,
			MaxChainRatio: s.config.Resolver.MaxChainRatio,
		},
		Observer: event.LogObserver{Logger: s.logger},
	}
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}
