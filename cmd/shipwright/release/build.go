// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/builder"
	"github.com/bureau-foundation/shipwright/lib/catalog"
	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/event"
	librelease "github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

type buildParams struct {
	DirectoryParams
	Catalog   string        `flag:"catalog"    desc:"catalog database (default: paths.catalog)"`
	NoCatalog bool          `flag:"no-catalog" desc:"use the feeds in the releases directory as the only record"`
	Mode      string        `flag:"mode"       desc:"delta compression: none, fastest, or smallest (default: delta.mode)"`
	Retention int           `flag:"retention"  desc:"newest version pairs that get a delta; negative disables deltas (default: delta.retention)"`
	Workers   int           `flag:"workers"    desc:"concurrent diffs (default: delta.workers, then one per core)"`
	Timeout   time.Duration `flag:"timeout"    desc:"limit on producing one delta (default: delta.timeout)"`
}

func buildCommand() *cli.Command {
	var params buildParams

	return &cli.Command{
		Name:    "build",
		Summary: "Add builds to a releases directory and produce deltas",
		Usage:   "shipwright release build [flags] VERSION=PATH [VERSION=PATH...]",
		Description: `Register full packages, produce deltas between the newest versions,
and rewrite the channel feeds.

Each argument names a version and the package file built for it. The
packages are copied into the releases directory under their canonical
names. Versions already present must have identical content.

Deltas are produced for the newest --retention consecutive version
pairs that do not have one yet, including pairs whose base was
released by an earlier build. A delta that fails to build is reported
and left out; the full packages and every other delta are still
published, and the command exits non-zero.

The catalog database is the record of every release. Without it, the
existing feeds in the releases directory are used instead.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Release 1.2.0 on the stable channel",
				Command:     "shipwright release build --product Acme.App --channel stable --releases ./releases 1.2.0=dist/acme.pkg",
			},
			{
				Description: "Seed a new directory from three historical builds",
				Command:     "shipwright release build --config shipwright.yaml 1.0.0=a.pkg 1.1.0=b.pkg 1.2.0=c.pkg",
			},
		},
		Run: func(args []string) error {
			return runBuild(params, args, os.Stdout)
		},
	}
}

func runBuild(params buildParams, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one VERSION=PATH argument is required")
	}
	s, err := params.open("release/build")
	if err != nil {
		return err
	}
	cfg := s.config
	override(&cfg.Paths.Catalog, params.Catalog)
	if params.NoCatalog {
		cfg.Paths.Catalog = ""
	}
	override(&cfg.Delta.Mode, params.Mode)
	if params.Retention != 0 {
		cfg.Delta.Retention = params.Retention
	}
	if params.Workers != 0 {
		cfg.Delta.Workers = params.Workers
	}
	timeout, err := cfg.PairTimeout()
	if err != nil {
		return err
	}
	if params.Timeout != 0 {
		timeout = params.Timeout
	}
	mode, err := delta.ParseMode(cfg.Delta.Mode)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	packages, err := readPackages(args)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	unlock, err := s.dir.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	config := builder.Config{
		ProductID: cfg.Product.ID,
		Channel:   s.channel,
		OS:        s.os,
		Arch:      s.arch,
		Retention: cfg.Delta.Retention,
		Mode:      mode,
		Workers:   cfg.Delta.Workers,
		Timeout:   timeout,
		Store:     s.dir,
		Observer:  event.LogObserver{Logger: s.logger},
		Logger:    s.logger,
	}

	var index *librelease.Index
	if cfg.Paths.Catalog != "" {
		releaseCatalog, err := catalog.Open(catalog.Config{Path: cfg.Paths.Catalog, Logger: s.logger})
		if err != nil {
			return err
		}
		defer releaseCatalog.Close()
		index, err = releaseCatalog.Load(ctx, cfg.Product.ID)
		if err != nil {
			return err
		}
		config.Catalog = releaseCatalog
	} else {
		index, err = s.index()
		if err != nil {
			return err
		}
	}

	releaseBuilder, err := builder.New(config)
	if err != nil {
		return err
	}
	result, err := releaseBuilder.Build(ctx, index, packages)
	if err != nil {
		return err
	}

	for _, channel := range index.Channels() {
		if err := s.dir.WriteFeed(index, channel); err != nil {
			return err
		}
	}

	printBuildResult(stdout, result)
	return result.Err()
}

// readPackages parses VERSION=PATH arguments and reads each package.
func readPackages(args []string) ([]builder.Package, error) {
	packages := make([]builder.Package, 0, len(args))
	for _, arg := range args {
		versionText, path, ok := strings.Cut(arg, "=")
		if !ok || versionText == "" || path == "" {
			return nil, fmt.Errorf("argument %q is not VERSION=PATH", arg)
		}
		version, err := semver.Parse(versionText)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading package for %s: %w", version, err)
		}
		packages = append(packages, builder.Package{Version: version, Data: data})
	}
	return packages, nil
}

func printBuildResult(w io.Writer, result builder.Result) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, manifest := range result.Added {
		fmt.Fprintf(tw, "added\t%s\t%s\n", manifest.FileName(), cli.FormatSize(manifest.Size))
	}
	for _, manifest := range result.Unchanged {
		fmt.Fprintf(tw, "unchanged\t%s\t%s\n", manifest.FileName(), cli.FormatSize(manifest.Size))
	}
	for _, failure := range result.Failed {
		fmt.Fprintf(tw, "failed\tdelta %s -> %s\t%v\n", failure.Base, failure.Target, failure.Err)
	}
	tw.Flush()
}
