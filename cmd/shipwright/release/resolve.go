// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/resolve"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

type resolveParams struct {
	DirectoryParams
	From       string `flag:"from"       desc:"installed version (omit for a fresh install)"`
	To         string `flag:"to"         desc:"target version (default: latest on the channel)"`
	Prerelease bool   `flag:"prerelease" desc:"consider prerelease versions when --to is omitted"`
}

func resolveCommand() *cli.Command {
	var params resolveParams

	return &cli.Command{
		Name:    "resolve",
		Summary: "Show how a client would update between two versions",
		Usage:   "shipwright release resolve [--from VERSION] [--to VERSION] [flags]",
		Description: `Resolve an update the way a client on the channel would, and print
the artifacts it would download.

The client chooses a delta chain when one exists, has at most
resolver.max_hops deltas, and is smaller than resolver.max_chain_ratio
times the full package. Otherwise it downloads the full package.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resolve", &params)
		},
		Examples: []cli.Example{
			{
				Description: "What does a 1.0.0 client download to reach the latest release?",
				Command:     "shipwright release resolve --releases ./releases --product Acme.App --from 1.0.0",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runResolve(params, os.Stdout)
		},
	}
}

func runResolve(params resolveParams, stdout io.Writer) error {
	var from *semver.Version
	if params.From != "" {
		version, err := semver.Parse(params.From)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		from = &version
	}

	s, err := params.open("release/resolve")
	if err != nil {
		return err
	}
	index, err := s.index()
	if err != nil {
		return err
	}

	var resolution resolve.Resolution
	if params.To == "" {
		resolution, err = s.resolver().ResolveLatest(index, s.channel, from, params.Prerelease)
	} else {
		to, parseErr := semver.Parse(params.To)
		if parseErr != nil {
			return fmt.Errorf("--to: %w", parseErr)
		}
		resolution, err = s.resolver().Resolve(index, s.channel, from, to)
	}
	if err != nil {
		return err
	}

	printResolution(stdout, resolution)
	return nil
}

func printResolution(w io.Writer, resolution resolve.Resolution) {
	fromText := "(none)"
	if resolution.From != nil {
		fromText = resolution.From.String()
	}
	fmt.Fprintf(w, "%s -> %s on %s: %s\n", fromText, resolution.To, resolution.Channel, resolution.Strategy)
	if resolution.Strategy == resolve.UpToDate {
		return
	}

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, manifest := range resolution.Artifacts() {
		fmt.Fprintf(tw, "  %s\t%s\n", manifest.FileName(), cli.FormatSize(manifest.Size))
	}
	tw.Flush()

	download := resolution.DownloadSize()
	if resolution.Strategy == resolve.Delta && resolution.Full != nil {
		fmt.Fprintf(w, "download %s (%s of the full package)\n",
			cli.FormatSize(download), cli.FormatRatio(download, resolution.Full.Size))
	} else {
		fmt.Fprintf(w, "download %s\n", cli.FormatSize(download))
	}
	if digest, size, ok := resolution.Expected(); ok {
		fmt.Fprintf(w, "result %s sha256 %s\n", cli.FormatSize(size), digest)
	}
}
