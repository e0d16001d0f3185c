// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	librelease "github.com/bureau-foundation/shipwright/lib/release"
)

type latestParams struct {
	DirectoryParams
	Prerelease bool `flag:"prerelease" desc:"include prerelease versions"`
}

func latestCommand() *cli.Command {
	var params latestParams

	return &cli.Command{
		Name:    "latest",
		Summary: "Print the newest version on a channel",
		Usage:   "shipwright release latest [--prerelease] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("latest", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runLatest(params, os.Stdout)
		},
	}
}

func runLatest(params latestParams, stdout io.Writer) error {
	s, err := params.open("release/latest")
	if err != nil {
		return err
	}
	index, err := s.index()
	if err != nil {
		return err
	}

	version, ok := index.LatestVersion(s.channel, params.Prerelease)
	if !ok {
		return &librelease.VersionNotFoundError{Channel: s.channel}
	}
	if full, ok := index.Full(s.channel, version); ok {
		fmt.Fprintf(stdout, "%s\t%s\n", version, full.FileName())
	} else {
		fmt.Fprintf(stdout, "%s\t(delta only)\n", version)
	}
	return nil
}
