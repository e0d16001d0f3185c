// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	deltacmd "github.com/bureau-foundation/shipwright/cmd/shipwright/delta"
	releasecmd "github.com/bureau-foundation/shipwright/cmd/shipwright/release"
	"github.com/bureau-foundation/shipwright/lib/version"
)

// root builds the complete shipwright command tree.
func root() *cli.Command {
	return &cli.Command{
		Name: "shipwright",
		Description: `shipwright: release packaging with delta updates.

Build release directories of full packages and binary deltas, and
answer the questions an update client asks of them, or act as one.`,
		Subcommands: []*cli.Command{
			deltacmd.Command(),
			releasecmd.Command(),
			versionCommand(os.Stdout),
		},
	}
}

type versionParams struct {
	Digest bool `flag:"digest" desc:"also print the SHA-256 of this executable"`
}

func versionCommand(stdout io.Writer) *cli.Command {
	var params versionParams

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(args []string) error {
			fmt.Fprintf(stdout, "shipwright %s\n", version.Full())
			if !params.Digest {
				return nil
			}
			digest, err := version.SelfDigest()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "sha256 %s\n", digest)
			return nil
		},
	}
}
