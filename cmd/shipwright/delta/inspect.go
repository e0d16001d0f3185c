// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	libdelta "github.com/bureau-foundation/shipwright/lib/delta"
)

type inspectParams struct {
	cli.GlobalParams
}

func inspectCommand() *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Print patch headers",
		Usage:   "shipwright delta inspect PATCH [PATCH...]",
		Description: `Decode and check each patch's header without applying it.

The checksum and stream lengths are verified, so a patch that inspects
cleanly was not damaged in transit.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one patch file is required")
			}
			return runInspect(args, os.Stdout)
		},
	}
}

func runInspect(paths []string, stdout io.Writer) error {
	var errs []error
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		patch, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		header, err := libdelta.Inspect(patch)
		if err != nil {
			fmt.Fprintf(stdout, "%s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printHeader(stdout, path, header)
	}
	return errors.Join(errs...)
}

func printHeader(w io.Writer, path string, header libdelta.Header) {
	fmt.Fprintf(w, "%s\n", path)
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  format\t%d\n", header.Format)
	fmt.Fprintf(tw, "  base\t%s\t%s\n", cli.FormatSize(header.BaseSize), header.BaseHash)
	fmt.Fprintf(tw, "  target\t%s\t%s\n", cli.FormatSize(header.TargetSize), header.TargetHash)
	for i, name := range []string{"control", "diff", "extra"} {
		stream := header.Streams[i]
		fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\n", name, stream.Tag,
			cli.FormatSize(stream.RawLength), cli.FormatSize(stream.EncodedLength))
	}
	fmt.Fprintf(tw, "  patch\t%s\t%s of target\n",
		cli.FormatSize(header.PatchSize()), cli.FormatRatio(header.PatchSize(), header.TargetSize))
	tw.Flush()
}
