// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/binhash"
	libdelta "github.com/bureau-foundation/shipwright/lib/delta"
)

type patchParams struct {
	cli.GlobalParams
	Base   string `flag:"base"     desc:"package the first patch applies to (required)"`
	Output string `flag:"output,o" desc:"reconstructed package to write (required)"`
}

func patchCommand() *cli.Command {
	var params patchParams

	return &cli.Command{
		Name:    "patch",
		Summary: "Apply one or more patches to a package",
		Usage:   "shipwright delta patch --base OLD -o OUT PATCH [PATCH...]",
		Description: `Apply a chain of patches to a base package.

Patches are applied in the order given; each must have been generated
against the output of the one before it. The output file is written
only after every patch has applied and verified.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("patch", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Rebuild 1.2.0 from 1.0.0 through 1.1.0",
				Command:     "shipwright delta patch --base app-1.0.0.pkg -o app-1.2.0.pkg 1.1.0.patch 1.2.0.patch",
			},
		},
		Run: func(args []string) error {
			return runPatch(params, args, os.Stdout)
		},
	}
}

func runPatch(params patchParams, patchPaths []string, stdout io.Writer) error {
	if params.Base == "" || params.Output == "" {
		return fmt.Errorf("--base and --output are required")
	}
	if len(patchPaths) == 0 {
		return fmt.Errorf("at least one patch file is required")
	}
	_, logger, err := params.Setup("delta/patch")
	if err != nil {
		return err
	}

	base, err := os.ReadFile(params.Base)
	if err != nil {
		return fmt.Errorf("reading base: %w", err)
	}
	patches := make([][]byte, len(patchPaths))
	for i, path := range patchPaths {
		patches[i], err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading patch: %w", err)
		}
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	target, err := libdelta.ApplyChainContext(ctx, base, patches...)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(params.Output, target, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logger.Debug("patches applied", "base", params.Base, "patches", len(patches))
	fmt.Fprintf(stdout, "%s: %s sha256 %s\n", params.Output, cli.FormatSize(uint64(len(target))), binhash.Sum(target))
	return nil
}
