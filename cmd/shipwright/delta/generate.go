// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/renameio"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	libdelta "github.com/bureau-foundation/shipwright/lib/delta"
)

type generateParams struct {
	cli.GlobalParams
	Base   string `flag:"base"     desc:"package the patch applies to (required)"`
	New    string `flag:"new"      desc:"package the patch produces (required)"`
	Output string `flag:"output,o" desc:"patch file to write (required)"`
	Mode   string `flag:"mode"     desc:"stream compression: none, fastest, or smallest (default: delta.mode from configuration)"`
}

func generateCommand() *cli.Command {
	var params generateParams

	return &cli.Command{
		Name:    "generate",
		Summary: "Write a patch that turns one package into another",
		Usage:   "shipwright delta generate --base OLD --new NEW -o PATCH [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("generate", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Diff two builds with the default compression",
				Command:     "shipwright delta generate --base app-1.0.0.pkg --new app-1.1.0.pkg -o app-1.1.0.patch",
			},
			{
				Description: "Trade patch size for speed",
				Command:     "shipwright delta generate --mode fastest --base a.pkg --new b.pkg -o b.patch",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runGenerate(params, os.Stdout)
		},
	}
}

func runGenerate(params generateParams, stdout io.Writer) error {
	if params.Base == "" || params.New == "" || params.Output == "" {
		return fmt.Errorf("--base, --new, and --output are required")
	}
	cfg, logger, err := params.Setup("delta/generate")
	if err != nil {
		return err
	}
	modeName := params.Mode
	if modeName == "" {
		modeName = cfg.Delta.Mode
	}
	mode, err := libdelta.ParseMode(modeName)
	if err != nil {
		return err
	}

	base, err := os.ReadFile(params.Base)
	if err != nil {
		return fmt.Errorf("reading base: %w", err)
	}
	target, err := os.ReadFile(params.New)
	if err != nil {
		return fmt.Errorf("reading new package: %w", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	started := time.Now()
	patch, err := libdelta.DiffContext(ctx, base, target, mode)
	if err != nil {
		return fmt.Errorf("generating patch: %w", err)
	}
	if err := renameio.WriteFile(params.Output, patch, 0o644); err != nil {
		return fmt.Errorf("writing patch: %w", err)
	}

	logger.Debug("patch generated",
		"base", params.Base,
		"new", params.New,
		"mode", mode,
		"duration", time.Since(started),
	)
	fmt.Fprintf(stdout, "%s: %s (%s of %s)\n",
		params.Output,
		cli.FormatSize(uint64(len(patch))),
		cli.FormatRatio(uint64(len(patch)), uint64(len(target))),
		cli.FormatSize(uint64(len(target))),
	)
	return nil
}
