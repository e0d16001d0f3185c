// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/watchdog"
)

type statusParams struct {
	cli.GlobalParams
	Installed string        `flag:"installed" desc:"installed full package"`
	Watchdog  string        `flag:"watchdog"  desc:"update record (default: <installed>.update.json)"`
	MaxAge    time.Duration `flag:"max-age"   desc:"ignore update records older than this" default:"10m"`
	Keep      bool          `flag:"keep"      desc:"leave the update record in place"`

	// clock decides whether the record is stale. Nil selects the real
	// clock.
	clock clock.Clock
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Report whether the last in-place update took",
		Usage:   "shipwright release status --installed FILE [flags]",
		Description: `Compare the installed package with the record "release apply" left
before replacing it, and print one of:

  updated       the installed package is the new version
  rolled-back   the installed package is the previous version again
  unknown       the installed package is neither

The command exits 1 for rolled-back and unknown, after printing the
line. The record is removed afterwards unless --keep is given. Records
older than --max-age are ignored.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runStatus(params, os.Stdout)
		},
	}
}

func runStatus(params statusParams, stdout io.Writer) error {
	if params.Installed == "" {
		return fmt.Errorf("--installed is required")
	}
	_, logger, err := params.Setup("release/status")
	if err != nil {
		return err
	}
	path := params.Watchdog
	if path == "" {
		path = defaultWatchdogPath(params.Installed)
	}

	state, found, err := watchdog.Check(path, params.MaxAge, params.clock)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(stdout, "no update recorded")
		return nil
	}

	installed, _, err := binhash.HashFile(params.Installed)
	if err != nil {
		return err
	}
	outcome := state.Outcome(installed)
	fmt.Fprintf(stdout, "%s %s -> %s on %s: %s\n",
		state.Product, state.PreviousVersion, state.NewVersion, state.Channel, outcome)
	logger.Info("update outcome",
		"product", state.Product,
		"from", state.PreviousVersion,
		"to", state.NewVersion,
		"outcome", string(outcome),
	)

	if !params.Keep {
		if err := watchdog.Clear(path); err != nil {
			return err
		}
	}
	if outcome != watchdog.Updated {
		return &cli.ExitError{Code: cli.ExitFailure}
	}
	return nil
}
