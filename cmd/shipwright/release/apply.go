// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/event"
	"github.com/bureau-foundation/shipwright/lib/resolve"
	"github.com/bureau-foundation/shipwright/lib/semver"
	"github.com/bureau-foundation/shipwright/lib/update"
	"github.com/bureau-foundation/shipwright/lib/watchdog"
)

type applyParams struct {
	DirectoryParams
	Installed  string `flag:"installed"  desc:"installed full package; replaced in place when --output is omitted"`
	From       string `flag:"from"       desc:"version of the installed package (required with --installed)"`
	To         string `flag:"to"         desc:"target version (default: latest on the channel)"`
	Prerelease bool   `flag:"prerelease" desc:"consider prerelease versions when --to is omitted"`
	Output     string `flag:"output,o"   desc:"write the updated package here instead of replacing --installed"`
	Watchdog   string `flag:"watchdog"   desc:"update record for in-place replacement (default: <installed>.update.json)"`

	// clock stamps the update record. Nil selects the real clock.
	clock clock.Clock
}

func applyCommand() *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Update a package from a releases directory",
		Usage:   "shipwright release apply (--installed FILE --from VERSION | -o FILE) [--to VERSION] [flags]",
		Description: `Update a package the way a client would: resolve the path from the
installed version, fetch the deltas (or the full package), rebuild the
target, and check it against the feed's digest before writing it.

With --installed and no --output the installed file is replaced in
place. An update record is written next to it first, so "release
status" can later tell whether the replacement took.

Without --installed this is a fresh install and --output is required.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("apply", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Bring an installed 1.0.0 package to the latest release",
				Command:     "shipwright release apply --releases ./releases --product Acme.App --installed app.pkg --from 1.0.0",
			},
			{
				Description: "Fresh install of a specific version",
				Command:     "shipwright release apply --releases ./releases --product Acme.App --to 1.2.0 -o app.pkg",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runApply(params, os.Stdout)
		},
	}
}

func runApply(params applyParams, stdout io.Writer) error {
	request := update.Request{IncludePrerelease: params.Prerelease}
	switch {
	case params.Installed == "" && params.Output == "":
		return fmt.Errorf("--output is required for a fresh install")
	case params.Installed == "" && params.From != "":
		return fmt.Errorf("--from requires --installed")
	case params.Installed != "" && params.From == "":
		return fmt.Errorf("--from is required with --installed")
	}
	if params.From != "" {
		from, err := semver.Parse(params.From)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		request.Installed = &from
	}
	if params.To != "" {
		to, err := semver.Parse(params.To)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		request.Target = &to
	}

	var (
		installedMode os.FileMode = 0o644
		installedHash binhash.Digest
	)
	if params.Installed != "" {
		info, err := os.Stat(params.Installed)
		if err != nil {
			return err
		}
		installedMode = info.Mode().Perm()
		if request.InstalledData, err = os.ReadFile(params.Installed); err != nil {
			return err
		}
		installedHash = binhash.Sum(request.InstalledData)
	}

	s, err := params.open("release/apply")
	if err != nil {
		return err
	}
	request.Channel = s.channel
	index, err := s.index()
	if err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client := &update.Client{
		Store:    s.dir,
		Resolver: s.resolver(),
		Observer: event.LogObserver{Logger: s.logger},
		Logger:   s.logger,
	}
	result, err := client.Update(ctx, index, request)
	if err != nil {
		return err
	}

	printResolution(stdout, result.Resolution)
	if result.Fallback != nil {
		fmt.Fprintf(stdout, "fell back to the full package: %v\n", result.Fallback)
	}
	if result.Resolution.Strategy == resolve.UpToDate {
		return nil
	}

	if params.Output != "" {
		if err := renameio.WriteFile(params.Output, result.Data, installedMode); err != nil {
			return fmt.Errorf("writing %s: %w", params.Output, err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", params.Output)
		return nil
	}

	watchdogPath := params.Watchdog
	if watchdogPath == "" {
		watchdogPath = defaultWatchdogPath(params.Installed)
	}
	state := watchdog.State{
		Product:         s.config.Product.ID,
		Channel:         s.channel,
		PreviousVersion: *request.Installed,
		PreviousDigest:  installedHash,
		NewVersion:      result.Resolution.To,
		NewDigest:       binhash.Sum(result.Data),
		Timestamp:       clock.OrReal(params.clock).Now(),
	}
	if err := watchdog.Write(watchdogPath, state); err != nil {
		return err
	}
	if err := renameio.WriteFile(params.Installed, result.Data, installedMode); err != nil {
		return fmt.Errorf("replacing %s: %w", params.Installed, err)
	}
	s.logger.Info("package replaced",
		"path", params.Installed,
		"from", state.PreviousVersion,
		"to", state.NewVersion,
		"watchdog", watchdogPath,
	)
	fmt.Fprintf(stdout, "replaced %s\n", params.Installed)
	return nil
}

func defaultWatchdogPath(installed string) string {
	return installed + ".update.json"
}
