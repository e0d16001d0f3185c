// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package delta implements the "shipwright delta" command group:
// generating, applying, and inspecting binary patches outside of a
// release build.
package delta

import (
	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
)

// Command returns the "delta" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "delta",
		Summary: "Generate, apply, and inspect binary patches",
		Description: `Work with individual binary patches.

A patch records how to rebuild one package from another. It carries
the size and SHA-256 of both, so applying it to the wrong base or
producing anything but the exact target fails with a distinct exit
code (10 for a corrupt patch, 11 for the wrong base).`,
		Subcommands: []*cli.Command{
			generateCommand(),
			patchCommand(),
			inspectCommand(),
		},
	}
}
