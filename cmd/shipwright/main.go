// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like release status)
		// can return an ExitError with the desired exit code. Don't
		// print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitCodeFor(err))
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}
