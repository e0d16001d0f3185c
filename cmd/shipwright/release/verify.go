// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	librelease "github.com/bureau-foundation/shipwright/lib/release"
)

type verifyParams struct {
	DirectoryParams
}

func verifyCommand() *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Check artifact files against the feeds",
		Usage:   "shipwright release verify [flags] FILE [FILE...]",
		Description: `Check that each file's size and SHA-256 match the feed entry its name
refers to.

Files may live anywhere (a download cache, a mirror); only the name is
used to find the entry. Every file is checked and reported. The exit
code reflects the first failure: 12 for a hash mismatch, 13 for a size
mismatch, 14 when the feed has no such entry, 16 for a name that is not
a canonical artifact name.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Verify a mirror against the published feeds",
				Command:     "shipwright release verify --releases ./releases --product Acme.App mirror/*.pkg",
			},
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one file is required")
			}
			return runVerify(params, args, os.Stdout)
		},
	}
}

func runVerify(params verifyParams, paths []string, stdout io.Writer) error {
	s, err := params.open("release/verify")
	if err != nil {
		return err
	}
	index, err := s.index()
	if err != nil {
		return err
	}

	var firstErr error
	failed := 0
	for _, path := range paths {
		err := verifyOne(index, path)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			fmt.Fprintf(stdout, "FAIL\t%s\t%v\n", path, err)
			continue
		}
		fmt.Fprintf(stdout, "ok\t%s\n", path)
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d artifacts failed verification: %w", failed, len(paths), firstErr)
	}
	s.logger.Debug("artifacts verified", "count", len(paths))
	return nil
}

// verifyOne finds the feed entry named by path's base name and checks
// the file against it.
func verifyOne(index *librelease.Index, path string) error {
	name := filepath.Base(path)
	parsed, err := librelease.ParseFileName(name)
	if err != nil {
		return err
	}
	if parsed.ProductID != index.ProductID() {
		return fmt.Errorf("%s is for %q, expected %q: %w",
			name, parsed.ProductID, index.ProductID(), librelease.ErrProductMismatch)
	}

	var entry librelease.Manifest
	var found bool
	if parsed.IsDelta() {
		entry, found = index.DeltaFrom(parsed.Channel, *parsed.DeltaBase, parsed.Version)
	} else {
		entry, found = index.Full(parsed.Channel, parsed.Version)
	}
	if !found || entry.FileName() != name {
		return &librelease.VersionNotFoundError{Channel: parsed.Channel, Version: &parsed.Version}
	}
	return integrity.VerifyFile(path, entry)
}
