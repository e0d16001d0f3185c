// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/shipwright/cmd/shipwright/cli"
	"github.com/bureau-foundation/shipwright/lib/codec"
	librelease "github.com/bureau-foundation/shipwright/lib/release"
)

type feedParams struct {
	DirectoryParams
	Format string `flag:"format" desc:"json, cbor, or diag (CBOR in diagnostic notation)" default:"json"`
}

func feedCommand() *cli.Command {
	var params feedParams

	return &cli.Command{
		Name:    "feed",
		Summary: "Print a channel's feed",
		Usage:   "shipwright release feed [--format json|cbor|diag] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("feed", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Show the beta feed",
				Command:     "shipwright release feed --releases ./releases --product Acme.App --channel beta",
			},
			{
				Description: "Inspect the binary feed record by record",
				Command:     "shipwright release feed --format diag --config shipwright.yaml",
			},
			{
				Description: "Export the binary feed",
				Command:     "shipwright release feed --format cbor --config shipwright.yaml > feed.cbor",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runFeed(params, os.Stdout)
		},
	}
}

func runFeed(params feedParams, stdout io.Writer) error {
	switch params.Format {
	case "json", "cbor", "diag":
	default:
		return fmt.Errorf("--format must be json, cbor, or diag, got %q", params.Format)
	}
	s, err := params.open("release/feed")
	if err != nil {
		return err
	}
	feed, err := s.dir.ReadFeed(s.channel)
	if err != nil {
		return err
	}
	if feed.Product != s.config.Product.ID {
		return fmt.Errorf("feed for channel %q is for %q, not %q: %w",
			s.channel, feed.Product, s.config.Product.ID, librelease.ErrProductMismatch)
	}
	switch params.Format {
	case "cbor":
		return feed.WriteCBOR(stdout)
	case "diag":
		var encoded bytes.Buffer
		if err := feed.WriteCBOR(&encoded); err != nil {
			return err
		}
		text, err := codec.DiagnoseSequence(encoded.Bytes())
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, text)
		return err
	default:
		return feed.WriteJSON(stdout)
	}
}
