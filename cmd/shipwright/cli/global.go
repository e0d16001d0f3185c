// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/shipwright/lib/config"
)

// GlobalParams are the flags every command accepts. Commands embed it
// in their params struct.
type GlobalParams struct {
	ConfigPath string `flag:"config"    desc:"path to shipwright.yaml (default: $SHIPWRIGHT_CONFIG, then built-in defaults)"`
	Verbose    bool   `flag:"verbose,v" desc:"log debug detail"`
}

// Setup loads the configuration and builds a logger scoped to command.
//
// --config wins over SHIPWRIGHT_CONFIG. With neither, the built-in
// defaults are used, so one-off delta commands need no file at all.
// The result is not validated: commands apply their flag overrides
// first and then call [config.Config.Validate].
func (g GlobalParams) Setup(command string) (*config.Config, *slog.Logger, error) {
	logger := NewCommandLogger(g.Verbose).With("command", command)

	var cfg *config.Config
	var err error
	switch {
	case g.ConfigPath != "":
		cfg, err = config.LoadFile(g.ConfigPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, logger, nil
}

// SignalContext returns a context canceled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// FormatSize renders a byte count for humans, e.g. "4.2 MiB".
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatRatio renders part as a percentage of whole.
func FormatRatio(part, whole uint64) string {
	if whole == 0 {
		return "-"
	}
	return humanize.FtoaWithDigits(100*float64(part)/float64(whole), 1) + "%"
}
