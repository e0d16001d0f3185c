// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the shipwright
// CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/shipwright/main.go and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, and structured help output
// with examples.
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]. Every command embeds [GlobalParams] for --config
// and --verbose, and calls [GlobalParams.Setup] to get the loaded
// configuration and a logger.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Errors from the release libraries map to distinct exit codes through
// [ExitCodeFor], so scripts can tell a corrupt patch from a missing
// version without parsing messages.
package cli
