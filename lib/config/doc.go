// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration for shipwright.
//
// Configuration comes from a single file named by either the
// SHIPWRIGHT_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no search path and no per-value
// environment override, so a release is reproducible from the file
// alone.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches. Path
// fields expand ${HOME}, ${SHIPWRIGHT_ROOT}, and ${VAR:-default}.
//
// Key exports:
//
//   - [Config] -- Product, Paths, Delta, Resolver sections
//   - [Default] -- a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
