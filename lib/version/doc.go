// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build information for the shipwright
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string
//
// For example:
//
//	go build -ldflags "-X github.com/bureau-foundation/shipwright/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Version] must be a valid semantic version; [Parsed] returns it as a
// [semver.Version] and [SelfDigest] hashes the running executable, so
// shipwright can be released with its own release pipeline.
package version
