// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records an in-progress package replacement so the
// next run can tell whether the update took.
//
// The workflow for an installed package that is replaced in place:
//
//  1. Before the swap: call [Write] with the version and digest the
//     package has now and the version and digest it is about to have.
//  2. Replace the package and restart it.
//  3. On startup, call [Check], hash the installed package, and pass
//     both to [State.Outcome]. A digest matching State.NewDigest means
//     the update succeeded; a digest matching State.PreviousDigest means
//     something restored the old package. Report the outcome (this is
//     where first-run-after-update work belongs) and [Clear] the file.
//
// The state file is written atomically, so readers never see a partial
// or corrupt state. [Check] ignores state files older than a maximum
// age to avoid acting on a record left behind by an unrelated restart.
package watchdog
