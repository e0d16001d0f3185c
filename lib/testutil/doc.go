// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for shipwright packages.
//
// [RandomBlob] and [AliasedBlob] generate reproducible package-like
// inputs from a seed, so a failing delta round trip can be replayed
// exactly. AliasedBlob imitates executables: long runs copied from
// earlier offsets, small edits inside the copies, and zero padding,
// which is the input shape that exercises overlapping matches in the
// suffix search.
//
// [Mutate] returns a copy with selected bytes flipped, for tamper
// tests. [WriteFile] places a blob in a test directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no shipwright-internal dependencies.
package testutil
