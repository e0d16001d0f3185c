// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package delta computes and applies binary patches between package
// builds.
//
// The algorithm belongs to the bsdiff family. [Diff] suffix-sorts the
// base blob, then walks the target looking for long approximate
// matches. Each step of the walk emits a control triple (copy length,
// insert length, seek), the bytewise difference of the approximate
// match, and the literal bytes between matches. Those three streams
// compress far better separately than interleaved, because the
// difference stream is mostly zeros when only addresses shift.
//
// A patch is self-describing:
//
//	magic "SWDELTA1" | format | 3 stream tags | reserved
//	base size | target size | base sha256 | target sha256
//	3 x (raw length, encoded length)
//	checksum (BLAKE3 keyed, over everything above it and the streams)
//	control stream | diff stream | extra stream
//
// Integers are little-endian. Each stream carries its own compression
// tag, so an incompressible stream is stored raw even when the patch
// was built in [ModeSmallest].
//
// [Apply] checks, in order: the checksum ([ErrPatchCorrupt]), the base
// size and hash ([ErrPatchMismatch]), every control step's bounds while
// reconstructing (corrupt), and finally the reconstructed length and
// hash against the header (corrupt). It never returns bytes that failed
// any of these checks, and it never retries.
//
// Diff and Apply are pure functions of their inputs: the same base,
// target, and mode always produce the same patch bytes.
package delta
