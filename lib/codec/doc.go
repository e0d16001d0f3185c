// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides shipwright's CBOR encoding configuration.
//
// Release metadata travels in two forms:
//
//   - JSON for documents humans and third-party updaters read: the
//     releases.{channel}.json feed and CLI --json output.
//   - CBOR for the compact on-disk index sequence that the release
//     builder appends to and that embedded updaters can decode without
//     a JSON parser.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same manifest list always produces identical bytes. That lets a
// release pipeline hash the encoded index and skip re-uploading it
// when nothing changed.
//
// The decoder ignores unknown map keys. A newer builder may add fields
// to a manifest record; older clients still decode the fields they know.
//
// Manifest types carry json struct tags only. fxamacker/cbor falls back
// to json tags when cbor tags are absent, so one set of tags names the
// fields in both formats.
package codec
