// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides the SHA-256 content digest recorded in
// release manifests and patch headers.
//
// Every package artifact (full or delta) is identified for integrity
// purposes by the SHA-256 of its exact bytes. The same digest appears
// in three places: the manifest's content hash, the base and target
// hashes inside a delta patch header, and the feed documents handed
// to update clients. Keeping one [Digest] type for all three means a
// hash read from a feed compares directly against a hash computed
// from downloaded bytes.
//
// The API surface:
//
//   - [Sum] -- digest of an in-memory blob
//   - [HashReader] and [HashFile] -- streaming digests with constant
//     memory, returning the byte count alongside the digest
//   - [Digest.String] and [ParseDigest] -- canonical lowercase hex
//
// Digest implements encoding.TextMarshaler so it serializes as a hex
// string in both JSON feeds and CBOR records.
//
// This package has no dependencies on other shipwright packages.
package binhash
