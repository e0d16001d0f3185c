// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package release models the metadata of packaged application builds:
// one [Manifest] per artifact, an append-only [Index] per product, and
// the feed documents that carry an index to update clients.
//
// A product publishes independent release tracks called channels.
// Within a channel every version has at most one full package (a
// complete standalone build) and any number of delta packages, each
// anchored to a distinct earlier version. A delta at version V with
// base B transforms the full package of B into the full package of V.
// The index refuses a delta whose base has no entry in the channel, so
// every delta can be traced back through other deltas to some full
// package.
//
// Artifact file names encode the identifying fields and parse back
// exactly:
//
//	{product}_{version}_{channel}_{os}-{arch}_full.pkg
//	{product}_{version}_{channel}_{os}-{arch}_delta-{base}.pkg
//
// The underscore separator never appears in any field: product ids and
// channels are restricted to letters, digits, dots, and hyphens, and
// SemVer identifiers cannot contain underscores.
//
// Feeds come in two encodings. The JSON feed (releases.{channel}.json)
// is the document update clients download. The CBOR feed is a sequence
// of manifest records, one per entry, encoded deterministically via
// lib/codec. Both readers ignore fields they do not recognize.
package release
