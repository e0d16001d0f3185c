// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifactstore moves package artifacts between the release
// pipeline and the places they are served from.
//
// The pipeline writes through [Publisher] and update clients read
// through [Fetcher]; both are keyed by manifest, and artifacts are
// addressed by [release.Manifest.FileName]. A publisher verifies bytes
// against the manifest before storing them, so a store never holds an
// artifact that disagrees with its own metadata. Fetchers enforce the
// manifest size but leave hashing to the caller, which must verify
// before use anyway.
//
// [Dir] is a plain directory tree suitable for serving over HTTP or
// syncing to object storage. [Memory] keeps everything in a map and
// exists for tests and for embedding the pipeline in other programs.
package artifactstore

import (
	"context"
	"errors"

	"github.com/bureau-foundation/shipwright/lib/release"
)

// Fetcher retrieves artifact bytes.
type Fetcher interface {
	FetchArtifact(ctx context.Context, manifest release.Manifest) ([]byte, error)
}

// Publisher stores artifact bytes.
type Publisher interface {
	PublishArtifact(ctx context.Context, manifest release.Manifest, data []byte) error
}

// Store is both a [Fetcher] and a [Publisher].
type Store interface {
	Fetcher
	Publisher
}

var (
	// ErrNotFound is returned when a store has no artifact for a
	// manifest.
	ErrNotFound = errors.New("artifact not found")

	// ErrConflict is returned when publishing bytes under a name that
	// already holds different bytes. Artifacts are immutable once
	// published.
	ErrConflict = errors.New("artifact already published with different content")
)
