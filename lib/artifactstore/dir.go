// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"

	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
)

// lockFileName is the advisory lock that serializes release writers
// sharing a directory.
const lockFileName = ".shipwright.lock"

// DefaultLockRetry is how often [Dir.Lock] retries a held lock.
const DefaultLockRetry = 100 * time.Millisecond

// DirConfig configures a directory store.
type DirConfig struct {
	// Path is the releases directory. It is created if missing.
	Path string

	// Logger receives publish and feed messages. If nil, a no-op
	// logger is used.
	Logger *slog.Logger
}

// Dir is a [Store] backed by a flat directory: one file per artifact,
// named by [release.Manifest.FileName], next to the channel feeds.
//
// Every write goes to a temporary file that is renamed into place, so
// readers (including an HTTP server sharing the directory) see either
// the old file or the complete new one. Concurrent release builds
// against the same directory must hold [Dir.Lock].
type Dir struct {
	root   string
	logger *slog.Logger
}

// OpenDir opens (creating if needed) a releases directory.
func OpenDir(config DirConfig) (*Dir, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("artifactstore: Path is required")
	}
	if err := os.MkdirAll(config.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating releases directory: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dir{root: config.Path, logger: logger}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// PathFor returns where the artifact for manifest is stored.
func (d *Dir) PathFor(manifest release.Manifest) string {
	return filepath.Join(d.root, manifest.FileName())
}

// Lock takes the directory's writer lock, waiting until ctx is done.
// The returned function releases it.
func (d *Dir) Lock(ctx context.Context) (func(), error) {
	lock := flock.New(filepath.Join(d.root, lockFileName))
	locked, err := lock.TryLockContext(ctx, DefaultLockRetry)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", d.root, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: lock is held by another writer", d.root)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("releasing releases directory lock", "path", d.root, "error", err)
		}
	}, nil
}

// PublishArtifact verifies data against manifest and writes it
// atomically. Republishing identical bytes is a no-op; different bytes
// under an existing name fail with [ErrConflict].
func (d *Dir) PublishArtifact(ctx context.Context, manifest release.Manifest, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := integrity.Verify(data, manifest); err != nil {
		return fmt.Errorf("publishing %s: %w", manifest.FileName(), err)
	}

	path := d.PathFor(manifest)
	if _, err := os.Stat(path); err == nil {
		if err := integrity.VerifyFile(path, manifest); err != nil {
			if integrity.IsIntegrityFailure(err) {
				return fmt.Errorf("publishing %s: %w", manifest.FileName(), ErrConflict)
			}
			return fmt.Errorf("publishing %s: %w", manifest.FileName(), err)
		}
		d.logger.Debug("artifact already published", "artifact", manifest.FileName())
		return nil
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	d.logger.Info("artifact published", "artifact", manifest.FileName(), "bytes", len(data))
	return nil
}

// FetchArtifact reads the artifact for manifest. A file whose length
// differs from the manifest fails with *integrity.SizeMismatchError
// before it is read.
func (d *Dir) FetchArtifact(ctx context.Context, manifest release.Manifest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(d.PathFor(manifest))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fetching %s: %w", manifest.FileName(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", manifest.FileName(), err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", manifest.FileName(), err)
	}
	if uint64(info.Size()) != manifest.Size {
		return nil, &integrity.SizeMismatchError{
			Artifact: manifest.FileName(),
			Want:     manifest.Size,
			Got:      uint64(info.Size()),
		}
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", manifest.FileName(), err)
	}
	return data, nil
}

// WriteFeed writes the JSON and CBOR feeds for one channel of index.
// The caller must hold [Dir.Lock] when other writers may be active.
func (d *Dir) WriteFeed(index *release.Index, channel string) error {
	feed := release.NewFeed(index, channel)

	var jsonFeed, cborFeed bytes.Buffer
	if err := feed.WriteJSON(&jsonFeed); err != nil {
		return err
	}
	if err := feed.WriteCBOR(&cborFeed); err != nil {
		return err
	}

	jsonPath := filepath.Join(d.root, release.FeedFileName(channel))
	if err := renameio.WriteFile(jsonPath, jsonFeed.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", jsonPath, err)
	}
	cborPath := filepath.Join(d.root, release.IndexFileName(channel))
	if err := renameio.WriteFile(cborPath, cborFeed.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cborPath, err)
	}

	d.logger.Info("feed written",
		"channel", release.NormalizeChannel(channel),
		"entries", len(feed.Assets),
		"path", jsonPath,
	)
	return nil
}

// ReadFeed reads one channel's JSON feed.
func (d *Dir) ReadFeed(channel string) (release.Feed, error) {
	path := filepath.Join(d.root, release.FeedFileName(channel))
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return release.Feed{}, fmt.Errorf("reading feed for channel %q: %w", release.NormalizeChannel(channel), ErrNotFound)
	}
	if err != nil {
		return release.Feed{}, fmt.Errorf("reading feed: %w", err)
	}
	defer file.Close()
	return release.ReadFeedJSON(file)
}

// LoadIndex merges every channel feed in the directory into one index.
// A directory with no feeds yields an empty index for productID. Feeds
// for a different product are rejected.
func (d *Dir) LoadIndex(productID string) (*release.Index, error) {
	paths, err := filepath.Glob(filepath.Join(d.root, "releases.*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}

	merged := release.Feed{Format: release.FeedFormat, Product: productID}
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading feed: %w", err)
		}
		feed, err := release.ReadFeedJSON(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if merged.Product == "" {
			merged.Product = feed.Product
		}
		if feed.Product != merged.Product {
			return nil, fmt.Errorf("%s is for %q, expected %q: %w",
				path, feed.Product, merged.Product, release.ErrProductMismatch)
		}
		merged.Assets = append(merged.Assets, feed.Assets...)
	}
	return merged.Index()
}
