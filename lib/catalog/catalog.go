// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the persistent, append-only record of every
// manifest a release pipeline has published.
//
// The feeds in a releases directory are derived data: they can be
// regenerated at any time from the catalog. The catalog is the source
// of truth for "what has been released", so it enforces the same
// invariants as [release.Index]: one row per (product, channel,
// version, kind, delta base), deltas only against versions already
// recorded, and no updates or deletes.
//
// Each row stores the identity columns used for uniqueness and lookup,
// plus the complete manifest as a CBOR record so that fields added
// later survive older readers.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/shipwright/lib/codec"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/semver"
	"github.com/bureau-foundation/shipwright/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS manifests (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	product     TEXT    NOT NULL,
	channel     TEXT    NOT NULL,
	version     TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	delta_base  TEXT    NOT NULL DEFAULT '',
	file_name   TEXT    NOT NULL,
	size        INTEGER NOT NULL,
	record      BLOB    NOT NULL,
	UNIQUE (product, channel, version, kind, delta_base)
);
CREATE INDEX IF NOT EXISTS manifests_by_version
	ON manifests (product, channel, version);
`

// Config holds the parameters for opening a catalog.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	// Logger receives record and load messages. If nil, a no-op
	// logger is used.
	Logger *slog.Logger
}

// Catalog is a SQLite-backed manifest log. It is safe for concurrent
// use; writes are serialized by SQLite.
type Catalog struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the catalog database.
func Open(cfg Config) (*Catalog, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Catalog{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.pool.Close()
}

// Record appends a manifest. A manifest whose identity is already
// recorded fails with *release.DuplicateEntryError, and a delta whose
// base version has no row in the channel fails with
// release.ErrUnanchoredDelta. The channel is normalized first.
func (c *Catalog) Record(ctx context.Context, manifest release.Manifest) error {
	manifest.Channel = release.NormalizeChannel(manifest.Channel)
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("recording %s: %w", manifest.FileName(), err)
	}
	record, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", manifest.FileName(), err)
	}

	deltaBase := ""
	if manifest.IsDelta() {
		deltaBase = versionKey(*manifest.DeltaBase)
	}

	err = c.pool.Write(ctx, func(conn *sqlite.Conn) error {
		if manifest.IsDelta() {
			anchored, err := c.hasVersion(conn, manifest.ProductID, manifest.Channel, deltaBase)
			if err != nil {
				return err
			}
			if !anchored {
				return fmt.Errorf("recording %s: base %s: %w",
					manifest.FileName(), manifest.DeltaBase, release.ErrUnanchoredDelta)
			}
		}

		err := sqlitex.Execute(conn, `
			INSERT INTO manifests (product, channel, version, kind, delta_base, file_name, size, record)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				manifest.ProductID,
				manifest.Channel,
				versionKey(manifest.Version),
				string(manifest.Kind),
				deltaBase,
				manifest.FileName(),
				int64(manifest.Size),
				record,
			}})
		if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
			duplicate := &release.DuplicateEntryError{
				Channel: manifest.Channel,
				Version: manifest.Version,
				Kind:    manifest.Kind,
			}
			if manifest.IsDelta() {
				base := *manifest.DeltaBase
				duplicate.DeltaBase = &base
			}
			return duplicate
		}
		if err != nil {
			return fmt.Errorf("recording %s: %w", manifest.FileName(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("manifest recorded", "artifact", manifest.FileName())
	return nil
}

// Load reads every manifest recorded for product into a new index.
func (c *Catalog) Load(ctx context.Context, productID string) (*release.Index, error) {
	feed := release.Feed{Format: release.FeedFormat, Product: productID}
	err := c.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT file_name, record FROM manifests WHERE product = ? ORDER BY seq`,
			&sqlitex.ExecOptions{
				Args: []any{productID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					record := make([]byte, stmt.ColumnLen(1))
					stmt.ColumnBytes(1, record)
					var manifest release.Manifest
					if err := codec.Unmarshal(record, &manifest); err != nil {
						return fmt.Errorf("decoding %s: %w", stmt.ColumnText(0), err)
					}
					feed.Assets = append(feed.Assets, manifest)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog for %q: %w", productID, err)
	}

	index, err := feed.Index()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("catalog loaded", "product", productID, "entries", index.Len())
	return index, nil
}

// Products lists the product ids with at least one recorded manifest.
func (c *Catalog) Products(ctx context.Context) ([]string, error) {
	var products []string
	err := c.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT DISTINCT product FROM manifests ORDER BY product`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					products = append(products, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func (c *Catalog) hasVersion(conn *sqlite.Conn, product, channel, version string) (bool, error) {
	found := false
	err := sqlitex.Execute(conn,
		`SELECT 1 FROM manifests WHERE product = ? AND channel = ? AND version = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{product, channel, version},
			ResultFunc: func(*sqlite.Stmt) error {
				found = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("checking %s %s: %w", channel, version, err)
	}
	return found, nil
}

// versionKey is the precedence form of a version: build metadata does
// not distinguish releases.
func versionKey(version semver.Version) string {
	version.Build = ""
	return version.String()
}
