// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/shipwright/lib/codec"
)

// FeedFormat is the current JSON feed document format number. Readers
// accept any format at or below it and ignore unknown fields, so new
// optional fields do not require a bump.
const FeedFormat = 1

// Feed is the transmitted form of a release index: the manifests of one
// product, optionally restricted to a single channel.
type Feed struct {
	Format  int        `json:"format"`
	Product string     `json:"product"`
	Assets  []Manifest `json:"assets"`
}

// FeedFileName returns the conventional JSON feed file name for a
// channel.
func FeedFileName(channel string) string {
	return "releases." + NormalizeChannel(channel) + ".json"
}

// IndexFileName returns the conventional CBOR feed file name for a
// channel.
func IndexFileName(channel string) string {
	return "releases." + NormalizeChannel(channel) + ".cbor"
}

// NewFeed snapshots the entries of index on channel (all channels when
// channel is empty) in feed order.
func NewFeed(index *Index, channel string) Feed {
	return Feed{
		Format:  FeedFormat,
		Product: index.ProductID(),
		Assets:  index.Entries(channel),
	}
}

// Index replays the feed into a new index. Assets are inserted in feed
// order regardless of their order in the document, so a delta never
// precedes its base. Any invariant violation (duplicate, unanchored
// delta, foreign product) fails the whole feed.
func (f Feed) Index() (*Index, error) {
	index := NewIndex(f.Product)
	assets := slices.Clone(f.Assets)
	slices.SortStableFunc(assets, compareFeedOrder)
	for _, manifest := range assets {
		if err := index.Insert(manifest); err != nil {
			return nil, fmt.Errorf("loading feed for %q: %w", f.Product, err)
		}
	}
	return index, nil
}

// WriteJSON writes the feed as an indented JSON document.
func (f Feed) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(f); err != nil {
		return fmt.Errorf("encoding json feed: %w", err)
	}
	return nil
}

// ReadFeedJSON decodes a JSON feed document. Comments and trailing
// commas (JSONC) are tolerated so that hand-maintained feeds parse.
func ReadFeedJSON(r io.Reader) (Feed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Feed{}, fmt.Errorf("reading json feed: %w", err)
	}
	var feed Feed
	if err := json.Unmarshal(jsonc.ToJSON(data), &feed); err != nil {
		return Feed{}, fmt.Errorf("decoding json feed: %w", err)
	}
	if feed.Format > FeedFormat {
		return Feed{}, fmt.Errorf("json feed format %d is newer than supported format %d",
			feed.Format, FeedFormat)
	}
	return feed, nil
}

// WriteCBOR writes the feed as a CBOR sequence with one manifest record
// per entry. The encoding is deterministic: the same feed always yields
// the same bytes.
func (f Feed) WriteCBOR(w io.Writer) error {
	encoder := codec.NewEncoder(w)
	for _, manifest := range f.Assets {
		if err := encoder.Encode(manifest); err != nil {
			return fmt.Errorf("encoding %s: %w", manifest.FileName(), err)
		}
	}
	return nil
}

// ReadFeedCBOR decodes a CBOR manifest sequence. The product id is taken
// from the records; a sequence mixing products is rejected.
func ReadFeedCBOR(r io.Reader) (Feed, error) {
	feed := Feed{Format: FeedFormat}
	decoder := codec.NewDecoder(r)
	for {
		var manifest Manifest
		err := decoder.Decode(&manifest)
		if errors.Is(err, io.EOF) {
			return feed, nil
		}
		if err != nil {
			return Feed{}, fmt.Errorf("decoding cbor feed record %d: %w", len(feed.Assets), err)
		}
		if feed.Product == "" {
			feed.Product = manifest.ProductID
		} else if manifest.ProductID != feed.Product {
			return Feed{}, fmt.Errorf("cbor feed record %d is for %q, feed is for %q: %w",
				len(feed.Assets), manifest.ProductID, feed.Product, ErrProductMismatch)
		}
		feed.Assets = append(feed.Assets, manifest)
	}
}
