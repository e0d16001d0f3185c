// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/shipwright/lib/semver"
)

// Index is the append-only set of manifests published for one product.
// Entries are grouped by channel; within a channel each version has at
// most one full package and any number of deltas with distinct bases.
//
// Index is safe for concurrent reads with a single writer. Readers
// only ever observe fully inserted manifests: [Index.Insert] validates
// and links an entry before making it visible under the write lock.
// Callers that publish artifact bytes must finish (and verify) the
// upload before inserting the manifest.
type Index struct {
	productID string

	mu       sync.RWMutex
	channels map[string]*channelEntries
}

type channelEntries struct {
	entries map[entryKey]Manifest

	// versions holds every version with at least one entry, sorted by
	// precedence.
	versions []semver.Version
}

// NewIndex returns an empty index for the given product.
func NewIndex(productID string) *Index {
	return &Index{
		productID: productID,
		channels:  make(map[string]*channelEntries),
	}
}

// ProductID returns the product this index describes.
func (idx *Index) ProductID() string {
	return idx.productID
}

// Insert appends a manifest. It fails with *DuplicateEntryError when an
// entry with the same channel, version, kind, and delta base exists,
// with ErrUnanchoredDelta when a delta's base version has no entry in
// the channel, and with a validation error for malformed manifests.
// The channel is normalized before validation, so "Beta" is stored as
// "beta". Existing entries are never replaced.
func (idx *Index) Insert(manifest Manifest) error {
	manifest.Channel = NormalizeChannel(manifest.Channel)
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("inserting %s: %w", manifest.FileName(), err)
	}
	if manifest.ProductID != idx.productID {
		return fmt.Errorf("inserting %s into index for %q: %w",
			manifest.FileName(), idx.productID, ErrProductMismatch)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	channel := idx.channels[manifest.Channel]
	if channel == nil {
		channel = &channelEntries{entries: make(map[entryKey]Manifest)}
	}

	key := manifest.key()
	if _, exists := channel.entries[key]; exists {
		return &DuplicateEntryError{
			Channel:   manifest.Channel,
			Version:   manifest.Version,
			Kind:      manifest.Kind,
			DeltaBase: manifest.DeltaBase,
		}
	}

	if manifest.IsDelta() && !channel.hasVersion(*manifest.DeltaBase) {
		return fmt.Errorf("inserting %s: base %s: %w",
			manifest.FileName(), manifest.DeltaBase, ErrUnanchoredDelta)
	}

	channel.entries[key] = manifest.clone()
	channel.addVersion(manifest.Version)
	idx.channels[manifest.Channel] = channel
	return nil
}

// Full returns the full package at version on channel.
func (idx *Index) Full(channel string, version semver.Version) (Manifest, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return Manifest{}, false
	}
	manifest, found := entries.entries[entryKey{version: precedenceKey(version), kind: KindFull}]
	return manifest.clone(), found
}

// DeltaFrom returns the delta that moves base to version on channel.
func (idx *Index) DeltaFrom(channel string, base, version semver.Version) (Manifest, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return Manifest{}, false
	}
	manifest, found := entries.entries[entryKey{
		version: precedenceKey(version),
		kind:    KindDelta,
		base:    precedenceKey(base),
	}]
	return manifest.clone(), found
}

// Deltas returns every delta that produces version on channel, ordered
// by base version ascending.
func (idx *Index) Deltas(channel string, version semver.Version) []Manifest {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return nil
	}
	wanted := precedenceKey(version)
	var deltas []Manifest
	for key, manifest := range entries.entries {
		if key.kind == KindDelta && key.version == wanted {
			deltas = append(deltas, manifest.clone())
		}
	}
	slices.SortFunc(deltas, func(a, b Manifest) int {
		return a.DeltaBase.Compare(*b.DeltaBase)
	})
	return deltas
}

// Latest returns the highest full package on channel. Prerelease
// versions are skipped unless includePrerelease is set. The boolean is
// false when no full package matches.
func (idx *Index) Latest(channel string, includePrerelease bool) (Manifest, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return Manifest{}, false
	}
	for i := len(entries.versions) - 1; i >= 0; i-- {
		version := entries.versions[i]
		if version.IsPrerelease() && !includePrerelease {
			continue
		}
		if manifest, found := entries.entries[entryKey{version: precedenceKey(version), kind: KindFull}]; found {
			return manifest.clone(), true
		}
	}
	return Manifest{}, false
}

// LatestVersion returns the highest version on channel that has any
// entry, full or delta. A version reachable only through deltas is
// still installable by a client that holds an earlier build.
func (idx *Index) LatestVersion(channel string, includePrerelease bool) (semver.Version, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return semver.Version{}, false
	}
	for i := len(entries.versions) - 1; i >= 0; i-- {
		if version := entries.versions[i]; includePrerelease || !version.IsPrerelease() {
			return version, true
		}
	}
	return semver.Version{}, false
}

// HasVersion reports whether channel has any entry at version.
func (idx *Index) HasVersion(channel string, version semver.Version) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	return entries != nil && entries.hasVersion(version)
}

// Versions returns every version with at least one entry on channel,
// in ascending precedence order.
func (idx *Index) Versions(channel string) []semver.Version {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := idx.channels[NormalizeChannel(channel)]
	if entries == nil {
		return nil
	}
	return slices.Clone(entries.versions)
}

// Channels returns the channel names present in the index, sorted.
func (idx *Index) Channels() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	names := make([]string, 0, len(idx.channels))
	for name := range idx.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Entries returns every manifest on channel in feed order: ascending
// version, the full package before deltas, deltas by ascending base.
// An empty channel name returns entries for all channels, grouped by
// channel name.
func (idx *Index) Entries(channel string) []Manifest {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var result []Manifest
	if channel == "" {
		for _, entries := range idx.channels {
			for _, manifest := range entries.entries {
				result = append(result, manifest.clone())
			}
		}
	} else if entries := idx.channels[NormalizeChannel(channel)]; entries != nil {
		for _, manifest := range entries.entries {
			result = append(result, manifest.clone())
		}
	}
	slices.SortFunc(result, compareFeedOrder)
	return result
}

// Len returns the total number of manifests across all channels.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	total := 0
	for _, entries := range idx.channels {
		total += len(entries.entries)
	}
	return total
}

// clone returns a copy that shares no pointers with m, so manifests
// handed out by the index cannot be used to mutate it.
func (m Manifest) clone() Manifest {
	if m.DeltaBase != nil {
		base := *m.DeltaBase
		m.DeltaBase = &base
	}
	if m.TargetHash != nil {
		hash := *m.TargetHash
		m.TargetHash = &hash
	}
	return m
}

// compareFeedOrder orders manifests so that every delta's base version
// is inserted before the delta when a feed is replayed into an index.
func compareFeedOrder(a, b Manifest) int {
	if a.Channel != b.Channel {
		if a.Channel < b.Channel {
			return -1
		}
		return 1
	}
	if c := a.Version.Compare(b.Version); c != 0 {
		return c
	}
	if a.Kind != b.Kind {
		if a.Kind == KindFull {
			return -1
		}
		return 1
	}
	if a.DeltaBase != nil && b.DeltaBase != nil {
		return a.DeltaBase.Compare(*b.DeltaBase)
	}
	return 0
}

func (c *channelEntries) hasVersion(version semver.Version) bool {
	_, found := slices.BinarySearchFunc(c.versions, version, semver.Compare)
	return found
}

func (c *channelEntries) addVersion(version semver.Version) {
	position, found := slices.BinarySearchFunc(c.versions, version, semver.Compare)
	if found {
		return
	}
	c.versions = slices.Insert(c.versions, position, version)
}
