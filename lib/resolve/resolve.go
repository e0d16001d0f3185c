// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/event"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// Strategy is how a client reaches the target version.
type Strategy string

const (
	// UpToDate means the client already runs the target version.
	UpToDate Strategy = "up-to-date"

	// Full means the client downloads the target's full package.
	Full Strategy = "full"

	// Delta means the client applies a chain of deltas to the build
	// it already has.
	Delta Strategy = "delta"
)

// Policy bounds when a delta chain is preferred over a full package.
// A chain is chosen when it has at most MaxHops deltas and its total
// size is below MaxChainRatio times the full package's size. When the
// target has no full package, the shortest chain is used regardless of
// the policy, since there is nothing to fall back to.
type Policy struct {
	// MaxHops is the longest chain considered. Zero selects
	// [DefaultMaxHops]; a negative value disables deltas whenever a
	// full package exists.
	MaxHops int

	// MaxChainRatio is the chain-to-full size ratio above which the
	// full package wins. Zero selects [DefaultMaxChainRatio].
	MaxChainRatio float64
}

const (
	DefaultMaxHops       = 10
	DefaultMaxChainRatio = 1.0
)

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{MaxHops: DefaultMaxHops, MaxChainRatio: DefaultMaxChainRatio}
}

func (p Policy) withDefaults() Policy {
	if p.MaxHops == 0 {
		p.MaxHops = DefaultMaxHops
	}
	if p.MaxChainRatio <= 0 {
		p.MaxChainRatio = DefaultMaxChainRatio
	}
	return p
}

// Validate rejects policies that cannot be meaningful.
func (p Policy) Validate() error {
	if p.MaxChainRatio < 0 {
		return fmt.Errorf("max chain ratio %g is negative", p.MaxChainRatio)
	}
	return nil
}

// allows reports whether a chain of the given length and size beats a
// full package of fullSize bytes.
func (p Policy) allows(hops int, chainSize, fullSize uint64) bool {
	p = p.withDefaults()
	if p.MaxHops < 0 || hops > p.MaxHops {
		return false
	}
	return float64(chainSize) < p.MaxChainRatio*float64(fullSize)
}

// Resolution is the outcome of resolving an update request.
type Resolution struct {
	Strategy Strategy
	Channel  string

	// From is the installed version, nil for a fresh install.
	From *semver.Version
	To   semver.Version

	// Full is the full package at To. It is always set for the Full
	// strategy and set for Delta when the index has one.
	Full *release.Manifest

	// Base is the full package at From, when the index has one. It
	// anchors the chain but is never downloaded: the client already
	// holds those bytes.
	Base *release.Manifest

	// Deltas is the chain to apply, in order. Deltas[0] applies to
	// From and the last delta produces To.
	Deltas []release.Manifest
}

// Artifacts returns the manifests the client must fetch, in the order
// they are used.
func (r Resolution) Artifacts() []release.Manifest {
	switch r.Strategy {
	case Full:
		return []release.Manifest{*r.Full}
	case Delta:
		return slices.Clone(r.Deltas)
	default:
		return nil
	}
}

// Chain returns the resolution in anchored form: the base full package
// (when indexed) followed by the deltas.
func (r Resolution) Chain() []release.Manifest {
	if r.Strategy != Delta {
		return r.Artifacts()
	}
	var chain []release.Manifest
	if r.Base != nil {
		chain = append(chain, *r.Base)
	}
	return append(chain, r.Deltas...)
}

// DownloadSize is the total size of [Resolution.Artifacts].
func (r Resolution) DownloadSize() uint64 {
	var total uint64
	for _, manifest := range r.Artifacts() {
		total += manifest.Size
	}
	return total
}

// Expected returns the size and digest the final reconstructed or
// downloaded package must have. The boolean is false for UpToDate, and
// for a delta chain whose last delta records no target when the index
// has no full package at To.
func (r Resolution) Expected() (binhash.Digest, uint64, bool) {
	switch r.Strategy {
	case Full:
		return r.Full.ContentHash, r.Full.Size, true
	case Delta:
		if r.Full != nil {
			return r.Full.ContentHash, r.Full.Size, true
		}
		last := r.Deltas[len(r.Deltas)-1]
		if last.TargetHash != nil {
			return *last.TargetHash, last.TargetSize, true
		}
	}
	return binhash.Digest{}, 0, false
}

// Resolver computes update paths against a release index.
type Resolver struct {
	Policy   Policy
	Observer event.Observer
}

// Resolve computes how a client on channel moves from the installed
// version to the version to. A nil from means nothing is installed.
//
// The target must have an entry on channel, otherwise the error is a
// *release.VersionNotFoundError. A client already at to gets UpToDate.
// A downgrade, a fresh install, or an installed version the index does
// not know resolves to the full package at to. Otherwise the best
// delta chain is compared with the full package under the policy.
func (r *Resolver) Resolve(index *release.Index, channel string, from *semver.Version, to semver.Version) (Resolution, error) {
	channel = release.NormalizeChannel(channel)
	resolution := Resolution{Channel: channel, To: to}
	if from != nil {
		installed := *from
		resolution.From = &installed
	}

	if !index.HasVersion(channel, to) {
		return Resolution{}, &release.VersionNotFoundError{Channel: channel, Version: &resolution.To}
	}
	if full, found := index.Full(channel, to); found {
		resolution.Full = &full
	}

	if from != nil && from.Equal(to) {
		resolution.Strategy = UpToDate
		r.report(resolution)
		return resolution, nil
	}

	var chain []release.Manifest
	if from != nil && from.Less(to) && index.HasVersion(channel, *from) {
		chain = shortestChain(index, channel, *from, to)
		if base, found := index.Full(channel, *from); found {
			resolution.Base = &base
		}
	}

	switch {
	case chain != nil && resolution.Full == nil:
		resolution.Strategy = Delta
	case chain != nil && r.Policy.allows(len(chain), chainSize(chain), resolution.Full.Size):
		resolution.Strategy = Delta
	case resolution.Full != nil:
		resolution.Strategy = Full
	default:
		// Only deltas lead to the target and none start from here.
		return Resolution{}, &release.VersionNotFoundError{Channel: channel, Version: &resolution.To}
	}
	if resolution.Strategy == Delta {
		resolution.Deltas = chain
	} else {
		resolution.Base = nil
	}

	r.report(resolution)
	return resolution, nil
}

// ResolveLatest resolves to the highest version on channel, counting
// prereleases only when includePrerelease is set.
func (r *Resolver) ResolveLatest(index *release.Index, channel string, from *semver.Version, includePrerelease bool) (Resolution, error) {
	latest, found := index.LatestVersion(channel, includePrerelease)
	if !found {
		return Resolution{}, &release.VersionNotFoundError{Channel: release.NormalizeChannel(channel)}
	}
	return r.Resolve(index, channel, from, latest)
}

func (r *Resolver) report(resolution Resolution) {
	detail := string(resolution.Strategy)
	if resolution.Strategy == Delta {
		detail = fmt.Sprintf("%s (%d hops)", detail, len(resolution.Deltas))
	}
	artifact := ""
	if resolution.Full != nil {
		artifact = resolution.Full.FileName()
	} else if len(resolution.Deltas) > 0 {
		artifact = resolution.Deltas[len(resolution.Deltas)-1].FileName()
	}
	event.OrDiscard(r.Observer).Observe(event.Event{
		Kind:     event.ChainResolved,
		Artifact: artifact,
		Detail:   detail,
		Bytes:    int64(resolution.DownloadSize()),
	})
}

func chainSize(chain []release.Manifest) uint64 {
	var total uint64
	for _, manifest := range chain {
		total += manifest.Size
	}
	return total
}

// path is a candidate chain ending at some version.
type path struct {
	deltas []release.Manifest
	size   uint64
}

// better orders paths by fewest hops, then smallest total size, then
// the lexicographically smallest sequence of intermediate versions.
func (p path) better(other path) bool {
	if len(p.deltas) != len(other.deltas) {
		return len(p.deltas) < len(other.deltas)
	}
	if p.size != other.size {
		return p.size < other.size
	}
	for i := range p.deltas {
		if c := p.deltas[i].Version.Compare(other.deltas[i].Version); c != 0 {
			return c < 0
		}
	}
	return false
}

// shortestChain returns the best delta chain from one version to
// another, or nil if none exists. Deltas always point to a higher
// version, so the graph is acyclic and a single pass over versions in
// ascending order finds the best path to each.
func shortestChain(index *release.Index, channel string, from, to semver.Version) []release.Manifest {
	best := map[string]path{precedence(from): {}}
	for _, version := range index.Versions(channel) {
		if !from.Less(version) || to.Less(version) {
			continue
		}
		var winner *path
		for _, delta := range index.Deltas(channel, version) {
			prefix, reachable := best[precedence(*delta.DeltaBase)]
			if !reachable {
				continue
			}
			candidate := path{
				deltas: append(slices.Clone(prefix.deltas), delta),
				size:   prefix.size + delta.Size,
			}
			if winner == nil || candidate.better(*winner) {
				winner = &candidate
			}
		}
		if winner != nil {
			best[precedence(version)] = *winner
		}
	}

	result, found := best[precedence(to)]
	if !found || len(result.deltas) == 0 {
		return nil
	}
	return result.deltas
}

func precedence(version semver.Version) string {
	version.Build = ""
	return version.String()
}
