// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package builder turns a sequence of full package builds into
// published release artifacts: one full package per version and a
// delta between each of the newest consecutive pairs.
//
// A build runs in two phases. Full packages are registered first, in
// version order, so that every delta computed afterwards has an anchor
// in the index. Deltas are then computed on a bounded worker pool.
// Each patch is applied back to its base and the result checked
// against the target before the patch is published, and a manifest
// only becomes visible in the index (and the catalog) after its bytes
// are in the store.
//
// A pair that fails to diff, round-trip, or publish is reported in
// [Result.Failed] and omitted. Clients then fall back to a shorter
// chain or the full package; the rest of the release is unaffected.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/shipwright/lib/artifactstore"
	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/event"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// DefaultRetention is the number of newest consecutive pairs that get
// a delta when Config.Retention is zero.
const DefaultRetention = 3

// Package is one full build of the product.
type Package struct {
	Version semver.Version
	Data    []byte
}

// Catalog persists manifests. *catalog.Catalog implements it.
type Catalog interface {
	Record(ctx context.Context, manifest release.Manifest) error
}

// Config describes the product being released and how deltas are
// produced. ProductID, Channel, OS, Arch, and Store are required.
type Config struct {
	ProductID string
	Channel   string
	OS        release.OS
	Arch      release.Arch

	// Retention is how many of the newest consecutive full-package
	// pairs get a delta. Zero selects DefaultRetention; a negative
	// value disables deltas.
	Retention int

	// Mode selects patch stream compression. Empty selects
	// delta.DefaultMode.
	Mode delta.Mode

	// Workers bounds concurrent diffs. Zero selects GOMAXPROCS.
	Workers int

	// Timeout bounds the work on a single pair. Zero means no limit.
	Timeout time.Duration

	// Store receives artifacts. It also supplies the bytes of earlier
	// full packages that are not part of the current build.
	Store artifactstore.Store

	// Catalog, if set, records every manifest after it is published.
	Catalog Catalog

	// Clock times diffs for DiffFinished events. Nil selects the real
	// clock.
	Clock clock.Clock

	Observer event.Observer
	Logger   *slog.Logger
}

// Builder runs release builds for one product, channel, and platform.
type Builder struct {
	config   Config
	clock    clock.Clock
	observer event.Observer
	logger   *slog.Logger
}

// New validates config and returns a builder.
func New(config Config) (*Builder, error) {
	if config.ProductID == "" {
		return nil, fmt.Errorf("builder: ProductID is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("builder: Store is required")
	}
	config.Channel = release.NormalizeChannel(config.Channel)
	if config.Channel == "" {
		config.Channel = release.DefaultChannel(config.OS)
	}
	if config.Mode == "" {
		config.Mode = delta.DefaultMode
	}
	if _, err := delta.ParseMode(string(config.Mode)); err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	if config.Retention == 0 {
		config.Retention = DefaultRetention
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}

	// Validate the platform and channel once through a template manifest
	// rather than failing on the first artifact.
	template := release.Manifest{
		ProductID: config.ProductID,
		Version:   semver.Version{Major: 1},
		Channel:   config.Channel,
		Kind:      release.KindFull,
		OS:        config.OS,
		Arch:      config.Arch,
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		config:   config,
		clock:    clock.OrReal(config.Clock),
		observer: event.OrDiscard(config.Observer),
		logger:   logger,
	}, nil
}

// PairFailure is a delta that could not be produced.
type PairFailure struct {
	Base   semver.Version
	Target semver.Version
	Err    error
}

func (f PairFailure) Error() string {
	return fmt.Sprintf("delta %s -> %s: %v", f.Base, f.Target, f.Err)
}

func (f PairFailure) Unwrap() error {
	return f.Err
}

// Result summarizes a build.
type Result struct {
	// Added lists the manifests inserted into the index, fulls first.
	Added []release.Manifest

	// Unchanged lists builds whose full package was already present
	// with identical content.
	Unchanged []release.Manifest

	// Failed lists the deltas that were omitted.
	Failed []PairFailure
}

// Err joins the pair failures, or returns nil if every delta was
// produced.
func (r Result) Err() error {
	errs := make([]error, len(r.Failed))
	for i, failure := range r.Failed {
		errs[i] = failure
	}
	return errors.Join(errs...)
}

// Build registers builds into index and produces the retained deltas.
// The returned error is reserved for failures that stop the whole
// build: an index for another product, a version rebuilt with
// different content, a full package that cannot be published, or ctx
// ending. Per-pair failures are in the Result, including a stored
// earlier release that cannot be loaded: it fails only the pairs that
// need it.
func (b *Builder) Build(ctx context.Context, index *release.Index, builds []Package) (Result, error) {
	var result Result
	if index.ProductID() != b.config.ProductID {
		return result, fmt.Errorf("index is for %q, building %q: %w",
			index.ProductID(), b.config.ProductID, release.ErrProductMismatch)
	}

	builds = slices.Clone(builds)
	slices.SortFunc(builds, func(a, b Package) int { return a.Version.Compare(b.Version) })
	for i := 1; i < len(builds); i++ {
		if builds[i].Version.Equal(builds[i-1].Version) {
			return result, fmt.Errorf("version %s appears twice in the build", builds[i].Version)
		}
	}

	blobs := make(map[string][]byte, len(builds))
	for _, build := range builds {
		manifest := b.fullManifest(build)
		blobs[versionKey(build.Version)] = build.Data

		if existing, found := index.Full(b.config.Channel, build.Version); found {
			if existing.ContentHash != manifest.ContentHash || existing.Size != manifest.Size {
				return result, &release.DuplicateEntryError{
					Channel: b.config.Channel,
					Version: build.Version,
					Kind:    release.KindFull,
				}
			}
			result.Unchanged = append(result.Unchanged, existing)
			continue
		}
		if err := b.register(ctx, index, manifest, build.Data); err != nil {
			return result, err
		}
		result.Added = append(result.Added, manifest)
	}

	pairs := b.retainedPairs(index)
	if len(pairs) == 0 {
		b.summarize(result)
		return result, nil
	}
	// A stored full that cannot be loaded fails only the pairs that
	// need it.
	loadErrs := make(map[string]error)
	for _, pair := range pairs {
		for _, version := range []semver.Version{pair.base.Version, pair.target.Version} {
			key := versionKey(version)
			if _, loaded := blobs[key]; loaded {
				continue
			}
			if _, failed := loadErrs[key]; failed {
				continue
			}
			full, _ := index.Full(b.config.Channel, version)
			data, err := b.config.Store.FetchArtifact(ctx, full)
			if err == nil {
				err = integrity.Verify(data, full)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, ctxErr
				}
				b.logger.Warn("earlier release unavailable", "artifact", full.FileName(), "error", err)
				loadErrs[key] = fmt.Errorf("loading earlier release %s: %w", full.FileName(), err)
				continue
			}
			blobs[key] = data
		}
	}

	outcomes := make([]pairOutcome, len(pairs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.Workers)
	for i, pair := range pairs {
		if err := errors.Join(loadErrs[versionKey(pair.base.Version)], loadErrs[versionKey(pair.target.Version)]); err != nil {
			outcomes[i] = pairOutcome{err: err}
			continue
		}
		group.Go(func() error {
			base := blobs[versionKey(pair.base.Version)]
			target := blobs[versionKey(pair.target.Version)]
			outcomes[i] = b.producePair(groupCtx, pair, base, target)
			// Only the caller's context aborts the group; one pair's
			// failure never cancels its siblings.
			return ctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	for i, outcome := range outcomes {
		pair := pairs[i]
		err := outcome.err
		if err == nil {
			err = b.record(ctx, index, outcome.manifest)
		}
		if err != nil {
			failure := PairFailure{Base: pair.base.Version, Target: pair.target.Version, Err: err}
			b.observer.Observe(event.Event{
				Kind:     event.PairFailed,
				Artifact: b.deltaName(pair),
				Err:      err,
			})
			result.Failed = append(result.Failed, failure)
			continue
		}
		result.Added = append(result.Added, outcome.manifest)
	}

	b.summarize(result)
	return result, nil
}

type pair struct {
	base, target release.Manifest
}

type pairOutcome struct {
	manifest release.Manifest
	err      error
}

// retainedPairs returns the newest Retention consecutive full-package
// pairs on the channel that do not have a delta yet.
func (b *Builder) retainedPairs(index *release.Index) []pair {
	if b.config.Retention < 0 {
		return nil
	}
	var fulls []release.Manifest
	for _, version := range index.Versions(b.config.Channel) {
		if full, found := index.Full(b.config.Channel, version); found {
			fulls = append(fulls, full)
		}
	}

	var pairs []pair
	first := max(1, len(fulls)-b.config.Retention)
	for i := first; i < len(fulls); i++ {
		candidate := pair{base: fulls[i-1], target: fulls[i]}
		if _, exists := index.DeltaFrom(b.config.Channel, candidate.base.Version, candidate.target.Version); exists {
			continue
		}
		pairs = append(pairs, candidate)
	}
	return pairs
}

// producePair diffs one pair, proves the patch reconstructs the target,
// and publishes it.
func (b *Builder) producePair(ctx context.Context, p pair, base, target []byte) pairOutcome {
	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}
	name := b.deltaName(p)

	b.observer.Observe(event.Event{Kind: event.DiffStarted, Artifact: name, Bytes: int64(len(target))})
	started := b.clock.Now()
	patch, err := delta.DiffContext(ctx, base, target, b.config.Mode)
	if err != nil {
		return pairOutcome{err: fmt.Errorf("diffing: %w", err)}
	}
	b.observer.Observe(event.Event{
		Kind:     event.DiffFinished,
		Artifact: name,
		Bytes:    int64(len(patch)),
		Duration: clock.Since(b.clock, started),
	})

	manifest := b.deltaManifest(p, patch)
	reconstructed, err := delta.ApplyContext(ctx, base, patch)
	if err == nil {
		err = integrity.VerifyTarget(reconstructed, manifest)
	}
	if err != nil {
		b.observer.Observe(event.Event{Kind: event.VerifyFailed, Artifact: name, Err: err})
		return pairOutcome{err: fmt.Errorf("round trip: %w", err)}
	}
	b.observer.Observe(event.Event{Kind: event.VerifyPassed, Artifact: name, Bytes: int64(len(reconstructed))})

	if err := b.config.Store.PublishArtifact(ctx, manifest, patch); err != nil {
		return pairOutcome{err: err}
	}
	b.observer.Observe(event.Event{Kind: event.ArtifactPublished, Artifact: name, Bytes: int64(len(patch))})
	return pairOutcome{manifest: manifest}
}

// register publishes a full package and then makes it visible.
func (b *Builder) register(ctx context.Context, index *release.Index, manifest release.Manifest, data []byte) error {
	if err := b.config.Store.PublishArtifact(ctx, manifest, data); err != nil {
		return fmt.Errorf("publishing %s: %w", manifest.FileName(), err)
	}
	b.observer.Observe(event.Event{
		Kind:     event.ArtifactPublished,
		Artifact: manifest.FileName(),
		Bytes:    int64(len(data)),
	})
	return b.record(ctx, index, manifest)
}

func (b *Builder) record(ctx context.Context, index *release.Index, manifest release.Manifest) error {
	if b.config.Catalog != nil {
		if err := b.config.Catalog.Record(ctx, manifest); err != nil {
			return fmt.Errorf("cataloging %s: %w", manifest.FileName(), err)
		}
	}
	return index.Insert(manifest)
}

func (b *Builder) fullManifest(build Package) release.Manifest {
	return release.Manifest{
		ProductID:   b.config.ProductID,
		Version:     build.Version,
		Channel:     b.config.Channel,
		Kind:        release.KindFull,
		OS:          b.config.OS,
		Arch:        b.config.Arch,
		ContentHash: binhash.Sum(build.Data),
		Size:        uint64(len(build.Data)),
	}
}

func (b *Builder) deltaManifest(p pair, patch []byte) release.Manifest {
	baseVersion := p.base.Version
	targetHash := p.target.ContentHash
	return release.Manifest{
		ProductID:   b.config.ProductID,
		Version:     p.target.Version,
		Channel:     b.config.Channel,
		Kind:        release.KindDelta,
		DeltaBase:   &baseVersion,
		OS:          b.config.OS,
		Arch:        b.config.Arch,
		ContentHash: binhash.Sum(patch),
		Size:        uint64(len(patch)),
		TargetHash:  &targetHash,
		TargetSize:  p.target.Size,
	}
}

func (b *Builder) deltaName(p pair) string {
	return b.deltaManifest(p, nil).FileName()
}

func (b *Builder) summarize(result Result) {
	b.logger.Info("release build finished",
		"product", b.config.ProductID,
		"channel", b.config.Channel,
		"added", len(result.Added),
		"unchanged", len(result.Unchanged),
		"failed", len(result.Failed),
	)
}

func versionKey(version semver.Version) string {
	version.Build = ""
	return version.String()
}
