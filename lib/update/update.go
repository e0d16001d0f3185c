// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package update runs the client side of an update: resolve the path
// to a target version, fetch the artifacts, rebuild the target package,
// and prove it is the package the index describes.
//
// Nothing is returned until the final bytes match the expected digest.
// When the delta path fails for a reason a download can fix (a corrupt
// or missing patch, or an installed package that is not what the
// deltas expect), the client falls back once to the full package.
// Resolution failures are not retried: they mean the channel or the
// requested version is wrong.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/shipwright/lib/artifactstore"
	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/event"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/resolve"
	"github.com/bureau-foundation/shipwright/lib/semver"
)

// Request describes the client's state and what it wants.
type Request struct {
	Channel string

	// Installed is the running version, nil for a fresh install.
	Installed *semver.Version

	// InstalledData is the installed full package. Without it the
	// client cannot apply deltas and always downloads the full package.
	InstalledData []byte

	// Target is the version to reach; nil means the latest on Channel.
	Target *semver.Version

	IncludePrerelease bool
}

// Result is a completed update.
type Result struct {
	// Resolution is the plan that produced Data. After a fallback its
	// strategy is Full.
	Resolution resolve.Resolution

	// Data is the verified target package. For UpToDate it is the
	// installed data unchanged.
	Data []byte

	// Fallback holds the delta-path error when the client fell back to
	// the full package.
	Fallback error
}

// Client performs updates against a release index.
type Client struct {
	Store    artifactstore.Fetcher
	Resolver *resolve.Resolver
	Observer event.Observer
	Logger   *slog.Logger

	// Clock times fetches and patch applications. Nil selects the
	// real clock.
	Clock clock.Clock
}

// Update brings the client to the requested version.
func (c *Client) Update(ctx context.Context, index *release.Index, request Request) (Result, error) {
	resolver := c.Resolver
	if resolver == nil {
		resolver = &resolve.Resolver{Policy: resolve.DefaultPolicy(), Observer: c.Observer}
	}

	var (
		resolution resolve.Resolution
		err        error
	)
	if request.Target == nil {
		resolution, err = resolver.ResolveLatest(index, request.Channel, request.Installed, request.IncludePrerelease)
	} else {
		resolution, err = resolver.Resolve(index, request.Channel, request.Installed, *request.Target)
	}
	if err != nil {
		return Result{}, err
	}
	if resolution.Strategy == resolve.UpToDate {
		return Result{Resolution: resolution, Data: request.InstalledData}, nil
	}

	if resolution.Strategy == resolve.Delta {
		if request.InstalledData != nil {
			data, err := c.applyDeltas(ctx, resolution, request.InstalledData)
			if err == nil {
				return Result{Resolution: resolution, Data: data}, nil
			}
			if !shouldFallBack(err) || resolution.Full == nil {
				return Result{}, err
			}
			return c.fallBack(ctx, resolution, err)
		}
		if resolution.Full == nil {
			return Result{}, fmt.Errorf("updating to %s: installed package bytes are required, "+
				"the target has no full package", resolution.To)
		}
		return c.fallBack(ctx, resolution, errors.New("installed package bytes not available"))
	}

	data, err := c.fetch(ctx, *resolution.Full)
	if err != nil {
		return Result{}, err
	}
	return Result{Resolution: resolution, Data: data}, nil
}

func (c *Client) fallBack(ctx context.Context, resolution resolve.Resolution, cause error) (Result, error) {
	c.observer().Observe(event.Event{
		Kind:     event.UpdateFallback,
		Artifact: resolution.Full.FileName(),
		Err:      cause,
	})

	full := resolution
	full.Strategy = resolve.Full
	full.Base = nil
	full.Deltas = nil

	data, err := c.fetch(ctx, *full.Full)
	if err != nil {
		return Result{}, fmt.Errorf("full package after delta failure (%v): %w", cause, err)
	}
	return Result{Resolution: full, Data: data, Fallback: cause}, nil
}

// applyDeltas fetches and applies the chain, verifying every patch
// before use and the result before returning it.
func (c *Client) applyDeltas(ctx context.Context, resolution resolve.Resolution, installed []byte) ([]byte, error) {
	wantHash, wantSize, known := resolution.Expected()
	if !known {
		return nil, fmt.Errorf("updating to %s: the chain records no target digest", resolution.To)
	}

	clk := clock.OrReal(c.Clock)
	current := installed
	for i, manifest := range resolution.Deltas {
		patch, err := c.fetch(ctx, manifest)
		if err != nil {
			return nil, err
		}
		started := clk.Now()
		next, err := delta.ApplyContext(ctx, current, patch)
		if err != nil {
			return nil, fmt.Errorf("applying %s (%d of %d): %w", manifest.FileName(), i+1, len(resolution.Deltas), err)
		}
		c.observer().Observe(event.Event{
			Kind:     event.PatchApplied,
			Artifact: manifest.FileName(),
			Bytes:    int64(len(next)),
			Duration: clock.Since(clk, started),
		})
		current = next
	}

	artifact := resolution.Deltas[len(resolution.Deltas)-1].FileName() + " (target)"
	if err := c.verify(artifact, current, wantSize, wantHash); err != nil {
		return nil, err
	}
	return current, nil
}

// fetch downloads one artifact and verifies it against its manifest.
func (c *Client) fetch(ctx context.Context, manifest release.Manifest) ([]byte, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("update: no artifact store configured")
	}
	clk := clock.OrReal(c.Clock)
	started := clk.Now()
	data, err := c.Store.FetchArtifact(ctx, manifest)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", manifest.FileName(), err)
	}
	c.observer().Observe(event.Event{
		Kind:     event.ArtifactFetched,
		Artifact: manifest.FileName(),
		Bytes:    int64(len(data)),
		Duration: clock.Since(clk, started),
	})
	if err := c.verify(manifest.FileName(), data, manifest.Size, manifest.ContentHash); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) verify(artifact string, data []byte, size uint64, digest binhash.Digest) error {
	if err := integrity.Check(artifact, data, size, digest); err != nil {
		c.observer().Observe(event.Event{Kind: event.VerifyFailed, Artifact: artifact, Err: err})
		return err
	}
	c.observer().Observe(event.Event{Kind: event.VerifyPassed, Artifact: artifact, Bytes: int64(len(data))})
	return nil
}

func (c *Client) observer() event.Observer {
	if c.Observer == nil && c.Logger != nil {
		return event.LogObserver{Logger: c.Logger}
	}
	return event.OrDiscard(c.Observer)
}

// shouldFallBack reports whether a delta-path failure can be cured by
// downloading the full package instead.
func shouldFallBack(err error) bool {
	return IsRetryable(err) ||
		errors.Is(err, delta.ErrPatchMismatch) ||
		errors.Is(err, artifactstore.ErrNotFound)
}

// IsRetryable reports whether err means the downloaded bytes were bad,
// so fetching them again may succeed. Resolution errors such as
// release.ErrVersionNotFound are not retryable.
func IsRetryable(err error) bool {
	return integrity.IsIntegrityFailure(err) || errors.Is(err, delta.ErrPatchCorrupt)
}
