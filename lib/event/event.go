// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the milestone notifications emitted by the
// delta, resolution, build, and update components.
//
// Components never write progress to a global sink. Each takes an
// [Observer] in its configuration and reports milestones to it; a nil
// observer is replaced by [Discard]. The CLI installs a [LogObserver]
// so milestones become structured log records, and tests install a
// [Recorder] to assert on the sequence.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind names a milestone.
type Kind string

const (
	DiffStarted       Kind = "diff.started"
	DiffFinished      Kind = "diff.finished"
	PatchApplied      Kind = "patch.applied"
	ChainResolved     Kind = "chain.resolved"
	VerifyPassed      Kind = "verify.passed"
	VerifyFailed      Kind = "verify.failed"
	ArtifactPublished Kind = "artifact.published"
	ArtifactFetched   Kind = "artifact.fetched"
	PairFailed        Kind = "pair.failed"
	UpdateFallback    Kind = "update.fallback"
)

// Event is one milestone. Fields that do not apply to a kind are left
// zero.
type Event struct {
	Kind Kind

	// Artifact is the file name of the artifact concerned.
	Artifact string

	// Detail is a short human-readable qualifier, such as the chosen
	// strategy for ChainResolved.
	Detail string

	// Bytes is the size of the data produced or consumed.
	Bytes int64

	Duration time.Duration
	Err      error
}

// Observer receives milestones. Implementations must be safe for
// concurrent use: the builder reports from several workers at once.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Discard is an observer that ignores every event.
var Discard Observer = ObserverFunc(func(Event) {})

// OrDiscard returns observer, or [Discard] if it is nil.
func OrDiscard(observer Observer) Observer {
	if observer == nil {
		return Discard
	}
	return observer
}

// Multi returns an observer that forwards each event to every
// observer in order.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, observer := range observers {
			observer.Observe(e)
		}
	})
}

// LogObserver writes events as structured log records. Failures are
// logged at warn level, completions at info, and starts at debug.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(e Event) {
	logger := o.Logger
	if logger == nil {
		return
	}

	level := slog.LevelInfo
	switch e.Kind {
	case DiffStarted, ArtifactFetched:
		level = slog.LevelDebug
	case VerifyFailed, PairFailed, UpdateFallback:
		level = slog.LevelWarn
	}

	attributes := make([]slog.Attr, 0, 5)
	if e.Artifact != "" {
		attributes = append(attributes, slog.String("artifact", e.Artifact))
	}
	if e.Detail != "" {
		attributes = append(attributes, slog.String("detail", e.Detail))
	}
	if e.Bytes != 0 {
		attributes = append(attributes, slog.Int64("bytes", e.Bytes))
	}
	if e.Duration != 0 {
		attributes = append(attributes, slog.Duration("duration", e.Duration))
	}
	if e.Err != nil {
		attributes = append(attributes, slog.String("error", e.Err.Error()))
	}
	logger.LogAttrs(context.Background(), level, string(e.Kind), attributes...)
}

// Recorder collects events in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}
