// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogObserverLevels(t *testing.T) {
	var output bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&output, &slog.HandlerOptions{Level: slog.LevelInfo}))
	observer := LogObserver{Logger: logger}

	observer.Observe(Event{Kind: DiffStarted, Artifact: "a.pkg"})
	observer.Observe(Event{Kind: DiffFinished, Artifact: "b.pkg", Bytes: 42})
	observer.Observe(Event{Kind: PairFailed, Artifact: "c.pkg", Err: errors.New("boom")})

	text := output.String()
	if strings.Contains(text, "a.pkg") {
		t.Errorf("debug-level start event should be filtered at info level:\n%s", text)
	}
	if !strings.Contains(text, "msg=diff.finished") || !strings.Contains(text, "bytes=42") {
		t.Errorf("missing diff.finished record:\n%s", text)
	}
	if !strings.Contains(text, "level=WARN msg=pair.failed") || !strings.Contains(text, "error=boom") {
		t.Errorf("missing warn-level pair.failed record:\n%s", text)
	}
}

func TestLogObserverWithoutLogger(t *testing.T) {
	// Must not panic.
	LogObserver{}.Observe(Event{Kind: VerifyPassed})
}

func TestRecorderConcurrent(t *testing.T) {
	var recorder Recorder
	observer := Multi(&recorder, OrDiscard(nil))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				observer.Observe(Event{Kind: ArtifactPublished})
			}
		}()
	}
	wg.Wait()

	if got := recorder.Count(ArtifactPublished); got != 1000 {
		t.Errorf("Count(ArtifactPublished) = %d, want 1000", got)
	}
	if got := len(recorder.Kinds()); got != 1000 {
		t.Errorf("len(Kinds()) = %d, want 1000", got)
	}
}
