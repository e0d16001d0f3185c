// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/shipwright/lib/artifactstore"
	"github.com/bureau-foundation/shipwright/lib/catalog"
	"github.com/bureau-foundation/shipwright/lib/clock"
	"github.com/bureau-foundation/shipwright/lib/delta"
	"github.com/bureau-foundation/shipwright/lib/event"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/resolve"
	"github.com/bureau-foundation/shipwright/lib/semver"
	"github.com/bureau-foundation/shipwright/lib/testutil"
)

// history returns count successive builds, each a light edit of the
// previous one.
func history(count, size int) []Package {
	data := testutil.AliasedBlob(100, size)
	builds := make([]Package, 0, count)
	for i := range count {
		if i > 0 {
			data = append([]byte(nil), data...)
			copy(data[i*97%len(data):], testutil.RandomBlob(uint64(200+i), 64))
			data = append(data, testutil.RandomBlob(uint64(300+i), 128)...)
		}
		builds = append(builds, Package{
			Version: semver.MustParse(fmt.Sprintf("1.%d.0", i)),
			Data:    data,
		})
	}
	return builds
}

func testConfig(store artifactstore.Store) Config {
	return Config{
		ProductID: "Acme.App",
		Channel:   "stable",
		OS:        release.Linux,
		Arch:      release.X64,
		Mode:      delta.ModeFastest,
		Workers:   2,
		Store:     store,
	}
}

func newBuilder(t *testing.T, config Config) *Builder {
	t.Helper()
	builder, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return builder
}

func TestBuildRegistersFullsAndRetainedDeltas(t *testing.T) {
	store := &artifactstore.Memory{}
	recorder := &event.Recorder{}
	config := testConfig(store)
	config.Retention = 2
	config.Observer = recorder
	builder := newBuilder(t, config)

	builds := history(4, 32<<10)
	index := release.NewIndex("Acme.App")
	result, err := builder.Build(context.Background(), index, builds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", result.Err())
	}

	// Four fulls plus deltas for the two newest pairs.
	if index.Len() != 6 || len(result.Added) != 6 || store.Len() != 6 {
		t.Fatalf("index %d, added %d, store %d; want 6 each", index.Len(), len(result.Added), store.Len())
	}
	for _, want := range [][2]string{{"1.1.0", "1.2.0"}, {"1.2.0", "1.3.0"}} {
		if _, found := index.DeltaFrom("stable", semver.MustParse(want[0]), semver.MustParse(want[1])); !found {
			t.Errorf("missing delta %s -> %s", want[0], want[1])
		}
	}
	if _, found := index.DeltaFrom("stable", semver.MustParse("1.0.0"), semver.MustParse("1.1.0")); found {
		t.Error("delta outside the retention window was produced")
	}
	if recorder.Count(event.VerifyPassed) != 2 || recorder.Count(event.DiffFinished) != 2 {
		t.Errorf("events = %v", recorder.Kinds())
	}
}

func TestDiffDurationsUseInjectedClock(t *testing.T) {
	recorder := &event.Recorder{}
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fakeClock.SetStep(time.Second)
	config := testConfig(&artifactstore.Memory{})
	config.Workers = 1
	config.Observer = recorder
	config.Clock = fakeClock
	builder := newBuilder(t, config)

	if _, err := builder.Build(context.Background(), release.NewIndex("Acme.App"), history(3, 8<<10)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	finished := 0
	for _, e := range recorder.Events() {
		if e.Kind != event.DiffFinished {
			continue
		}
		finished++
		if e.Duration != time.Second {
			t.Errorf("%s: Duration = %v, want the clock's 1s step", e.Artifact, e.Duration)
		}
	}
	if finished != 2 || fakeClock.Reads() != 4 {
		t.Errorf("DiffFinished events = %d, clock reads = %d; want 2 and 4", finished, fakeClock.Reads())
	}
}

func TestBuiltDeltasReconstructTargets(t *testing.T) {
	store := &artifactstore.Memory{}
	config := testConfig(store)
	config.Retention = 5
	builds := history(4, 24<<10)
	index := release.NewIndex("Acme.App")
	if _, err := newBuilder(t, config).Build(context.Background(), index, builds); err != nil {
		t.Fatalf("Build: %v", err)
	}

	resolver := &resolve.Resolver{Policy: resolve.Policy{MaxChainRatio: 10}}
	resolution, err := resolver.Resolve(index, "stable", &builds[0].Version, builds[3].Version)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Strategy != resolve.Delta || len(resolution.Deltas) != 3 {
		t.Fatalf("resolution = %s with %d deltas, want a 3-hop delta chain", resolution.Strategy, len(resolution.Deltas))
	}
	var patches [][]byte
	for _, manifest := range resolution.Deltas {
		patch, err := store.FetchArtifact(context.Background(), manifest)
		if err != nil {
			t.Fatalf("FetchArtifact: %v", err)
		}
		patches = append(patches, patch)
	}
	result, err := delta.ApplyChain(builds[0].Data, patches...)
	if err != nil {
		t.Fatalf("ApplyChain: %v", err)
	}
	if !bytes.Equal(result, builds[3].Data) {
		t.Error("chain does not reconstruct the newest build")
	}
}

// failingStore rejects publishes whose artifact name contains a
// substring.
type failingStore struct {
	artifactstore.Memory
	reject string
}

func (s *failingStore) PublishArtifact(ctx context.Context, manifest release.Manifest, data []byte) error {
	if strings.Contains(manifest.FileName(), s.reject) {
		return errors.New("injected publish failure")
	}
	return s.Memory.PublishArtifact(ctx, manifest, data)
}

func TestPairFailureIsIsolated(t *testing.T) {
	store := &failingStore{reject: "1.2.0_stable_linux-x64_delta"}
	recorder := &event.Recorder{}
	config := testConfig(store)
	config.Retention = 3
	config.Observer = recorder

	index := release.NewIndex("Acme.App")
	result, err := newBuilder(t, config).Build(context.Background(), index, history(4, 16<<10))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("Failed = %v, want exactly one pair", result.Failed)
	}
	failure := result.Failed[0]
	if failure.Base.String() != "1.1.0" || failure.Target.String() != "1.2.0" {
		t.Errorf("failed pair = %s -> %s", failure.Base, failure.Target)
	}
	if result.Err() == nil {
		t.Error("Result.Err() = nil with a failed pair")
	}

	// The failed delta never became visible; its siblings did.
	if _, found := index.DeltaFrom("stable", semver.MustParse("1.1.0"), semver.MustParse("1.2.0")); found {
		t.Error("failed delta is visible in the index")
	}
	for _, want := range [][2]string{{"1.0.0", "1.1.0"}, {"1.2.0", "1.3.0"}} {
		if _, found := index.DeltaFrom("stable", semver.MustParse(want[0]), semver.MustParse(want[1])); !found {
			t.Errorf("sibling delta %s -> %s missing", want[0], want[1])
		}
	}
	if recorder.Count(event.PairFailed) != 1 {
		t.Errorf("PairFailed events = %d, want 1", recorder.Count(event.PairFailed))
	}
}

func TestCorruptStoredReleaseFailsOnlyItsPairs(t *testing.T) {
	store := &artifactstore.Memory{}
	builds := history(4, 16<<10)
	index := release.NewIndex("Acme.App")

	// Register the first three fulls without any deltas.
	fullsOnly := testConfig(store)
	fullsOnly.Retention = -1
	if _, err := newBuilder(t, fullsOnly).Build(context.Background(), index, builds[:3]); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	oldest, _ := index.Full("stable", semver.MustParse("1.0.0"))
	store.Replace(oldest.FileName(), testutil.Mutate(builds[0].Data, 7))

	config := testConfig(store)
	config.Retention = 5
	recorder := &event.Recorder{}
	config.Observer = recorder
	result, err := newBuilder(t, config).Build(context.Background(), index, builds[3:])
	if err != nil {
		t.Fatalf("Build with a corrupt stored release: %v", err)
	}

	if len(result.Failed) != 1 {
		t.Fatalf("Failed = %v, want only the pair based on 1.0.0", result.Failed)
	}
	failure := result.Failed[0]
	if failure.Base.String() != "1.0.0" || failure.Target.String() != "1.1.0" {
		t.Errorf("failed pair = %s -> %s, want 1.0.0 -> 1.1.0", failure.Base, failure.Target)
	}
	if !errors.Is(failure, integrity.ErrHashMismatch) {
		t.Errorf("failure = %v, want ErrHashMismatch", failure.Err)
	}
	for _, want := range [][2]string{{"1.1.0", "1.2.0"}, {"1.2.0", "1.3.0"}} {
		if _, found := index.DeltaFrom("stable", semver.MustParse(want[0]), semver.MustParse(want[1])); !found {
			t.Errorf("delta %s -> %s missing", want[0], want[1])
		}
	}
	if len(result.Added) != 3 {
		t.Errorf("Added %d artifacts, want the 1.3.0 full and two deltas", len(result.Added))
	}
	if recorder.Count(event.PairFailed) != 1 {
		t.Errorf("PairFailed events = %d, want 1", recorder.Count(event.PairFailed))
	}
}

func TestPairTimeout(t *testing.T) {
	config := testConfig(&artifactstore.Memory{})
	config.Timeout = time.Nanosecond
	index := release.NewIndex("Acme.App")
	result, err := newBuilder(t, config).Build(context.Background(), index, history(2, 256<<10))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Failed) != 1 || !errors.Is(result.Failed[0], context.DeadlineExceeded) {
		t.Fatalf("Failed = %v, want one deadline failure", result.Failed)
	}
	if _, found := index.Full("stable", semver.MustParse("1.1.0")); !found {
		t.Error("full package missing after a delta timeout")
	}
}

func TestIncrementalBuildUsesStoredHistory(t *testing.T) {
	store := &artifactstore.Memory{}
	config := testConfig(store)
	config.Retention = 1
	builder := newBuilder(t, config)
	builds := history(3, 16<<10)
	index := release.NewIndex("Acme.App")

	if _, err := builder.Build(context.Background(), index, builds[:2]); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	// The second run only has the new build; its base comes from the store.
	result, err := builder.Build(context.Background(), index, builds[2:])
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if len(result.Added) != 2 || len(result.Failed) != 0 {
		t.Fatalf("second run added %d, failed %v", len(result.Added), result.Failed)
	}
	if _, found := index.DeltaFrom("stable", semver.MustParse("1.1.0"), semver.MustParse("1.2.0")); !found {
		t.Error("incremental delta missing")
	}

	// Re-running with identical input changes nothing.
	again, err := builder.Build(context.Background(), index, builds)
	if err != nil {
		t.Fatalf("repeat Build: %v", err)
	}
	if len(again.Added) != 0 || len(again.Unchanged) != 3 {
		t.Errorf("repeat build added %d, unchanged %d", len(again.Added), len(again.Unchanged))
	}
}

func TestRebuiltVersionIsRejected(t *testing.T) {
	builder := newBuilder(t, testConfig(&artifactstore.Memory{}))
	index := release.NewIndex("Acme.App")
	builds := history(1, 4096)
	if _, err := builder.Build(context.Background(), index, builds); err != nil {
		t.Fatalf("Build: %v", err)
	}

	changed := []Package{{Version: builds[0].Version, Data: testutil.Mutate(builds[0].Data, 1)}}
	if _, err := builder.Build(context.Background(), index, changed); !errors.Is(err, release.ErrDuplicateEntry) {
		t.Errorf("got %v, want ErrDuplicateEntry", err)
	}
}

func TestBuildInputValidation(t *testing.T) {
	builder := newBuilder(t, testConfig(&artifactstore.Memory{}))
	builds := history(1, 1024)

	if _, err := builder.Build(context.Background(), release.NewIndex("Other"), builds); !errors.Is(err, release.ErrProductMismatch) {
		t.Errorf("foreign index: got %v, want ErrProductMismatch", err)
	}
	twice := append(append([]Package(nil), builds...), builds...)
	if _, err := builder.Build(context.Background(), release.NewIndex("Acme.App"), twice); err == nil {
		t.Error("duplicate versions in one build should fail")
	}

	for name, config := range map[string]Config{
		"no product": {Store: &artifactstore.Memory{}, OS: release.Linux, Arch: release.X64},
		"no store":   {ProductID: "Acme.App", OS: release.Linux, Arch: release.X64},
		"bad mode":   {ProductID: "Acme.App", Store: &artifactstore.Memory{}, OS: release.Linux, Arch: release.X64, Mode: "bzip2"},
		"bad os":     {ProductID: "Acme.App", Store: &artifactstore.Memory{}, OS: "beos", Arch: release.X64},
	} {
		if _, err := New(config); err == nil {
			t.Errorf("New(%s) succeeded", name)
		}
	}
}

func TestDefaultChannelFollowsOS(t *testing.T) {
	config := testConfig(&artifactstore.Memory{})
	config.Channel = ""
	config.OS = release.Windows
	builder := newBuilder(t, config)
	index := release.NewIndex("Acme.App")
	if _, err := builder.Build(context.Background(), index, history(1, 512)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if channels := index.Channels(); len(channels) != 1 || channels[0] != release.DefaultChannel(release.Windows) {
		t.Errorf("Channels() = %v", channels)
	}
}

// orderingCatalog checks that every recorded artifact is already in
// the store.
type orderingCatalog struct {
	mu       sync.Mutex
	store    *artifactstore.Memory
	recorded []string
	errs     []error
}

func (c *orderingCatalog) Record(ctx context.Context, manifest release.Manifest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.store.FetchArtifact(ctx, manifest); err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s recorded before publish: %w", manifest, err))
	}
	c.recorded = append(c.recorded, manifest.FileName())
	return nil
}

func TestPublishBeforeRecord(t *testing.T) {
	store := &artifactstore.Memory{}
	recorder := &orderingCatalog{store: store}
	config := testConfig(store)
	config.Catalog = recorder
	if _, err := newBuilder(t, config).Build(context.Background(), release.NewIndex("Acme.App"), history(3, 8192)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(recorder.errs) != 0 {
		t.Error(errors.Join(recorder.errs...))
	}
	if len(recorder.recorded) != 5 {
		t.Errorf("recorded %d manifests, want 5", len(recorder.recorded))
	}
}

func TestBuildWithSQLiteCatalog(t *testing.T) {
	releases, err := catalog.Open(catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer releases.Close()

	config := testConfig(&artifactstore.Memory{})
	config.Catalog = releases
	index := release.NewIndex("Acme.App")
	if _, err := newBuilder(t, config).Build(context.Background(), index, history(3, 8192)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	loaded, err := releases.Load(context.Background(), "Acme.App")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != index.Len() {
		t.Errorf("catalog has %d entries, index %d", loaded.Len(), index.Len())
	}
}
