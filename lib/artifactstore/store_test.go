// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
	"github.com/bureau-foundation/shipwright/lib/semver"
	"github.com/bureau-foundation/shipwright/lib/testutil"
)

func manifestFor(version string, data []byte) release.Manifest {
	return release.Manifest{
		ProductID:   "Acme.App",
		Version:     semver.MustParse(version),
		Channel:     "stable",
		Kind:        release.KindFull,
		OS:          release.Linux,
		Arch:        release.X64,
		ContentHash: binhash.Sum(data),
		Size:        uint64(len(data)),
	}
}

func openDir(t *testing.T) *Dir {
	t.Helper()
	dir, err := OpenDir(DirConfig{Path: filepath.Join(t.TempDir(), "releases")})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	return dir
}

// stores returns a fresh instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": &Memory{},
		"dir":    openDir(t),
	}
}

func TestPublishAndFetch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := testutil.RandomBlob(1, 4096)
			manifest := manifestFor("1.0.0", data)

			if err := store.PublishArtifact(ctx, manifest, data); err != nil {
				t.Fatalf("PublishArtifact: %v", err)
			}
			got, err := store.FetchArtifact(ctx, manifest)
			if err != nil {
				t.Fatalf("FetchArtifact: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Error("fetched bytes differ from published bytes")
			}

			// Republishing the same bytes is idempotent.
			if err := store.PublishArtifact(ctx, manifest, data); err != nil {
				t.Errorf("republishing identical bytes: %v", err)
			}
		})
	}
}

func TestPublishRejectsMismatchedBytes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := testutil.RandomBlob(2, 1000)
			manifest := manifestFor("1.0.0", data)

			err := store.PublishArtifact(context.Background(), manifest, testutil.Mutate(data, 10))
			if !errors.Is(err, integrity.ErrHashMismatch) {
				t.Errorf("corrupted bytes: got %v, want ErrHashMismatch", err)
			}
			err = store.PublishArtifact(context.Background(), manifest, data[:999])
			if !errors.Is(err, integrity.ErrSizeMismatch) {
				t.Errorf("short bytes: got %v, want ErrSizeMismatch", err)
			}
			if _, err := store.FetchArtifact(context.Background(), manifest); !errors.Is(err, ErrNotFound) {
				t.Errorf("rejected artifact should not be stored, fetch got %v", err)
			}
		})
	}
}

func TestPublishConflict(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := testutil.RandomBlob(3, 512)
			second := testutil.RandomBlob(4, 512)
			if err := store.PublishArtifact(ctx, manifestFor("1.0.0", first), first); err != nil {
				t.Fatalf("PublishArtifact: %v", err)
			}
			err := store.PublishArtifact(ctx, manifestFor("1.0.0", second), second)
			if !errors.Is(err, ErrConflict) {
				t.Errorf("got %v, want ErrConflict", err)
			}
		})
	}
}

func TestFetchEnforcesSize(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := testutil.RandomBlob(5, 300)
			manifest := manifestFor("1.0.0", data)
			if err := store.PublishArtifact(context.Background(), manifest, data); err != nil {
				t.Fatalf("PublishArtifact: %v", err)
			}

			lying := manifest
			lying.Size = 301
			_, err := store.FetchArtifact(context.Background(), lying)
			var sizeError *integrity.SizeMismatchError
			if !errors.As(err, &sizeError) || sizeError.Got != 300 {
				t.Errorf("got %v, want *SizeMismatchError with Got=300", err)
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := testutil.RandomBlob(6, 16)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PublishArtifact(ctx, manifestFor("1.0.0", data), data); !errors.Is(err, context.Canceled) {
				t.Errorf("PublishArtifact: got %v, want context.Canceled", err)
			}
			if _, err := store.FetchArtifact(ctx, manifestFor("1.0.0", data)); !errors.Is(err, context.Canceled) {
				t.Errorf("FetchArtifact: got %v, want context.Canceled", err)
			}
		})
	}
}

func TestMemoryReplaceAndFetchCounts(t *testing.T) {
	store := &Memory{}
	data := testutil.RandomBlob(7, 64)
	manifest := manifestFor("1.0.0", data)
	if err := store.PublishArtifact(context.Background(), manifest, data); err != nil {
		t.Fatalf("PublishArtifact: %v", err)
	}

	store.Replace(manifest.FileName(), testutil.Mutate(data, 0))
	got, err := store.FetchArtifact(context.Background(), manifest)
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}
	if err := integrity.Verify(got, manifest); !errors.Is(err, integrity.ErrHashMismatch) {
		t.Errorf("replaced bytes should fail verification, got %v", err)
	}
	if store.Fetches(manifest.FileName()) != 1 || store.Len() != 1 {
		t.Errorf("Fetches = %d, Len = %d; want 1, 1", store.Fetches(manifest.FileName()), store.Len())
	}
}

func TestDirLayout(t *testing.T) {
	dir := openDir(t)
	data := testutil.RandomBlob(8, 128)
	manifest := manifestFor("2.1.0", data)
	if err := dir.PublishArtifact(context.Background(), manifest, data); err != nil {
		t.Fatalf("PublishArtifact: %v", err)
	}

	path := filepath.Join(dir.Root(), "Acme.App_2.1.0_stable_linux-x64_full.pkg")
	if dir.PathFor(manifest) != path {
		t.Errorf("PathFor = %s, want %s", dir.PathFor(manifest), path)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(onDisk, data) {
		t.Errorf("artifact not at %s: %v", path, err)
	}
}

func TestDirFeeds(t *testing.T) {
	dir := openDir(t)
	index := release.NewIndex("Acme.App")
	v1 := testutil.RandomBlob(9, 100)
	v2 := testutil.RandomBlob(10, 120)
	beta := manifestFor("3.0.0-beta.1", v2)
	beta.Channel = "beta"
	for _, manifest := range []release.Manifest{manifestFor("1.0.0", v1), manifestFor("1.1.0", v2), beta} {
		if err := index.Insert(manifest); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	unlock, err := dir.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	for _, channel := range index.Channels() {
		if err := dir.WriteFeed(index, channel); err != nil {
			t.Fatalf("WriteFeed(%s): %v", channel, err)
		}
	}
	unlock()

	for _, name := range []string{"releases.stable.json", "releases.stable.cbor", "releases.beta.json", "releases.beta.cbor"} {
		if _, err := os.Stat(filepath.Join(dir.Root(), name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	feed, err := dir.ReadFeed("stable")
	if err != nil {
		t.Fatalf("ReadFeed: %v", err)
	}
	if feed.Product != "Acme.App" || len(feed.Assets) != 2 {
		t.Errorf("stable feed = %s with %d assets", feed.Product, len(feed.Assets))
	}
	if _, err := dir.ReadFeed("nightly"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadFeed(nightly): got %v, want ErrNotFound", err)
	}

	loaded, err := dir.LoadIndex("Acme.App")
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if loaded.Len() != 3 {
		t.Errorf("LoadIndex merged %d entries, want 3", loaded.Len())
	}
	if _, err := dir.LoadIndex("Other"); !errors.Is(err, release.ErrProductMismatch) {
		t.Errorf("LoadIndex(Other): got %v, want ErrProductMismatch", err)
	}
}

func TestDirLoadIndexEmpty(t *testing.T) {
	loaded, err := openDir(t).LoadIndex("Acme.App")
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if loaded.Len() != 0 || loaded.ProductID() != "Acme.App" {
		t.Errorf("empty directory loaded %d entries for %q", loaded.Len(), loaded.ProductID())
	}
}

func TestDirLockExcludesSecondWriter(t *testing.T) {
	dir := openDir(t)
	unlock, err := dir.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*DefaultLockRetry)
	defer cancel()
	if _, err := dir.Lock(ctx); err == nil {
		t.Fatal("second Lock succeeded while the first was held")
	}

	unlock()
	second, err := dir.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	second()
}

func TestOpenDirRequiresPath(t *testing.T) {
	if _, err := OpenDir(DirConfig{}); err == nil {
		t.Error("OpenDir with no path should fail")
	}
}
