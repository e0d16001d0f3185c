// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifactstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bureau-foundation/shipwright/lib/integrity"
	"github.com/bureau-foundation/shipwright/lib/release"
)

// Memory is an in-memory [Store]. The zero value is ready to use.
type Memory struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
	fetches   map[string]int
}

// PublishArtifact verifies data against manifest and stores a copy.
// Publishing identical bytes again is a no-op.
func (m *Memory) PublishArtifact(ctx context.Context, manifest release.Manifest, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := integrity.Verify(data, manifest); err != nil {
		return fmt.Errorf("publishing %s: %w", manifest.FileName(), err)
	}

	name := manifest.FileName()
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, found := m.artifacts[name]; found {
		if bytes.Equal(existing, data) {
			return nil
		}
		return fmt.Errorf("publishing %s: %w", name, ErrConflict)
	}
	if m.artifacts == nil {
		m.artifacts = make(map[string][]byte)
	}
	m.artifacts[name] = bytes.Clone(data)
	return nil
}

// FetchArtifact returns a copy of the stored bytes.
func (m *Memory) FetchArtifact(ctx context.Context, manifest release.Manifest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := manifest.FileName()
	m.mu.Lock()
	defer m.mu.Unlock()
	data, found := m.artifacts[name]
	if !found {
		return nil, fmt.Errorf("fetching %s: %w", name, ErrNotFound)
	}
	if m.fetches == nil {
		m.fetches = make(map[string]int)
	}
	m.fetches[name]++
	if uint64(len(data)) != manifest.Size {
		return nil, &integrity.SizeMismatchError{Artifact: name, Want: manifest.Size, Got: uint64(len(data))}
	}
	return bytes.Clone(data), nil
}

// Replace overwrites an artifact without verification. It is a test
// seam for simulating a mirror serving damaged bytes; publishers never
// call it.
func (m *Memory) Replace(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.artifacts == nil {
		m.artifacts = make(map[string][]byte)
	}
	m.artifacts[name] = bytes.Clone(data)
}

// Fetches returns how many times the named artifact was fetched.
func (m *Memory) Fetches(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches[name]
}

// Len returns the number of stored artifacts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}
