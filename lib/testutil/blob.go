// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// RandomBlob returns size pseudo-random bytes derived from seed. The
// same seed and size always produce the same bytes.
func RandomBlob(seed uint64, size int) []byte {
	source := rand.New(rand.NewPCG(seed, seed^0x5eed))
	blob := make([]byte, size)
	for i := range blob {
		blob[i] = byte(source.Uint32())
	}
	return blob
}

// AliasedBlob returns size bytes with the structure of a compiled
// binary: a random prefix followed by segments that are either fresh
// random bytes, copies of an earlier region (possibly overlapping the
// write position), or zero padding. Copies receive occasional single
// byte edits so near-matches are common.
func AliasedBlob(seed uint64, size int) []byte {
	source := rand.New(rand.NewPCG(seed, seed^0xa11a5))
	blob := make([]byte, 0, size)

	prefix := min(size, 256)
	for range prefix {
		blob = append(blob, byte(source.Uint32()))
	}

	for len(blob) < size {
		segment := min(size-len(blob), 16+source.IntN(512))
		switch source.IntN(4) {
		case 0:
			for range segment {
				blob = append(blob, byte(source.Uint32()))
			}
		case 1:
			blob = append(blob, make([]byte, segment)...)
		default:
			// Byte-at-a-time copy: when the source range overlaps
			// the tail, the copy repeats a short period.
			start := source.IntN(len(blob))
			for i := range segment {
				value := blob[start+i]
				if source.IntN(64) == 0 {
					value ^= byte(1 + source.IntN(255))
				}
				blob = append(blob, value)
			}
		}
	}
	return blob
}

// Mutate returns a copy of data with the byte at each offset inverted.
// Offsets past the end are ignored.
func Mutate(data []byte, offsets ...int) []byte {
	mutated := append([]byte(nil), data...)
	for _, offset := range offsets {
		if offset >= 0 && offset < len(mutated) {
			mutated[offset] ^= 0xff
		}
	}
	return mutated
}

// WriteFile writes data to name inside directory and returns the full
// path.
func WriteFile(t testing.TB, directory, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
