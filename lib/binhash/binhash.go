// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest is a SHA-256 digest.
type Digest [32]byte

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// HashReader streams reader through SHA-256 and returns the digest and
// the number of bytes read.
func HashReader(reader io.Reader) (Digest, int64, error) {
	hasher := sha256.New()
	size, err := io.Copy(hasher, reader)
	if err != nil {
		return Digest{}, size, err
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, size, nil
}

// HashFile computes the digest and size of the file at path. The file
// is streamed through the hash function, so memory use is constant
// regardless of file size.
func HashFile(path string) (Digest, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	digest, size, err := HashReader(file)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, size, nil
}

// IsZero reports whether the digest is all zero bytes, which marks an
// unset hash field.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the lowercase hex encoding. This is the canonical
// format used in feeds, file listings, and log output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines and CLI
// tables.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses a 64-character hex string. Uppercase hex is
// accepted; [Digest.String] always emits lowercase.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing sha256 digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("sha256 digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
