// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package integrity checks artifact bytes against their manifests.
//
// Size is checked before the digest, so a truncated download fails
// fast without hashing. Verification never retries and never repairs:
// a failure returns a *SizeMismatchError or *HashMismatchError naming
// the artifact, and the caller decides whether to re-fetch or fall back
// to a full package.
package integrity

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/shipwright/lib/binhash"
	"github.com/bureau-foundation/shipwright/lib/release"
)

var (
	// ErrHashMismatch matches any *HashMismatchError.
	ErrHashMismatch = errors.New("artifact hash mismatch")

	// ErrSizeMismatch matches any *SizeMismatchError.
	ErrSizeMismatch = errors.New("artifact size mismatch")
)

// HashMismatchError reports bytes whose digest differs from the
// manifest.
type HashMismatchError struct {
	Artifact string
	Want     binhash.Digest
	Got      binhash.Digest
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: sha256 %s, manifest says %s", e.Artifact, e.Got, e.Want)
}

func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}

// SizeMismatchError reports bytes whose length differs from the
// manifest.
type SizeMismatchError struct {
	Artifact string
	Want     uint64
	Got      uint64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: %d bytes, manifest says %d", e.Artifact, e.Got, e.Want)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// IsIntegrityFailure reports whether err is a size or hash mismatch.
func IsIntegrityFailure(err error) bool {
	return errors.Is(err, ErrHashMismatch) || errors.Is(err, ErrSizeMismatch)
}

// Verify checks that blob is the artifact manifest describes.
func Verify(blob []byte, manifest release.Manifest) error {
	return Check(manifest.FileName(), blob, manifest.Size, manifest.ContentHash)
}

// VerifyTarget checks that blob is the full package a delta manifest
// reconstructs, using the delta's recorded target size and hash.
func VerifyTarget(blob []byte, delta release.Manifest) error {
	if !delta.IsDelta() || delta.TargetHash == nil {
		return fmt.Errorf("%s records no reconstruction target", delta.FileName())
	}
	return Check(delta.FileName()+" (target)", blob, delta.TargetSize, *delta.TargetHash)
}

// VerifyFile streams the file at path through the hash function and
// checks it against manifest.
func VerifyFile(path string, manifest release.Manifest) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	if uint64(info.Size()) != manifest.Size {
		return &SizeMismatchError{Artifact: manifest.FileName(), Want: manifest.Size, Got: uint64(info.Size())}
	}
	digest, size, err := binhash.HashFile(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	// The file may have changed between the stat and the read.
	if uint64(size) != manifest.Size {
		return &SizeMismatchError{Artifact: manifest.FileName(), Want: manifest.Size, Got: uint64(size)}
	}
	if digest != manifest.ContentHash {
		return &HashMismatchError{Artifact: manifest.FileName(), Want: manifest.ContentHash, Got: digest}
	}
	return nil
}

// Check verifies blob against an explicit size and digest. artifact
// names the blob in errors.
func Check(artifact string, blob []byte, wantSize uint64, wantHash binhash.Digest) error {
	if uint64(len(blob)) != wantSize {
		return &SizeMismatchError{Artifact: artifact, Want: wantSize, Got: uint64(len(blob))}
	}
	if got := binhash.Sum(blob); got != wantHash {
		return &HashMismatchError{Artifact: artifact, Want: wantHash, Got: got}
	}
	return nil
}
