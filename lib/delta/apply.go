// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bureau-foundation/shipwright/lib/binhash"
)

// Apply reconstructs the target blob from base and patch. It fails with
// a *PatchCorruptError when the patch fails its own integrity checks and
// with a *PatchMismatchError when base is not the blob the patch was
// computed against. The returned blob always matches the target length
// and hash recorded in the patch.
func Apply(base, patch []byte) ([]byte, error) {
	return ApplyContext(context.Background(), base, patch)
}

// ApplyContext is [Apply] with cancellation between control steps.
func ApplyContext(ctx context.Context, base, patch []byte) ([]byte, error) {
	header, encoded, err := parsePatch(patch)
	if err != nil {
		return nil, err
	}

	if uint64(len(base)) != header.BaseSize {
		return nil, &PatchMismatchError{
			WantSize: header.BaseSize,
			GotSize:  uint64(len(base)),
			WantHash: header.BaseHash,
		}
	}
	if baseHash := binhash.Sum(base); baseHash != header.BaseHash {
		return nil, &PatchMismatchError{
			WantSize: header.BaseSize,
			GotSize:  header.BaseSize,
			WantHash: header.BaseHash,
			GotHash:  baseHash,
		}
	}

	var streams [streamCount][]byte
	for i, stream := range header.Streams {
		if stream.RawLength > math.MaxInt {
			return nil, corrupt("%s stream length %d overflows", streamNames[i], stream.RawLength)
		}
		streams[i], err = decompressStream(encoded[i], stream.Tag, int(stream.RawLength))
		if err != nil {
			return nil, corrupt("%s stream: %v", streamNames[i], err)
		}
	}

	target, err := reconstruct(ctx, base, streams[0], streams[1], streams[2], header.TargetSize)
	if err != nil {
		return nil, err
	}

	if uint64(len(target)) != header.TargetSize {
		return nil, corrupt("reconstructed %d bytes, header says %d", len(target), header.TargetSize)
	}
	if targetHash := binhash.Sum(target); targetHash != header.TargetHash {
		return nil, corrupt("reconstructed blob hashes to %s, header says %s",
			targetHash.Short(), header.TargetHash.Short())
	}
	return target, nil
}

// reconstruct replays the control stream. Every step is bounds-checked
// against base, the target size, and the remaining diff and extra
// bytes.
func reconstruct(ctx context.Context, base, control, diff, extra []byte, targetSize uint64) ([]byte, error) {
	target := make([]byte, 0, targetSize)
	basePosition := int64(0)
	steps := 0

	for len(control) > 0 {
		if steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		steps++

		var step [3]int64
		for i := range step {
			value, n := binary.Varint(control)
			if n <= 0 {
				return nil, corrupt("control step %d: truncated varint", steps)
			}
			step[i] = value
			control = control[n:]
		}
		diffLength, extraLength, seek := step[0], step[1], step[2]

		if diffLength < 0 || extraLength < 0 {
			return nil, corrupt("control step %d: negative length", steps)
		}
		if uint64(diffLength) > targetSize-uint64(len(target)) {
			return nil, corrupt("control step %d: diff run of %d overruns the target", steps, diffLength)
		}
		if diffLength > int64(len(diff)) {
			return nil, corrupt("control step %d: diff run of %d exceeds the diff stream", steps, diffLength)
		}
		if basePosition < 0 || basePosition > int64(len(base)) || diffLength > int64(len(base))-basePosition {
			return nil, corrupt("control step %d: diff run at base offset %d is out of range", steps, basePosition)
		}
		for i := int64(0); i < diffLength; i++ {
			target = append(target, diff[i]+base[basePosition+i])
		}
		diff = diff[diffLength:]
		basePosition += diffLength

		if uint64(extraLength) > targetSize-uint64(len(target)) {
			return nil, corrupt("control step %d: extra run of %d overruns the target", steps, extraLength)
		}
		if extraLength > int64(len(extra)) {
			return nil, corrupt("control step %d: extra run of %d exceeds the extra stream", steps, extraLength)
		}
		target = append(target, extra[:extraLength]...)
		extra = extra[extraLength:]

		basePosition += seek
	}

	if len(diff) != 0 || len(extra) != 0 {
		return nil, corrupt("%d diff and %d extra bytes left unused", len(diff), len(extra))
	}
	return target, nil
}

// ApplyChain applies patches in order, feeding each result to the next
// patch. An error names the failing patch's position in the chain and
// wraps the underlying *PatchCorruptError or *PatchMismatchError.
func ApplyChain(base []byte, patches ...[]byte) ([]byte, error) {
	return ApplyChainContext(context.Background(), base, patches...)
}

// ApplyChainContext is [ApplyChain] with cancellation.
func ApplyChainContext(ctx context.Context, base []byte, patches ...[]byte) ([]byte, error) {
	current := base
	for i, patch := range patches {
		next, err := ApplyContext(ctx, current, patch)
		if err != nil {
			return nil, fmt.Errorf("applying patch %d of %d: %w", i+1, len(patches), err)
		}
		current = next
	}
	return current, nil
}
