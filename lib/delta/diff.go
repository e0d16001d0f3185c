// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/shipwright/lib/binhash"
)

// Diff returns a patch that transforms base into target, compressed
// with [DefaultMode].
func Diff(base, target []byte) ([]byte, error) {
	return DiffContext(context.Background(), base, target, DefaultMode)
}

// DiffContext is [Diff] with an explicit mode. It abandons the work and
// returns the context's error when ctx is done; suffix sorting a large
// base takes seconds, so callers with deadlines should use this form.
func DiffContext(ctx context.Context, base, target []byte, mode Mode) ([]byte, error) {
	preferred, err := mode.tag()
	if err != nil {
		return nil, err
	}

	streams, err := computeStreams(ctx, base, target)
	if err != nil {
		return nil, err
	}

	header := Header{
		Format:     formatVersion,
		BaseSize:   uint64(len(base)),
		TargetSize: uint64(len(target)),
		BaseHash:   binhash.Sum(base),
		TargetHash: binhash.Sum(target),
	}
	raw := [streamCount][]byte{streams.control, streams.diff, streams.extra}
	var encoded [streamCount][]byte
	for i, data := range raw {
		encoded[i], header.Streams[i].Tag, err = compressStream(data, preferred)
		if err != nil {
			return nil, fmt.Errorf("compressing %s stream: %w", streamNames[i], err)
		}
		header.Streams[i].RawLength = uint64(len(data))
		header.Streams[i].EncodedLength = uint64(len(encoded[i]))
	}

	return header.marshal(encoded), nil
}

// patchStreams holds the three uncompressed streams of a patch. The
// control stream is a sequence of zigzag varint triples: bytes to take
// from the diff stream (added to base bytes), bytes to take from the
// extra stream, and a signed seek applied to the base cursor.
type patchStreams struct {
	control []byte
	diff    []byte
	extra   []byte
}

func (s *patchStreams) step(diffLength, extraLength, seek int) {
	s.control = binary.AppendVarint(s.control, int64(diffLength))
	s.control = binary.AppendVarint(s.control, int64(extraLength))
	s.control = binary.AppendVarint(s.control, int64(seek))
}

// matchThreshold is how many more bytes an exact match must cover than
// the current approximate alignment before the scan switches to it.
const matchThreshold = 8

// cancelCheckInterval bounds how many scan positions pass between
// context checks.
const cancelCheckInterval = 1 << 14

func computeStreams(ctx context.Context, base, target []byte) (patchStreams, error) {
	var streams patchStreams
	if len(target) == 0 {
		return streams, nil
	}
	if len(base) == 0 {
		// Nothing to match against: the whole target is literal.
		streams.step(0, len(target), 0)
		streams.extra = append([]byte(nil), target...)
		return streams, nil
	}

	index, err := suffixArray(ctx, base)
	if err != nil {
		return streams, err
	}

	streams.diff = make([]byte, 0, len(target))
	var (
		scan, position, length       int
		lastScan, lastPos, lastShift int
		sinceCheck                   int
	)
	for scan < len(target) {
		oldScore := 0
		scan += length
		for scored := scan; scan < len(target); scan++ {
			sinceCheck++
			if sinceCheck == cancelCheckInterval {
				sinceCheck = 0
				if err := ctx.Err(); err != nil {
					return streams, err
				}
			}

			position, length = longestMatch(index, base, target[scan:], 0, len(base))

			// oldScore counts how many bytes of the new match window
			// the previous alignment would also have covered.
			for ; scored < scan+length; scored++ {
				if scored+lastShift < len(base) && base[scored+lastShift] == target[scored] {
					oldScore++
				}
			}
			if (length == oldScore && length != 0) || length > oldScore+matchThreshold {
				break
			}
			if scan+lastShift < len(base) && base[scan+lastShift] == target[scan] {
				oldScore--
			}
		}

		if length == oldScore && scan != len(target) {
			continue
		}

		// Extend the previous alignment forward while it matches at
		// least half the bytes.
		forward := 0
		for i, score, best := 0, 0, 0; lastScan+i < scan && lastPos+i < len(base); {
			if base[lastPos+i] == target[lastScan+i] {
				score++
			}
			i++
			if score*2-i > best*2-forward {
				best = score
				forward = i
			}
		}

		// Extend the new match backward the same way.
		backward := 0
		if scan < len(target) {
			for i, score, best := 1, 0, 0; scan >= lastScan+i && position >= i; i++ {
				if base[position-i] == target[scan-i] {
					score++
				}
				if score*2-i > best*2-backward {
					best = score
					backward = i
				}
			}
		}

		// Resolve any overlap between the two extensions at the split
		// point that keeps the most matching bytes.
		if lastScan+forward > scan-backward {
			overlap := (lastScan + forward) - (scan - backward)
			split := 0
			for i, score, best := 0, 0, 0; i < overlap; i++ {
				if target[lastScan+forward-overlap+i] == base[lastPos+forward-overlap+i] {
					score++
				}
				if target[scan-backward+i] == base[position-backward+i] {
					score--
				}
				if score > best {
					best = score
					split = i + 1
				}
			}
			forward += split - overlap
			backward -= split
		}

		for i := 0; i < forward; i++ {
			streams.diff = append(streams.diff, target[lastScan+i]-base[lastPos+i])
		}
		literal := (scan - backward) - (lastScan + forward)
		streams.extra = append(streams.extra, target[lastScan+forward:lastScan+forward+literal]...)
		streams.step(forward, literal, (position-backward)-(lastPos+forward))

		lastScan = scan - backward
		lastPos = position - backward
		lastShift = position - scan
	}
	return streams, nil
}
