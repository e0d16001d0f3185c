// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Mode selects how patch streams are compressed.
type Mode string

const (
	// ModeNone stores every stream raw. Patches are large but Diff
	// spends no time compressing, which suits local experiments.
	ModeNone Mode = "none"

	// ModeFastest compresses streams with LZ4 block compression.
	ModeFastest Mode = "fastest"

	// ModeSmallest compresses streams with zstd at its best
	// compression level. This is the default for published releases.
	ModeSmallest Mode = "smallest"
)

// DefaultMode is the mode used by [Diff].
const DefaultMode = ModeSmallest

// ParseMode validates a mode name. The empty string selects
// [DefaultMode].
func ParseMode(name string) (Mode, error) {
	switch mode := Mode(name); mode {
	case "":
		return DefaultMode, nil
	case ModeNone, ModeFastest, ModeSmallest:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown delta mode %q (want none, fastest, or smallest)", name)
	}
}

func (mode Mode) tag() (StreamTag, error) {
	switch mode {
	case ModeNone:
		return TagNone, nil
	case ModeFastest:
		return TagLZ4, nil
	case ModeSmallest, "":
		return TagZstd, nil
	default:
		return 0, fmt.Errorf("unknown delta mode %q", mode)
	}
}

// StreamTag identifies the compression of one patch stream. These are
// format constants: changing them breaks every published patch.
type StreamTag uint8

const (
	TagNone StreamTag = 0
	TagLZ4  StreamTag = 1
	TagZstd StreamTag = 2
)

// maxControlStep is the largest encoding of one control triple: three
// 64-bit varints.
const maxControlStep = 3 * binary.MaxVarintLen64

// String returns the human-readable name of a stream tag.
func (tag StreamTag) String() string {
	switch tag {
	case TagNone:
		return "none"
	case TagLZ4:
		return "lz4"
	case TagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// zstdEncoder and zstdDecoder are shared by every Diff and Apply call.
// EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderCRC(false),
	)
	if err != nil {
		panic("delta: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("delta: zstd decoder initialization failed: " + err.Error())
	}
}

var errIncompressible = errors.New("stream is incompressible")

// lz4MaxExpansion bounds how many raw bytes one encoded LZ4 block byte
// can produce: each match-length continuation byte adds at most 255.
const lz4MaxExpansion = 255

// zstdPreallocLimit caps the output buffer reserved up front for a zstd
// stream. Larger streams grow while decoding.
const zstdPreallocLimit = 64 << 20

// maxRawLength is the largest raw length an encoded stream of the given
// size can legitimately claim. zstd frames have no useful ratio bound
// (a run of zeros compresses by orders of magnitude), so they are
// checked against the frame header and the decoded length instead.
func maxRawLength(tag StreamTag, encodedLength uint64) uint64 {
	switch tag {
	case TagNone:
		return encodedLength
	case TagLZ4:
		return (encodedLength + 1) * lz4MaxExpansion
	default:
		return math.MaxUint64
	}
}

// compressStream encodes data with the preferred tag, falling back to
// TagNone when compression does not shrink it.
func compressStream(data []byte, preferred StreamTag) ([]byte, StreamTag, error) {
	var (
		encoded []byte
		err     error
	)
	switch preferred {
	case TagNone:
		return data, TagNone, nil
	case TagLZ4:
		encoded, err = compressLZ4(data)
	case TagZstd:
		encoded, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported stream tag %d", preferred)
	}
	if errors.Is(err, errIncompressible) {
		return data, TagNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return encoded, preferred, nil
}

// decompressStream reverses compressStream. The raw length is part of
// the checksummed header, so any disagreement means the patch is
// corrupt.
func decompressStream(encoded []byte, tag StreamTag, rawLength int) ([]byte, error) {
	switch tag {
	case TagNone:
		if len(encoded) != rawLength {
			return nil, fmt.Errorf("raw stream is %d bytes, header says %d", len(encoded), rawLength)
		}
		return encoded, nil
	case TagLZ4:
		return decompressLZ4(encoded, rawLength)
	case TagZstd:
		return decompressZstd(encoded, rawLength)
	default:
		return nil, fmt.Errorf("unsupported stream tag %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawLength int) ([]byte, error) {
	destination := make([]byte, rawLength)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawLength {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawLength)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, rawLength int) ([]byte, error) {
	var frame zstd.Header
	if err := frame.Decode(compressed); err != nil {
		return nil, fmt.Errorf("zstd frame header: %w", err)
	}
	if frame.HasFCS && frame.FrameContentSize > uint64(rawLength) {
		return nil, fmt.Errorf("zstd frame holds %d bytes, expected %d", frame.FrameContentSize, rawLength)
	}
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, min(rawLength, zstdPreallocLimit)))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != rawLength {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawLength)
	}
	return result, nil
}
