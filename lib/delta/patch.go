// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delta

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/shipwright/lib/binhash"
)

const (
	magic         = "SWDELTA1"
	formatVersion = 1
	streamCount   = 3

	// Byte offsets of the fixed header fields.
	offsetFormat     = len(magic)
	offsetTags       = offsetFormat + 1
	offsetBaseSize   = offsetTags + streamCount + 1
	offsetTargetSize = offsetBaseSize + 8
	offsetBaseHash   = offsetTargetSize + 8
	offsetTargetHash = offsetBaseHash + 32
	offsetStreams    = offsetTargetHash + 32
	offsetChecksum   = offsetStreams + streamCount*16

	// HeaderSize is the size of the fixed patch header, checksum
	// included. Stream data starts at this offset.
	HeaderSize = offsetChecksum + 32
)

var streamNames = [streamCount]string{"control", "diff", "extra"}

// checksumKey is the BLAKE3 key for patch checksums: the ASCII domain
// name, zero-padded to 32 bytes. Changing it invalidates every
// published patch.
var checksumKey = [32]byte{
	's', 'h', 'i', 'p', 'w', 'r', 'i', 'g', 'h', 't', '.', 'd', 'e', 'l', 't', 'a',
	'.', 'p', 'a', 't', 'c', 'h', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// StreamInfo describes one of the three patch streams.
type StreamInfo struct {
	Tag           StreamTag
	RawLength     uint64
	EncodedLength uint64
}

// Header is the decoded fixed header of a patch.
type Header struct {
	Format     uint8
	BaseSize   uint64
	TargetSize uint64
	BaseHash   binhash.Digest
	TargetHash binhash.Digest

	// Streams are in control, diff, extra order.
	Streams  [streamCount]StreamInfo
	Checksum [32]byte
}

// PatchSize returns the total patch size the header describes.
func (h Header) PatchSize() uint64 {
	size := uint64(HeaderSize)
	for _, stream := range h.Streams {
		size += stream.EncodedLength
	}
	return size
}

// marshal assembles a complete patch from the header fields and the
// encoded streams, computing the checksum.
func (h Header) marshal(streams [streamCount][]byte) []byte {
	patch := make([]byte, HeaderSize, h.PatchSize())
	copy(patch, magic)
	patch[offsetFormat] = h.Format
	for i, stream := range h.Streams {
		patch[offsetTags+i] = byte(stream.Tag)
	}
	binary.LittleEndian.PutUint64(patch[offsetBaseSize:], h.BaseSize)
	binary.LittleEndian.PutUint64(patch[offsetTargetSize:], h.TargetSize)
	copy(patch[offsetBaseHash:], h.BaseHash[:])
	copy(patch[offsetTargetHash:], h.TargetHash[:])
	for i, stream := range h.Streams {
		binary.LittleEndian.PutUint64(patch[offsetStreams+i*16:], stream.RawLength)
		binary.LittleEndian.PutUint64(patch[offsetStreams+i*16+8:], stream.EncodedLength)
	}
	for _, stream := range streams {
		patch = append(patch, stream...)
	}
	checksum := patchChecksum(patch)
	copy(patch[offsetChecksum:], checksum[:])
	return patch
}

// patchChecksum hashes everything in patch except the checksum field.
func patchChecksum(patch []byte) [32]byte {
	hasher, err := blake3.NewKeyed(checksumKey[:])
	if err != nil {
		panic("delta: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(patch[:offsetChecksum])
	hasher.Write(patch[HeaderSize:])
	var checksum [32]byte
	copy(checksum[:], hasher.Sum(nil))
	return checksum
}

// Inspect decodes and validates a patch header without applying it.
// The checksum and stream lengths are verified, so a nil error means
// the patch is intact; whether it fits a particular base is only known
// once it is applied.
func Inspect(patch []byte) (Header, error) {
	header, _, err := parsePatch(patch)
	return header, err
}

// parsePatch validates the patch's structure and checksum and returns
// the header and the still-encoded streams.
func parsePatch(patch []byte) (Header, [streamCount][]byte, error) {
	var (
		header  Header
		streams [streamCount][]byte
	)
	if len(patch) < HeaderSize {
		return header, streams, corrupt("%d bytes is shorter than the %d-byte header", len(patch), HeaderSize)
	}
	if !bytes.Equal(patch[:len(magic)], []byte(magic)) {
		return header, streams, corrupt("bad magic %q", patch[:len(magic)])
	}

	copy(header.Checksum[:], patch[offsetChecksum:HeaderSize])
	if patchChecksum(patch) != header.Checksum {
		return header, streams, corrupt("checksum mismatch")
	}

	header.Format = patch[offsetFormat]
	if header.Format != formatVersion {
		return header, streams, corrupt("unsupported format version %d", header.Format)
	}
	if patch[offsetTags+streamCount] != 0 {
		return header, streams, corrupt("reserved header byte is %d", patch[offsetTags+streamCount])
	}
	header.BaseSize = binary.LittleEndian.Uint64(patch[offsetBaseSize:])
	header.TargetSize = binary.LittleEndian.Uint64(patch[offsetTargetSize:])
	copy(header.BaseHash[:], patch[offsetBaseHash:])
	copy(header.TargetHash[:], patch[offsetTargetHash:])

	remaining := uint64(len(patch) - HeaderSize)
	cursor := HeaderSize
	for i := range header.Streams {
		stream := StreamInfo{
			Tag:           StreamTag(patch[offsetTags+i]),
			RawLength:     binary.LittleEndian.Uint64(patch[offsetStreams+i*16:]),
			EncodedLength: binary.LittleEndian.Uint64(patch[offsetStreams+i*16+8:]),
		}
		switch stream.Tag {
		case TagNone, TagLZ4, TagZstd:
		default:
			return header, streams, corrupt("%s stream has unknown compression tag %d", streamNames[i], stream.Tag)
		}
		if limit := maxRawLength(stream.Tag, stream.EncodedLength); stream.RawLength > limit {
			return header, streams, corrupt("%s stream claims %d raw bytes from %d encoded",
				streamNames[i], stream.RawLength, stream.EncodedLength)
		}
		if stream.EncodedLength > remaining {
			return header, streams, corrupt("%s stream claims %d bytes, only %d remain",
				streamNames[i], stream.EncodedLength, remaining)
		}
		streams[i] = patch[cursor : cursor+int(stream.EncodedLength)]
		cursor += int(stream.EncodedLength)
		remaining -= stream.EncodedLength
		header.Streams[i] = stream
	}
	if remaining != 0 {
		return header, streams, corrupt("%d trailing bytes after the extra stream", remaining)
	}

	// Every target byte comes from exactly one of the diff and extra
	// streams.
	diffLength, extraLength := header.Streams[1].RawLength, header.Streams[2].RawLength
	if diffLength > header.TargetSize || extraLength != header.TargetSize-diffLength {
		return header, streams, corrupt("diff (%d) and extra (%d) streams do not add up to the %d-byte target",
			diffLength, extraLength, header.TargetSize)
	}
	// Diff emits at most one control step per target byte, plus one.
	if header.Streams[0].RawLength/maxControlStep > header.TargetSize {
		return header, streams, corrupt("control stream of %d bytes is too long for a %d-byte target",
			header.Streams[0].RawLength, header.TargetSize)
	}
	return header, streams, nil
}
