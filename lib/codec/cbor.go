// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Limits on a single decoded data item. A manifest record is a flat map
// of a dozen fields; anything far larger is not a feed.
const (
	maxNestedLevels = 8
	maxMapPairs     = 256
	maxArrayItems   = 1 << 16
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	// Versions and digests implement encoding.TextMarshaler and must
	// appear as text strings, matching their JSON form.
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR encoder: %v", err))
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  maxNestedLevels,
		MaxMapPairs:      maxMapPairs,
		MaxArrayElements: maxArrayItems,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR decoder: %v", err))
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes one data item into v. Maps with duplicate keys are
// rejected.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder writes a CBOR sequence, one data item per Encode call.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence. Decode returns io.EOF after the last
// item.
type Decoder = cbor.Decoder

func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// DiagnoseFirst returns the diagnostic notation (RFC 8949 §8) of the
// first data item in data and the unconsumed remainder.
func DiagnoseFirst(data []byte) (string, []byte, error) {
	return cbor.DiagnoseFirst(data)
}

// DiagnoseSequence renders every item of a CBOR sequence in diagnostic
// notation, one item per line.
func DiagnoseSequence(data []byte) (string, error) {
	var builder strings.Builder
	for item := 0; len(data) > 0; item++ {
		diagnostic, rest, err := cbor.DiagnoseFirst(data)
		if err != nil {
			return "", fmt.Errorf("item %d: %w", item, err)
		}
		builder.WriteString(diagnostic)
		builder.WriteByte('\n')
		data = rest
	}
	return builder.String(), nil
}
