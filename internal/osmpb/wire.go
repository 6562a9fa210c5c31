// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package osmpb decodes the OSM PBF wire messages (BlobHeader, Blob,
// HeaderBlock, PrimitiveBlock and friends) directly against
// google.golang.org/protobuf/encoding/protowire.
//
// The retrieved reference codebase this package is patterned after decodes
// these same messages through protoc-generated bindings (internal/pb), but
// ships no .proto file or generated code for them. This package plays the
// same role against the low-level wire primitives instead, so every caller
// above it (internal/decoder, internal/scan) sees the same field shapes the
// generated types would have exposed.
package osmpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrTruncated is returned when a message ends in the middle of a field.
var ErrTruncated = errors.New("osmpb: truncated message")

// forEachField walks the top-level fields of a length-delimited message,
// calling fn with the field number, wire type, and the bytes remaining
// after the tag. fn must consume exactly the bytes belonging to that field
// and return what remains.
func forEachField(b []byte, fn func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("osmpb: %w: %w", ErrTruncated, protowire.ParseError(n))
		}

		b = b[n:]

		rest, err := fn(num, typ, b)
		if err != nil {
			return err
		}

		b = rest
	}

	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, []byte, error) {
	if typ != protowire.VarintType {
		return skipMismatch[uint64](typ, b)
	}

	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, nil, fmt.Errorf("osmpb varint: %w: %w", ErrTruncated, protowire.ParseError(n))
	}

	return v, b[n:], nil
}

func consumeFixed32(typ protowire.Type, b []byte) (uint32, []byte, error) {
	if typ != protowire.Fixed32Type {
		return skipMismatch[uint32](typ, b)
	}

	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, nil, fmt.Errorf("osmpb fixed32: %w: %w", ErrTruncated, protowire.ParseError(n))
	}

	return v, b[n:], nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, []byte, error) {
	if typ != protowire.BytesType {
		return skipMismatch[[]byte](typ, b)
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, fmt.Errorf("osmpb bytes: %w: %w", ErrTruncated, protowire.ParseError(n))
	}

	return v, b[n:], nil
}

// skipMismatch skips a field whose wire type doesn't match what the caller
// expected (a tolerant decoder ignores type mismatches on unknown/legacy
// encodings rather than failing the whole message).
func skipMismatch[T any](typ protowire.Type, b []byte) (T, []byte, error) {
	var zero T

	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return zero, nil, fmt.Errorf("osmpb skip: %w: %w", ErrTruncated, protowire.ParseError(n))
	}

	return zero, b[n:], nil
}

func skipField(typ protowire.Type, b []byte) ([]byte, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return nil, fmt.Errorf("osmpb skip: %w: %w", ErrTruncated, protowire.ParseError(n))
	}

	return b[n:], nil
}

// consumePackedVarint accepts either the packed encoding (a single
// length-delimited field holding concatenated varints) or the legacy
// unpacked encoding (one varint-typed field per value), appending the
// decoded value(s) to dst.
func consumePackedVarint(typ protowire.Type, b []byte, dst []uint64) ([]uint64, []byte, error) {
	switch typ {
	case protowire.BytesType:
		packed, rest, err := consumeBytes(typ, b)
		if err != nil {
			return nil, nil, err
		}

		for len(packed) > 0 {
			v, n := protowire.ConsumeVarint(packed)
			if n < 0 {
				return nil, nil, fmt.Errorf("osmpb packed varint: %w: %w", ErrTruncated, protowire.ParseError(n))
			}

			dst = append(dst, v)
			packed = packed[n:]
		}

		return dst, rest, nil
	case protowire.VarintType:
		v, rest, err := consumeVarint(typ, b)
		if err != nil {
			return nil, nil, err
		}

		return append(dst, v), rest, nil
	default:
		_, rest, err := skipMismatch[uint64](typ, b)

		return dst, rest, err
	}
}

func zigzag32(v uint64) int32 {
	uv := uint32(v)

	return int32(uv>>1) ^ -int32(uv&1)
}

func zigzag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
