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

// Package varint implements the length-prefixed unsigned integer and
// fixed-width float codec used by the scan-table persistence format and the
// reference feature encoder. The varint shape itself (7-bit groups, high bit
// continuation) is exactly encoding/binary's Uvarint/PutUvarint, so this
// package is a thin, named wrapper rather than a reimplementation.
package varint

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTruncatedInput is returned when a buffer ends before a varint or fixed
// float value is fully present.
var ErrTruncatedInput = errors.New("varint: truncated input")

// ErrOverflow is returned when a varint encodes a value wider than 64 bits.
var ErrOverflow = errors.New("varint: overflow")

// Length reports the number of bytes Encode would write for u.
func Length(u uint64) int {
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}

	return n
}

// Encode writes u to buf and returns the number of bytes written.
func Encode(u uint64, buf []byte) int {
	return binary.PutUvarint(buf, u)
}

// Decode reads a varint from the front of buf, returning the decoded value
// and the number of bytes consumed.
func Decode(buf []byte) (u uint64, n int, err error) {
	u, n = binary.Uvarint(buf)

	switch {
	case n == 0:
		return 0, 0, ErrTruncatedInput
	case n < 0:
		return 0, 0, ErrOverflow
	default:
		return u, n, nil
	}
}

// EncodeFloat32BE writes the IEEE-754 big-endian encoding of f into the
// first four bytes of buf and returns 4.
func EncodeFloat32BE(f float32, buf []byte) int {
	binary.BigEndian.PutUint32(buf, math.Float32bits(f))

	return 4
}

// DecodeFloat32BE reads a big-endian IEEE-754 float from the front of buf.
func DecodeFloat32BE(buf []byte) (float32, int, error) {
	if len(buf) < 4 {
		return 0, 0, ErrTruncatedInput
	}

	return math.Float32frombits(binary.BigEndian.Uint32(buf)), 4, nil
}
