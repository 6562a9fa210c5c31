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

package varint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maguro/osmingest/internal/varint"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1}

	for _, v := range values {
		buf := make([]byte, varint.Length(v))
		n := varint.Encode(v, buf)
		assert.Equal(t, len(buf), n)

		got, read, err := varint.Decode(buf)
		assert.NoError(t, err)
		assert.Equal(t, n, read)
		assert.Equal(t, v, got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := varint.Decode(nil)
	assert.ErrorIs(t, err, varint.ErrTruncatedInput)
}

func TestFloat32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	varint.EncodeFloat32BE(13.125, buf)

	got, n, err := varint.DecodeFloat32BE(buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, float32(13.125), got)
}

func TestFloat32Truncated(t *testing.T) {
	_, _, err := varint.DecodeFloat32BE([]byte{1, 2})
	assert.ErrorIs(t, err, varint.ErrTruncatedInput)
}
