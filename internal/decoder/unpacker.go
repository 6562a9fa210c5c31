// Copyright 2025 the original author or authors.
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

package decoder

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/osmpb"
)

var ErrUnknownCompressionType = errors.New("unknown blob compression type")

// Unpack uncompresses the blob's body, using buf as scratch space.
//
// This function is not "buried" within the blob-reading path so that
// decompression of different blobs can happen concurrently across workers
// that each own their own buffer.
func Unpack(buf *core.PooledBuffer, blob *osmpb.Blob) ([]byte, error) {
	var factory func() (io.Reader, error)

	switch {
	case blob.Raw != nil:
		return blob.Raw, nil
	case blob.ZlibData != nil:
		factory = func() (io.Reader, error) {
			return zlib.NewReader(bytes.NewReader(blob.ZlibData))
		}
	case blob.LzmaData != nil:
		factory = func() (io.Reader, error) {
			return lzma.NewReader(bytes.NewReader(blob.LzmaData))
		}
	case blob.Lz4Data != nil:
		factory = func() (io.Reader, error) {
			return lz4.NewReader(bytes.NewReader(blob.Lz4Data)), nil
		}
	case blob.ZstdData != nil:
		factory = func() (io.Reader, error) {
			return zstd.NewReader(bytes.NewReader(blob.ZstdData))
		}
	default:
		return nil, ErrUnknownCompressionType
	}

	rawBufferSize := int(blob.RawSize) + bytes.MinRead
	if rawBufferSize > buf.Cap() {
		buf.Grow(rawBufferSize)
	}

	rdr, err := factory()
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}

	if n, err := buf.ReadFrom(rdr); err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	} else if n != int64(blob.RawSize) {
		return nil, fmt.Errorf("raw blob data size %d but expected %d", buf.Len(), blob.RawSize)
	}

	return buf.Bytes(), nil
}
