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

package scan

import (
	"bufio"
	"fmt"
	"io"

	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/varint"
)

// Write serializes t as length-prefixed varint records: per kind, the
// interval count, then for each interval (min_id, max_id, blob_offset,
// blob_length, element_count) as varints, signed fields zigzag-folded into
// the unsigned wire shape varint.Encode expects.
func (t *Table) Write(w io.Writer) error {
	buf := make([]byte, binaryMaxVarintLen)

	for kind := Node; kind <= Relation; kind++ {
		ivs := t.intervals[kind]

		if err := writeUvarint(w, buf, uint64(len(ivs))); err != nil {
			return err
		}

		for _, iv := range ivs {
			fields := []uint64{
				foldInt64(iv.MinID),
				foldInt64(iv.MaxID),
				foldInt64(iv.Loc.Offset),
				foldInt64(iv.Loc.Length),
				foldInt64(iv.Count),
			}

			for _, f := range fields {
				if err := writeUvarint(w, buf, f); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Read deserializes a Table written by Write.
func Read(r io.Reader) (*Table, error) {
	t := New()

	br := bufio.NewReader(r)

	for kind := Node; kind <= Relation; kind++ {
		count, err := readUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("scan: reading interval count: %w", err)
		}

		for i := uint64(0); i < count; i++ {
			var fields [5]uint64

			for j := range fields {
				v, err := readUvarint(br)
				if err != nil {
					return nil, fmt.Errorf("scan: reading interval field: %w", err)
				}

				fields[j] = v
			}

			t.Add(kind, Interval{
				MinID: unfoldInt64(fields[0]),
				MaxID: unfoldInt64(fields[1]),
				Loc: decoder.BlobLoc{
					Offset: unfoldInt64(fields[2]),
					Length: unfoldInt64(fields[3]),
				},
				Count: unfoldInt64(fields[4]),
			})
		}
	}

	t.Finalize()

	return t, nil
}

const binaryMaxVarintLen = 10

func writeUvarint(w io.Writer, buf []byte, v uint64) error {
	n := varint.Encode(v, buf)
	_, err := w.Write(buf[:n])

	return err
}

func readUvarint(br io.ByteReader) (uint64, error) {
	var (
		x uint64
		s uint
	)

	for i := 0; i < binaryMaxVarintLen; i++ {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		if b < 0x80 {
			return x | uint64(b)<<s, nil
		}

		x |= uint64(b&0x7f) << s
		s += 7
	}

	return 0, fmt.Errorf("scan: varint too long")
}

func foldInt64(v int64) uint64   { return uint64(v<<1) ^ uint64(v>>63) }
func unfoldInt64(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }
