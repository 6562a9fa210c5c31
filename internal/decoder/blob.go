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

package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/osmpb"
)

// BlobLoc locates a Blob's body within a PBF file: the byte offset
// immediately following its BlobHeader, and the body's length.
type BlobLoc struct {
	Offset int64
	Length int64
}

// WalkBlobHeaders reads consecutive (length-prefixed header, body) pairs
// from r starting at its current position, calling fn with each blob's
// location and decoded header, then skipping over the body without reading
// it. This is the sequential, header-only walk the parallel scanner's
// producer performs; it never rewinds and never reads blob bodies.
func WalkBlobHeaders(r io.ReadSeeker, fn func(loc BlobLoc, header *osmpb.BlobHeader) error) error {
	var sizeBuf [4]byte

	for {
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("error reading blob header size: %w", err)
		}

		headerLen := binary.BigEndian.Uint32(sizeBuf[:])

		buf := core.NewPooledBuffer()

		if _, err := io.CopyN(buf, r, int64(headerLen)); err != nil {
			buf.Close()

			return fmt.Errorf("error reading blob header: %w", err)
		}

		header, err := osmpb.UnmarshalBlobHeader(buf.Bytes())

		buf.Close()

		if err != nil {
			return fmt.Errorf("error unmarshalling blob header: %w", err)
		}

		bodyOffset, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("error locating blob body: %w", err)
		}

		loc := BlobLoc{Offset: bodyOffset, Length: int64(header.DataSize)}

		if err := fn(loc, header); err != nil {
			return err
		}

		if _, err := r.Seek(loc.Length, io.SeekCurrent); err != nil {
			return fmt.Errorf("error skipping blob body: %w", err)
		}
	}
}

// ReadBlobAt decodes the Blob located at loc, reading only loc.Length bytes
// from ra. Safe to call concurrently across workers sharing one *os.File,
// since io.ReaderAt (and os.File's implementation of it) does not mutate
// shared read-position state.
func ReadBlobAt(ra io.ReaderAt, loc BlobLoc) (*osmpb.Blob, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	sr := io.NewSectionReader(ra, loc.Offset, loc.Length)

	if _, err := buf.ReadFrom(sr); err != nil {
		return nil, fmt.Errorf("error reading blob body: %w", err)
	}

	blob, err := osmpb.UnmarshalBlob(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling blob: %w", err)
	}

	return blob, nil
}

// ReadFirstHeaderBlob reads the leading (offset 0) header blob's body,
// unpacked, without consuming anything past it. r must be positioned at the
// start of the file.
func ReadFirstHeaderBlob(r io.ReadSeeker) ([]byte, error) {
	var body []byte

	var found bool

	err := WalkBlobHeaders(r, func(loc BlobLoc, header *osmpb.BlobHeader) error {
		if found {
			return errStopWalk
		}

		found = true

		blob, err := ReadBlobAt(readerAtFromSeeker{r}, loc)
		if err != nil {
			return err
		}

		buf := core.NewPooledBuffer()
		defer buf.Close()

		unpacked, err := Unpack(buf, blob)
		if err != nil {
			return err
		}

		body = append([]byte(nil), unpacked...)

		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("osm pbf file is empty")
	}

	return body, nil
}

var errStopWalk = errors.New("decoder: stop walk")

// readerAtFromSeeker adapts an io.ReadSeeker positioned arbitrarily into an
// io.ReaderAt for the narrow case of reading the very first blob, where no
// concurrent access is in play.
type readerAtFromSeeker struct {
	rs io.ReadSeeker
}

func (r readerAtFromSeeker) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	return io.ReadFull(r.rs, p)
}
