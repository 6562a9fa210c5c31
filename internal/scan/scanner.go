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
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/osmpb"
)

// ErrCorruptBlob is wrapped with the offending blob's offset when a blob
// fails to decode during scan.
type ErrCorruptBlob struct {
	Offset int64
	Err    error
}

func (e *ErrCorruptBlob) Error() string {
	return fmt.Sprintf("corrupt blob at offset %d: %v", e.Offset, e.Err)
}

func (e *ErrCorruptBlob) Unwrap() error { return e.Err }

// Scan walks the blob headers read from headers in a single producer goroutine and
// fans the (offset, length) pairs out to nworkers consumer goroutines, each
// of which decodes just enough of the blob to learn its element kind and
// id range. Per-worker tables are merged into one on return.
func Scan(ctx context.Context, ra io.ReaderAt, headers io.ReadSeeker, nworkers int) (*Table, error) {
	if nworkers < 1 {
		nworkers = 1
	}

	type work struct {
		loc decoder.BlobLoc
	}

	workCh := make(chan work)

	guard := newMergeGuard()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(workCh)

		return decoder.WalkBlobHeaders(headers, func(loc decoder.BlobLoc, header *osmpb.BlobHeader) error {
			if header.Type != "OSMData" {
				// the leading OSMHeader blob carries no elements.
				return nil
			}

			select {
			case workCh <- work{loc: loc}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	for i := 0; i < nworkers; i++ {
		g.Go(func() error {
			local := New()
			buf := core.NewPooledBuffer()
			defer buf.Close()

			for w := range workCh {
				blob, err := decoder.ReadBlobAt(ra, w.loc)
				if err != nil {
					return &ErrCorruptBlob{Offset: w.loc.Offset, Err: err}
				}

				body, err := decoder.Unpack(buf, blob)
				if err != nil {
					return &ErrCorruptBlob{Offset: w.loc.Offset, Err: err}
				}

				if err := indexBlock(local, w.loc, body); err != nil {
					return &ErrCorruptBlob{Offset: w.loc.Offset, Err: err}
				}

				buf.Reset()
			}

			guard.merge(local)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	guard.tbl.Finalize()

	return guard.tbl, nil
}

// indexBlock decodes just the id-bearing fields of body's PrimitiveBlock
// and records one interval per element kind present in each primitive group.
func indexBlock(t *Table, loc decoder.BlobLoc, body []byte) error {
	blk, err := osmpb.UnmarshalPrimitiveBlock(body)
	if err != nil {
		return fmt.Errorf("unable to unmarshal primitive block: %w", err)
	}

	for _, pg := range blk.PrimitiveGroup {
		if iv, ok := nodeInterval(pg, loc); ok {
			t.Add(Node, iv)
		}

		if iv, ok := denseNodeInterval(pg, loc); ok {
			t.Add(Node, iv)
		}

		if iv, ok := wayInterval(pg, loc); ok {
			t.Add(Way, iv)
		}

		if iv, ok := relationInterval(pg, loc); ok {
			t.Add(Relation, iv)
		}
	}

	return nil
}

func nodeInterval(pg *osmpb.PrimitiveGroup, loc decoder.BlobLoc) (Interval, bool) {
	if len(pg.Nodes) == 0 {
		return Interval{}, false
	}

	minID, maxID := pg.Nodes[0].ID, pg.Nodes[0].ID

	for _, n := range pg.Nodes {
		minID, maxID = minMax(minID, maxID, n.ID)
	}

	return Interval{MinID: minID, MaxID: maxID, Loc: loc, Count: int64(len(pg.Nodes))}, true
}

func denseNodeInterval(pg *osmpb.PrimitiveGroup, loc decoder.BlobLoc) (Interval, bool) {
	if pg.Dense == nil || len(pg.Dense.ID) == 0 {
		return Interval{}, false
	}

	var id, minID, maxID int64

	for i, delta := range pg.Dense.ID {
		id += delta
		if i == 0 {
			minID, maxID = id, id
		} else {
			minID, maxID = minMax(minID, maxID, id)
		}
	}

	return Interval{MinID: minID, MaxID: maxID, Loc: loc, Count: int64(len(pg.Dense.ID))}, true
}

func wayInterval(pg *osmpb.PrimitiveGroup, loc decoder.BlobLoc) (Interval, bool) {
	if len(pg.Ways) == 0 {
		return Interval{}, false
	}

	minID, maxID := pg.Ways[0].ID, pg.Ways[0].ID

	for _, w := range pg.Ways {
		minID, maxID = minMax(minID, maxID, w.ID)
	}

	return Interval{MinID: minID, MaxID: maxID, Loc: loc, Count: int64(len(pg.Ways))}, true
}

func relationInterval(pg *osmpb.PrimitiveGroup, loc decoder.BlobLoc) (Interval, bool) {
	if len(pg.Relations) == 0 {
		return Interval{}, false
	}

	minID, maxID := pg.Relations[0].ID, pg.Relations[0].ID

	for _, r := range pg.Relations {
		minID, maxID = minMax(minID, maxID, r.ID)
	}

	return Interval{MinID: minID, MaxID: maxID, Loc: loc, Count: int64(len(pg.Relations))}, true
}

func minMax(curMin, curMax, v int64) (int64, int64) {
	if v < curMin {
		curMin = v
	}

	if v > curMax {
		curMax = v
	}

	return curMin, curMax
}
