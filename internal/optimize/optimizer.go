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

package optimize

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/xid"
)

// Options tunes the grid tiling and per-cell bucket splitting.
type Options struct {
	// MaxPerBucket is divide's leaf size target.
	MaxPerBucket int

	// NWorkers is the number of concurrent cell workers.
	NWorkers int
}

// DefaultOptions mirrors the teacher's NCpu-sized worker pool convention.
func DefaultOptions(ncpu int) Options {
	if ncpu < 1 {
		ncpu = 1
	}

	return Options{MaxPerBucket: 10_000, NWorkers: ncpu}
}

// Optimize tiles in's union bounding box into xdivs*ydivs cells, has
// NWorkers rebuild each cell's rows into locality-friendly leaf trees in
// out, and syncs out once every cell has been processed. It leaves in
// untouched.
//
// The output store ends up semantically equivalent to the input (same set
// of (point, value) pairs) with better spatial locality, never a single
// combined root: each leaf bucket's rows become their own out.BuildTree
// call, since the reference store contract has no operation to nest
// existing roots under a new parent.
func Optimize(ctx context.Context, in, out store.Store, xdivs, ydivs int, opts Options) error {
	if opts.MaxPerBucket < 1 {
		opts.MaxPerBucket = 10_000
	}

	if opts.NWorkers < 1 {
		opts.NWorkers = 1
	}

	roots, err := in.Roots(ctx)
	if err != nil {
		return fmt.Errorf("optimize: roots: %w", err)
	}

	if len(roots) == 0 {
		return nil
	}

	bbox := roots[0].Bound
	for _, r := range roots[1:] {
		bbox = unionPoint(bbox, r.Bound)
	}

	cells := tile(bbox, xdivs, ydivs)

	cellCh := make(chan store.Point, len(cells))
	for _, c := range cells {
		cellCh <- c
	}
	close(cellCh)

	sm := newSkipMap()

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < opts.NWorkers; i++ {
		g.Go(func() error {
			for cell := range cellCh {
				if err := processCell(gctx, in, out, cells, sm, cell, opts.MaxPerBucket); err != nil {
					return err
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	if err := out.Sync(ctx); err != nil {
		return fmt.Errorf("optimize: sync: %w", err)
	}

	return nil
}

func processCell(ctx context.Context, in, out store.Store, cells []store.Point, sm *skipMap, cell store.Point, maxPerBucket int) error {
	rows, err := in.Query(ctx, cell)
	if err != nil {
		return fmt.Errorf("query cell: %w", err)
	}

	kept := make([]store.Row, 0, len(rows))

	for _, r := range rows {
		n := countOverlaps(cells, r.Point)
		if n <= 1 || sm.claim(r.ID, n) {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		return nil
	}

	for _, b := range divide(maxPerBucket, bucket{bbox: cell, rows: kept}) {
		if _, err := out.BuildTree(ctx, b.rows); err != nil {
			return fmt.Errorf("build tree: %w", err)
		}
	}

	return nil
}

// tile splits bbox into an xdivs x ydivs grid.
func tile(bbox store.Point, xdivs, ydivs int) []store.Point {
	if xdivs < 1 {
		xdivs = 1
	}

	if ydivs < 1 {
		ydivs = 1
	}

	spanX := bbox.MaxX - bbox.MinX
	spanY := bbox.MaxY - bbox.MinY

	cells := make([]store.Point, 0, xdivs*ydivs)

	for iy := 0; iy < ydivs; iy++ {
		for ix := 0; ix < xdivs; ix++ {
			cells = append(cells, store.Point{
				MinX: float64(ix)/float64(xdivs)*spanX + bbox.MinX,
				MaxX: float64(ix+1)/float64(xdivs)*spanX + bbox.MinX,
				MinY: float64(iy)/float64(ydivs)*spanY + bbox.MinY,
				MaxY: float64(iy+1)/float64(ydivs)*spanY + bbox.MinY,
			})
		}
	}

	return cells
}

// countOverlaps reports how many cells in the full grid overlap p, so the
// caller can tell whether p is a cross-cell duplicate needing skipMap
// arbitration.
func countOverlaps(cells []store.Point, p store.Point) int {
	n := 0

	for _, c := range cells {
		if c.Overlaps(p) {
			n++
		}
	}

	return n
}

func unionPoint(a, b store.Point) store.Point {
	return store.Point{
		MinX: core.Min(a.MinX, b.MinX),
		MaxX: core.Max(a.MaxX, b.MaxX),
		MinY: core.Min(a.MinY, b.MinY),
		MaxY: core.Max(a.MaxY, b.MaxY),
	}
}

// skipMap arbitrates ownership of rows whose bounding interval spans more
// than one cell: the first cell to see the row claims it, every later
// cell decrements the remaining count and drops its copy.
type skipMap struct {
	mu        sync.Mutex
	remaining map[xid.ID]int
}

func newSkipMap() *skipMap {
	return &skipMap{remaining: make(map[xid.ID]int)}
}

// claim reports whether the caller owns id, given it overlaps n cells
// total.
func (s *skipMap) claim(id xid.ID, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, ok := s.remaining[id]
	if !ok {
		s.remaining[id] = n - 1

		return true
	}

	remaining--
	if remaining <= 0 {
		delete(s.remaining, id)
	} else {
		s.remaining[id] = remaining
	}

	return false
}
