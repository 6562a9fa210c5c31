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

// Package optimize rebuilds a spatial store's trees for better locality:
// it re-tiles the input's union bounding box into a grid, and within each
// cell recursively quadtree-splits the rows it collects into leaf-sized
// buckets.
package optimize

import (
	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/store"
)

// depthLimit bounds divide's recursion; a bucket that cannot shrink past
// it (every point's span already exceeds the cell) is emitted as-is.
const depthLimit = 30

// bucket is one unit of work passing through divide: the cell it occupies
// and the rows assigned to it.
type bucket struct {
	bbox store.Point
	rows []store.Row
}

// divide breadth-first splits bucket into a 2x2 subgrid until every
// resulting bucket holds at most maxPerBucket rows, a subgrid stops
// shrinking (every remaining row's span is no smaller than its parent
// cell's), or depthLimit is reached.
func divide(maxPerBucket int, b bucket) []bucket {
	if len(b.rows) <= maxPerBucket {
		return []bucket{b}
	}

	var (
		res   []bucket
		queue = []struct {
			depth int
			b     bucket
		}{{0, b}}
	)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.b.rows) == 0 {
			continue
		}

		cells := subgrid(cur.b.bbox)
		subBuckets := make([]bucket, len(cells))

		for i, c := range cells {
			subBuckets[i].bbox = c
		}

		for _, r := range cur.b.rows {
			best := 0
			bestArea := -1.0

			for i, c := range cells {
				area := overlapArea(c, r.Point)
				if area > bestArea {
					bestArea = area
					best = i
				}
			}

			subBuckets[best].rows = append(subBuckets[best].rows, r)
		}

		parentLen := len(cur.b.rows)
		parentSpan := span(cur.b.bbox)

		for _, sb := range subBuckets {
			switch {
			case len(sb.rows) == 0:
				continue
			case len(sb.rows) <= maxPerBucket:
				res = append(res, sb)
			case len(sb.rows) == parentLen:
				// the split made no progress: every row landed in the same
				// cell. Stop once none of them could possibly shrink further,
				// or the depth limit forces a stop regardless.
				if allSpansGE(sb.rows, parentSpan) || cur.depth+1 >= depthLimit {
					res = append(res, sb)
				} else {
					queue = append(queue, struct {
						depth int
						b     bucket
					}{cur.depth + 1, sb})
				}
			case cur.depth+1 >= depthLimit:
				res = append(res, sb)
			default:
				queue = append(queue, struct {
					depth int
					b     bucket
				}{cur.depth + 1, sb})
			}
		}
	}

	return res
}

// subgrid splits bbox into a breadth-first 2x2 grid.
func subgrid(bbox store.Point) [4]store.Point {
	spanX := bbox.MaxX - bbox.MinX
	spanY := bbox.MaxY - bbox.MinY

	var cells [4]store.Point

	i := 0

	for iy := 0; iy < 2; iy++ {
		for ix := 0; ix < 2; ix++ {
			cells[i] = store.Point{
				MinX: float64(ix)/2*spanX + bbox.MinX,
				MaxX: float64(ix+1)/2*spanX + bbox.MinX,
				MinY: float64(iy)/2*spanY + bbox.MinY,
				MaxY: float64(iy+1)/2*spanY + bbox.MinY,
			}
			i++
		}
	}

	return cells
}

// overlapArea returns the overlap between cell and p: binary containment
// (1 or 0) for scalar points, real overlap area for interval bounds.
func overlapArea(cell, p store.Point) float64 {
	if p.MinX == p.MaxX && p.MinY == p.MaxY {
		if cell.MinX <= p.MinX && p.MinX <= cell.MaxX && cell.MinY <= p.MinY && p.MinY <= cell.MaxY {
			return 1.0
		}

		return 0.0
	}

	if cell.MinX > p.MaxX || cell.MaxX < p.MinX {
		return 0.0
	}

	if cell.MinY > p.MaxY || cell.MaxY < p.MinY {
		return 0.0
	}

	x := core.Min(p.MaxX, cell.MaxX) - core.Max(p.MinX, cell.MinX)
	y := core.Min(p.MaxY, cell.MaxY) - core.Max(p.MinY, cell.MinY)

	return x * y
}

type spanXY struct{ x, y float64 }

func span(bbox store.Point) spanXY {
	return spanXY{x: bbox.MaxX - bbox.MinX, y: bbox.MaxY - bbox.MinY}
}

// allSpansGE reports whether every row's own coordinate span is no
// smaller than parent's, meaning further subdivision cannot separate them.
func allSpansGE(rows []store.Row, parent spanXY) bool {
	for _, r := range rows {
		xSpan := r.Point.MaxX - r.Point.MinX
		ySpan := r.Point.MaxY - r.Point.MinY

		if xSpan < parent.x && ySpan < parent.y {
			return false
		}
	}

	return true
}
