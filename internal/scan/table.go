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

// Package scan indexes a PBF file's blobs by element kind and id range,
// so that (kind, id) lookups during denormalization can target only the
// blobs that might contain the wanted element instead of re-reading the
// whole file.
package scan

import (
	"sort"
	"sync"

	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/model"
)

// Kind is the element kind a blob's PrimitiveGroup is homogeneous over.
type Kind int

const (
	Node Kind = iota
	Way
	Relation
)

// Interval records that ids in [MinID, MaxID] might be found in the blob
// located at Loc, which holds Count elements of one kind.
type Interval struct {
	MinID int64
	MaxID int64
	Loc   decoder.BlobLoc
	Count int64
}

// Table is an interval map: kind -> sorted-by-MaxID list of Interval. A
// lookup bounds its search to intervals whose MaxID is at least the wanted
// id, then linearly scans forward for containment, mirroring the flat
// blob-offset index real-world OSM-PBF tooling builds for this exact
// purpose; it is read-only once built, so lookups need no locking.
type Table struct {
	intervals [3][]Interval
}

// New returns an empty Table, ready for Add calls from a single goroutine,
// or for Merge from several per-worker Tables.
func New() *Table {
	return &Table{}
}

// Add records one interval for kind. It does not maintain sort order;
// call Finalize once every interval has been added.
func (t *Table) Add(kind Kind, iv Interval) {
	t.intervals[kind] = append(t.intervals[kind], iv)
}

// Finalize sorts each kind's intervals by MaxID so Lookup can binary
// search. Must be called before Lookup; safe to call multiple times.
func (t *Table) Finalize() {
	for k := range t.intervals {
		ivs := t.intervals[k]
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].MaxID < ivs[j].MaxID })
	}
}

// Merge folds src's intervals into t and returns t, for reducing per-worker
// tables built during a parallel scan into one.
func (t *Table) Merge(src *Table) *Table {
	for k := range src.intervals {
		t.intervals[k] = append(t.intervals[k], src.intervals[k]...)
	}

	return t
}

// Lookup returns every interval of kind whose [MinID, MaxID] range
// contains id. Multiple blobs may legitimately cover the same id; callers
// must verify the decoded element's id after reading.
func (t *Table) Lookup(kind Kind, id int64) []Interval {
	ivs := t.intervals[kind]

	start := sort.Search(len(ivs), func(i int) bool { return ivs[i].MaxID >= id })

	var out []Interval

	for i := start; i < len(ivs); i++ {
		if ivs[i].MinID <= id && id <= ivs[i].MaxID {
			out = append(out, ivs[i])
		}
	}

	return out
}

// Locations returns every distinct blob location of kind, sorted by
// offset, used for the element producers' windowed offset feeds. Counts is
// the element count recorded for each returned location, parallel to the
// returned slice.
func (t *Table) Locations(kind Kind) (locs []decoder.BlobLoc, counts []int64) {
	ivs := append([]Interval(nil), t.intervals[kind]...)

	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Loc.Offset < ivs[j].Loc.Offset })

	locs = make([]decoder.BlobLoc, 0, len(ivs))
	counts = make([]int64, 0, len(ivs))

	for _, iv := range ivs {
		if n := len(locs); n > 0 && locs[n-1] == iv.Loc {
			counts[n-1] += iv.Count

			continue
		}

		locs = append(locs, iv.Loc)
		counts = append(counts, iv.Count)
	}

	return locs, counts
}

// LocationsForIDs returns the deduplicated set of blob locations of kind
// that might contain any of ids, the key optimization behind targeted
// denormalization re-reads.
func (t *Table) LocationsForIDs(kind Kind, ids []model.ID) []decoder.BlobLoc {
	seen := make(map[decoder.BlobLoc]struct{})

	var locs []decoder.BlobLoc

	for _, id := range ids {
		for _, iv := range t.Lookup(kind, int64(id)) {
			if _, ok := seen[iv.Loc]; ok {
				continue
			}

			seen[iv.Loc] = struct{}{}

			locs = append(locs, iv.Loc)
		}
	}

	return locs
}

// mergeGuard serializes Merge calls from concurrent scan workers feeding a
// shared accumulator table.
type mergeGuard struct {
	mu  sync.Mutex
	tbl *Table
}

func newMergeGuard() *mergeGuard {
	return &mergeGuard{tbl: New()}
}

func (g *mergeGuard) merge(src *Table) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tbl.Merge(src)
}
