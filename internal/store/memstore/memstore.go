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

// Package memstore is a reference, in-memory implementation of
// store.Store, so the ingest pipeline and its tests can run end to end
// without a production spatial store plugged in.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/xid"
)

// Store is a mutex-guarded map of rows keyed by XID, queried with a
// linear bbox scan. It makes no attempt at spatial locality; it exists to
// exercise store.Store's contract, not to demonstrate tree layout.
type Store struct {
	mu   sync.Mutex
	rows map[xid.ID]store.Row
	// roots partitions the synced rows into tree references, populated by
	// BuildTree and consulted by Roots; the optimizer treats each as an
	// opaque, independently queryable subtree.
	roots map[string][]xid.ID
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rows:  make(map[xid.ID]store.Row),
		roots: make(map[string][]xid.ID),
	}
}

// Batch applies rows in order: inserts overwrite, deletes remove.
func (s *Store) Batch(_ context.Context, rows []store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r.Delete {
			delete(s.rows, r.ID)

			continue
		}

		s.rows[r.ID] = r
	}

	return nil
}

// Sync is a no-op: Batch already commits synchronously to the in-memory
// map, so there is nothing further to flush.
func (s *Store) Sync(_ context.Context) error {
	return nil
}

// Query returns every row whose point overlaps bbox.
func (s *Store) Query(_ context.Context, bbox store.Point) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Row

	for _, r := range s.rows {
		if r.Point.Overlaps(bbox) {
			out = append(out, r)
		}
	}

	return out, nil
}

// Delete removes the row with id, regardless of point (point is accepted
// for interface symmetry with production stores that index by point).
func (s *Store) Delete(_ context.Context, _ store.Point, id xid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, id)

	return nil
}

// Roots reports one synthetic root per BuildTree call plus an implicit
// root covering any row never assigned to a built tree.
func (s *Store) Roots(_ context.Context) ([]store.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Root, 0, len(s.roots)+1)
	assigned := make(map[xid.ID]bool)

	for id, ids := range s.roots {
		for _, rowID := range ids {
			assigned[rowID] = true
		}

		bound, ok := s.boundOf(ids)
		if !ok {
			continue
		}

		out = append(out, store.Root{ID: id, Bound: bound})
	}

	var loose []xid.ID

	for rowID := range s.rows {
		if !assigned[rowID] {
			loose = append(loose, rowID)
		}
	}

	if bound, ok := s.boundOf(loose); ok {
		out = append(out, store.Root{ID: "implicit", Bound: bound})
	}

	return out, nil
}

// BuildTree records rows under a new root name and returns its bound.
func (s *Store) BuildTree(_ context.Context, rows []store.Row) (store.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]xid.ID, len(rows))

	for i, r := range rows {
		s.rows[r.ID] = r
		ids[i] = r.ID
	}

	name := fmt.Sprintf("root-%d", len(s.roots))
	s.roots[name] = ids

	bound, ok := s.boundOf(ids)
	if !ok {
		return store.Root{ID: name}, nil
	}

	return store.Root{ID: name, Bound: bound}, nil
}

func (s *Store) boundOf(ids []xid.ID) (store.Point, bool) {
	var (
		bound store.Point
		first = true
	)

	for _, id := range ids {
		r, ok := s.rows[id]
		if !ok {
			continue
		}

		if first {
			bound = r.Point
			first = false

			continue
		}

		bound = union(bound, r.Point)
	}

	return bound, !first
}

func union(a, b store.Point) store.Point {
	return store.Point{
		MinX: core.Min(a.MinX, b.MinX),
		MaxX: core.Max(a.MaxX, b.MaxX),
		MinY: core.Min(a.MinY, b.MinY),
		MaxY: core.Max(a.MaxY, b.MaxY),
	}
}
