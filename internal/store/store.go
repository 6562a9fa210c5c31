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

// Package store defines the spatial key-value store contract the writer
// and optimizer drive. The store's own tree layout is an external
// collaborator per this repository's scope; package memstore supplies a
// reference implementation so the pipeline and its tests can run without
// a production store plugged in.
package store

import (
	"context"

	"github.com/maguro/osmingest/internal/xid"
)

// Point is either a scalar (node) position or an interval (way/relation)
// bounding box.
type Point struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Scalar builds a Point with zero-width bounds, for node records.
func Scalar(x, y float64) Point {
	return Point{MinX: x, MaxX: x, MinY: y, MaxY: y}
}

// Interval builds a Point from a bounding interval, for way/relation
// records.
func Interval(minX, maxX, minY, maxY float64) Point {
	return Point{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
}

// Overlaps reports whether p and o share any area (or point, for
// zero-width bounds).
func (p Point) Overlaps(o Point) bool {
	return p.MinX <= o.MaxX && o.MinX <= p.MaxX && p.MinY <= o.MaxY && o.MinY <= p.MaxY
}

// Row is a tagged Insert or Delete command sent to the store.
type Row struct {
	Delete bool
	Point  Point
	ID     xid.ID
	Value  []byte
}

// Root names one of the store's top-level trees, for the optimizer's
// union-bbox and rebuild pass.
type Root struct {
	ID    string
	Bound Point
}

// Store is the external collaborator the writer and optimizer drive. Its
// internal tree layout is never touched directly; every mutation and read
// goes through this interface.
type Store interface {
	// Batch atomically appends rows.
	Batch(ctx context.Context, rows []Row) error

	// Sync establishes a durability barrier: every row Batched before this
	// call returns is durable once Sync returns.
	Sync(ctx context.Context) error

	// Query returns every (point, value) pair whose point overlaps bbox.
	Query(ctx context.Context, bbox Point) ([]Row, error)

	// Delete removes the row at point with the given id, if present.
	Delete(ctx context.Context, point Point, id xid.ID) error

	// Roots returns the store's top-level trees and their bounds, used by
	// the optimizer to compute a union bounding box.
	Roots(ctx context.Context) ([]Root, error)

	// BuildTree accepts a slice of rows and returns a new root reference
	// covering them.
	BuildTree(ctx context.Context, rows []Row) (Root, error)
}
