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

// Package writer batches rows into the spatial store, coalescing
// insert/update/delete operations that land in the same pending batch
// before anything is flushed, and honoring a configurable durability
// barrier.
package writer

import (
	"context"
	"fmt"
	"sync"

	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/xid"
)

// Op names the operation a caller wants applied to a row.
type Op int

const (
	Insert Op = iota
	Update
	Delete
)

// Options configures a Writer's batching thresholds.
type Options struct {
	// BatchSize is the max number of rows accumulated before a flush.
	BatchSize int

	// SyncInterval is the number of rows written between durability
	// barriers.
	SyncInterval int
}

// DefaultOptions mirrors IngestOptions' writer defaults.
func DefaultOptions() Options {
	return Options{BatchSize: 100_000, SyncInterval: 500_000}
}

type opTag int

const (
	tagInsert opTag = iota
	tagUpdate
	tagDelete
)

type pendingOp struct {
	tag       opTag
	deleteIdx int
	insertIdx int
}

// Writer is not safe for concurrent use by multiple goroutines; the
// orchestrator calls Write directly from its own goroutine as it encodes
// each element, with no channel or separate writer task in between.
type Writer struct {
	mu sync.Mutex

	store store.Store
	opts  Options

	pending       []*store.Row
	ops           map[xid.ID]pendingOp
	rowsSinceSync int
}

// New returns a Writer flushing into s.
func New(s store.Store, opts Options) *Writer {
	if opts.BatchSize < 1 {
		opts.BatchSize = 100_000
	}

	if opts.SyncInterval < 1 {
		opts.SyncInterval = 500_000
	}

	return &Writer{
		store: s,
		opts:  opts,
		ops:   make(map[xid.ID]pendingOp),
	}
}

// Write applies op to the pending batch, coalescing against any op already
// pending for id, and flushes (and, on the configured interval, syncs)
// once the batch reaches its configured size.
func (w *Writer) Write(ctx context.Context, op Op, id xid.ID, point store.Point, value []byte) error {
	w.mu.Lock()

	row := store.Row{Point: point, ID: id, Value: value, Delete: op == Delete}
	w.apply(op, row)

	full := len(w.ops) >= w.opts.BatchSize

	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}

	return nil
}

// apply implements the coalescing rules: at most one net operation per XID
// survives a pending batch.
func (w *Writer) apply(op Op, row store.Row) {
	existing, has := w.ops[row.ID]

	switch op {
	case Insert:
		idx := w.appendSlot(&row)
		w.ops[row.ID] = pendingOp{tag: tagInsert, insertIdx: idx}

	case Delete:
		if !has {
			idx := w.appendSlot(&row)
			w.ops[row.ID] = pendingOp{tag: tagDelete, deleteIdx: idx}

			return
		}

		switch existing.tag {
		case tagInsert:
			// a delete following a pending insert cancels both.
			w.pending[existing.insertIdx] = nil
			delete(w.ops, row.ID)
		case tagUpdate:
			// a delete over a pending update drops the insert half.
			w.pending[existing.insertIdx] = nil
			w.ops[row.ID] = pendingOp{tag: tagDelete, deleteIdx: existing.deleteIdx}
		case tagDelete:
			// already pending a delete; idempotent.
		}

	case Update:
		if !has {
			delRow := store.Row{Point: row.Point, ID: row.ID, Delete: true}
			deleteIdx := w.appendSlot(&delRow)
			insertIdx := w.appendSlot(&row)
			w.ops[row.ID] = pendingOp{tag: tagUpdate, deleteIdx: deleteIdx, insertIdx: insertIdx}

			return
		}

		switch existing.tag {
		case tagInsert:
			// an update over a pending insert replaces its payload in place.
			w.pending[existing.insertIdx] = &row
		case tagDelete:
			// an update over a pending delete keeps the delete, appends a
			// fresh insert.
			insertIdx := w.appendSlot(&row)
			w.ops[row.ID] = pendingOp{tag: tagUpdate, deleteIdx: existing.deleteIdx, insertIdx: insertIdx}
		case tagUpdate:
			w.pending[existing.insertIdx] = &row
		}
	}
}

func (w *Writer) appendSlot(row *store.Row) int {
	w.pending = append(w.pending, row)

	return len(w.pending) - 1
}

// Flush ships the pending batch to the store and clears the coalescing
// table, issuing a Sync once rowsSinceSync crosses SyncInterval.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()

	batch := make([]store.Row, 0, len(w.pending))

	for _, r := range w.pending {
		if r != nil {
			batch = append(batch, *r)
		}
	}

	w.pending = nil
	w.ops = make(map[xid.ID]pendingOp)

	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := w.store.Batch(ctx, batch); err != nil {
		return fmt.Errorf("writer: batch: %w", err)
	}

	w.mu.Lock()
	w.rowsSinceSync += len(batch)
	needSync := w.rowsSinceSync >= w.opts.SyncInterval
	if needSync {
		w.rowsSinceSync = 0
	}
	w.mu.Unlock()

	if needSync {
		if err := w.store.Sync(ctx); err != nil {
			return fmt.Errorf("writer: sync: %w", err)
		}
	}

	return nil
}

// Close flushes any remaining buffered rows and issues a final sync,
// regardless of whether the sync interval has been reached.
func (w *Writer) Close(ctx context.Context) error {
	if err := w.Flush(ctx); err != nil {
		return err
	}

	if err := w.store.Sync(ctx); err != nil {
		return fmt.Errorf("writer: final sync: %w", err)
	}

	return nil
}
