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

// Package producer turns a scan.Table into the three symmetric
// channel-based element pipelines (nodes, ways, relations) that feed the
// denormalizer: a feeder pushes blob locations onto a work queue, a pool
// of workers decodes and chunks matching elements onto a bounded output
// channel, and the last worker to finish closes it.
package producer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/destel/rill"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/scan"
	"github.com/maguro/osmingest/model"
)

// Options configures a producer pipeline.
type Options struct {
	// ChannelSize is the output channel's capacity.
	ChannelSize int

	// ChunkSize caps how many elements are sent in a single chunk.
	ChunkSize int

	// NCPU is the number of decode workers.
	NCPU int
}

// DefaultOptions mirrors IngestOptions' defaults for a standalone pipeline.
func DefaultOptions() Options {
	return Options{ChannelSize: 500, ChunkSize: 10_000, NCPU: runtime.GOMAXPROCS(-1)}
}

// Nodes streams every node/dense-node element the scan table knows about,
// in chunks of at most opts.ChunkSize, on a channel of capacity
// opts.ChannelSize.
func Nodes(ctx context.Context, ra io.ReaderAt, tbl *scan.Table, opts Options) <-chan rill.Try[[]model.Entity] {
	return stream(ctx, ra, tbl, scan.Node, opts, isNode)
}

// Ways streams every way element the scan table knows about.
func Ways(ctx context.Context, ra io.ReaderAt, tbl *scan.Table, opts Options) <-chan rill.Try[[]model.Entity] {
	return stream(ctx, ra, tbl, scan.Way, opts, isWay)
}

// Relations streams every relation element the scan table knows about.
func Relations(ctx context.Context, ra io.ReaderAt, tbl *scan.Table, opts Options) <-chan rill.Try[[]model.Entity] {
	return stream(ctx, ra, tbl, scan.Relation, opts, isRelation)
}

// NodesAt decodes only the nodes found at locs, the targeted re-read
// denormalization uses to resolve a specific batch of ways' node refs
// without a full table scan.
func NodesAt(ctx context.Context, ra io.ReaderAt, locs []decoder.BlobLoc, opts Options) <-chan rill.Try[[]model.Entity] {
	return streamLocs(ctx, ra, locs, opts, isNode)
}

// WaysAt decodes only the ways found at locs, used to resolve the way
// members a batch of relations refers to.
func WaysAt(ctx context.Context, ra io.ReaderAt, locs []decoder.BlobLoc, opts Options) <-chan rill.Try[[]model.Entity] {
	return streamLocs(ctx, ra, locs, opts, isWay)
}

func isNode(e model.Entity) bool {
	_, ok := e.(model.Node)

	return ok
}

func isWay(e model.Entity) bool {
	_, ok := e.(model.Way)

	return ok
}

func isRelation(e model.Entity) bool {
	_, ok := e.(model.Relation)

	return ok
}

func stream(
	ctx context.Context,
	ra io.ReaderAt,
	tbl *scan.Table,
	kind scan.Kind,
	opts Options,
	keep func(model.Entity) bool,
) <-chan rill.Try[[]model.Entity] {
	locs, _ := tbl.Locations(kind)

	return streamLocs(ctx, ra, locs, opts, keep)
}

func streamLocs(
	ctx context.Context,
	ra io.ReaderAt,
	locs []decoder.BlobLoc,
	opts Options,
	keep func(model.Entity) bool,
) <-chan rill.Try[[]model.Entity] {
	if opts.NCPU < 1 {
		opts.NCPU = 1
	}

	if opts.ChunkSize < 1 {
		opts.ChunkSize = 10_000
	}

	workCh := make(chan decoder.BlobLoc)
	out := make(chan rill.Try[[]model.Entity], opts.ChannelSize)

	go func() {
		defer close(workCh)

		for _, loc := range locs {
			select {
			case workCh <- loc:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup

	wg.Add(opts.NCPU)

	for i := 0; i < opts.NCPU; i++ {
		go func() {
			defer wg.Done()

			buf := core.NewPooledBuffer()
			defer buf.Close()

			for loc := range workCh {
				entities, err := decodeAndFilter(ra, buf, loc, keep)
				if err != nil {
					slog.Error("unable to decode blob", "offset", loc.Offset, "error", err)

					select {
					case out <- rill.Try[[]model.Entity]{Error: err}:
					case <-ctx.Done():
					}

					return
				}

				for len(entities) > 0 {
					n := opts.ChunkSize
					if n > len(entities) {
						n = len(entities)
					}

					chunk := entities[:n]
					entities = entities[n:]

					select {
					case out <- rill.Try[[]model.Entity]{Value: chunk}:
					case <-ctx.Done():
						return
					}
				}

				buf.Reset()
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func decodeAndFilter(ra io.ReaderAt, buf *core.PooledBuffer, loc decoder.BlobLoc, keep func(model.Entity) bool) ([]model.Entity, error) {
	blob, err := decoder.ReadBlobAt(ra, loc)
	if err != nil {
		return nil, fmt.Errorf("unable to read blob at offset %d: %w", loc.Offset, err)
	}

	body, err := decoder.Unpack(buf, blob)
	if err != nil {
		return nil, fmt.Errorf("unable to unpack blob at offset %d: %w", loc.Offset, err)
	}

	all, err := decoder.ParsePrimitiveBlock(body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse primitive block at offset %d: %w", loc.Offset, err)
	}

	filtered := all[:0:0]

	for _, e := range all {
		if keep(e) {
			filtered = append(filtered, e)
		}
	}

	return filtered, nil
}
