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

// Package osmingest orchestrates the scan, ingest, and optimize stages
// that together turn an OSM PBF file into a populated, well-tiled spatial
// store.
package osmingest

import "runtime"

// GridDims names the grid dimensions an optimize pass tiles the store's
// bounding box into.
type GridDims struct {
	XDivs, YDivs int
}

// IngestOptions configures an Ingest run.
type IngestOptions struct {
	// ChannelSize is the capacity of the inter-stage chunked channels.
	ChannelSize int

	// WayBatchSize is the max number of ways materialized per windowed pass.
	WayBatchSize int

	// RelationBatchSize is the max number of relations materialized per
	// windowed pass.
	RelationBatchSize int

	// IngestNode, IngestWay, IngestRelation toggle each element kind.
	IngestNode, IngestWay, IngestRelation bool

	// Optimize holds grid dimensions for an optimize pass. Ingest does not
	// read this field and runs no optimize pass; Optimize is a separate call.
	Optimize *GridDims

	// NCPU sizes the worker pool, mirroring the teacher's DecoderConfig.NCpu.
	NCPU int

	// SyncInterval is the number of rows written between durability
	// barriers.
	SyncInterval int

	// BatchSize is the writer's flush threshold; BatchSendSize is the
	// number of decoded elements per chunk the producers send downstream.
	BatchSize, BatchSendSize int
}

// DefaultIngestOptions returns the documented defaults.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		ChannelSize:       500,
		WayBatchSize:      10_000_000,
		RelationBatchSize: 1_000_000,
		IngestNode:        true,
		IngestWay:         true,
		IngestRelation:    true,
		NCPU:              runtime.GOMAXPROCS(-1),
		SyncInterval:      500_000,
		BatchSize:         100_000,
		BatchSendSize:     10_000,
	}
}

// Option configures an IngestOptions value.
type Option func(*IngestOptions)

// WithNCPU overrides the worker pool size.
func WithNCPU(n int) Option {
	return func(o *IngestOptions) { o.NCPU = n }
}

// WithChannelSize overrides the inter-stage channel capacity.
func WithChannelSize(n int) Option {
	return func(o *IngestOptions) { o.ChannelSize = n }
}

// WithOptimize sets IngestOptions.Optimize to the given grid dimensions.
// Ingest does not read that field, so no optimize pass follows ingest.
func WithOptimize(xdivs, ydivs int) Option {
	return func(o *IngestOptions) { o.Optimize = &GridDims{XDivs: xdivs, YDivs: ydivs} }
}

// WithKinds toggles which element kinds are ingested.
func WithKinds(nodes, ways, relations bool) Option {
	return func(o *IngestOptions) {
		o.IngestNode = nodes
		o.IngestWay = ways
		o.IngestRelation = relations
	}
}

// WithBatching overrides the writer's flush and durability thresholds and
// the producers' chunk size.
func WithBatching(batchSize, batchSendSize, syncInterval int) Option {
	return func(o *IngestOptions) {
		o.BatchSize = batchSize
		o.BatchSendSize = batchSendSize
		o.SyncInterval = syncInterval
	}
}

// WithWindowSizes overrides the windowed way/relation pass sizes.
func WithWindowSizes(wayBatchSize, relationBatchSize int) Option {
	return func(o *IngestOptions) {
		o.WayBatchSize = wayBatchSize
		o.RelationBatchSize = relationBatchSize
	}
}

func newIngestOptions(opts ...Option) IngestOptions {
	o := DefaultIngestOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
