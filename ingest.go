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

package osmingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/denorm"
	"github.com/maguro/osmingest/internal/feature"
	"github.com/maguro/osmingest/internal/producer"
	"github.com/maguro/osmingest/internal/progress"
	"github.com/maguro/osmingest/internal/scan"
	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/writer"
	"github.com/maguro/osmingest/internal/xid"
	"github.com/maguro/osmingest/model"
)

// Stage names the three counters an Ingest run reports through its
// Progress tracker.
const (
	StageNodes     = "nodes"
	StageWays      = "ways"
	StageRelations = "relations"
)

// Ingest decodes pbfPath's elements against the already-built tbl, encodes
// each into a feature record, and writes it to s. It classifies tags with
// dict, drops anything dict resolves to feature.PlaceOther, and resolves
// way geometry by targeted re-reads of only the node blobs a window's ways
// reference. Relation geometry re-reads only the way blobs a window's
// relations reference, but streams the whole node section to resolve
// those ways' refs.
//
// Ingest reports progress through prog, which must be non-nil and carry
// StageNodes, StageWays, and StageRelations. Pair it with MonitorProgress
// to have its rolling rate samples refreshed once a second while Ingest
// runs.
func Ingest(ctx context.Context, s store.Store, pbfPath string, tbl *ScanTable, dict feature.Dictionary, prog *progress.Progress, opts ...Option) error {
	o := newIngestOptions(opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f, err := os.Open(pbfPath)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", pbfPath, err)
	}
	defer f.Close()

	popts := producer.Options{ChannelSize: o.ChannelSize, ChunkSize: o.BatchSendSize, NCPU: o.NCPU}
	w := writer.New(s, writer.Options{BatchSize: o.BatchSize, SyncInterval: o.SyncInterval})

	if o.IngestNode {
		if err := ingestNodes(ctx, f, tbl, dict, w, prog, popts); err != nil {
			return err
		}
	}

	if o.IngestWay {
		if err := ingestWays(ctx, f, tbl, dict, w, prog, popts, o.WayBatchSize); err != nil {
			return err
		}
	}

	if o.IngestRelation {
		if err := ingestRelations(ctx, f, tbl, dict, w, prog, popts, o.RelationBatchSize); err != nil {
			return err
		}
	}

	if err := w.Close(ctx); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	return nil
}

func ingestNodes(ctx context.Context, f *os.File, tbl *ScanTable, dict feature.Dictionary, w *writer.Writer, prog *progress.Progress, popts producer.Options) error {
	prog.Start(StageNodes)
	defer prog.End(StageNodes)

	for batch := range producer.Nodes(ctx, f, tbl, popts) {
		if batch.Error != nil {
			return fmt.Errorf("ingest: nodes: %w", batch.Error)
		}

		for _, e := range batch.Value {
			n, ok := e.(model.Node)
			if !ok {
				continue
			}

			if err := writeNode(ctx, w, dict, n); err != nil {
				prog.Stage(StageNodes).RecordError(err)

				return fmt.Errorf("ingest: nodes: %w", err)
			}
		}

		prog.Add(StageNodes, uint64(len(batch.Value)))
	}

	return nil
}

func writeNode(ctx context.Context, w *writer.Writer, dict feature.Dictionary, n model.Node) error {
	featureType, found := feature.ClassifyTags(n.Tags, dict)
	if !found {
		return nil
	}

	id := xid.Encode(int64(n.ID), xid.Node)
	labels := feature.EncodeLabels(n.Tags)

	value, err := feature.EncodeNode(id, n.Lon, n.Lat, featureType, labels)
	if err != nil {
		if errors.Is(err, feature.ErrNoGeometry) {
			return nil
		}

		return err
	}

	return w.Write(ctx, writer.Insert, id, store.Scalar(float64(n.Lon), float64(n.Lat)), value)
}

func ingestWays(ctx context.Context, f *os.File, tbl *ScanTable, dict feature.Dictionary, w *writer.Writer, prog *progress.Progress, popts producer.Options, batchSize int) error {
	prog.Start(StageWays)
	defer prog.End(StageWays)

	var next int64

	for {
		win, err := producer.GetWays(f, tbl, next, batchSize)
		if err != nil {
			return fmt.Errorf("ingest: ways: %w", err)
		}

		if err := ingestWayWindow(ctx, f, tbl, dict, w, prog, popts, win.Entities); err != nil {
			return err
		}

		if win.Next == nil {
			return nil
		}

		next = *win.Next
	}
}

func ingestWayWindow(ctx context.Context, f *os.File, tbl *ScanTable, dict feature.Dictionary, w *writer.Writer, prog *progress.Progress, popts producer.Options, entities []model.Entity) error {
	ways := make([]model.Way, 0, len(entities))

	for _, e := range entities {
		if way, ok := e.(model.Way); ok {
			ways = append(ways, way)
		}
	}

	if len(ways) == 0 {
		return nil
	}

	wayRefs := denorm.BuildWayRefsTable(ways)
	locs := denorm.GetNodeOffsetsFromWays(tbl, ways)
	nodeCh := producer.NodesAt(ctx, f, locs, popts)

	nodeDeps, err := denorm.DenormalizeWays(wayRefs, nodeCh)
	if err != nil {
		return fmt.Errorf("ingest: ways: denormalize: %w", err)
	}

	for _, way := range ways {
		if err := writeWay(ctx, w, dict, way, nodeDeps); err != nil {
			prog.Stage(StageWays).RecordError(err)

			return fmt.Errorf("ingest: ways: %w", err)
		}
	}

	prog.Add(StageWays, uint64(len(ways)))

	return nil
}

func writeWay(ctx context.Context, w *writer.Writer, dict feature.Dictionary, way model.Way, nodeDeps denorm.NodeDeps) error {
	featureType, found := feature.ClassifyTags(way.Tags, dict)
	if !found {
		return nil
	}

	isArea := feature.IsAreaWay(way.Tags, way.NodeIDs)
	id := xid.Encode(int64(way.ID), xid.Way)
	labels := feature.EncodeLabels(way.Tags)

	value, err := feature.EncodeWay(id, featureType, isArea, labels, way.NodeIDs, nodeDeps)
	if err != nil {
		if errors.Is(err, feature.ErrNoGeometry) {
			return nil
		}

		return err
	}

	bbox, ok := boundingBox(way.NodeIDs, nodeDeps)
	if !ok {
		return nil
	}

	return w.Write(ctx, writer.Insert, id, bbox, value)
}

func ingestRelations(ctx context.Context, f *os.File, tbl *ScanTable, dict feature.Dictionary, w *writer.Writer, prog *progress.Progress, popts producer.Options, batchSize int) error {
	prog.Start(StageRelations)
	defer prog.End(StageRelations)

	var next int64

	for {
		win, err := producer.GetRelations(f, tbl, next, batchSize)
		if err != nil {
			return fmt.Errorf("ingest: relations: %w", err)
		}

		if err := ingestRelationWindow(ctx, f, tbl, dict, w, prog, popts, win.Entities); err != nil {
			return err
		}

		if win.Next == nil {
			return nil
		}

		next = *win.Next
	}
}

func ingestRelationWindow(ctx context.Context, f *os.File, tbl *ScanTable, dict feature.Dictionary, w *writer.Writer, prog *progress.Progress, popts producer.Options, entities []model.Entity) error {
	relations := make([]model.Relation, 0, len(entities))

	for _, e := range entities {
		if rel, ok := e.(model.Relation); ok {
			relations = append(relations, rel)
		}
	}

	if len(relations) == 0 {
		return nil
	}

	relationRefs := make(map[model.ID]struct{})
	wayIDs := make([]model.ID, 0)

	for _, rel := range relations {
		for _, m := range rel.Members {
			if m.Type == model.WAY {
				relationRefs[m.ID] = struct{}{}
				wayIDs = append(wayIDs, m.ID)
			}
		}
	}

	wayLocs := tbl.LocationsForIDs(scan.Way, wayIDs)
	wayCh := producer.WaysAt(ctx, f, wayLocs, popts)

	// DenormalizeRelations drains wayCh to completion before it derives the
	// node refs it needs, which rules out computing a truly targeted node
	// channel ahead of the call; relations fall back to a full node scan.
	nodeCh := producer.Nodes(ctx, f, tbl, popts)

	nodeDeps, wayDeps, err := denorm.DenormalizeRelations(relationRefs, wayCh, nodeCh)
	if err != nil {
		return fmt.Errorf("ingest: relations: denormalize: %w", err)
	}

	for _, rel := range relations {
		if err := writeRelation(ctx, w, dict, rel, nodeDeps, wayDeps); err != nil {
			prog.Stage(StageRelations).RecordError(err)

			return fmt.Errorf("ingest: relations: %w", err)
		}
	}

	prog.Add(StageRelations, uint64(len(relations)))

	return nil
}

func writeRelation(ctx context.Context, w *writer.Writer, dict feature.Dictionary, rel model.Relation, nodeDeps denorm.NodeDeps, wayDeps denorm.WayDeps) error {
	featureType, found := feature.ClassifyTags(rel.Tags, dict)
	if !found {
		return nil
	}

	isArea := feature.IsAreaRelation(rel.Tags)
	if !isArea {
		return nil
	}

	id := xid.Encode(int64(rel.ID), xid.Relation)
	labels := feature.EncodeLabels(rel.Tags)

	value, err := feature.EncodeRelation(id, featureType, isArea, labels, rel.Members, nodeDeps, wayDeps)
	if err != nil {
		if errors.Is(err, feature.ErrNoGeometry) {
			return nil
		}

		return err
	}

	bbox, ok := relationBoundingBox(rel.Members, wayDeps, nodeDeps)
	if !ok {
		return nil
	}

	return w.Write(ctx, writer.Insert, id, bbox, value)
}

func boundingBox(refs []model.ID, nodeDeps denorm.NodeDeps) (store.Point, bool) {
	var (
		minX, maxX, minY, maxY float64
		any                    bool
	)

	for _, r := range refs {
		ll, ok := nodeDeps[r]
		if !ok {
			continue
		}

		x, y := float64(ll.Lon), float64(ll.Lat)

		if !any {
			minX, maxX, minY, maxY = x, x, y, y
			any = true

			continue
		}

		minX, maxX = core.Min(minX, x), core.Max(maxX, x)
		minY, maxY = core.Min(minY, y), core.Max(maxY, y)
	}

	if !any {
		return store.Point{}, false
	}

	return store.Interval(minX, maxX, minY, maxY), true
}

func relationBoundingBox(members []model.Member, wayDeps denorm.WayDeps, nodeDeps denorm.NodeDeps) (store.Point, bool) {
	var (
		minX, maxX, minY, maxY float64
		any                    bool
	)

	for _, m := range members {
		if m.Type != model.WAY {
			continue
		}

		refs, ok := wayDeps[m.ID]
		if !ok {
			continue
		}

		bbox, ok := boundingBox(refs, nodeDeps)
		if !ok {
			continue
		}

		if !any {
			minX, maxX, minY, maxY = bbox.MinX, bbox.MaxX, bbox.MinY, bbox.MaxY
			any = true

			continue
		}

		minX, maxX = core.Min(minX, bbox.MinX), core.Max(maxX, bbox.MaxX)
		minY, maxY = core.Min(minY, bbox.MinY), core.Max(maxY, bbox.MaxY)
	}

	if !any {
		return store.Point{}, false
	}

	return store.Interval(minX, maxX, minY, maxY), true
}

// MonitorProgress starts a goroutine that ticks prog once a second until
// the returned stop function is called or ctx is canceled, whichever
// comes first. stop blocks until the goroutine has exited.
func MonitorProgress(ctx context.Context, prog *progress.Progress) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := time.NewTicker(time.Second)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prog.Tick()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
