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

// Package denorm expands way-to-node and relation-to-way-to-node
// references into embedded coordinate maps, by targeted re-reads of only
// the blobs the scan table says might hold the referenced ids.
package denorm

import (
	"github.com/destel/rill"

	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/scan"
	"github.com/maguro/osmingest/model"
)

// LatLon is a resolved node position.
type LatLon struct {
	Lat model.Degrees
	Lon model.Degrees
}

// NodeDeps maps a node id to its resolved position. Entries are only
// present for node ids that were actually requested and found; a missing
// entry means the reference is unresolved and any geometry depending on it
// must be dropped.
type NodeDeps map[model.ID]LatLon

// WayDeps maps a way id to its ordered node refs, for the subset of ways a
// relation's membership refers to.
type WayDeps map[model.ID][]model.ID

// wayRefsTable is the inverted index node id -> ways referencing it, built
// synchronously from a windowed way batch before the node channel is
// consumed.
type wayRefsTable map[model.ID][]model.ID

// buildWayRefsTable inverts ways' NodeIDs into a node id -> way ids index.
func buildWayRefsTable(ways []model.Way) wayRefsTable {
	t := make(wayRefsTable)

	for _, w := range ways {
		for _, nodeID := range w.NodeIDs {
			t[nodeID] = append(t[nodeID], w.ID)
		}
	}

	return t
}

// DenormalizeWays consumes nodeCh, populating NodeDeps with the position of
// every node id that appears in wayRefs. Best-effort: node ids never seen
// on the channel are simply absent from the result.
func DenormalizeWays(wayRefs wayRefsTable, nodeCh <-chan rill.Try[[]model.Entity]) (NodeDeps, error) {
	deps := make(NodeDeps, len(wayRefs))

	for batch := range nodeCh {
		if batch.Error != nil {
			return nil, batch.Error
		}

		for _, e := range batch.Value {
			n, ok := e.(model.Node)
			if !ok {
				continue
			}

			if _, wanted := wayRefs[n.ID]; !wanted {
				continue
			}

			deps[n.ID] = LatLon{Lat: n.Lat, Lon: n.Lon}
		}
	}

	return deps, nil
}

// DenormalizeRelations drains wayCh, building the subset of ways a
// relation's members reference plus the node-id inverted index those ways
// imply, then resolves node positions exactly as DenormalizeWays does.
func DenormalizeRelations(
	relationRefs map[model.ID]struct{},
	wayCh <-chan rill.Try[[]model.Entity],
	nodeCh <-chan rill.Try[[]model.Entity],
) (NodeDeps, WayDeps, error) {
	wayDeps := make(WayDeps)

	for batch := range wayCh {
		if batch.Error != nil {
			return nil, nil, batch.Error
		}

		for _, e := range batch.Value {
			w, ok := e.(model.Way)
			if !ok {
				continue
			}

			if _, wanted := relationRefs[w.ID]; !wanted {
				continue
			}

			wayDeps[w.ID] = w.NodeIDs
		}
	}

	wayRefs := make(wayRefsTable)

	for wayID, refs := range wayDeps {
		for _, nodeID := range refs {
			wayRefs[nodeID] = append(wayRefs[nodeID], wayID)
		}
	}

	nodeDeps, err := DenormalizeWays(wayRefs, nodeCh)
	if err != nil {
		return nil, nil, err
	}

	return nodeDeps, wayDeps, nil
}

// BuildWayRefsTable exposes buildWayRefsTable for callers (the
// orchestrator) that have already materialized a way batch via
// producer.GetWays.
func BuildWayRefsTable(ways []model.Way) wayRefsTable {
	return buildWayRefsTable(ways)
}

// GetNodeOffsetsFromWays returns the deduplicated set of blob locations
// that might contain any node referenced by ways, the key optimization
// that lets denormalization re-read only the relevant slice of the node
// section.
func GetNodeOffsetsFromWays(tbl *scan.Table, ways []model.Way) []decoder.BlobLoc {
	var ids []model.ID

	for _, w := range ways {
		ids = append(ids, w.NodeIDs...)
	}

	return tbl.LocationsForIDs(scan.Node, ids)
}
