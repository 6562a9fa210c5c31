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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/denorm"
	"github.com/maguro/osmingest/internal/feature"
	"github.com/maguro/osmingest/internal/progress"
	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/store/memstore"
	"github.com/maguro/osmingest/internal/writer"
	"github.com/maguro/osmingest/internal/xid"
	"github.com/maguro/osmingest/model"
)

func TestWriteNodeDropsPlaceOther(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	n := model.Node{ID: 1, Tags: map[string]string{"place": "locality"}, Lat: 1, Lon: 1}
	require.NoError(t, writeNode(context.Background(), w, dict, n))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteNodeEncodesCafe(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	n := model.Node{ID: 42, Tags: map[string]string{"amenity": "cafe", "name": "joe's"}, Lat: 37.5, Lon: -122.3}
	require.NoError(t, writeNode(context.Background(), w, dict, n))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	id, err := feature.DecodeXID(rows[0].Value)
	require.NoError(t, err)
	assert.Equal(t, xid.Encode(42, xid.Node), id)
}

func TestWriteWayTriangleParkIsArea(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	nodeDeps := denorm.NodeDeps{
		100: {Lat: 0, Lon: 0},
		101: {Lat: 0, Lon: 1},
		102: {Lat: 1, Lon: 0},
	}

	way := model.Way{
		ID:      900,
		Tags:    map[string]string{"leisure": "park", "name": "triangle park"},
		NodeIDs: []model.ID{100, 101, 102, 100},
	}

	require.NoError(t, writeWay(context.Background(), w, dict, way, nodeDeps))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, store.Interval(0, 1, 0, 1), rows[0].Point)
}

func TestWriteWayMissingRefDropsIfUnderTwoResolve(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	way := model.Way{
		ID:      901,
		Tags:    map[string]string{"natural": "water"},
		NodeIDs: []model.ID{200},
	}

	require.NoError(t, writeWay(context.Background(), w, dict, way, denorm.NodeDeps{}))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteRelationNonAreaIsDropped(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	rel := model.Relation{ID: 1000, Tags: map[string]string{"natural": "water", "type": "route"}}

	require.NoError(t, writeRelation(context.Background(), w, dict, rel, nil, nil))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteRelationLakeWithIslandIsArea(t *testing.T) {
	s := memstore.New()
	w := writer.New(s, writer.DefaultOptions())
	dict := feature.NewStaticDictionary()

	nodeDeps := denorm.NodeDeps{
		1: {Lat: 0, Lon: 0}, 2: {Lat: 0, Lon: 10}, 3: {Lat: 10, Lon: 10}, 4: {Lat: 10, Lon: 0},
		5: {Lat: 4, Lon: 4}, 6: {Lat: 4, Lon: 6}, 7: {Lat: 6, Lon: 6},
	}
	wayDeps := denorm.WayDeps{
		300: {1, 2, 3, 4, 1},
		301: {5, 6, 7, 5},
	}

	rel := model.Relation{
		ID:   2000,
		Tags: map[string]string{"type": "multipolygon", "natural": "water", "name": "lake"},
		Members: []model.Member{
			{ID: 300, Type: model.WAY, Role: "outer"},
			{ID: 301, Type: model.WAY, Role: "inner"},
		},
	}

	require.NoError(t, writeRelation(context.Background(), w, dict, rel, nodeDeps, wayDeps))
	require.NoError(t, w.Close(context.Background()))

	rows, err := s.Query(context.Background(), store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, store.Interval(0, 10, 0, 10), rows[0].Point)
}

func TestBoundingBoxAllRefsUnresolvedReturnsFalse(t *testing.T) {
	_, ok := boundingBox([]model.ID{1, 2, 3}, denorm.NodeDeps{})
	assert.False(t, ok)
}

func TestRelationBoundingBoxUnionsMemberWays(t *testing.T) {
	nodeDeps := denorm.NodeDeps{1: {Lat: 0, Lon: 0}, 2: {Lat: 5, Lon: 5}, 3: {Lat: -5, Lon: -5}}
	wayDeps := denorm.WayDeps{10: {1, 2}, 11: {1, 3}}

	members := []model.Member{
		{ID: 10, Type: model.WAY},
		{ID: 11, Type: model.WAY},
	}

	bbox, ok := relationBoundingBox(members, wayDeps, nodeDeps)
	require.True(t, ok)
	assert.Equal(t, store.Interval(-5, 5, -5, 5), bbox)
}

func TestMonitorProgressStopIsIdempotentSafe(t *testing.T) {
	prog := progress.New(StageNodes)
	prog.Start(StageNodes)

	stop := MonitorProgress(context.Background(), prog)
	stop()
	stop()
}
