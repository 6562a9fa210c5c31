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

package feature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/denorm"
	"github.com/maguro/osmingest/internal/feature"
	"github.com/maguro/osmingest/internal/xid"
	"github.com/maguro/osmingest/model"
)

func TestEncodeNodeRoundTripsXID(t *testing.T) {
	x := xid.Encode(1312, xid.Node)

	buf, err := feature.EncodeNode(x, 13.02, 37.00, 2, []byte("cafe"))
	require.NoError(t, err)

	got, err := feature.DecodeXID(buf)
	require.NoError(t, err)
	assert.EqualValues(t, x, got)
	assert.Equal(t, int64(3936), int64(x))
}

func TestEncodeWayTrianglePark(t *testing.T) {
	x := xid.Encode(555, xid.Way)
	assert.EqualValues(t, 1666, x)

	deps := denorm.NodeDeps{
		600: {Lon: 13.00, Lat: 37.00},
		601: {Lon: 13.01, Lat: 37.01},
		602: {Lon: 13.02, Lat: 37.00},
	}

	buf, err := feature.EncodeWay(x, 1, true, []byte("triangle park"),
		[]model.ID{600, 601, 602, 600}, deps)
	require.NoError(t, err)

	got, err := feature.DecodeXID(buf)
	require.NoError(t, err)
	assert.EqualValues(t, x, got)
}

func TestEncodeWayMissingRefDropsGeometry(t *testing.T) {
	x := xid.Encode(888, xid.Way)

	deps := denorm.NodeDeps{
		600: {Lon: 13.00, Lat: 37.00},
	}

	_, err := feature.EncodeWay(x, 1, false, nil, []model.ID{600, 99999999}, deps)
	assert.ErrorIs(t, err, feature.ErrNoGeometry)
}

func TestEncodeRelationLakeWithIsland(t *testing.T) {
	x := xid.Encode(700, xid.Relation)
	assert.EqualValues(t, 2102, x)

	deps := denorm.NodeDeps{
		1: {Lon: 0, Lat: 0}, 2: {Lon: 1, Lat: 0}, 3: {Lon: 1, Lat: 1}, 4: {Lon: 0, Lat: 1},
		5: {Lon: 0.25, Lat: 0.25}, 6: {Lon: 0.5, Lat: 0.25}, 7: {Lon: 0.5, Lat: 0.5},
	}
	wayDeps := denorm.WayDeps{
		10: {1, 2, 3, 4, 1},
		11: {5, 6, 7, 5},
	}
	members := []model.Member{
		{ID: 10, Type: model.WAY, Role: "outer"},
		{ID: 11, Type: model.WAY, Role: "inner"},
	}

	buf, err := feature.EncodeRelation(x, 3, true, []byte("cool lake"), members, deps, wayDeps)
	require.NoError(t, err)

	got, err := feature.DecodeXID(buf)
	require.NoError(t, err)
	assert.EqualValues(t, x, got)
}

func TestDictionaryPlaceOther(t *testing.T) {
	dict := feature.NewStaticDictionary()
	assert.Equal(t, feature.PlaceOther, dict.Lookup("place", "locality"))
	assert.NotEqual(t, feature.PlaceOther, dict.Lookup("amenity", "cafe"))
}
