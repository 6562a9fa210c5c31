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

	"github.com/maguro/osmingest/internal/feature"
	"github.com/maguro/osmingest/model"
)

func TestClassifyTagsPicksFirstRecognized(t *testing.T) {
	dict := feature.NewStaticDictionary()

	ft, ok := feature.ClassifyTags(map[string]string{"amenity": "cafe", "name": "joe's"}, dict)
	require.True(t, ok)
	assert.Equal(t, uint64(2), ft)
}

func TestClassifyTagsPlaceOtherNotFound(t *testing.T) {
	dict := feature.NewStaticDictionary()

	_, ok := feature.ClassifyTags(map[string]string{"place": "locality"}, dict)
	assert.False(t, ok)
}

func TestClassifyTagsEmpty(t *testing.T) {
	dict := feature.NewStaticDictionary()

	_, ok := feature.ClassifyTags(nil, dict)
	assert.False(t, ok)
}

func TestEncodeDecodeLabelsRoundTrip(t *testing.T) {
	labels := feature.EncodeLabels(map[string]string{"name": "triangle park"})

	name, ok := feature.DecodeLabels(labels)
	require.True(t, ok)
	assert.Equal(t, "triangle park", name)
}

func TestEncodeLabelsNoNameIsEmpty(t *testing.T) {
	assert.Nil(t, feature.EncodeLabels(map[string]string{"amenity": "cafe"}))

	_, ok := feature.DecodeLabels(nil)
	assert.False(t, ok)
}

func TestIsAreaWayClosedRingWithoutLinearTag(t *testing.T) {
	refs := []model.ID{600, 601, 602, 600}
	assert.True(t, feature.IsAreaWay(map[string]string{"leisure": "park"}, refs))
}

func TestIsAreaWayOpenRingIsNeverArea(t *testing.T) {
	refs := []model.ID{600, 601, 602}
	assert.False(t, feature.IsAreaWay(map[string]string{"leisure": "park"}, refs))
}

func TestIsAreaWayHighwayOverridesClosedRing(t *testing.T) {
	refs := []model.ID{600, 601, 602, 600}
	assert.False(t, feature.IsAreaWay(map[string]string{"highway": "residential"}, refs))
}

func TestIsAreaWayExplicitAreaNoOverrides(t *testing.T) {
	refs := []model.ID{600, 601, 602, 600}
	assert.False(t, feature.IsAreaWay(map[string]string{"leisure": "park", "area": "no"}, refs))
}

func TestIsAreaRelationMultipolygon(t *testing.T) {
	assert.True(t, feature.IsAreaRelation(map[string]string{"type": "multipolygon"}))
	assert.False(t, feature.IsAreaRelation(map[string]string{"type": "route"}))
}
