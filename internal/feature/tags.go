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

package feature

import (
	"sort"

	"github.com/maguro/osmingest/internal/varint"
	"github.com/maguro/osmingest/model"
)

// ClassifyTags walks tags in a stable (sorted by key) order and returns
// the feature-type code of the first entry dict recognizes. found is false
// when nothing in tags resolves to anything but PlaceOther, meaning the
// element is uninteresting and should be dropped.
func ClassifyTags(tags map[string]string, dict Dictionary) (featureType uint64, found bool) {
	if len(tags) == 0 {
		return PlaceOther, false
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if code := dict.Lookup(k, tags[k]); code != PlaceOther {
			return code, true
		}
	}

	return PlaceOther, false
}

// EncodeLabels packs the handful of tags worth carrying into the rendered
// feature (currently just name) into the opaque trailing label span
// EncodeNode/EncodeWay/EncodeRelation append verbatim.
func EncodeLabels(tags map[string]string) []byte {
	name := tags["name"]
	if name == "" {
		return nil
	}

	buf := appendVarint(nil, uint64(len(name)))

	return append(buf, name...)
}

// DecodeLabels is EncodeLabels' inverse, returning the name carried in a
// label span, or "" if none.
func DecodeLabels(labels []byte) (name string, ok bool) {
	if len(labels) == 0 {
		return "", false
	}

	n, sz, err := varint.Decode(labels)
	if err != nil || sz+int(n) > len(labels) {
		return "", false
	}

	return string(labels[sz : sz+int(n)]), true
}

// IsAreaWay applies the conventional OSM area heuristic: a way is an area
// when its ref list is closed (first ref equals last) and its tags don't
// name it as an explicitly linear feature, unless area=yes overrides that.
func IsAreaWay(tags map[string]string, refs []model.ID) bool {
	if len(refs) < 4 || refs[0] != refs[len(refs)-1] {
		return false
	}

	if v, ok := tags["area"]; ok {
		return v != "no"
	}

	for _, k := range []string{"highway", "barrier"} {
		if _, ok := tags[k]; ok {
			return false
		}
	}

	return true
}

// IsAreaRelation applies the conventional OSM area heuristic for
// relations: multipolygon and boundary relations render as areas.
func IsAreaRelation(tags map[string]string) bool {
	switch tags["type"] {
	case "multipolygon", "boundary":
		return true
	default:
		return false
	}
}
