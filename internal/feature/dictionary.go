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

// PlaceOther is the sentinel feature-type code a Dictionary returns for
// tags it does not classify into anything more specific, e.g.
// place=locality. Elements whose feature type equals PlaceOther are
// uninteresting and must be dropped rather than written.
const PlaceOther uint64 = 0

// Dictionary maps an OSM tag key/value pair to a feature-type code.
// Production deployments are expected to supply their own, generated from
// a much larger tag-classification table; this reference Dictionary
// covers just enough of the tag space for the pipeline's tests.
type Dictionary interface {
	Lookup(key, value string) uint64
}

// StaticDictionary is a small, fixed key=value -> feature-type table.
type StaticDictionary struct {
	codes map[string]uint64
}

// NewStaticDictionary builds a Dictionary seeded with a handful of common
// tags, each assigned a stable, arbitrary non-zero code; unrecognized tags
// resolve to PlaceOther.
func NewStaticDictionary() *StaticDictionary {
	return &StaticDictionary{codes: map[string]uint64{
		"leisure=park":   1,
		"amenity=cafe":   2,
		"natural=water":  3,
		"place=locality": PlaceOther,
		"place=other":    PlaceOther,
	}}
}

// Lookup returns the feature-type code for key=value, or PlaceOther when
// unrecognized.
func (d *StaticDictionary) Lookup(key, value string) uint64 {
	if code, ok := d.codes[key+"="+value]; ok {
		return code
	}

	return PlaceOther
}
