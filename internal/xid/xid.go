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

// Package xid encodes and decodes the external id that names an OSM
// primitive uniquely across node, way, and relation id spaces.
package xid

// Kind is the OSM primitive kind embedded in the low bits of an XID.
type Kind int64

const (
	Node     Kind = 0
	Way      Kind = 1
	Relation Kind = 2
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Way:
		return "way"
	case Relation:
		return "relation"
	default:
		return "unknown"
	}
}

// ID is the 64-bit value osm_id*3 + kind.
type ID int64

// Encode builds an XID from an OSM id and its kind.
func Encode(osmID int64, kind Kind) ID {
	return ID(osmID*3 + int64(kind))
}

// OSMID recovers the original OSM id.
func (x ID) OSMID() int64 {
	return int64(x) / 3
}

// Kind recovers the primitive kind.
func (x ID) Kind() Kind {
	return Kind(int64(x) % 3)
}
