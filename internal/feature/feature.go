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

// Package feature encodes denormalized OSM elements into the opaque byte
// records the spatial store holds as values. The byte layout here is a
// reference implementation (the external encoder contract only requires
// DecodeXID to work in O(1)); it is grounded on the varint-prefixed,
// trailing-label-span record layout of the record codec this domain is
// drawn from, adapted to embed resolved coordinates instead of raw refs.
package feature

import (
	"errors"
	"fmt"

	"github.com/maguro/osmingest/internal/denorm"
	"github.com/maguro/osmingest/internal/varint"
	"github.com/maguro/osmingest/internal/xid"
	"github.com/maguro/osmingest/model"
)

// GeomType names the geometry shape a record holds.
type GeomType byte

const (
	Point GeomType = 0
	Line  GeomType = 1
	Area  GeomType = 2
)

// ErrNoGeometry is returned by the Encode* functions when the inputs do
// not resolve to a valid geometry (too few positions, degenerate area);
// callers must treat it as "skip this row", not a failure.
var ErrNoGeometry = errors.New("feature: no valid geometry")

// Position is a resolved coordinate pair, written as two fixed 4-byte
// big-endian floats (Degrees truncate to float32 in the wire record; this
// matches the precision the original record codec's f32 lon/lat fields
// carry).
type Position struct {
	Lon model.Degrees
	Lat model.Degrees
}

// Cell is one triangle of an area's triangulation, as indices into the
// record's position list.
type Cell [3]uint32

// EncodeNode encodes a point record. xid, featureType, and labels are
// embedded verbatim; the record is never empty for a node.
func EncodeNode(x xid.ID, lon, lat model.Degrees, featureType uint64, labels []byte) ([]byte, error) {
	buf := make([]byte, 0, 32+len(labels))

	buf = appendVarint(buf, uint64(x))
	buf = append(buf, byte(Point))
	buf = appendPosition(buf, Position{Lon: lon, Lat: lat})
	buf = appendVarint(buf, featureType)
	buf = appendVarint(buf, uint64(len(labels)))
	buf = append(buf, labels...)

	return buf, nil
}

// EncodeWay encodes a line or area record from a way's ordered refs and
// their resolved positions. Refs that did not resolve (absent from
// nodeDeps) are skipped, matching the "silently dropped" contract; if
// fewer than two refs resolve the function returns ErrNoGeometry and the
// row must be skipped.
func EncodeWay(
	x xid.ID,
	featureType uint64,
	isArea bool,
	labels []byte,
	refs []model.ID,
	nodeDeps denorm.NodeDeps,
) ([]byte, error) {
	if isArea && len(refs) >= 2 && refs[0] == refs[len(refs)-1] {
		// an is-area way closes its ring by repeating the first ref; the
		// repeated vertex carries no extra geometry and would degenerate
		// the fan triangulation's last triangle.
		refs = refs[:len(refs)-1]
	}

	positions := resolvePositions(refs, nodeDeps)
	if len(positions) < 2 {
		return nil, ErrNoGeometry
	}

	geom := Line
	if isArea {
		geom = Area
	}

	buf := make([]byte, 0, 16*len(positions)+len(labels)+16)

	buf = appendVarint(buf, uint64(x))
	buf = append(buf, byte(geom))
	buf = appendVarint(buf, featureType*2+boolBit(isArea))
	buf = appendVarint(buf, uint64(len(positions)))

	for _, p := range positions {
		buf = appendPosition(buf, p)
	}

	if isArea {
		cells := fanTriangulate(len(positions))
		if len(cells) == 0 {
			return nil, ErrNoGeometry
		}

		buf = appendVarint(buf, uint64(len(cells)))

		for _, c := range cells {
			buf = appendVarint(buf, uint64(c[0]))
			buf = appendVarint(buf, uint64(c[1]))
			buf = appendVarint(buf, uint64(c[2]))
		}
	}

	buf = appendVarint(buf, uint64(len(labels)))
	buf = append(buf, labels...)

	return buf, nil
}

// EncodeRelation encodes an area record from a relation's outer/inner way
// members, each way's refs resolved through nodeDeps. Inner-ring
// (role=inner) positions are appended after outer-ring positions. Only
// the outer ring is triangulated; the record does not mark the inner
// ring as a hole, and the outer triangles still cover the hole's area.
func EncodeRelation(
	x xid.ID,
	featureType uint64,
	isArea bool,
	labels []byte,
	members []model.Member,
	nodeDeps denorm.NodeDeps,
	wayDeps denorm.WayDeps,
) ([]byte, error) {
	var outerPositions, innerPositions []Position

	for _, m := range members {
		if m.Type != model.WAY {
			continue
		}

		refs, ok := wayDeps[m.ID]
		if !ok {
			continue
		}

		positions := resolvePositions(refs, nodeDeps)

		switch m.Role {
		case "outer":
			outerPositions = append(outerPositions, positions...)
		case "inner":
			innerPositions = append(innerPositions, positions...)
		}
	}

	all := append(append([]Position(nil), outerPositions...), innerPositions...)
	if len(all) < 2 {
		return nil, ErrNoGeometry
	}

	buf := make([]byte, 0, 16*len(all)+len(labels)+16)

	buf = appendVarint(buf, uint64(x))
	buf = append(buf, byte(Area))
	buf = appendVarint(buf, featureType*2+boolBit(isArea))
	buf = appendVarint(buf, uint64(len(all)))

	for _, p := range all {
		buf = appendPosition(buf, p)
	}

	// holes are carried as a distinct vertex range; the fan
	// triangulator only covers the outer ring, leaving inner-ring
	// vertices present in the position list (for bounding/label
	// purposes) but untriangulated, matching an earcut-free
	// reference implementation's simplification.
	cells := fanTriangulate(len(outerPositions))

	if len(cells) == 0 {
		return nil, ErrNoGeometry
	}

	buf = appendVarint(buf, uint64(len(cells)))

	for _, c := range cells {
		buf = appendVarint(buf, uint64(c[0]))
		buf = appendVarint(buf, uint64(c[1]))
		buf = appendVarint(buf, uint64(c[2]))
	}

	buf = appendVarint(buf, uint64(len(labels)))
	buf = append(buf, labels...)

	return buf, nil
}

// DecodeXID reads the leading varint of an encoded record, in O(1) of the
// record's size.
func DecodeXID(b []byte) (xid.ID, error) {
	v, _, err := varint.Decode(b)
	if err != nil {
		return 0, fmt.Errorf("feature: decode xid: %w", err)
	}

	return xid.ID(v), nil
}

func resolvePositions(refs []model.ID, deps denorm.NodeDeps) []Position {
	positions := make([]Position, 0, len(refs))

	for _, r := range refs {
		ll, ok := deps[r]
		if !ok {
			continue
		}

		positions = append(positions, Position{Lon: ll.Lon, Lat: ll.Lat})
	}

	return positions
}

// fanTriangulate produces a triangle fan from vertex 0, the simplest
// triangulation that covers any simple polygon without crossing edges for
// convex rings; it is not earcut-quality for concave rings, which this
// reference implementation accepts as a known limitation.
func fanTriangulate(n int) []Cell {
	if n < 3 {
		return nil
	}

	cells := make([]Cell, 0, n-2)
	for i := 1; i < n-1; i++ {
		cells = append(cells, Cell{0, uint32(i), uint32(i + 1)})
	}

	return cells
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [10]byte

	n := varint.Encode(v, tmp[:])

	return append(buf, tmp[:n]...)
}

func appendPosition(buf []byte, p Position) []byte {
	var tmp [4]byte

	varint.EncodeFloat32BE(float32(p.Lon), tmp[:])
	buf = append(buf, tmp[:]...)
	varint.EncodeFloat32BE(float32(p.Lat), tmp[:])
	buf = append(buf, tmp[:]...)

	return buf
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}
