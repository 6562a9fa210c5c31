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

package osmpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// BlobHeader precedes every Blob in a PBF file.
type BlobHeader struct {
	Type      string
	IndexData []byte
	DataSize  int32
}

func UnmarshalBlobHeader(b []byte) (*BlobHeader, error) {
	h := &BlobHeader{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			h.Type = string(v)

			return rest, nil
		case 2:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			h.IndexData = v

			return rest, nil
		case 3:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			h.DataSize = int32(v)

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("osmpb: unmarshal BlobHeader: %w", err)
	}

	return h, nil
}

// Blob holds the (possibly compressed) bytes of a PrimitiveBlock or HeaderBlock.
type Blob struct {
	Raw      []byte
	RawSize  int32
	ZlibData []byte
	LzmaData []byte
	Lz4Data  []byte
	ZstdData []byte
}

func UnmarshalBlob(b []byte) (*Blob, error) {
	blob := &Blob{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.Raw = v

			return rest, nil
		case 2:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.RawSize = int32(v)

			return rest, nil
		case 3:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.ZlibData = v

			return rest, nil
		case 4:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.LzmaData = v

			return rest, nil
		case 6:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.Lz4Data = v

			return rest, nil
		case 7:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			blob.ZstdData = v

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("osmpb: unmarshal Blob: %w", err)
	}

	return blob, nil
}

// HeaderBBox is the file-level bounding box, in nanodegrees.
type HeaderBBox struct {
	Left, Right, Top, Bottom int64
}

// HeaderBlock is decoded from the Blob of the first (offset 0) entry in a
// PBF file.
type HeaderBlock struct {
	BBox                              *HeaderBBox
	RequiredFeatures                  []string
	OptionalFeatures                  []string
	WritingProgram                    string
	Source                            string
	OsmosisReplicationTimestamp       int64
	OsmosisReplicationSequenceNumber  int64
	OsmosisReplicationBaseURL         string
}

func unmarshalHeaderBBox(b []byte) (*HeaderBBox, error) {
	bbox := &HeaderBBox{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			bbox.Left = zigzag64(v)

			return rest, nil
		case 2:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			bbox.Right = zigzag64(v)

			return rest, nil
		case 3:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			bbox.Top = zigzag64(v)

			return rest, nil
		case 4:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			bbox.Bottom = zigzag64(v)

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, err
	}

	return bbox, nil
}

func UnmarshalHeaderBlock(b []byte) (*HeaderBlock, error) {
	hb := &HeaderBlock{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			bbox, err := unmarshalHeaderBBox(v)
			if err != nil {
				return nil, err
			}

			hb.BBox = bbox

			return rest, nil
		case 4:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.RequiredFeatures = append(hb.RequiredFeatures, string(v))

			return rest, nil
		case 5:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.OptionalFeatures = append(hb.OptionalFeatures, string(v))

			return rest, nil
		case 16:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.WritingProgram = string(v)

			return rest, nil
		case 17:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.Source = string(v)

			return rest, nil
		case 32:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.OsmosisReplicationTimestamp = int64(v)

			return rest, nil
		case 33:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.OsmosisReplicationSequenceNumber = int64(v)

			return rest, nil
		case 34:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			hb.OsmosisReplicationBaseURL = string(v)

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("osmpb: unmarshal HeaderBlock: %w", err)
	}

	return hb, nil
}

// StringTable is the per-block dictionary that keys/values/roles/users index into.
type StringTable struct {
	S [][]byte
}

func unmarshalStringTable(b []byte) (*StringTable, error) {
	st := &StringTable{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		if num != 1 {
			return skipField(typ, rest)
		}

		v, rest, err := consumeBytes(typ, rest)
		if err != nil {
			return nil, err
		}

		st.S = append(st.S, v)

		return rest, nil
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}

// Info carries version/changeset/user metadata for a Node, Way, or Relation.
type Info struct {
	Version    int32
	Timestamp  int64
	Changeset  int64
	UID        int32
	UserSid    uint32
	Visible    bool
	HasVisible bool
}

func unmarshalInfo(b []byte) (*Info, error) {
	info := &Info{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.Version = int32(v)

			return rest, nil
		case 2:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.Timestamp = int64(v)

			return rest, nil
		case 3:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.Changeset = int64(v)

			return rest, nil
		case 4:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.UID = int32(v)

			return rest, nil
		case 5:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.UserSid = uint32(v)

			return rest, nil
		case 6:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			info.Visible = v != 0
			info.HasVisible = true

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// DenseInfo is the struct-of-arrays, delta-encoded counterpart to Info used
// by DenseNodes. Values are zigzag-decoded but NOT delta-accumulated; the
// caller walks the parallel arrays and accumulates the running sums.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64
	Changeset []int64
	UID       []int32
	UserSid   []int32
	Visible   []bool
}

func unmarshalDenseInfo(b []byte) (*DenseInfo, error) {
	di := &DenseInfo{}

	var (
		version, timestamp, changeset, uid, userSid []uint64
		visible                                     []uint64
	)

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		var err error

		switch num {
		case 1:
			version, rest, err = consumePackedVarint(typ, rest, version)
		case 2:
			timestamp, rest, err = consumePackedVarint(typ, rest, timestamp)
		case 3:
			changeset, rest, err = consumePackedVarint(typ, rest, changeset)
		case 4:
			uid, rest, err = consumePackedVarint(typ, rest, uid)
		case 5:
			userSid, rest, err = consumePackedVarint(typ, rest, userSid)
		case 6:
			visible, rest, err = consumePackedVarint(typ, rest, visible)
		default:
			rest, err = skipField(typ, rest)
		}

		return rest, err
	})
	if err != nil {
		return nil, err
	}

	di.Version = make([]int32, len(version))
	for i, v := range version {
		di.Version[i] = int32(v)
	}

	di.Timestamp = make([]int64, len(timestamp))
	for i, v := range timestamp {
		di.Timestamp[i] = zigzag64(v)
	}

	di.Changeset = make([]int64, len(changeset))
	for i, v := range changeset {
		di.Changeset[i] = zigzag64(v)
	}

	di.UID = make([]int32, len(uid))
	for i, v := range uid {
		di.UID[i] = zigzag32(v)
	}

	di.UserSid = make([]int32, len(userSid))
	for i, v := range userSid {
		di.UserSid[i] = zigzag32(v)
	}

	if len(visible) > 0 {
		di.Visible = make([]bool, len(visible))
		for i, v := range visible {
			di.Visible[i] = v != 0
		}
	}

	return di, nil
}

// Node is a plain (non-dense) node entry.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Lat  int64
	Lon  int64
}

func unmarshalNode(b []byte) (*Node, error) {
	n := &Node{}

	var keys, vals []uint64

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		var err error

		switch num {
		case 1:
			v, r, e := consumeVarint(typ, rest)
			n.ID, rest, err = zigzag64(v), r, e
		case 2:
			keys, rest, err = consumePackedVarint(typ, rest, keys)
		case 3:
			vals, rest, err = consumePackedVarint(typ, rest, vals)
		case 4:
			var v []byte
			v, rest, err = consumeBytes(typ, rest)

			if err == nil {
				n.Info, err = unmarshalInfo(v)
			}
		case 8:
			v, r, e := consumeVarint(typ, rest)
			n.Lat, rest, err = zigzag64(v), r, e
		case 9:
			v, r, e := consumeVarint(typ, rest)
			n.Lon, rest, err = zigzag64(v), r, e
		default:
			rest, err = skipField(typ, rest)
		}

		return rest, err
	})
	if err != nil {
		return nil, err
	}

	n.Keys = toUint32Slice(keys)
	n.Vals = toUint32Slice(vals)

	return n, nil
}

// DenseNodes is the struct-of-arrays encoding used by almost all real-world
// PBF extracts.
type DenseNodes struct {
	ID        []int64 // raw (zigzag-decoded, not yet delta-accumulated) deltas
	DenseInfo *DenseInfo
	Lat       []int64 // raw deltas
	Lon       []int64 // raw deltas
	KeysVals  []int32
}

func unmarshalDenseNodes(b []byte) (*DenseNodes, error) {
	dn := &DenseNodes{}

	var id, lat, lon []uint64

	var keysVals []uint64

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		var err error

		switch num {
		case 1:
			id, rest, err = consumePackedVarint(typ, rest, id)
		case 5:
			var v []byte
			v, rest, err = consumeBytes(typ, rest)

			if err == nil {
				dn.DenseInfo, err = unmarshalDenseInfo(v)
			}
		case 8:
			lat, rest, err = consumePackedVarint(typ, rest, lat)
		case 9:
			lon, rest, err = consumePackedVarint(typ, rest, lon)
		case 10:
			keysVals, rest, err = consumePackedVarint(typ, rest, keysVals)
		default:
			rest, err = skipField(typ, rest)
		}

		return rest, err
	})
	if err != nil {
		return nil, err
	}

	dn.ID = toZigzag64Slice(id)
	dn.Lat = toZigzag64Slice(lat)
	dn.Lon = toZigzag64Slice(lon)

	dn.KeysVals = make([]int32, len(keysVals))
	for i, v := range keysVals {
		// key/val string-table indices are plain (non-zigzag) varints except
		// for the 0 delimiter, which round-trips through int32 either way.
		dn.KeysVals[i] = int32(v)
	}

	return dn, nil
}

// Way is an ordered list of node refs plus tags.
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Refs []int64 // raw deltas, zigzag-decoded
}

func unmarshalWay(b []byte) (*Way, error) {
	w := &Way{}

	var keys, vals, refs []uint64

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		var err error

		switch num {
		case 1:
			v, r, e := consumeVarint(typ, rest)
			w.ID, rest, err = int64(v), r, e
		case 2:
			keys, rest, err = consumePackedVarint(typ, rest, keys)
		case 3:
			vals, rest, err = consumePackedVarint(typ, rest, vals)
		case 4:
			var v []byte
			v, rest, err = consumeBytes(typ, rest)

			if err == nil {
				w.Info, err = unmarshalInfo(v)
			}
		case 8:
			refs, rest, err = consumePackedVarint(typ, rest, refs)
		default:
			rest, err = skipField(typ, rest)
		}

		return rest, err
	})
	if err != nil {
		return nil, err
	}

	w.Keys = toUint32Slice(keys)
	w.Vals = toUint32Slice(vals)
	w.Refs = toZigzag64Slice(refs)

	return w, nil
}

// MemberType mirrors the PBF Relation.MemberType enum.
type MemberType int32

const (
	MemberNode     MemberType = 0
	MemberWay      MemberType = 1
	MemberRelation MemberType = 2
)

// Relation is an ordered list of typed, delta-id-encoded members plus tags.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	Info     *Info
	RolesSid []int32
	Memids   []int64 // raw deltas, zigzag-decoded
	Types    []MemberType
}

func unmarshalRelation(b []byte) (*Relation, error) {
	r := &Relation{}

	var keys, vals, rolesSid, memids, types []uint64

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		var err error

		switch num {
		case 1:
			v, rr, e := consumeVarint(typ, rest)
			r.ID, rest, err = int64(v), rr, e
		case 2:
			keys, rest, err = consumePackedVarint(typ, rest, keys)
		case 3:
			vals, rest, err = consumePackedVarint(typ, rest, vals)
		case 4:
			var v []byte
			v, rest, err = consumeBytes(typ, rest)

			if err == nil {
				r.Info, err = unmarshalInfo(v)
			}
		case 8:
			rolesSid, rest, err = consumePackedVarint(typ, rest, rolesSid)
		case 9:
			memids, rest, err = consumePackedVarint(typ, rest, memids)
		case 10:
			types, rest, err = consumePackedVarint(typ, rest, types)
		default:
			rest, err = skipField(typ, rest)
		}

		return rest, err
	})
	if err != nil {
		return nil, err
	}

	r.Keys = toUint32Slice(keys)
	r.Vals = toUint32Slice(vals)

	r.RolesSid = make([]int32, len(rolesSid))
	for i, v := range rolesSid {
		r.RolesSid[i] = int32(v)
	}

	r.Memids = toZigzag64Slice(memids)

	r.Types = make([]MemberType, len(types))
	for i, v := range types {
		r.Types[i] = MemberType(v)
	}

	return r, nil
}

// PrimitiveGroup holds exactly one of the four element collections, per the
// PBF format's own invariant.
type PrimitiveGroup struct {
	Nodes     []*Node
	Dense     *DenseNodes
	Ways      []*Way
	Relations []*Relation
}

// PrimitiveBlock is the payload of every non-header Blob.
type PrimitiveBlock struct {
	StringTable     *StringTable
	PrimitiveGroup  []*PrimitiveGroup
	Granularity     int32
	LatOffset       int64
	LonOffset       int64
	DateGranularity int32
}

func unmarshalPrimitiveGroup(b []byte) (*PrimitiveGroup, error) {
	pg := &PrimitiveGroup{}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			n, err := unmarshalNode(v)
			if err != nil {
				return nil, err
			}

			pg.Nodes = append(pg.Nodes, n)

			return rest, nil
		case 2:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			dn, err := unmarshalDenseNodes(v)
			if err != nil {
				return nil, err
			}

			pg.Dense = dn

			return rest, nil
		case 3:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			w, err := unmarshalWay(v)
			if err != nil {
				return nil, err
			}

			pg.Ways = append(pg.Ways, w)

			return rest, nil
		case 4:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			r, err := unmarshalRelation(v)
			if err != nil {
				return nil, err
			}

			pg.Relations = append(pg.Relations, r)

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, err
	}

	return pg, nil
}

const (
	defaultGranularity     = 100
	defaultDateGranularity = 1000
)

func UnmarshalPrimitiveBlock(b []byte) (*PrimitiveBlock, error) {
	blk := &PrimitiveBlock{
		Granularity:     defaultGranularity,
		DateGranularity: defaultDateGranularity,
	}

	err := forEachField(b, func(num protowire.Number, typ protowire.Type, rest []byte) ([]byte, error) {
		switch num {
		case 1:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			st, err := unmarshalStringTable(v)
			if err != nil {
				return nil, err
			}

			blk.StringTable = st

			return rest, nil
		case 2:
			v, rest, err := consumeBytes(typ, rest)
			if err != nil {
				return nil, err
			}

			pg, err := unmarshalPrimitiveGroup(v)
			if err != nil {
				return nil, err
			}

			blk.PrimitiveGroup = append(blk.PrimitiveGroup, pg)

			return rest, nil
		case 17:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			blk.Granularity = int32(v)

			return rest, nil
		case 19:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			blk.LatOffset = zigzag64(v)

			return rest, nil
		case 20:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			blk.LonOffset = zigzag64(v)

			return rest, nil
		case 18:
			v, rest, err := consumeVarint(typ, rest)
			if err != nil {
				return nil, err
			}

			blk.DateGranularity = int32(v)

			return rest, nil
		default:
			return skipField(typ, rest)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("osmpb: unmarshal PrimitiveBlock: %w", err)
	}

	return blk, nil
}

func toUint32Slice(v []uint64) []uint32 {
	out := make([]uint32, len(v))
	for i, x := range v {
		out[i] = uint32(x)
	}

	return out
}

func toZigzag64Slice(v []uint64) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = zigzag64(x)
	}

	return out
}
