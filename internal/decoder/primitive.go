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

package decoder

import (
	"fmt"
	"time"

	"github.com/maguro/osmingest/internal/osmpb"
	"github.com/maguro/osmingest/model"
)

// ParsePrimitiveBlock decodes every element in a (decompressed)
// PrimitiveBlock, in the order its primitive groups appear.
func ParsePrimitiveBlock(buf []byte) ([]model.Entity, error) {
	blk, err := osmpb.UnmarshalPrimitiveBlock(buf)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal primitive block: %w", err)
	}

	c := newBlockContext(blk)

	entities := make([]model.Entity, 0)
	for _, pg := range blk.PrimitiveGroup {
		entities = append(entities, c.decodeNodes(pg.Nodes)...)
		entities = append(entities, c.decodeDenseNodes(pg.Dense)...)
		entities = append(entities, c.decodeWays(pg.Ways)...)
		entities = append(entities, c.decodeRelations(pg.Relations)...)
	}

	return entities, nil
}

type blockContext struct {
	strings         [][]byte
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32
}

func newBlockContext(blk *osmpb.PrimitiveBlock) *blockContext {
	var strings [][]byte
	if blk.StringTable != nil {
		strings = blk.StringTable.S
	}

	return &blockContext{
		strings:         strings,
		granularity:     blk.Granularity,
		latOffset:       blk.LatOffset,
		lonOffset:       blk.LonOffset,
		dateGranularity: blk.DateGranularity,
	}
}

func (c *blockContext) str(i uint32) string {
	if int(i) >= len(c.strings) {
		return ""
	}

	return string(c.strings[i])
}

func (c *blockContext) decodeNodes(nodes []*osmpb.Node) []model.Entity {
	entities := make([]model.Entity, len(nodes))

	for i, node := range nodes {
		entities[i] = model.Node{
			ID:   model.ID(node.ID),
			Tags: c.decodeTags(node.Keys, node.Vals),
			Info: c.decodeInfo(node.Info),
			Lat:  model.ToDegrees(c.latOffset, c.granularity, node.Lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, node.Lon),
		}
	}

	return entities
}

func (c *blockContext) decodeDenseNodes(nodes *osmpb.DenseNodes) []model.Entity {
	if nodes == nil {
		return nil
	}

	entities := make([]model.Entity, len(nodes.ID))

	tic := c.newTagsContext(nodes.KeysVals)
	dic := c.newDenseInfoContext(nodes.DenseInfo)

	var id, lat, lon int64

	for i := range nodes.ID {
		id += nodes.ID[i]
		lat += nodes.Lat[i]
		lon += nodes.Lon[i]

		entities[i] = model.Node{
			ID:   model.ID(id),
			Tags: tic.decodeTags(),
			Info: dic.decodeInfo(i),
			Lat:  model.ToDegrees(c.latOffset, c.granularity, lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, lon),
		}
	}

	return entities
}

func (c *blockContext) decodeWays(ways []*osmpb.Way) []model.Entity {
	entities := make([]model.Entity, len(ways))

	for i, way := range ways {
		nodeIDs := make([]model.ID, len(way.Refs))

		var nodeID int64

		for j, delta := range way.Refs {
			nodeID += delta
			nodeIDs[j] = model.ID(nodeID)
		}

		entities[i] = model.Way{
			ID:      model.ID(way.ID),
			Tags:    c.decodeTags(way.Keys, way.Vals),
			NodeIDs: nodeIDs,
			Info:    c.decodeInfo(way.Info),
		}
	}

	return entities
}

func (c *blockContext) decodeRelations(relations []*osmpb.Relation) []model.Entity {
	entities := make([]model.Entity, len(relations))

	for i, rel := range relations {
		entities[i] = model.Relation{
			ID:      model.ID(rel.ID),
			Tags:    c.decodeTags(rel.Keys, rel.Vals),
			Info:    c.decodeInfo(rel.Info),
			Members: c.decodeMembers(rel),
		}
	}

	return entities
}

func (c *blockContext) decodeMembers(rel *osmpb.Relation) []model.Member {
	members := make([]model.Member, len(rel.Memids))

	var memID int64

	for i := range rel.Memids {
		memID += rel.Memids[i]
		members[i] = model.Member{
			ID:   model.ID(memID),
			Type: decodeMemberType(rel.Types[i]),
			Role: c.str(uint32(rel.RolesSid[i])),
		}
	}

	return members
}

func (c *blockContext) decodeTags(keyIDs, valIDs []uint32) map[string]string {
	tags := make(map[string]string, len(keyIDs))

	for i, keyID := range keyIDs {
		tags[c.str(keyID)] = c.str(valIDs[i])
	}

	return tags
}

func (c *blockContext) decodeInfo(info *osmpb.Info) *model.Info {
	i := &model.Info{Visible: true}
	if info != nil {
		i.Version = info.Version
		i.Timestamp = toTimestamp(c.dateGranularity, int32(info.Timestamp))
		i.Changeset = info.Changeset
		i.UID = model.UID(info.UID)
		i.User = c.str(info.UserSid)

		if info.HasVisible {
			i.Visible = info.Visible
		}
	}

	return i
}

func (c *blockContext) newDenseInfoContext(di *osmpb.DenseInfo) *denseInfoContext {
	dic := &denseInfoContext{
		dateGranularity: c.dateGranularity,
		strings:         c.strings,
	}

	if di == nil {
		return dic
	}

	dic.versions = di.Version
	dic.uids = di.UID
	dic.timestamps = di.Timestamp
	dic.changesets = di.Changeset
	dic.userSids = di.UserSid
	dic.visibilities = di.Visible

	return dic
}

type denseInfoContext struct {
	version   int32
	timestamp int64
	changeset int64
	uid       int32
	userSid   int32

	dateGranularity int32
	strings         [][]byte
	versions        []int32
	uids            []int32
	timestamps      []int64
	changesets      []int64
	userSids        []int32
	visibilities    []bool
}

func (dic *denseInfoContext) str(i uint32) string {
	if int(i) >= len(dic.strings) {
		return ""
	}

	return string(dic.strings[i])
}

func (dic *denseInfoContext) decodeInfo(i int) *model.Info {
	if i >= len(dic.versions) {
		return &model.Info{Visible: true}
	}

	dic.version = dic.versions[i]
	dic.uid += dic.uids[i]
	dic.timestamp += dic.timestamps[i]
	dic.changeset += dic.changesets[i]
	dic.userSid += dic.userSids[i]

	info := &model.Info{
		Version:   dic.version,
		UID:       model.UID(dic.uid),
		Timestamp: toTimestamp(dic.dateGranularity, int32(dic.timestamp)),
		Changeset: dic.changeset,
		User:      dic.str(uint32(dic.userSid)),
	}

	if dic.visibilities == nil {
		info.Visible = true
	} else {
		info.Visible = dic.visibilities[i]
	}

	return info
}

type tagsContext struct {
	strings [][]byte
	i       int
	keyVals []int32
}

func (c *blockContext) newTagsContext(keyVals []int32) *tagsContext {
	tc := &tagsContext{strings: c.strings}

	if len(keyVals) != 0 {
		tc.keyVals = keyVals
	}

	return tc
}

func (tic *tagsContext) str(i int32) string {
	if i < 0 || int(i) >= len(tic.strings) {
		return ""
	}

	return string(tic.strings[i])
}

func (tic *tagsContext) decodeTags() map[string]string {
	if tic.keyVals == nil {
		return map[string]string{}
	}

	tags := make(map[string]string)
	i := tic.i

	for tic.keyVals[i] > 0 {
		tags[tic.str(tic.keyVals[i])] = tic.str(tic.keyVals[i+1])
		i += 2
	}

	tic.i = i + 1

	return tags
}

// decodeMemberType converts the wire MemberType enum to a model.EntityType.
func decodeMemberType(mt osmpb.MemberType) model.EntityType {
	switch mt {
	case osmpb.MemberNode:
		return model.NODE
	case osmpb.MemberWay:
		return model.WAY
	case osmpb.MemberRelation:
		return model.RELATION
	default:
		return model.WAY
	}
}

// toTimestamp converts a timestamp with a specific granularity, in units of
// milliseconds, to a UTC timestamp.
func toTimestamp(granularity int32, timestamp int32) time.Time {
	return time.UnixMilli(int64(timestamp) * int64(granularity)).UTC()
}
