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

package xid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maguro/osmingest/internal/xid"
)

func TestEncodeDecode(t *testing.T) {
	cases := []struct {
		osmID int64
		kind  xid.Kind
	}{
		{1, xid.Node},
		{42, xid.Way},
		{9001, xid.Relation},
		{0, xid.Node},
	}

	for _, c := range cases {
		x := xid.Encode(c.osmID, c.kind)
		assert.Equal(t, c.osmID, x.OSMID())
		assert.Equal(t, c.kind, x.Kind())
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "node", xid.Node.String())
	assert.Equal(t, "way", xid.Way.String())
	assert.Equal(t, "relation", xid.Relation.String())
	assert.Equal(t, "unknown", xid.Kind(9).String())
}
