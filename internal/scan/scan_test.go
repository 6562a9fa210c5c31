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

package scan_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/scan"
)

func TestTableLookup(t *testing.T) {
	tbl := scan.New()
	tbl.Add(scan.Node, scan.Interval{MinID: 1, MaxID: 100, Loc: decoder.BlobLoc{Offset: 10, Length: 5}, Count: 50})
	tbl.Add(scan.Node, scan.Interval{MinID: 80, MaxID: 200, Loc: decoder.BlobLoc{Offset: 20, Length: 5}, Count: 50})
	tbl.Add(scan.Way, scan.Interval{MinID: 1, MaxID: 10, Loc: decoder.BlobLoc{Offset: 30, Length: 5}, Count: 10})
	tbl.Finalize()

	got := tbl.Lookup(scan.Node, 90)
	assert.Len(t, got, 2)

	got = tbl.Lookup(scan.Node, 5)
	assert.Len(t, got, 1)

	got = tbl.Lookup(scan.Node, 9999)
	assert.Empty(t, got)

	got = tbl.Lookup(scan.Way, 5)
	require.Len(t, got, 1)
	assert.Equal(t, int64(30), got[0].Loc.Offset)
}

func TestTableMerge(t *testing.T) {
	a := scan.New()
	a.Add(scan.Node, scan.Interval{MinID: 1, MaxID: 10, Loc: decoder.BlobLoc{Offset: 1}})

	b := scan.New()
	b.Add(scan.Node, scan.Interval{MinID: 11, MaxID: 20, Loc: decoder.BlobLoc{Offset: 2}})

	merged := a.Merge(b)
	merged.Finalize()

	assert.Len(t, merged.Lookup(scan.Node, 5), 1)
	assert.Len(t, merged.Lookup(scan.Node, 15), 1)
}

func TestTableRoundTripPersistence(t *testing.T) {
	tbl := scan.New()
	tbl.Add(scan.Node, scan.Interval{MinID: -5, MaxID: 100, Loc: decoder.BlobLoc{Offset: 10, Length: 5}, Count: 50})
	tbl.Add(scan.Way, scan.Interval{MinID: 1, MaxID: 10, Loc: decoder.BlobLoc{Offset: 30, Length: 7}, Count: 10})
	tbl.Finalize()

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf))

	got, err := scan.Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, tbl.Lookup(scan.Node, 50), got.Lookup(scan.Node, 50))
	assert.Equal(t, tbl.Lookup(scan.Way, 5), got.Lookup(scan.Way, 5))
}
