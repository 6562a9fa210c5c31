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

package optimize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/optimize"
	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/store/memstore"
	"github.com/maguro/osmingest/internal/xid"
)

func TestOptimizeEmptyInputIsNoop(t *testing.T) {
	ctx := context.Background()
	in := memstore.New()
	out := memstore.New()

	require.NoError(t, optimize.Optimize(ctx, in, out, 2, 2, optimize.DefaultOptions(1)))

	roots, err := out.Roots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestOptimizeProducesEquivalentRowSet(t *testing.T) {
	ctx := context.Background()
	in := memstore.New()
	out := memstore.New()

	var rows []store.Row
	for i := 0; i < 40; i++ {
		x := float64(i % 10)
		y := float64(i / 10)
		rows = append(rows, store.Row{
			Point: store.Scalar(x, y),
			ID:    xidFor(i),
			Value: []byte{byte(i)},
		})
	}

	_, err := in.BuildTree(ctx, rows)
	require.NoError(t, err)

	opts := optimize.Options{MaxPerBucket: 5, NWorkers: 3}
	require.NoError(t, optimize.Optimize(ctx, in, out, 2, 2, opts))

	got, err := out.Query(ctx, store.Interval(-1000, 1000, -1000, 1000))
	require.NoError(t, err)
	assert.Len(t, got, len(rows))

	seen := make(map[int64][]byte, len(got))
	for _, r := range got {
		seen[int64(r.ID)] = r.Value
	}

	for _, r := range rows {
		v, ok := seen[int64(r.ID)]
		assert.True(t, ok, "missing row %d after optimize", r.ID)
		assert.Equal(t, r.Value, v)
	}
}

func TestOptimizeDedupesIntervalsSpanningCells(t *testing.T) {
	ctx := context.Background()
	in := memstore.New()
	out := memstore.New()

	// a way whose bbox spans the whole grid would otherwise be returned,
	// and rebuilt, by every cell that overlaps it.
	spanning := store.Row{Point: store.Interval(0, 10, 0, 10), ID: xidFor(999)}
	_, err := in.BuildTree(ctx, []store.Row{spanning})
	require.NoError(t, err)

	require.NoError(t, optimize.Optimize(ctx, in, out, 2, 2, optimize.DefaultOptions(2)))

	got, err := out.Query(ctx, store.Interval(-1000, 1000, -1000, 1000))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, spanning.ID, got[0].ID)
}

func xidFor(i int) xid.ID {
	return xid.Encode(int64(i), xid.Node)
}
