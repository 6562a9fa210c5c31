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

package writer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/store"
	"github.com/maguro/osmingest/internal/store/memstore"
	"github.com/maguro/osmingest/internal/writer"
)

func TestInsertThenDeleteCancelsBoth(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})

	require.NoError(t, w.Write(ctx, writer.Insert, 1, store.Scalar(1, 1), []byte("a")))
	require.NoError(t, w.Write(ctx, writer.Delete, 1, store.Scalar(1, 1), nil))
	require.NoError(t, w.Flush(ctx))

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateOverPendingInsertReplacesPayload(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})

	require.NoError(t, w.Write(ctx, writer.Insert, 1, store.Scalar(1, 1), []byte("a")))
	require.NoError(t, w.Write(ctx, writer.Update, 1, store.Scalar(1, 1), []byte("b")))
	require.NoError(t, w.Flush(ctx))

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("b"), got[0].Value)
}

func TestUpdateOverNothingBecomesDeleteInsertPair(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})

	require.NoError(t, w.Write(ctx, writer.Update, 1, store.Scalar(1, 1), []byte("fresh")))
	require.NoError(t, w.Flush(ctx))

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("fresh"), got[0].Value)
}

func TestUpdateOverPendingDeleteKeepsDeleteAppendsInsert(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Batch(context.Background(), []store.Row{
		{Point: store.Scalar(1, 1), ID: 1, Value: []byte("old")},
	}))

	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})
	require.NoError(t, w.Write(ctx, writer.Delete, 1, store.Scalar(1, 1), nil))
	require.NoError(t, w.Write(ctx, writer.Update, 1, store.Scalar(1, 1), []byte("new")))
	require.NoError(t, w.Flush(ctx))

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("new"), got[0].Value)
}

func TestDeleteOverPendingUpdateDropsInsertHalf(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})

	require.NoError(t, w.Write(ctx, writer.Update, 1, store.Scalar(1, 1), []byte("fresh")))
	require.NoError(t, w.Write(ctx, writer.Delete, 1, store.Scalar(1, 1), nil))
	require.NoError(t, w.Flush(ctx))

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlushTriggersSyncAtInterval(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memstore.New()}
	w := writer.New(s, writer.Options{BatchSize: 2, SyncInterval: 2})

	require.NoError(t, w.Write(ctx, writer.Insert, 1, store.Scalar(1, 1), nil))
	require.NoError(t, w.Write(ctx, writer.Insert, 2, store.Scalar(2, 2), nil))

	assert.Equal(t, 1, s.syncs)
}

func TestCloseFlushesAndSyncsRegardlessOfInterval(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{Store: memstore.New()}
	w := writer.New(s, writer.Options{BatchSize: 100, SyncInterval: 100})

	require.NoError(t, w.Write(ctx, writer.Insert, 1, store.Scalar(1, 1), nil))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, 1, s.syncs)

	got, err := s.Query(ctx, store.Interval(-180, 180, -90, 90))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type countingStore struct {
	*memstore.Store
	syncs int
}

func (c *countingStore) Sync(ctx context.Context) error {
	c.syncs++

	return c.Store.Sync(ctx)
}
