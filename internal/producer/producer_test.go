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

package producer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/producer"
	"github.com/maguro/osmingest/internal/scan"
)

// emptyReaderAt never returns bytes, verifying Nodes gracefully closes its
// output channel when the scan table has no locations for a kind.
type emptyReaderAt struct{}

func (emptyReaderAt) ReadAt(p []byte, off int64) (int, error) { return 0, nil }

func TestNodesClosesOnEmptyTable(t *testing.T) {
	tbl := scan.New()
	tbl.Finalize()

	ch := producer.Nodes(context.Background(), emptyReaderAt{}, tbl, producer.Options{ChannelSize: 1, ChunkSize: 1, NCPU: 2})

	_, ok := <-ch
	assert.False(t, ok)
}

func TestGetWaysEmptyTable(t *testing.T) {
	tbl := scan.New()
	tbl.Finalize()

	win, err := producer.GetWays(emptyReaderAt{}, tbl, 0, 100)
	require.NoError(t, err)
	assert.Nil(t, win.Next)
	assert.Empty(t, win.Entities)
}
