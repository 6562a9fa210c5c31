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

package progress_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maguro/osmingest/internal/progress"
)

func TestStageLifecycle(t *testing.T) {
	p := progress.New("scan", "ingest")

	scan := p.Stage("scan")
	require.NotNil(t, scan)

	p.Add("scan", 5) // silent no-op: scan hasn't started
	assert.EqualValues(t, 0, scan.Count())

	p.Start("scan")
	p.Add("scan", 5)
	assert.EqualValues(t, 5, scan.Count())

	p.End("scan")
	p.Add("scan", 5) // silent no-op: scan has ended
	assert.EqualValues(t, 5, scan.Count())
}

func TestUnknownStageIsNil(t *testing.T) {
	p := progress.New("scan")
	assert.Nil(t, p.Stage("nope"))
}

func TestRateRequiresTwoSamples(t *testing.T) {
	p := progress.New("ingest")
	ingest := p.Stage("ingest")

	p.Start("ingest")
	_, ok := ingest.Rate()
	assert.False(t, ok)

	ingest.Tick()
	_, ok = ingest.Rate()
	assert.False(t, ok, "a single sample cannot produce a rate")

	p.Add("ingest", 100)
	ingest.Tick()
	_, ok = ingest.Rate()
	assert.True(t, ok)
}

func TestRecordErrorBoundedRingBuffer(t *testing.T) {
	p := progress.New("ingest")
	ingest := p.Stage("ingest")

	ingest.RecordError(errors.New("not yet running"))
	assert.Empty(t, ingest.Errors())

	p.Start("ingest")

	for i := 0; i < 60; i++ {
		ingest.RecordError(errors.New("boom"))
	}

	assert.Len(t, ingest.Errors(), 50)
}
