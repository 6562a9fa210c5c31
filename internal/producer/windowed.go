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

package producer

import (
	"fmt"
	"io"

	"github.com/maguro/osmingest/internal/core"
	"github.com/maguro/osmingest/internal/decoder"
	"github.com/maguro/osmingest/internal/scan"
	"github.com/maguro/osmingest/model"
)

// Window is one bounded-memory pass over a kind's elements: Next is the
// blob offset to resume from on the following call, or nil when the file
// is exhausted.
type Window struct {
	Entities []model.Entity
	Next     *int64
}

// GetWays returns the ways whose blob offsets are >= startOffset, up to
// but not exceeding maxElements cumulative elements, except that the first
// blob of a window is always taken whole, even when its element count
// alone exceeds maxElements.
func GetWays(ra io.ReaderAt, tbl *scan.Table, startOffset int64, maxElements int) (Window, error) {
	return getWindow(ra, tbl, scan.Way, startOffset, maxElements, func(e model.Entity) bool {
		_, ok := e.(model.Way)

		return ok
	})
}

// GetRelations returns the relations whose blob offsets are >= startOffset,
// up to but not exceeding maxElements cumulative elements, with the same
// exception as GetWays for a first blob larger than maxElements.
func GetRelations(ra io.ReaderAt, tbl *scan.Table, startOffset int64, maxElements int) (Window, error) {
	return getWindow(ra, tbl, scan.Relation, startOffset, maxElements, func(e model.Entity) bool {
		_, ok := e.(model.Relation)

		return ok
	})
}

func getWindow(
	ra io.ReaderAt,
	tbl *scan.Table,
	kind scan.Kind,
	startOffset int64,
	maxElements int,
	keep func(model.Entity) bool,
) (Window, error) {
	locs, counts := tbl.Locations(kind)

	buf := core.NewPooledBuffer()
	defer buf.Close()

	var (
		out   []model.Entity
		total int
	)

	for i, loc := range locs {
		if loc.Offset < startOffset {
			continue
		}

		if total > 0 && total+int(counts[i]) > maxElements {
			next := loc.Offset

			return Window{Entities: out, Next: &next}, nil
		}

		entities, err := decodeAndFilter(ra, buf, loc, keep)
		if err != nil {
			return Window{}, fmt.Errorf("unable to decode window blob at offset %d: %w", loc.Offset, err)
		}

		out = append(out, entities...)
		total += int(counts[i])

		buf.Reset()
	}

	return Window{Entities: out, Next: nil}, nil
}
