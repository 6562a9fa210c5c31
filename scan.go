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

package osmingest

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/maguro/osmingest/internal/scan"
)

// ScanTable is the index from (kind, id range) to the blobs containing
// those elements, built once and reused across one or more Ingest calls.
type ScanTable = scan.Table

// Scan walks pbfPath's blob headers and returns a ScanTable covering every
// node, way, and relation the file holds. It does not decode element
// payloads beyond what's needed to learn each blob's id range.
func Scan(ctx context.Context, pbfPath string) (*ScanTable, error) {
	f, err := os.Open(pbfPath)
	if err != nil {
		return nil, fmt.Errorf("scan: open %s: %w", pbfPath, err)
	}
	defer f.Close()

	tbl, err := scan.Scan(ctx, f, f, runtime.GOMAXPROCS(-1))
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return tbl, nil
}
