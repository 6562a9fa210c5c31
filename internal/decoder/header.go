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
	"io"
	"time"

	"github.com/maguro/osmingest/internal/osmpb"
	"github.com/maguro/osmingest/model"
)

// LoadHeader reads and decodes the leading HeaderBlock of a PBF file. r must
// be positioned at the start of the file.
func LoadHeader(r io.ReadSeeker) (*model.Header, error) {
	body, err := ReadFirstHeaderBlob(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read header blob: %w", err)
	}

	hb, err := osmpb.UnmarshalHeaderBlock(body)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal header block: %w", err)
	}

	h := &model.Header{
		RequiredFeatures:                 hb.RequiredFeatures,
		OptionalFeatures:                 hb.OptionalFeatures,
		WritingProgram:                   hb.WritingProgram,
		Source:                           hb.Source,
		OsmosisReplicationSequenceNumber: hb.OsmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        hb.OsmosisReplicationBaseURL,
	}

	if hb.OsmosisReplicationTimestamp != 0 {
		h.OsmosisReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0).UTC()
	}

	if hb.BBox != nil {
		h.BoundingBox = &model.BoundingBox{
			Left:   model.ToDegrees(0, 1, hb.BBox.Left),
			Right:  model.ToDegrees(0, 1, hb.BBox.Right),
			Top:    model.ToDegrees(0, 1, hb.BBox.Top),
			Bottom: model.ToDegrees(0, 1, hb.BBox.Bottom),
		}
	}

	return h, nil
}
