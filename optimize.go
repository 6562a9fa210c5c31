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

	"github.com/maguro/osmingest/internal/optimize"
	"github.com/maguro/osmingest/internal/store"
)

// Optimize rebuilds in's rows into out as a grid of xdivs*ydivs
// locality-friendly trees, using NCPU workers (GOMAXPROCS unless WithNCPU
// overrides it). in is left untouched;
// out is expected to be empty.
func Optimize(ctx context.Context, in, out store.Store, xdivs, ydivs int, opts ...Option) error {
	o := newIngestOptions(opts...)

	return optimize.Optimize(ctx, in, out, xdivs, ydivs, optimize.DefaultOptions(o.NCPU))
}
