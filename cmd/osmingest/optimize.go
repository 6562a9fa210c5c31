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

package main

import (
	"context"
	"log"
	"runtime"

	"github.com/spf13/cobra"

	osmingest "github.com/maguro/osmingest"
	"github.com/maguro/osmingest/cmd/osmingest/cli"
	"github.com/maguro/osmingest/internal/store/memstore"
)

func init() {
	cli.RootCmd.AddCommand(optimizeCmd)

	flags := optimizeCmd.Flags()
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of worker goroutines")
	flags.Int("xdivs", 8, "number of grid columns")
	flags.Int("ydivs", 8, "number of grid rows")
}

// optimizeCmd rebuilds a freshly-ingested store into a tiled copy; it
// exists mainly to exercise Optimize from the CLI surface since the
// reference memstore has no on-disk form to hand between invocations.
var optimizeCmd = &cobra.Command{
	Use:   "optimize <OSM PBF file>",
	Short: "Ingest then rebuild a PBF file's store into a locality-tiled copy",
	Long:  "optimize runs ingest against an in-memory store and rebuilds the result into a second store tiled into an xdivs x ydivs grid, demonstrating the optimize pass end to end.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			log.Fatal(err)
		}

		xdivs, err := flags.GetInt("xdivs")
		if err != nil {
			log.Fatal(err)
		}

		ydivs, err := flags.GetInt("ydivs")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		tbl, err := osmingest.Scan(ctx, args[0])
		if err != nil {
			log.Fatal(err)
		}

		in := memstore.New()
		dict := defaultDictionary()
		prog := ingestProgress()

		stop := osmingest.MonitorProgress(ctx, prog)

		if err := osmingest.Ingest(ctx, in, args[0], tbl, dict, prog, osmingest.WithNCPU(int(ncpu))); err != nil {
			stop()
			log.Fatal(err)
		}

		stop()

		out := memstore.New()

		if err := osmingest.Optimize(ctx, in, out, xdivs, ydivs, osmingest.WithNCPU(int(ncpu))); err != nil {
			log.Fatal(err)
		}

		log.Printf("optimized into a %dx%d grid", xdivs, ydivs)
	},
}
