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
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	osmingest "github.com/maguro/osmingest"
	"github.com/maguro/osmingest/cmd/osmingest/cli"
	"github.com/maguro/osmingest/internal/progress"
	"github.com/maguro/osmingest/internal/scan"
	"github.com/maguro/osmingest/internal/store/memstore"
)

func init() {
	cli.RootCmd.AddCommand(ingestCmd)

	flags := ingestCmd.Flags()
	flags.String("scan", "", "path to a table written by 'scan' (rescans the file if omitted)")
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use for decoding")
	flags.Bool("nodes", true, "ingest nodes")
	flags.Bool("ways", true, "ingest ways")
	flags.Bool("relations", true, "ingest relations")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <OSM PBF file>",
	Short: "Decode a PBF file's elements into a tiled spatial store",
	Long:  "ingest classifies, denormalizes, and writes every element in a PBF file into the reference in-memory store, reporting per-stage progress to stderr.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			log.Fatal(err)
		}

		nodes, _ := flags.GetBool("nodes")
		ways, _ := flags.GetBool("ways")
		relations, _ := flags.GetBool("relations")

		scanPath, err := flags.GetString("scan")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		tbl, err := loadOrBuildTable(ctx, args[0], scanPath)
		if err != nil {
			log.Fatal(err)
		}

		s := memstore.New()
		dict := defaultDictionary()
		prog := ingestProgress()

		stop := osmingest.MonitorProgress(ctx, prog)

		printProgress := make(chan struct{})
		go tickProgress(prog, printProgress)

		err = osmingest.Ingest(ctx, s, args[0], tbl, dict, prog,
			osmingest.WithNCPU(int(ncpu)),
			osmingest.WithKinds(nodes, ways, relations),
		)

		stop()
		close(printProgress)

		if err != nil {
			log.Fatal(err)
		}

		fmt.Fprint(os.Stderr, prog.String())

		for _, stage := range []string{osmingest.StageNodes, osmingest.StageWays, osmingest.StageRelations} {
			fmt.Fprintf(os.Stderr, "%s: %s\n", stage, humanize.Comma(int64(prog.Stage(stage).Count())))
		}
	},
}

func tickProgress(prog *progress.Progress, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fmt.Fprint(os.Stderr, "\033[2K\r"+prog.String())
		}
	}
}

func loadOrBuildTable(ctx context.Context, pbfPath, scanPath string) (*scan.Table, error) {
	if scanPath == "" {
		return osmingest.Scan(ctx, pbfPath)
	}

	f, err := os.Open(scanPath)
	if err != nil {
		return nil, fmt.Errorf("open scan table: %w", err)
	}
	defer f.Close()

	return scan.Read(f)
}
