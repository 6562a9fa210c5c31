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
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/maguro/osmingest/cmd/osmingest/cli"
	"github.com/maguro/osmingest/internal/scan"
)

func init() {
	cli.RootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use for scanning")
	flags.StringP("out", "o", "", "path to write the scan table to (required)")

	if err := scanCmd.MarkFlagRequired("out"); err != nil {
		log.Fatal(err)
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan <OSM PBF file>",
	Short: "Index a PBF file's blob locations by element kind and id range",
	Long:  "scan walks a PBF file's blob headers and writes the resulting index to --out, for ingest to reuse through its --scan flag without rescanning.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		flags := cmd.Flags()

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			log.Fatal(err)
		}

		bar, err := cli.WrapFileProgress(f)
		if err != nil {
			log.Fatal(err)
		}

		tbl, err := scan.Scan(context.Background(), f, cli.SeekerProgress{ReadSeeker: f, Bar: bar}, int(ncpu))

		cli.FinishBar(bar)

		if err != nil {
			log.Fatal(err)
		}

		outPath, err := flags.GetString("out")
		if err != nil {
			log.Fatal(err)
		}

		out, err := os.Create(outPath)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()

		if err := tbl.Write(out); err != nil {
			log.Fatal(err)
		}
	},
}
