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

// Package cli holds the shared cobra root command every osmingest
// subcommand registers itself against from its own init, plus the small
// pflag.Value and progress-bar helpers those subcommands share.
package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd is the top-level osmingest command; each subcommand package
// calls RootCmd.AddCommand from its own init.
var RootCmd = &cobra.Command{
	Use:   "osmingest",
	Short: "Ingest OpenStreetMap PBF extracts into a tiled spatial store",
	Long:  "osmingest scans, ingests, and optimizes OpenStreetMap PBF extracts into a tiled spatial store.",
}
