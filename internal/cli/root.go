// Copyright 2025 Tom Barlow
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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/commands/chain"
	"github.com/tombee/trailguide/internal/commands/monitor"
	"github.com/tombee/trailguide/internal/commands/secrets"
	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/commands/spans"
	"github.com/tombee/trailguide/internal/commands/trace"
	"github.com/tombee/trailguide/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trailguide",
		Short: "trailguide - prompt chains and telemetry labs for a hosted model",
		Long: `trailguide drives a hosted language model through fixed sequences of
requests and reports what happened.

  chain    recommends a hike, profiles it and matches gear to the store catalog
  monitor  sends a batch of traced requests and validates the monitoring setup
  trace    runs a traced multi-step workflow plus an error scenario

Each command writes a JSON results file and prints a summary. Configuration
comes from ~/.config/trailguide/config.yaml, .env files and the environment.`,
		Args:          shared.NoArgs,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	shared.RegisterFlags(cmd)
	cmd.SetFlagErrorFunc(shared.FlagErrorFunc)

	cmd.AddCommand(
		chain.NewCommand(),
		monitor.NewCommand(),
		trace.NewCommand(),
		spans.NewCommand(),
		secrets.NewCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
