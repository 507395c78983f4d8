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

package shared

import (
	"github.com/spf13/cobra"
)

// Global flag values - set by root command
var (
	verboseFlag     bool
	quietFlag       bool
	jsonFlag        bool
	ciModeFlag      bool
	configFlag      string
	outputFlag      string
	providerFlag    string
	metricsAddrFlag string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlags binds the global flags to cmd's persistent flag set.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "Config file path (default: ~/.config/trailguide/config.yaml)")
	flags.BoolVar(&ciModeFlag, "ci-mode", false, "Skip .env loading and never prompt")
	flags.StringVarP(&outputFlag, "output", "o", "", "Results file path (default depends on the command)")
	flags.BoolVar(&jsonFlag, "json", false, "Print results as JSON")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Show debug logging")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Only show warnings and errors")
	flags.StringVar(&providerFlag, "provider", "", "Model provider (foundry, gemini)")
	flags.StringVar(&metricsAddrFlag, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetCIMode returns the ci-mode flag value
func GetCIMode() bool {
	return ciModeFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetOutputPath returns the --output value, or def when it is unset.
func GetOutputPath(def string) string {
	if outputFlag != "" {
		return outputFlag
	}
	return def
}

// GetProvider returns the --provider override.
func GetProvider() string {
	return providerFlag
}

// GetMetricsAddr returns the --metrics-addr value.
func GetMetricsAddr() string {
	return metricsAddrFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetConfigPathForTest sets the config path for testing purposes
func SetConfigPathForTest(path string) {
	configFlag = path
}

// ResetFlagsForTest clears every global flag value.
func ResetFlagsForTest() {
	verboseFlag, quietFlag, jsonFlag, ciModeFlag = false, false, false, false
	configFlag, outputFlag, providerFlag, metricsAddrFlag = "", "", "", ""
}
