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

/*
Package cli builds the trailguide command tree and handles global concerns
like version information, persistent flags and exit codes. Individual
commands live in the internal/commands subpackages.

# Command Tree

	trailguide
	├── chain      Run the trail guide prompt chain
	├── monitor    Generate model telemetry and validate monitoring
	├── trace      Run the traced hiking workflow and error scenario
	├── spans      Read spans recorded by the sqlite exporter
	├── secrets    Manage API keys in the system keychain
	└── version    Show version

# Exit Codes

	0  success
	1  configuration, model, decode or write failure
	2  invalid flags or arguments
*/
package cli
