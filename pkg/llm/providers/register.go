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

// Package providers registers the built-in model provider factories.
//
// Import this package for its side effects:
//
//	import _ "github.com/tombee/trailguide/pkg/llm/providers"
//
// Registration does not instantiate anything; call llm.NewProvider.
package providers

import "github.com/tombee/trailguide/pkg/llm"

func init() {
	// Azure AI Foundry responses API, optionally routed to a hosted agent
	llm.RegisterFactory(foundryName, NewFoundryProvider)

	// Google Gemini API
	llm.RegisterFactory(geminiName, NewGeminiProvider)
}
