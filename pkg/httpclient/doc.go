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

// Package httpclient builds the HTTP clients used to reach model endpoints
// and the AI project API.
//
// Every client created by New:
//   - logs requests with sanitized URLs and durations
//   - sets a User-Agent header unless the caller already did
//   - adds any static headers from Config (e.g. a session identifier)
//   - requires TLS 1.2 or newer
//
// Retries are not performed here. Model calls are retried, when configured,
// by llm.WithRetry so that every attempt is visible in traces.
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Headers = map[string]string{"x-session-id": id}
//	client, err := httpclient.New(cfg)
package httpclient
