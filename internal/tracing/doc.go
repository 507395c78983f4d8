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
Package tracing wires OpenTelemetry into trailguide.

It builds an explicit OTelProvider (no process-global tracer provider is
installed), the span exporters named in configuration, a Prometheus-backed
MetricsCollector, and TracedProvider, which wraps any llm.Provider so every
model call emits a client span following the GenAI semantic conventions.

# Quick Start

	cfg := tracing.DefaultConfig()
	cfg.Enabled = true
	cfg.SessionID = sessionID
	cfg.Exporters = []tracing.ExporterConfig{{Type: "console"}}

	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg)
	if err != nil {
	    return err
	}
	defer provider.Shutdown(context.Background())

	tracer := provider.Tracer("trailguide.chain")
	model := provider.WrapProvider(llmProvider)

# Exporters

Supported exporter types are "console", "otlp" (gRPC), "otlp-http",
"appinsights" (derived from an Application Insights connection string) and
"sqlite" (local span store, see the storage package). An exporter that fails
to build is logged and skipped; it never fails the run.

# Content recording

Prompt and completion text is attached to model spans as events only when
Config.ContentRecording is set, and always after redaction.
*/
package tracing
