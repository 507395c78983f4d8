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

// Package clitest runs commands end to end against a scripted provider.
package clitest

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/session"
	"github.com/tombee/trailguide/pkg/llm"
)

// isolatedEnv lists variables that would otherwise leak a developer's
// project, telemetry sink or provider choice into a test.
var isolatedEnv = []string{
	"AZURE_EXISTING_AIPROJECT_ENDPOINT",
	"AZURE_EXISTING_AGENT_ID",
	"PROJECT_CONNECTION_STRING",
	"APPLICATIONINSIGHTS_CONNECTION_STRING",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT",
	"TRAILGUIDE_PROVIDER",
	"TRAILGUIDE_MODEL",
	"TRAILGUIDE_DEBUG",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// Setup isolates the environment, routes every session through provider
// and returns the exporter receiving the session's spans.
func Setup(t *testing.T, provider llm.Provider) *tracetest.InMemoryExporter {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range isolatedEnv {
		t.Setenv(k, "")
	}
	t.Chdir(dir)

	exporter := tracetest.NewInMemoryExporter()
	shared.SetSessionOptionsForTest(session.Options{
		Provider:      provider,
		TracerOptions: []sdktrace.TracerProviderOption{sdktrace.WithSyncer(exporter)},
	})
	t.Cleanup(func() {
		shared.SetSessionOptionsForTest(session.Options{})
		shared.ResetFlagsForTest()
	})
	return exporter
}

// Execute runs cmd under a root carrying the global flags and returns
// what it wrote to stdout and stderr.
func Execute(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := &cobra.Command{Use: "trailguide", SilenceUsage: true, SilenceErrors: true}
	shared.RegisterFlags(root)
	root.SetFlagErrorFunc(shared.FlagErrorFunc)
	root.AddCommand(cmd)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{cmd.Name(), "--ci-mode"}, args...))

	err = root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}
