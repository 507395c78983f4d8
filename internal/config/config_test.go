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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

var envKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT",
	"AZURE_EXISTING_AIPROJECT_ENDPOINT", "PROJECT_CONNECTION_STRING", "AZURE_EXISTING_AGENT_ID",
	"TRAILGUIDE_PROVIDER", "TRAILGUIDE_MODEL", "LLM_REQUEST_TIMEOUT", "LLM_MAX_RETRIES",
	"AZURE_TENANT_ID", "AZURE_CLIENT_ID",
	"APPLICATIONINSIGHTS_CONNECTION_STRING", "OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// isolate clears every override and points XDG at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", LoadOptions{CIMode: true})
	require.NoError(t, err)

	assert.Equal(t, "foundry", cfg.LLM.Provider)
	assert.Equal(t, 120*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, 0, cfg.LLM.MaxCorrections)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Telemetry.ContentRecording)
	assert.Equal(t, 5, cfg.Monitor.Requests)
	assert.Equal(t, "trail_guide_results.json", cfg.Output.ChainFile)
	assert.Equal(t, "monitoring_results.json", cfg.Output.MonitorFile)
	assert.Equal(t, "tracing_results.json", cfg.Output.TraceFile)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", `
project:
  endpoint: https://file.example.com/api/projects/p1
  agent_name: file-agent
llm:
  model: gpt-4o
  max_corrections: 2
telemetry:
  redaction: strict
`)
	t.Setenv("AZURE_EXISTING_AGENT_ID", "env-agent")
	t.Setenv("OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT", "true")

	cfg, err := Load(path, LoadOptions{CIMode: true})
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/api/projects/p1", cfg.Project.Endpoint)
	assert.Equal(t, "env-agent", cfg.Project.AgentName)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.LLM.MaxCorrections)
	assert.Equal(t, "strict", cfg.Telemetry.Redaction)
	assert.True(t, cfg.Telemetry.Enabled, "unset keys keep their defaults")
	assert.True(t, cfg.Telemetry.ContentRecording)
}

func TestLoad_DotEnvSkippedInCIMode(t *testing.T) {
	dir := isolate(t)
	envFile := writeFile(t, dir, "lab.env", "AZURE_EXISTING_AGENT_ID=from-dotenv\n")
	os.Unsetenv("AZURE_EXISTING_AGENT_ID")

	cfg, err := Load("", LoadOptions{CIMode: true, EnvFiles: []string{envFile}})
	require.NoError(t, err)
	assert.Empty(t, cfg.Project.AgentName)

	cfg, err = Load("", LoadOptions{EnvFiles: []string{envFile}})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Project.AgentName)
	os.Unsetenv("AZURE_EXISTING_AGENT_ID")
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", "llm: [not a map")

	_, err := Load(path, LoadOptions{CIMode: true})
	require.Error(t, err)

	var configErr *tgerrors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "config_file", configErr.Key)
}

func TestLoad_ConnectionStringDerivesEndpoint(t *testing.T) {
	isolate(t)
	t.Setenv("PROJECT_CONNECTION_STRING", "eastus.api.azureml.ms;sub-1;rg-1;proj-1")

	cfg, err := Load("", LoadOptions{CIMode: true})
	require.NoError(t, err)
	assert.Equal(t,
		"https://eastus.api.azureml.ms/agents/v1.0/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.MachineLearningServices/workspaces/proj-1",
		cfg.Project.Endpoint)
}

func TestEndpointFromConnectionString_Invalid(t *testing.T) {
	for _, cs := range []string{"", "host;sub;rg", "host;;rg;proj"} {
		_, err := EndpointFromConnectionString(cs)
		var configErr *tgerrors.ConfigError
		require.ErrorAs(t, err, &configErr, "input %q", cs)
		assert.Equal(t, "project.connection_string", configErr.Key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty provider", func(c *Config) { c.LLM.Provider = " " }, "llm.provider"},
		{"zero timeout", func(c *Config) { c.LLM.RequestTimeout = 0 }, "llm.request_timeout"},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }, "llm.max_retries"},
		{"negative corrections", func(c *Config) { c.LLM.MaxCorrections = -1 }, "llm.max_corrections"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "telemetry.sample_rate"},
		{"redaction", func(c *Config) { c.Telemetry.Redaction = "some" }, "telemetry.redaction"},
		{"negative requests", func(c *Config) { c.Monitor.Requests = -2 }, "monitor.requests"},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var configErr *tgerrors.ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.key, configErr.Key)
		})
	}
}

func TestRequireProject(t *testing.T) {
	cfg := Default()
	var configErr *tgerrors.ConfigError
	require.ErrorAs(t, cfg.RequireProject(), &configErr)
	assert.Equal(t, "project.endpoint", configErr.Key)

	cfg.Project.Endpoint = "https://example.com"
	assert.NoError(t, cfg.RequireProject())
}

func TestTracingConfig(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.OTLPEndpoint = "http://localhost:4318"
	cfg.Telemetry.ContentRecording = true

	tc := cfg.TracingConfig("sess-1", "1.2.3")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "sess-1", tc.SessionID)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.True(t, tc.ContentRecording)
	require.Len(t, tc.Exporters, 1)
	assert.Equal(t, "otlp-http", tc.Exporters[0].Type)
	assert.True(t, tc.Exporters[0].TLS.Insecure)
}

func TestConfigDir_RespectsXDG(t *testing.T) {
	dir := isolate(t)
	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trailguide"), got)
}
