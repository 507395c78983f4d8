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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/trailguide/internal/tracing"
	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Config represents the complete trailguide configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Project   ProjectConfig   `yaml:"project"`
	LLM       LLMConfig       `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Output    OutputConfig    `yaml:"output"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`
}

// ProjectConfig identifies the hosted AI project.
type ProjectConfig struct {
	// Endpoint is the project endpoint URL.
	// Environment: AZURE_EXISTING_AIPROJECT_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// ConnectionString is the legacy "host;subscription;resource_group;project"
	// form. It is used to derive Endpoint when Endpoint is empty.
	// Environment: PROJECT_CONNECTION_STRING
	ConnectionString string `yaml:"connection_string,omitempty"`

	// AgentName is the hosted agent every chain request is routed through.
	// Environment: AZURE_EXISTING_AGENT_ID
	AgentName string `yaml:"agent_name,omitempty"`

	// APIVersion is the data-plane API version.
	APIVersion string `yaml:"api_version,omitempty"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	// Provider selects the registered provider ("foundry" or "gemini").
	// Environment: TRAILGUIDE_PROVIDER
	// Default: foundry
	Provider string `yaml:"provider"`

	// Model overrides the provider default model.
	// Environment: TRAILGUIDE_MODEL
	Model string `yaml:"model,omitempty"`

	// Endpoint overrides the provider base URL (gemini only).
	Endpoint string `yaml:"endpoint,omitempty"`

	// RequestTimeout is the maximum duration for one model request.
	// Environment: LLM_REQUEST_TIMEOUT
	// Default: 120s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is the number of transport retries. Zero disables retries.
	// Environment: LLM_MAX_RETRIES
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffBase is the base duration for exponential backoff.
	// Default: 1s
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`

	// MaxCorrections is how many times a step re-asks the model after a
	// format failure. Zero fails the step on the first bad response.
	MaxCorrections int `yaml:"max_corrections"`
}

// AuthConfig configures service principal authentication. Client secrets
// and API keys are resolved through internal/secrets, never read from here.
type AuthConfig struct {
	// TenantID is the directory tenant.
	// Environment: AZURE_TENANT_ID
	TenantID string `yaml:"tenant_id,omitempty"`

	// ClientID is the service principal application ID.
	// Environment: AZURE_CLIENT_ID
	ClientID string `yaml:"client_id,omitempty"`

	// Scope is the token scope requested for the project.
	// Default: https://ai.azure.com/.default
	Scope string `yaml:"scope,omitempty"`

	// AuthorityHost is the token issuer base URL.
	// Default: https://login.microsoftonline.com
	AuthorityHost string `yaml:"authority_host,omitempty"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Enabled controls whether spans are exported at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ConnectionString is the Application Insights connection string. When
	// empty it is looked up through the project.
	// Environment: APPLICATIONINSIGHTS_CONNECTION_STRING
	ConnectionString string `yaml:"connection_string,omitempty"`

	// ContentRecording attaches prompts and completions to model spans.
	// Environment: OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT
	ContentRecording bool `yaml:"content_recording"`

	// Redaction is applied to recorded content: none, standard or strict.
	// Default: standard
	Redaction string `yaml:"redaction"`

	// SampleRate is the fraction of traces kept (0.0 - 1.0).
	// Default: 1.0
	SampleRate float64 `yaml:"sample_rate"`

	// OTLPEndpoint adds an otlp-http exporter for a local collector.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// Exporters lists additional export destinations.
	Exporters []tracing.ExporterConfig `yaml:"exporters,omitempty"`

	// MetricsAddr serves Prometheus metrics on this address while a command runs.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// MonitorConfig configures the telemetry generation lab.
type MonitorConfig struct {
	// Requests is the number of requests generated.
	// Default: 5
	Requests int `yaml:"requests"`

	// Interval paces requests. Zero sends them back to back.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`
}

// OutputConfig names the result files written by each command.
type OutputConfig struct {
	ChainFile   string `yaml:"chain_file"`
	MonitorFile string `yaml:"monitor_file"`
	TraceFile   string `yaml:"trace_file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Project: ProjectConfig{
			APIVersion: "2025-05-15-preview",
		},
		LLM: LLMConfig{
			Provider:         "foundry",
			RequestTimeout:   120 * time.Second,
			RetryBackoffBase: time.Second,
		},
		Auth: AuthConfig{
			Scope:         "https://ai.azure.com/.default",
			AuthorityHost: "https://login.microsoftonline.com",
		},
		Telemetry: TelemetryConfig{
			Enabled:    true,
			Redaction:  "standard",
			SampleRate: 1.0,
		},
		Monitor: MonitorConfig{
			Requests: 5,
			Interval: time.Second,
		},
		Output: OutputConfig{
			ChainFile:   "trail_guide_results.json",
			MonitorFile: "monitoring_results.json",
			TraceFile:   "tracing_results.json",
		},
	}
}

// LoadOptions controls how Load finds its inputs.
type LoadOptions struct {
	// CIMode skips .env loading.
	CIMode bool

	// EnvFiles are extra .env files loaded before the defaults.
	EnvFiles []string
}

// Load builds configuration from defaults, the YAML file, .env files and
// environment variables, in increasing precedence. An empty configPath uses
// the XDG config file when it exists.
func Load(configPath string, opts LoadOptions) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		configPath = defaultConfigFile()
	}
	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &tgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Hint:   "check the file exists and is valid YAML",
				Cause:  err,
			}
		}
	}

	if !opts.CIMode {
		if err := LoadDotEnv(configPath, opts.EnvFiles...); err != nil {
			return nil, &tgerrors.ConfigError{
				Key:    "env_file",
				Reason: "failed to load .env file",
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.resolveProjectEndpoint(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a minimal config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Project.APIVersion == "" {
		c.Project.APIVersion = defaults.Project.APIVersion
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.RequestTimeout == 0 {
		c.LLM.RequestTimeout = defaults.LLM.RequestTimeout
	}
	if c.LLM.RetryBackoffBase == 0 {
		c.LLM.RetryBackoffBase = defaults.LLM.RetryBackoffBase
	}
	if c.Auth.Scope == "" {
		c.Auth.Scope = defaults.Auth.Scope
	}
	if c.Auth.AuthorityHost == "" {
		c.Auth.AuthorityHost = defaults.Auth.AuthorityHost
	}
	if c.Telemetry.Redaction == "" {
		c.Telemetry.Redaction = defaults.Telemetry.Redaction
	}
	if c.Output.ChainFile == "" {
		c.Output.ChainFile = defaults.Output.ChainFile
	}
	if c.Output.MonitorFile == "" {
		c.Output.MonitorFile = defaults.Output.MonitorFile
	}
	if c.Output.TraceFile == "" {
		c.Output.TraceFile = defaults.Output.TraceFile
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies environment variable overrides.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}

	if val := os.Getenv("AZURE_EXISTING_AIPROJECT_ENDPOINT"); val != "" {
		c.Project.Endpoint = val
	}
	if val := os.Getenv("PROJECT_CONNECTION_STRING"); val != "" {
		c.Project.ConnectionString = val
	}
	if val := os.Getenv("AZURE_EXISTING_AGENT_ID"); val != "" {
		c.Project.AgentName = val
	}

	if val := os.Getenv("TRAILGUIDE_PROVIDER"); val != "" {
		c.LLM.Provider = strings.ToLower(val)
	}
	if val := os.Getenv("TRAILGUIDE_MODEL"); val != "" {
		c.LLM.Model = val
	}
	if val := os.Getenv("LLM_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.LLM.RequestTimeout = d
		}
	}
	if val := os.Getenv("LLM_MAX_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.LLM.MaxRetries = n
		}
	}

	if val := os.Getenv("AZURE_TENANT_ID"); val != "" {
		c.Auth.TenantID = val
	}
	if val := os.Getenv("AZURE_CLIENT_ID"); val != "" {
		c.Auth.ClientID = val
	}

	if val := os.Getenv("APPLICATIONINSIGHTS_CONNECTION_STRING"); val != "" {
		c.Telemetry.ConnectionString = val
	}
	if val := os.Getenv("OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT"); val != "" {
		c.Telemetry.ContentRecording = parseBool(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Telemetry.OTLPEndpoint = val
	}
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}

// resolveProjectEndpoint derives Project.Endpoint from the legacy
// connection string when only the latter is set.
func (c *Config) resolveProjectEndpoint() error {
	if c.Project.Endpoint != "" || c.Project.ConnectionString == "" {
		return nil
	}
	endpoint, err := EndpointFromConnectionString(c.Project.ConnectionString)
	if err != nil {
		return err
	}
	c.Project.Endpoint = endpoint
	return nil
}

// EndpointFromConnectionString converts a
// "host;subscription;resource_group;project" project connection string to
// the project endpoint URL.
func EndpointFromConnectionString(cs string) (string, error) {
	parts := strings.Split(strings.TrimSpace(cs), ";")
	if len(parts) != 4 {
		return "", &tgerrors.ConfigError{
			Key:    "project.connection_string",
			Reason: fmt.Sprintf("expected 4 ';'-separated fields, got %d", len(parts)),
			Hint:   "use <host>;<subscription_id>;<resource_group>;<project_name> or set AZURE_EXISTING_AIPROJECT_ENDPOINT",
		}
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return "", &tgerrors.ConfigError{
				Key:    "project.connection_string",
				Reason: fmt.Sprintf("field %d is empty", i+1),
			}
		}
	}
	host := strings.TrimSuffix(strings.TrimPrefix(parts[0], "https://"), "/")
	return fmt.Sprintf("https://%s/agents/v1.0/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		host, parts[1], parts[2], parts[3]), nil
}

// TracingConfig converts the telemetry settings to a tracing.Config for
// the given session. The Application Insights exporter is added by the
// session once the connection string is known.
func (c *Config) TracingConfig(sessionID, version string) tracing.Config {
	tc := tracing.DefaultConfig()
	tc.Enabled = c.Telemetry.Enabled
	tc.ServiceVersion = version
	tc.SessionID = sessionID
	tc.SampleRate = c.Telemetry.SampleRate
	tc.ContentRecording = c.Telemetry.ContentRecording
	tc.Redaction = c.Telemetry.Redaction
	tc.Exporters = append(tc.Exporters, c.Telemetry.Exporters...)
	if c.Telemetry.OTLPEndpoint != "" {
		tc.Exporters = append(tc.Exporters, tracing.ExporterConfig{
			Type:     "otlp-http",
			Endpoint: c.Telemetry.OTLPEndpoint,
			TLS:      tracing.TLSConfig{Insecure: strings.HasPrefix(c.Telemetry.OTLPEndpoint, "http://")},
		})
	}
	return tc
}
