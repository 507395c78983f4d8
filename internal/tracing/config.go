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

package tracing

import (
	"time"
)

// Config holds observability configuration.
type Config struct {
	// Enabled controls whether spans are exported. When false the provider
	// still creates spans so counts and IDs are available, but nothing leaves
	// the process.
	Enabled bool

	// ServiceName identifies this service in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SessionID is stamped on every span as session.id.
	SessionID string

	// SampleRate is the fraction of traces to keep (0.0 - 1.0).
	SampleRate float64

	// Exporters configures export destinations.
	Exporters []ExporterConfig

	// BatchSize is the maximum number of spans per export batch (default: 512).
	BatchSize int

	// BatchInterval is how often to flush spans (default: 5s).
	BatchInterval time.Duration

	// ContentRecording attaches prompt and completion text to model spans.
	ContentRecording bool

	// Redaction is the redaction mode for recorded content: "none",
	// "standard" or "strict".
	Redaction string
}

// ExporterConfig defines one span export destination.
type ExporterConfig struct {
	// Type is one of "console", "otlp", "otlp-http", "appinsights", "sqlite"
	// or "none".
	Type string `yaml:"type"`

	// Endpoint is the receiver address for otlp and otlp-http.
	Endpoint string `yaml:"endpoint,omitempty"`

	// URLPath overrides the OTLP HTTP traces path.
	URLPath string `yaml:"url_path,omitempty"`

	// Headers are additional headers for authentication.
	Headers map[string]string `yaml:"headers,omitempty"`

	// TLS configures secure connections.
	TLS TLSConfig `yaml:"tls,omitempty"`

	// Timeout is the export timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// ConnectionString is the Application Insights connection string for
	// the appinsights type.
	ConnectionString string `yaml:"connection_string,omitempty"`

	// Path is the database file for the sqlite type.
	Path string `yaml:"path,omitempty"`

	// Retention prunes sqlite spans older than this when the exporter opens.
	// Zero keeps everything.
	Retention time.Duration `yaml:"retention,omitempty"`
}

// TLSConfig configures TLS for exporters.
type TLSConfig struct {
	// Insecure sends spans in plaintext.
	Insecure bool `yaml:"insecure,omitempty"`

	// SkipVerify disables certificate validation.
	SkipVerify bool `yaml:"skip_verify,omitempty"`

	// CACertPath is the path to the CA certificate.
	CACertPath string `yaml:"ca_cert,omitempty"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "trailguide",
		ServiceVersion: "dev",
		SampleRate:     1.0,
		BatchSize:      512,
		BatchInterval:  5 * time.Second,
		Redaction:      "standard",
	}
}
