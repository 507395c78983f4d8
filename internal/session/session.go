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

// Package session bootstraps one run: credentials, the project client,
// telemetry and the instrumented model provider.
package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/trailguide/internal/config"
	"github.com/tombee/trailguide/internal/secrets"
	"github.com/tombee/trailguide/internal/tracing"
	tgerrors "github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/httpclient"
	"github.com/tombee/trailguide/pkg/llm"
	_ "github.com/tombee/trailguide/pkg/llm/providers"
	"github.com/tombee/trailguide/pkg/observability"
)

// Options adjusts how a Session is opened.
type Options struct {
	// Version is reported as service.version.
	Version string

	// Secrets resolves API keys and client secrets. Defaults to env then keychain.
	Secrets *secrets.Resolver

	// Provider replaces the configured model provider. It is still wrapped
	// with retries and tracing.
	Provider llm.Provider

	// TracerOptions are appended to the tracer provider options.
	TracerOptions []sdktrace.TracerProviderOption

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session is the per-run context shared by every command. It is created
// once and must be shut down to flush telemetry.
type Session struct {
	id       string
	cfg      *config.Config
	logger   *slog.Logger
	otel     *tracing.OTelProvider
	provider llm.Provider
	project  *ProjectClient
	creds    *Credentials

	appInsightsConnected bool
}

// Open resolves credentials, looks up the telemetry connection string,
// builds the tracer provider and wraps the model provider. Telemetry
// problems are logged and never returned.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := opts.Secrets
	if resolver == nil {
		resolver = secrets.Default()
	}

	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		logger: logger,
	}
	logger = logger.With("session_id", s.id)

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	needsProject := opts.Provider == nil && cfg.LLM.Provider == "foundry"
	if needsProject {
		if err := cfg.RequireProject(); err != nil {
			return nil, err
		}
	}
	if cfg.Project.Endpoint != "" {
		creds, err := ResolveCredentials(ctx, cfg, resolver, httpClient)
		switch {
		case err == nil:
			s.creds = creds
			s.project = NewProjectClient(cfg.Project.Endpoint, cfg.Project.APIVersion, httpClient, creds)
			logger.Debug("resolved project credentials", "method", creds.Method)
		case needsProject:
			return nil, err
		default:
			logger.Warn("project credentials unavailable, project features disabled", "error", err)
		}
	}

	tc := cfg.TracingConfig(s.id, opts.Version)
	if cs := s.telemetryConnectionString(ctx, logger); cs != "" {
		tc.Exporters = append(tc.Exporters, tracing.ExporterConfig{
			Type:             "appinsights",
			ConnectionString: cs,
		})
		s.appInsightsConnected = cfg.Telemetry.Enabled
	}

	s.otel, err = tracing.NewOTelProviderWithConfig(ctx, tc, opts.TracerOptions...)
	if err != nil {
		return nil, tgerrors.Wrap(err, "initializing telemetry")
	}

	base := opts.Provider
	if base == nil {
		base, err = s.newProvider(ctx, resolver)
		if err != nil {
			_ = s.otel.Shutdown(context.Background())
			return nil, err
		}
	}
	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = cfg.LLM.MaxRetries
	retry.InitialDelay = cfg.LLM.RetryBackoffBase
	s.provider = s.otel.WrapProvider(llm.WithRetry(base, retry))

	logger.Info("session opened",
		"provider", s.provider.Name(),
		"exporters", s.otel.ExporterCount(),
		"app_insights", s.appInsightsConnected,
		"content_recording", s.otel.ContentRecording())
	return s, nil
}

// telemetryConnectionString returns the explicit connection string or the
// one attached to the project. Lookup failures disable the exporter.
func (s *Session) telemetryConnectionString(ctx context.Context, logger *slog.Logger) string {
	if !s.cfg.Telemetry.Enabled {
		return ""
	}
	cs := s.cfg.Telemetry.ConnectionString
	if cs == "" && s.project != nil {
		var err error
		cs, err = s.project.TelemetryConnectionString(ctx)
		if err != nil {
			logger.Warn("no telemetry connection string, Application Insights export disabled", "error", err)
			return ""
		}
	}
	if cs == "" {
		return ""
	}
	parsed, err := tracing.ParseConnectionString(cs)
	if err == nil {
		_, _, _, err = parsed.OTLPHTTPTarget()
	}
	if err != nil {
		logger.Warn("invalid telemetry connection string, Application Insights export disabled", "error", err)
		return ""
	}
	return cs
}

func (s *Session) newProvider(ctx context.Context, resolver *secrets.Resolver) (llm.Provider, error) {
	settings := llm.Settings{
		Model:   s.cfg.LLM.Model,
		Timeout: s.cfg.LLM.RequestTimeout,
	}

	switch s.cfg.LLM.Provider {
	case "foundry":
		settings.Endpoint = s.cfg.Project.Endpoint
		settings.APIVersion = s.cfg.Project.APIVersion
		settings.APIKey = s.creds.APIKey
		settings.TokenSource = s.creds.TokenSource
	case "gemini":
		key, err := resolver.Lookup(ctx, secrets.KeyGeminiAPIKey)
		if err != nil {
			return nil, &tgerrors.ConfigError{Key: "gemini.api_key", Reason: "failed to read API key", Cause: err}
		}
		settings.APIKey = key
		settings.Endpoint = s.cfg.LLM.Endpoint
	}

	provider, err := llm.NewProvider(s.cfg.LLM.Provider, settings)
	if err != nil {
		return nil, tgerrors.Wrapf(err, "creating %s provider", s.cfg.LLM.Provider)
	}
	return provider, nil
}

func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.LLM.RequestTimeout
	hc.UserAgent = llm.UserAgent
	return httpclient.New(hc)
}

// ID returns the session identifier stamped on every span.
func (s *Session) ID() string { return s.id }

// Provider returns the instrumented model provider.
func (s *Session) Provider() llm.Provider { return s.provider }

// Tracer returns a tracer for the given instrumentation scope.
func (s *Session) Tracer(name string) observability.Tracer { return s.otel.Tracer(name) }

// Metrics returns the metrics collector.
func (s *Session) Metrics() *tracing.MetricsCollector { return s.otel.MetricsCollector() }

// MetricsHandler serves this session's metrics in Prometheus format.
func (s *Session) MetricsHandler() http.Handler { return s.otel.MetricsHandler() }

// Project returns the project client, or nil when no project is configured.
func (s *Session) Project() *ProjectClient { return s.project }

// TelemetryEnabled reports whether any span exporter is attached.
func (s *Session) TelemetryEnabled() bool { return s.otel.ExporterCount() > 0 }

// AppInsightsConnected reports whether spans are exported to Application Insights.
func (s *Session) AppInsightsConnected() bool { return s.appInsightsConnected }

// ContentRecording reports whether prompts and completions are recorded.
func (s *Session) ContentRecording() bool { return s.otel.ContentRecording() }

// ResolveAgent looks up the configured agent and returns a reference to
// attach to model requests. It returns nil when no agent is configured.
func (s *Session) ResolveAgent(ctx context.Context) (*llm.AgentReference, error) {
	name := s.cfg.Project.AgentName
	if name == "" {
		return nil, nil
	}
	if s.project == nil {
		return llm.NewAgentReference(name), nil
	}
	agent, err := s.project.GetAgent(ctx, name)
	if err != nil {
		return nil, tgerrors.Wrapf(err, "retrieving agent %s", name)
	}
	s.logger.Info("retrieved agent", "agent", agent.Name, "session_id", s.id)
	return llm.NewAgentReference(agent.Name), nil
}

// Shutdown flushes and shuts down telemetry. It is safe to call more than once.
func (s *Session) Shutdown(ctx context.Context) error {
	return s.otel.Shutdown(ctx)
}
