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
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/trailguide/internal/tracing/redact"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// OTelProvider wraps the OpenTelemetry SDK to implement
// observability.TracerProvider. It is an explicit object passed to whoever
// needs it; the process-global tracer provider is left untouched.
type OTelProvider struct {
	tp       *sdktrace.TracerProvider
	mp       *metric.MeterProvider
	registry *prometheus.Registry
	metrics  *MetricsCollector
	redactor *redact.Redactor

	exporters        int
	contentRecording bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewOTelProviderWithConfig creates a provider and attaches a batch span
// processor for every exporter in cfg.Exporters when cfg.Enabled is set.
// Exporters that fail to build are logged and skipped.
func NewOTelProviderWithConfig(ctx context.Context, cfg Config, opts ...sdktrace.TracerProviderOption) (*OTelProvider, error) {
	var processors []sdktrace.SpanProcessor
	if cfg.Enabled {
		processors = CreateSpanProcessors(ctx, cfg)
	}

	allOpts := make([]sdktrace.TracerProviderOption, 0, len(processors)+len(opts))
	for _, p := range processors {
		allOpts = append(allOpts, sdktrace.WithSpanProcessor(p))
	}
	allOpts = append(allOpts, opts...)

	p, err := NewOTelProvider(cfg, allOpts...)
	if err != nil {
		return nil, err
	}
	p.exporters = len(processors)
	return p, nil
}

// NewOTelProvider creates a provider from cfg and raw SDK options. Tests use
// it with sdktrace.WithSyncer and an in-memory exporter.
func NewOTelProvider(cfg Config, opts ...sdktrace.TracerProviderOption) (*OTelProvider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "trailguide"
	}

	// Empty schema URL avoids conflicts when merging with the default resource.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	allOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.SampleRate)),
	}
	if cfg.SessionID != "" {
		allOpts = append(allOpts, sdktrace.WithSpanProcessor(sessionStamper{id: cfg.SessionID}))
	}
	allOpts = append(allOpts, opts...)
	tp := sdktrace.NewTracerProvider(allOpts...)

	// A private registry keeps repeated providers (tests, multiple sessions)
	// from colliding in the default Prometheus registry.
	registry := prometheus.NewRegistry()
	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	)

	collector, err := NewMetricsCollector(mp)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	return &OTelProvider{
		tp:               tp,
		mp:               mp,
		registry:         registry,
		metrics:          collector,
		redactor:         redact.NewRedactor(redact.ParseMode(cfg.Redaction)),
		contentRecording: cfg.ContentRecording,
	}, nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *OTelProvider) Tracer(name string) observability.Tracer {
	return &otelTracer{tracer: p.tp.Tracer(name)}
}

// WrapProvider returns provider instrumented with this provider's tracer,
// metrics, content recording setting and redactor.
func (p *OTelProvider) WrapProvider(provider llm.Provider) llm.Provider {
	return &TracedProvider{
		provider:         provider,
		tracer:           p.Tracer("trailguide.llm"),
		metrics:          p.metrics,
		redactor:         p.redactor,
		contentRecording: p.contentRecording,
	}
}

// ExporterCount returns how many exporters were attached by
// NewOTelProviderWithConfig.
func (p *OTelProvider) ExporterCount() int {
	return p.exporters
}

// ContentRecording reports whether prompt/completion content is recorded.
func (p *OTelProvider) ContentRecording() bool {
	return p.contentRecording
}

// Shutdown flushes pending spans and metrics. Only the first call does any
// work; later calls return the first result.
func (p *OTelProvider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
	})
	return p.shutdownErr
}

// ForceFlush exports all pending spans synchronously.
func (p *OTelProvider) ForceFlush(ctx context.Context) error {
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	return p.mp.ForceFlush(ctx)
}

// MetricsCollector returns the metrics collector.
func (p *OTelProvider) MetricsCollector() *MetricsCollector {
	return p.metrics
}

// MetricsHandler returns an HTTP handler exposing this provider's metrics in
// Prometheus text format.
func (p *OTelProvider) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// sessionStamper sets session.id on every span at start.
type sessionStamper struct {
	id string
}

func (s sessionStamper) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	span.SetAttributes(attribute.String(AttrSessionID, s.id))
}

func (sessionStamper) OnEnd(sdktrace.ReadOnlySpan)      {}
func (sessionStamper) Shutdown(context.Context) error   { return nil }
func (sessionStamper) ForceFlush(context.Context) error { return nil }

// otelTracer wraps an OpenTelemetry tracer.
type otelTracer struct {
	tracer trace.Tracer
}

// Start begins a new span.
func (t *otelTracer) Start(ctx context.Context, name string, opts ...observability.SpanOption) (context.Context, observability.SpanHandle) {
	cfg := &observability.SpanConfig{}
	for _, opt := range opts {
		opt.ApplySpanOption(cfg)
	}

	kind := trace.SpanKindInternal
	if cfg.SpanKind == observability.SpanKindClient {
		kind = trace.SpanKindClient
	}
	otelOpts := []trace.SpanStartOption{trace.WithSpanKind(kind)}
	if len(cfg.Attributes) > 0 {
		otelOpts = append(otelOpts, trace.WithAttributes(toAttributes(cfg.Attributes)...))
	}

	ctx, span := t.tracer.Start(ctx, name, otelOpts...)
	return ctx, &otelSpan{span: span}
}

// otelSpan wraps an OpenTelemetry span.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetStatus(code observability.StatusCode, message string) {
	switch code {
	case observability.StatusCodeOK:
		s.span.SetStatus(codes.Ok, "")
	case observability.StatusCodeError:
		s.span.SetStatus(codes.Error, message)
	default:
		s.span.SetStatus(codes.Unset, "")
	}
}

func (s *otelSpan) SetAttributes(attrs map[string]any) {
	s.span.SetAttributes(toAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs map[string]any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func (s *otelSpan) SpanContext() observability.TraceContext {
	sc := s.span.SpanContext()
	return observability.TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// toAttributes converts a map to OTel attributes in key order. Nil pointers
// are dropped rather than recorded as empty values.
func toAttributes(attrs map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, k := range keys {
		if kv, ok := toAttribute(k, attrs[k]); ok {
			out = append(out, kv)
		}
	}
	return out
}

func toAttribute(k string, v any) (attribute.KeyValue, bool) {
	switch val := v.(type) {
	case nil:
		return attribute.KeyValue{}, false
	case string:
		return attribute.String(k, val), true
	case bool:
		return attribute.Bool(k, val), true
	case int:
		return attribute.Int(k, val), true
	case int32:
		return attribute.Int64(k, int64(val)), true
	case int64:
		return attribute.Int64(k, val), true
	case float32:
		return attribute.Float64(k, float64(val)), true
	case float64:
		return attribute.Float64(k, val), true
	case time.Duration:
		return attribute.Int64(k, val.Milliseconds()), true
	case []string:
		return attribute.StringSlice(k, val), true
	case *float64:
		if val == nil {
			return attribute.KeyValue{}, false
		}
		return attribute.Float64(k, *val), true
	case *int:
		if val == nil {
			return attribute.KeyValue{}, false
		}
		return attribute.Int(k, *val), true
	case fmt.Stringer:
		return attribute.String(k, val.String()), true
	default:
		return attribute.String(k, fmt.Sprintf("%v", val)), true
	}
}

var _ observability.TracerProvider = (*OTelProvider)(nil)
