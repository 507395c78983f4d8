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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/trailguide/pkg/observability"
)

func newTestProvider(t *testing.T, mutate func(*Config)) (*OTelProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	exporter := tracetest.NewInMemoryExporter()
	p, err := NewOTelProvider(cfg, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestOTelProvider_ParentChild(t *testing.T) {
	p, exporter := newTestProvider(t, nil)
	tracer := p.Tracer("test")

	ctx, parent := tracer.Start(context.Background(), "parent")
	_, child := tracer.Start(ctx, "child", observability.WithAttributes(map[string]any{"step": "a"}))
	child.SetStatus(observability.StatusCodeOK, "")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, "a", attrMap(spans[0].Attributes)["step"].AsString())
}

func TestOTelProvider_SessionIDStamped(t *testing.T) {
	p, exporter := newTestProvider(t, func(c *Config) { c.SessionID = "sess-123" })

	_, span := p.Tracer("test").Start(context.Background(), "work")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sess-123", attrMap(spans[0].Attributes)[AttrSessionID].AsString())
}

func TestOTelProvider_RecordError(t *testing.T) {
	p, exporter := newTestProvider(t, nil)

	_, span := p.Tracer("test").Start(context.Background(), "failing")
	span.RecordError(errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestOTelProvider_ShutdownIsIdempotent(t *testing.T) {
	p, err := NewOTelProvider(DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestOTelProvider_MetricsHandler(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	p.MetricsCollector().RecordStep(context.Background(), "trail_guide", "recommend_hike", "success", time.Second)

	srv := httptest.NewServer(p.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "trailguide_steps_total"), "metrics output: %s", body)
}

func TestNewOTelProviderWithConfig_SkipsBadExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporters = []ExporterConfig{
		{Type: "bogus"},
		{Type: "none"},
		{Type: "sqlite", Path: ":memory:"},
	}

	p, err := NewOTelProviderWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.Equal(t, 1, p.ExporterCount())
}

func TestNewOTelProviderWithConfig_DisabledAttachesNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporters = []ExporterConfig{{Type: "sqlite", Path: ":memory:"}}

	p, err := NewOTelProviderWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.Equal(t, 0, p.ExporterCount())
}

func TestSampler_KeepsErrorSpans(t *testing.T) {
	p, exporter := newTestProvider(t, func(c *Config) { c.SampleRate = 0 })
	tracer := p.Tracer("test")

	_, dropped := tracer.Start(context.Background(), "dropped")
	dropped.End()
	_, kept := tracer.Start(context.Background(), "kept",
		observability.WithAttributes(map[string]any{AttrErrorOccurred: true}))
	kept.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "kept", spans[0].Name)
}

func TestToAttributes_SkipsNilPointers(t *testing.T) {
	var temp *float64
	attrs := attrMap(toAttributes(map[string]any{
		"a": temp,
		"b": 3,
		"c": []string{"stop"},
	}))

	_, ok := attrs["a"]
	assert.False(t, ok)
	assert.Equal(t, int64(3), attrs["b"].AsInt64())
	assert.Equal(t, []string{"stop"}, attrs["c"].AsStringSlice())
}
