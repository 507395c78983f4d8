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

package simulate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/testing/mock"
	"github.com/tombee/trailguide/internal/tracing"
	pkgerrors "github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// countingTracer counts span starts and ends on top of a real tracer.
type countingTracer struct {
	inner  observability.Tracer
	opened atomic.Int64
	closed atomic.Int64
}

func (c *countingTracer) Start(ctx context.Context, name string, opts ...observability.SpanOption) (context.Context, observability.SpanHandle) {
	c.opened.Add(1)
	ctx, span := c.inner.Start(ctx, name, opts...)
	return ctx, &countingSpan{SpanHandle: span, closed: &c.closed}
}

type countingSpan struct {
	observability.SpanHandle
	closed *atomic.Int64
}

func (s *countingSpan) End() {
	s.closed.Add(1)
	s.SpanHandle.End()
}

func newTracer(t *testing.T) (*countingTracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	p, err := tracing.NewOTelProvider(tracing.DefaultConfig(), sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return &countingTracer{inner: p.Tracer("simulate")}, exporter
}

func spanByName(t *testing.T, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range spans {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not exported", name)
	return tracetest.SpanStub{}
}

func attrs(s tracetest.SpanStub) map[string]any {
	out := map[string]any{}
	for _, kv := range s.Attributes {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestSpan_EndsOnEveryPath(t *testing.T) {
	tracer, exporter := newTracer(t)
	ctx := context.Background()

	require.NoError(t, Span(ctx, tracer, "ok", nil, func(context.Context, observability.SpanHandle) error { return nil }))
	require.Error(t, Span(ctx, tracer, "fails", nil, func(context.Context, observability.SpanHandle) error {
		return errors.New("boom")
	}))
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = Span(ctx, tracer, "panics", nil, func(context.Context, observability.SpanHandle) error {
			panic("kaboom")
		})
	})

	assert.Equal(t, int64(3), tracer.opened.Load())
	assert.Equal(t, tracer.opened.Load(), tracer.closed.Load())

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Ok, spanByName(t, spans, "ok").Status.Code)
	assert.Equal(t, codes.Error, spanByName(t, spans, "fails").Status.Code)

	panicked := spanByName(t, spans, "panics")
	assert.Equal(t, codes.Error, panicked.Status.Code)
	assert.Equal(t, true, attrs(panicked)[tracing.AttrErrorOccurred])
}

func TestHikingWorkflow_Success(t *testing.T) {
	tracer, exporter := newTracer(t)
	provider := mock.NewLLMProvider(
		mock.Response{PromptContains: "Recommend hiking destinations for: I want a moderate", Content: "Try the Enchantments loop."},
		mock.Response{PromptContains: "Recommend gear for: moderate difficulty, mountains terrain, 2 days trip", Content: "Boots, layers, water filter."},
	)

	w := &HikingWorkflow{Provider: provider, Tracer: tracer, Logger: log.Discard(), SessionID: "s-1"}
	results := w.Run(context.Background())

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i+1, r.Step)
		assert.Equal(t, chain.StatusSuccess, r.Status, r.Name)
	}
	assert.Equal(t, "Try the Enchantments loop.", results[1].Output)

	final := results[3].Output.(FinalRecommendations)
	assert.Equal(t, 3, final.RecommendationsGenerated)
	assert.True(t, final.WorkflowComplete)
	assert.Equal(t, "mountains", final.TripPreferences.Terrain)

	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 200, *reqs[0].MaxTokens)
	assert.InDelta(t, 0.7, *reqs[0].Temperature, 1e-9)
	assert.Equal(t, 150, *reqs[1].MaxTokens)
	assert.InDelta(t, 0.5, *reqs[1].Temperature, 1e-9)
	assert.Equal(t, llm.MessageRoleSystem, reqs[0].Messages[0].Role)

	assert.Equal(t, tracer.opened.Load(), tracer.closed.Load())
	spans := exporter.GetSpans()
	require.Len(t, spans, 5)

	root := spanByName(t, spans, HikingWorkflowName)
	assert.Equal(t, "s-1", attrs(root)[tracing.AttrSessionID])
	assert.Equal(t, HikingWorkflowType, attrs(root)[tracing.AttrWorkflowType])

	trip := attrs(spanByName(t, spans, StepTripIdeas))
	assert.Equal(t, "2", trip[tracing.AttrStep])
	assert.Equal(t, int64(len("Try the Enchantments loop.")), trip[tracing.AttrResponseLength])
	assert.Equal(t, 0.7, trip[tracing.AttrModelTemp])
	assert.Contains(t, trip, tracing.AttrResponseTimeMS)

	finalize := attrs(spanByName(t, spans, StepFinalize))
	assert.Equal(t, int64(3), finalize["workflow.successful_steps"])
	assert.Equal(t, int64(3), finalize["workflow.total_steps"])
}

func TestHikingWorkflow_ModelFailureSkipsGear(t *testing.T) {
	tracer, exporter := newTracer(t)
	provider := mock.NewLLMProvider(mock.Fail(&pkgerrors.ProviderError{Provider: "foundry", StatusCode: 401, Message: "unauthorized"}))

	w := &HikingWorkflow{Provider: provider, Tracer: tracer, Logger: log.Discard()}
	results := w.Run(context.Background())

	require.Len(t, results, 4)
	assert.Equal(t, chain.StatusSuccess, results[0].Status)
	assert.Equal(t, chain.StatusError, results[1].Status)
	assert.Equal(t, chain.KindTransport, results[1].ErrorKind)
	assert.Equal(t, chain.StatusSkipped, results[2].Status)
	assert.Equal(t, chain.StatusSuccess, results[3].Status)

	final := results[3].Output.(FinalRecommendations)
	assert.Equal(t, 1, final.RecommendationsGenerated)
	assert.False(t, final.WorkflowComplete)
	assert.Equal(t, 1, provider.Calls())

	assert.Equal(t, tracer.opened.Load(), tracer.closed.Load())
	trip := spanByName(t, exporter.GetSpans(), StepTripIdeas)
	assert.Equal(t, codes.Error, trip.Status.Code)
	assert.Equal(t, true, attrs(trip)[tracing.AttrErrorOccurred])
	assert.Contains(t, attrs(trip)[tracing.AttrErrorMessage], "unauthorized")
}

func TestErrorScenario(t *testing.T) {
	tracer, exporter := newTracer(t)

	trace := ErrorScenario(context.Background(), tracer, "s-2")
	assert.Equal(t, ErrorTrace{
		Scenario:     "invalid_input",
		ErrorType:    "validation_error",
		ErrorMessage: "Empty input provided - cannot process request",
		Traced:       true,
	}, trace)

	assert.Equal(t, int64(2), tracer.closed.Load())
	spans := exporter.GetSpans()

	step := attrs(spanByName(t, spans, StepInvalidInput))
	assert.Equal(t, "", step["input.value"])
	assert.Equal(t, int64(0), step["input.length"])
	assert.Equal(t, "validation_error", step[tracing.AttrErrorType])

	outer := attrs(spanByName(t, spans, ErrorWorkflowName))
	assert.Equal(t, true, outer["workflow.error_occurred"])
	assert.Equal(t, "validation_error", outer["workflow.error_type"])
	assert.Equal(t, ErrorWorkflowType, outer[tracing.AttrWorkflowType])
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateInput("hike"))
	assert.Error(t, ValidateInput("  \t"))
}
