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

package observability

import (
	"context"
)

// TracerProvider creates tracers and owns span export.
type TracerProvider interface {
	// Tracer returns a tracer for the given instrumentation scope.
	// The name should identify the instrumenting package (e.g., "trailguide.chain").
	Tracer(name string) Tracer

	// Shutdown flushes any pending spans and releases resources.
	// Calling Shutdown multiple times is safe.
	Shutdown(ctx context.Context) error

	// ForceFlush exports all pending spans synchronously.
	ForceFlush(ctx context.Context) error
}

// Tracer creates spans within a specific instrumentation scope.
type Tracer interface {
	// Start begins a new span as a child of the context's current span.
	// If the context contains no span, this creates a root span.
	// The returned context contains the new span for propagation.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanHandle)
}

// SpanHandle is an in-flight span.
type SpanHandle interface {
	// End marks the span as complete. Calling End more than once is a no-op.
	End()

	// SetStatus sets the span's final status.
	SetStatus(code StatusCode, message string)

	// SetAttributes adds key-value metadata to the span.
	// Later calls with the same key overwrite earlier values.
	SetAttributes(attrs map[string]any)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs map[string]any)

	// SpanContext returns the span's identifiers.
	SpanContext() TraceContext

	// RecordError records err as an exception event and marks the span failed.
	RecordError(err error)
}

// SpanOption configures span creation.
type SpanOption interface {
	ApplySpanOption(*SpanConfig)
}

// SpanConfig holds span creation options.
type SpanConfig struct {
	SpanKind   SpanKind
	Attributes map[string]any
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return spanKindOption(kind)
}

type spanKindOption SpanKind

func (o spanKindOption) ApplySpanOption(c *SpanConfig) {
	c.SpanKind = SpanKind(o)
}

// WithAttributes sets initial span attributes.
func WithAttributes(attrs map[string]any) SpanOption {
	return spanAttributesOption(attrs)
}

type spanAttributesOption map[string]any

func (o spanAttributesOption) ApplySpanOption(c *SpanConfig) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]any, len(o))
	}
	for k, v := range o {
		c.Attributes[k] = v
	}
}

// NoopTracer returns a tracer whose spans record nothing. It is used when
// telemetry is disabled so callers never branch on a nil tracer.
func NoopTracer() Tracer {
	return noopTracer{}
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...SpanOption) (context.Context, SpanHandle) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                            {}
func (noopSpan) SetStatus(StatusCode, string)    {}
func (noopSpan) SetAttributes(map[string]any)    {}
func (noopSpan) AddEvent(string, map[string]any) {}
func (noopSpan) SpanContext() TraceContext       { return TraceContext{} }
func (noopSpan) RecordError(error)               {}
