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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector records run, step and model-call metrics. A nil
// collector is valid and records nothing.
type MetricsCollector struct {
	runsTotal        metric.Int64Counter
	stepsTotal       metric.Int64Counter
	llmRequestsTotal metric.Int64Counter
	tokensTotal      metric.Int64Counter

	runDuration  metric.Float64Histogram
	stepDuration metric.Float64Histogram
	llmLatency   metric.Float64Histogram
}

// NewMetricsCollector creates a new metrics collector using the given meter provider.
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("trailguide")
	mc := &MetricsCollector{}

	var err error
	if mc.runsTotal, err = meter.Int64Counter(
		"trailguide_runs_total",
		metric.WithDescription("Total number of chain and workflow runs"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}
	if mc.stepsTotal, err = meter.Int64Counter(
		"trailguide_steps_total",
		metric.WithDescription("Total number of steps executed"),
		metric.WithUnit("{step}"),
	); err != nil {
		return nil, err
	}
	if mc.llmRequestsTotal, err = meter.Int64Counter(
		"trailguide_llm_requests_total",
		metric.WithDescription("Total number of model requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if mc.tokensTotal, err = meter.Int64Counter(
		"trailguide_tokens_total",
		metric.WithDescription("Total number of tokens reported by the model"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}

	if mc.runDuration, err = meter.Float64Histogram(
		"trailguide_run_duration_seconds",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if mc.stepDuration, err = meter.Float64Histogram(
		"trailguide_step_duration_seconds",
		metric.WithDescription("Step execution duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if mc.llmLatency, err = meter.Float64Histogram(
		"trailguide_llm_latency_seconds",
		metric.WithDescription("Model request latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordRun records a finished run of a chain, workflow or monitor loop.
func (mc *MetricsCollector) RecordRun(ctx context.Context, workflow, status string, duration time.Duration) {
	if mc == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
	mc.runsTotal.Add(ctx, 1, attrs)
	mc.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records the completion of one step.
func (mc *MetricsCollector) RecordStep(ctx context.Context, workflow, step, status string, duration time.Duration) {
	if mc == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("step", step),
		attribute.String("status", status),
	)
	mc.stepsTotal.Add(ctx, 1, attrs)
	mc.stepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMRequest records one model call.
func (mc *MetricsCollector) RecordLLMRequest(ctx context.Context, provider, model, status string, inputTokens, outputTokens int, latency time.Duration) {
	if mc == nil {
		return
	}
	base := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("status", status),
	}
	mc.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(base...))
	mc.llmLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(base...))

	if inputTokens > 0 {
		mc.tokensTotal.Add(ctx, int64(inputTokens), metric.WithAttributes(
			attribute.String("provider", provider), attribute.String("type", "input")))
	}
	if outputTokens > 0 {
		mc.tokensTotal.Add(ctx, int64(outputTokens), metric.WithAttributes(
			attribute.String("provider", provider), attribute.String("type", "output")))
	}
}
