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

	"github.com/tombee/trailguide/internal/tracing/redact"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// GenAI semantic convention keys used on model client spans.
const (
	AttrGenAISystem          = "gen_ai.system"
	AttrGenAIOperation       = "gen_ai.operation.name"
	AttrGenAIRequestModel    = "gen_ai.request.model"
	AttrGenAIRequestTemp     = "gen_ai.request.temperature"
	AttrGenAIRequestMaxToken = "gen_ai.request.max_tokens"
	AttrGenAIResponseModel   = "gen_ai.response.model"
	AttrGenAIResponseID      = "gen_ai.response.id"
	AttrGenAIFinishReasons   = "gen_ai.response.finish_reasons"
	AttrGenAIInputTokens     = "gen_ai.usage.input_tokens"
	AttrGenAIOutputTokens    = "gen_ai.usage.output_tokens"
	AttrGenAIAgentName       = "gen_ai.agent.name"

	EventGenAIUserMessage   = "gen_ai.user.message"
	EventGenAISystemMessage = "gen_ai.system.message"
	EventGenAIAssistantMsg  = "gen_ai.assistant.message"
	EventGenAIChoice        = "gen_ai.choice"
)

// TracedProvider wraps a model provider so every Complete call emits a
// client span with request and usage attributes. Message content is added
// as span events only when content recording is enabled, after redaction.
type TracedProvider struct {
	provider         llm.Provider
	tracer           observability.Tracer
	metrics          *MetricsCollector
	redactor         *redact.Redactor
	contentRecording bool
}

// NewTracedProvider wraps provider with tracer. metrics and redactor may be nil.
func NewTracedProvider(provider llm.Provider, tracer observability.Tracer, metrics *MetricsCollector, redactor *redact.Redactor, contentRecording bool) *TracedProvider {
	return &TracedProvider{
		provider:         provider,
		tracer:           tracer,
		metrics:          metrics,
		redactor:         redactor,
		contentRecording: contentRecording,
	}
}

// Name returns the underlying provider's name.
func (t *TracedProvider) Name() string {
	return t.provider.Name()
}

// Complete creates a span for the completion request and records token usage.
func (t *TracedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	startTime := time.Now()

	attrs := map[string]any{
		AttrGenAISystem:          t.provider.Name(),
		AttrGenAIOperation:       "chat",
		AttrGenAIRequestModel:    req.Model,
		AttrGenAIRequestTemp:     req.Temperature,
		AttrGenAIRequestMaxToken: req.MaxTokens,
	}
	if req.Agent != nil {
		attrs[AttrGenAIAgentName] = req.Agent.Name
	}
	for k, v := range req.Metadata {
		attrs["trailguide."+k] = v
	}

	ctx, span := t.tracer.Start(ctx, spanName(req.Model),
		observability.WithSpanKind(observability.SpanKindClient),
		observability.WithAttributes(attrs),
	)
	defer span.End()

	if t.contentRecording {
		for _, msg := range req.Messages {
			span.AddEvent(messageEvent(msg.Role), map[string]any{"content": t.redact(msg.Content)})
		}
	}

	resp, err := t.provider.Complete(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(map[string]any{
			AttrErrorOccurred: true,
			AttrErrorMessage:  t.redact(err.Error()),
		})
		t.metrics.RecordLLMRequest(ctx, t.provider.Name(), req.Model, "error", 0, 0, latency)
		return nil, err
	}

	span.SetAttributes(map[string]any{
		AttrGenAIResponseModel: resp.Model,
		AttrGenAIResponseID:    resp.RequestID,
		AttrGenAIFinishReasons: []string{string(resp.FinishReason)},
		AttrGenAIInputTokens:   resp.Usage.InputTokens,
		AttrGenAIOutputTokens:  resp.Usage.OutputTokens,
	})
	if t.contentRecording {
		span.AddEvent(EventGenAIChoice, map[string]any{
			"finish_reason": string(resp.FinishReason),
			"content":       t.redact(resp.Content),
		})
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	t.metrics.RecordLLMRequest(ctx, t.provider.Name(), model, "success",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, latency)

	span.SetStatus(observability.StatusCodeOK, "")
	return resp, nil
}

func (t *TracedProvider) redact(s string) string {
	if t.redactor == nil {
		return s
	}
	return t.redactor.RedactString(s)
}

func messageEvent(role llm.MessageRole) string {
	switch role {
	case llm.MessageRoleSystem:
		return EventGenAISystemMessage
	case llm.MessageRoleAssistant:
		return EventGenAIAssistantMsg
	default:
		return EventGenAIUserMessage
	}
}

func spanName(model string) string {
	if model == "" {
		return "chat"
	}
	return "chat " + model
}

var _ llm.Provider = (*TracedProvider)(nil)
