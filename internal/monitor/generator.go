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

// Package monitor generates paced, independent model requests so that
// request telemetry can be inspected in the telemetry sink.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/simulate"
	"github.com/tombee/trailguide/internal/tokens"
	"github.com/tombee/trailguide/internal/tracing"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// WorkflowName labels monitor runs in metrics.
const WorkflowName = "monitor"

// SystemPrompt is sent with every generated request.
const SystemPrompt = "You are a helpful AI assistant. Keep responses concise."

// Prompts are cycled through in order.
var Prompts = []string{
	"What is the weather like today?",
	"Tell me a joke about programming",
	"Explain quantum computing in simple terms",
	"What are the benefits of renewable energy?",
	"How do neural networks work?",
}

// Request is the record of one generated request.
type Request struct {
	RequestID      string          `json:"request_id"`
	Index          int             `json:"index"`
	Prompt         string          `json:"prompt"`
	Response       string          `json:"response,omitempty"`
	ResponseTimeMS float64         `json:"response_time_ms,omitempty"`
	TokenCount     int             `json:"token_count,omitempty"`
	Status         chain.Status    `json:"status"`
	Error          string          `json:"error,omitempty"`
	ErrorKind      chain.ErrorKind `json:"error_kind,omitempty"`

	Duration time.Duration `json:"-"`
}

// StepResult converts the request for summarizing.
func (r Request) StepResult() chain.StepResult {
	return chain.StepResult{
		Step:          r.Index,
		Name:          fmt.Sprintf("chat_request_%d", r.Index),
		Input:         r.Prompt,
		RawOutput:     r.Response,
		Status:        r.Status,
		Error:         r.Error,
		ErrorKind:     r.ErrorKind,
		Duration:      r.Duration,
		DurationMS:    r.Duration.Milliseconds(),
		TokenEstimate: r.TokenCount,
	}
}

// Generator sends n requests, one at a time.
type Generator struct {
	Provider llm.Provider
	Tracer   observability.Tracer
	Metrics  *tracing.MetricsCollector
	Counter  tokens.Counter
	Logger   *slog.Logger
	Agent    *llm.AgentReference

	// Interval is the minimum spacing between requests. Zero disables pacing.
	Interval time.Duration
}

// Run sends n requests cycling through Prompts. A failed request is
// recorded and the loop continues. Run stops early only when ctx is done,
// returning the requests completed so far with the context error.
func (g *Generator) Run(ctx context.Context, n int) ([]Request, error) {
	tracer := g.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	counter := g.Counter
	if counter == nil {
		counter = tokens.Words()
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if g.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(g.Interval), 1)
	}

	start := time.Now()
	requests := make([]Request, 0, n)
	var runErr error
	for i := 0; i < n; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		req := g.send(ctx, tracer, counter, logger, i+1)
		requests = append(requests, req)
		g.Metrics.RecordStep(ctx, WorkflowName, "chat_request", string(req.Status), req.Duration)
	}

	status := string(chain.StatusSuccess)
	if runErr != nil {
		status = string(chain.StatusError)
	}
	g.Metrics.RecordRun(ctx, WorkflowName, status, time.Since(start))
	return requests, runErr
}

func (g *Generator) send(ctx context.Context, tracer observability.Tracer, counter tokens.Counter, logger *slog.Logger, index int) Request {
	prompt := Prompts[(index-1)%len(Prompts)]
	req := Request{
		RequestID: uuid.NewString(),
		Index:     index,
		Prompt:    prompt,
	}
	logger = logger.With("request_index", index, "request_id", req.RequestID)

	err := simulate.Span(ctx, tracer, fmt.Sprintf("chat_request_%d", index), map[string]any{
		tracing.AttrRequestID:     req.RequestID,
		tracing.AttrRequestIndex:  index,
		tracing.AttrRequestPrompt: prompt,
	}, func(ctx context.Context, span observability.SpanHandle) error {
		logger.Info("sending request", "prompt", prompt)

		start := time.Now()
		resp, err := g.Provider.Complete(ctx, llm.CompletionRequest{
			Messages:    []llm.Message{llm.SystemMessage(SystemPrompt), llm.UserMessage(prompt)},
			MaxTokens:   llm.Int(100),
			Temperature: llm.Float(0.7),
			Agent:       g.Agent,
		})
		req.Duration = time.Since(start)
		if err != nil {
			span.SetAttributes(map[string]any{tracing.AttrResponseSuccess: false})
			return err
		}

		req.Response = resp.Content
		req.ResponseTimeMS = float64(req.Duration.Microseconds()) / 1000
		req.TokenCount = counter.Count(resp.Content)
		span.SetAttributes(map[string]any{
			tracing.AttrResponseTimeMS:  req.ResponseTimeMS,
			tracing.AttrResponseTokens:  req.TokenCount,
			tracing.AttrResponseSuccess: true,
		})
		return nil
	})

	if err != nil {
		failed := chain.NewStepResult(index, "", prompt, nil, "", req.Duration, 0, err)
		req.Status = chain.StatusError
		req.Error = failed.Error
		req.ErrorKind = failed.ErrorKind
		logger.Error("request failed", log.Error(err), "kind", failed.ErrorKind)
		return req
	}

	req.Status = chain.StatusSuccess
	logger.Info("request completed", "duration", req.Duration, "tokens", req.TokenCount)
	return req
}
