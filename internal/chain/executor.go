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

package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/tokens"
	"github.com/tombee/trailguide/internal/tracing"
	pkgerrors "github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// WorkflowType is recorded as workflow.type on chain spans.
const WorkflowType = "prompt_chain"

// correctionPrompt is appended after a malformed response when corrections
// are enabled.
const correctionPrompt = `Your previous response could not be used: %s

Return ONLY valid JSON in the exact format requested, no markdown formatting or extra text.`

// Step is one prompt in a chain.
type Step struct {
	// Name identifies the step in spans, logs and reports.
	Name string

	// Prompt renders the user message from the current bindings.
	Prompt *Prompt

	// Inputs lists the binding keys recorded as the step input.
	Inputs []string

	MaxTokens   *int
	Temperature *float64

	// Decoder validates and decodes the model output.
	Decoder Decoder

	// Export publishes decoded output fields as bindings for later steps.
	Export func(output any, b Bindings)
}

// Chain is an ordered list of steps.
type Chain struct {
	Name  string
	Steps []Step
}

// Executor runs steps against a model provider, one at a time.
type Executor struct {
	provider       llm.Provider
	tracer         observability.Tracer
	metrics        *tracing.MetricsCollector
	counter        tokens.Counter
	logger         *slog.Logger
	agent          *llm.AgentReference
	sessionID      string
	maxCorrections int
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracer sets the tracer used for chain and step spans.
func WithTracer(t observability.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithMetrics records step and run metrics.
func WithMetrics(m *tracing.MetricsCollector) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTokenCounter sets the counter used for token estimates.
func WithTokenCounter(c tokens.Counter) Option {
	return func(e *Executor) { e.counter = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithAgent routes every request through a hosted agent.
func WithAgent(a *llm.AgentReference) Option {
	return func(e *Executor) { e.agent = a }
}

// WithSessionID stamps chain spans and request metadata with the session.
func WithSessionID(id string) Option {
	return func(e *Executor) { e.sessionID = id }
}

// WithMaxCorrections allows n re-asks after a malformed response.
func WithMaxCorrections(n int) Option {
	return func(e *Executor) { e.maxCorrections = n }
}

// NewExecutor creates an executor for provider.
func NewExecutor(provider llm.Provider, opts ...Option) *Executor {
	e := &Executor{
		provider: provider,
		tracer:   observability.NoopTracer(),
		counter:  tokens.Words(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the chain in order. The first failed step aborts the run;
// the remaining steps are recorded as skipped and never sent.
func (e *Executor) Run(ctx context.Context, c Chain, initial Bindings) ChainResult {
	start := time.Now()
	ctx, span := tracing.StartWorkflow(ctx, e.tracer, c.Name, e.sessionID, WorkflowType)
	defer span.End()

	logger := log.WithSession(e.logger, e.sessionID, c.Name)
	bindings := initial.Clone()
	result := ChainResult{Name: c.Name, Steps: make([]StepResult, 0, len(c.Steps))}

	failed := 0
	for i, step := range c.Steps {
		n := i + 1
		if failed > 0 {
			result.Steps = append(result.Steps, skipped(n, step.Name))
			e.metrics.RecordStep(ctx, c.Name, step.Name, string(StatusSkipped), 0)
			logger.Debug("step skipped", "step", n, "name", step.Name, "failed_step", failed)
			continue
		}

		sr := e.RunStep(ctx, n, step, bindings)
		result.Steps = append(result.Steps, sr)
		e.metrics.RecordStep(ctx, c.Name, step.Name, string(sr.Status), sr.Duration)
		if !sr.Succeeded() {
			failed = n
			continue
		}
		if step.Export != nil {
			step.Export(sr.Output, bindings)
		}
	}

	result.Bindings = bindings
	result.Duration = time.Since(start)

	status := string(StatusSuccess)
	span.SetAttributes(map[string]any{
		"workflow.total_steps":      len(c.Steps),
		"workflow.successful_steps": countSuccess(result.Steps),
	})
	if err := result.Err(); err != nil {
		status = string(StatusError)
		tracing.MarkError(span, err)
		span.SetStatus(observability.StatusCodeError, err.Error())
		logger.Error("chain aborted", log.Error(err), "failed_step", failed)
	} else {
		span.SetStatus(observability.StatusCodeOK, "")
		logger.Info("chain completed", "steps", len(result.Steps), "duration", result.Duration)
	}
	e.metrics.RecordRun(ctx, c.Name, status, result.Duration)
	return result
}

// RunStep renders, sends and decodes a single step numbered n.
func (e *Executor) RunStep(ctx context.Context, n int, step Step, bindings Bindings) StepResult {
	start := time.Now()
	ctx, span := tracing.StartStep(ctx, e.tracer, step.Name, strconv.Itoa(n))
	defer span.End()

	logger := log.WithStep(e.logger, n, step.Name)
	input := pick(bindings, step.Inputs)

	finish := func(output any, raw string, attempts int, err error) StepResult {
		sr := NewStepResult(n, step.Name, input, output, raw, time.Since(start), e.counter.Count(raw), err)
		sr.Attempts = attempts
		span.SetAttributes(map[string]any{
			tracing.AttrResponseTimeMS:  sr.DurationMS,
			tracing.AttrResponseLength:  len(raw),
			tracing.AttrResponseTokens:  sr.TokenEstimate,
			tracing.AttrResponseSuccess: sr.Succeeded(),
		})
		if err != nil {
			tracing.MarkError(span, err)
			span.SetStatus(observability.StatusCodeError, err.Error())
			logger.Error("step failed", log.Error(err), "kind", sr.ErrorKind, "attempts", attempts)
		} else {
			span.SetStatus(observability.StatusCodeOK, "")
			logger.Info("step completed", "duration", sr.Duration, "tokens", sr.TokenEstimate)
		}
		return sr
	}

	prompt, err := step.Prompt.Render(bindings)
	if err != nil {
		return finish(nil, "", 0, &pkgerrors.ValidationError{Field: step.Name, Message: err.Error()})
	}
	log.Trace(logger, "rendered prompt", slog.String("prompt", prompt))

	req := llm.CompletionRequest{
		Messages:    []llm.Message{llm.UserMessage(prompt)},
		MaxTokens:   step.MaxTokens,
		Temperature: step.Temperature,
		Agent:       e.agent,
		JSON:        true,
		Metadata: map[string]string{
			"step":       step.Name,
			"session.id": e.sessionID,
		},
	}
	if e.sessionID == "" {
		delete(req.Metadata, "session.id")
	}

	var raw string
	for attempt := 1; ; attempt++ {
		resp, err := e.provider.Complete(ctx, req)
		if err != nil {
			return finish(nil, raw, attempt, err)
		}
		raw = resp.Content

		output, err := step.Decoder.Decode(step.Name, raw)
		if err == nil {
			return finish(output, raw, attempt, nil)
		}
		if attempt > e.maxCorrections {
			return finish(nil, raw, attempt, err)
		}

		logger.Warn("malformed output, asking for a correction", "attempt", attempt, log.Error(err))
		span.AddEvent("correction", map[string]any{"attempt": attempt, "error.message": err.Error()})
		req.Messages = append(req.Messages,
			llm.Message{Role: llm.MessageRoleAssistant, Content: raw},
			llm.UserMessage(fmt.Sprintf(correctionPrompt, err.Error())),
		)
	}
}

func pick(b Bindings, keys []string) any {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := b[k]; ok {
			out[k] = v
		}
	}
	return out
}

func countSuccess(results []StepResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}
