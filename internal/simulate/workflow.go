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
	"log/slog"
	"strconv"
	"time"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/tokens"
	"github.com/tombee/trailguide/internal/tracing"
	"github.com/tombee/trailguide/pkg/llm"
	"github.com/tombee/trailguide/pkg/observability"
)

// Workflow and step names of the hiking assistant.
const (
	HikingWorkflowName = "hiking_trip_workflow"
	HikingWorkflowType = "hiking_assistant"

	StepPreferences = "get_user_preferences"
	StepTripIdeas   = "generate_trip_recommendations"
	StepGear        = "generate_gear_recommendations"
	StepFinalize    = "finalize_recommendations"
)

// DefaultHikingRequest is the canned user request fed to the workflow.
const DefaultHikingRequest = "I want a moderate difficulty hike in the mountains for 2 days"

const tripPlannerPrompt = `You are a hiking trip planner. Based on user preferences,
recommend specific hiking destinations with details about trails, difficulty,
and what to expect. Keep recommendations concise.`

const gearExpertPrompt = `You are an outdoor gear expert. Based on hiking trip details,
recommend essential gear and equipment. Focus on safety and comfort items.
Provide a concise list with brief explanations.`

// Preferences are the parsed trip preferences.
type Preferences struct {
	Difficulty string `json:"difficulty"`
	Terrain    string `json:"terrain"`
	Duration   string `json:"duration"`
	GroupSize  int    `json:"group_size"`
}

// FinalRecommendations is the output of the finalize step.
type FinalRecommendations struct {
	TripPreferences          Preferences `json:"trip_preferences"`
	RecommendationsGenerated int         `json:"recommendations_generated"`
	WorkflowComplete         bool        `json:"workflow_complete"`
}

// HikingWorkflow is the four-step hiking assistant. Zero-valued fields
// fall back to no-op tracing, word counting and the default logger.
type HikingWorkflow struct {
	Provider  llm.Provider
	Tracer    observability.Tracer
	Metrics   *tracing.MetricsCollector
	Counter   tokens.Counter
	Logger    *slog.Logger
	Agent     *llm.AgentReference
	SessionID string

	// UserInput defaults to DefaultHikingRequest.
	UserInput string
}

func (w *HikingWorkflow) defaults() {
	if w.Tracer == nil {
		w.Tracer = observability.NoopTracer()
	}
	if w.Counter == nil {
		w.Counter = tokens.Words()
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.UserInput == "" {
		w.UserInput = DefaultHikingRequest
	}
}

// Run executes the workflow. A failed model step skips the remaining model
// steps; finalize always runs and counts the steps that were attempted.
func (w *HikingWorkflow) Run(ctx context.Context) []chain.StepResult {
	w.defaults()
	start := time.Now()
	logger := log.WithSession(w.Logger, w.SessionID, HikingWorkflowName)

	var results []chain.StepResult
	record := func(r chain.StepResult) {
		results = append(results, r)
		w.Metrics.RecordStep(ctx, HikingWorkflowName, r.Name, string(r.Status), r.Duration)
	}

	_ = Span(ctx, w.Tracer, HikingWorkflowName, map[string]any{
		tracing.AttrSessionID:    w.SessionID,
		tracing.AttrWorkflowType: HikingWorkflowType,
	}, func(ctx context.Context, _ observability.SpanHandle) error {
		prefs := Preferences{Difficulty: "moderate", Terrain: "mountains", Duration: "2 days", GroupSize: 1}

		record(w.step(ctx, 1, StepPreferences, map[string]any{"user.input": w.UserInput}, func(ctx context.Context, span observability.SpanHandle) (any, any, string, error) {
			logger.Info("step 1: user input", "input", w.UserInput)
			span.SetAttributes(map[string]any{
				"preferences.difficulty": prefs.Difficulty,
				"preferences.terrain":    prefs.Terrain,
				"preferences.duration":   prefs.Duration,
			})
			return w.UserInput, prefs, "", nil
		}))

		trip := w.step(ctx, 2, StepTripIdeas, nil, func(ctx context.Context, span observability.SpanHandle) (any, any, string, error) {
			logger.Info("step 2: generating trip recommendations")
			text, err := w.complete(ctx, span, tripPlannerPrompt, "Recommend hiking destinations for: "+w.UserInput, 200, 0.7)
			return w.UserInput, text, text, err
		})
		record(trip)

		if trip.Succeeded() {
			record(w.step(ctx, 3, StepGear, nil, func(ctx context.Context, span observability.SpanHandle) (any, any, string, error) {
				logger.Info("step 3: generating gear recommendations")
				user := "Recommend gear for: " + prefs.Difficulty + " difficulty, " + prefs.Terrain + " terrain, " + prefs.Duration + " trip"
				text, err := w.complete(ctx, span, gearExpertPrompt, user, 150, 0.5)
				return prefs, text, text, err
			}))
		} else {
			record(chain.StepResult{Step: 3, Name: StepGear, Status: chain.StatusSkipped})
		}

		successful, attempted := 0, 0
		for _, r := range results {
			if r.Status == chain.StatusSkipped {
				continue
			}
			attempted++
			if r.Succeeded() {
				successful++
			}
		}
		record(w.step(ctx, 4, StepFinalize, nil, func(ctx context.Context, span observability.SpanHandle) (any, any, string, error) {
			span.SetAttributes(map[string]any{
				"workflow.successful_steps": successful,
				"workflow.total_steps":      attempted,
				"workflow.success_rate":     float64(successful) / float64(attempted),
			})
			logger.Info("step 4: workflow finished", "successful", successful, "total", attempted)
			return nil, FinalRecommendations{
				TripPreferences:          prefs,
				RecommendationsGenerated: successful,
				WorkflowComplete:         successful >= 2,
			}, "", nil
		}))
		return nil
	})

	status := string(chain.StatusSuccess)
	for _, r := range results {
		if r.Status == chain.StatusError {
			status = string(chain.StatusError)
		}
	}
	w.Metrics.RecordRun(ctx, HikingWorkflowName, status, time.Since(start))
	return results
}

type stepFunc func(ctx context.Context, span observability.SpanHandle) (input, output any, raw string, err error)

func (w *HikingWorkflow) step(ctx context.Context, n int, name string, attrs map[string]any, fn stepFunc) chain.StepResult {
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs[tracing.AttrStep] = strconv.Itoa(n)

	var result chain.StepResult
	start := time.Now()
	_ = Span(ctx, w.Tracer, name, attrs, func(ctx context.Context, span observability.SpanHandle) error {
		input, output, raw, err := fn(ctx, span)
		if err != nil {
			output = nil
			log.WithStep(w.Logger, n, name).Error("step failed", log.Error(err))
		}
		result = chain.NewStepResult(n, name, input, output, raw, time.Since(start), w.Counter.Count(raw), err)
		return err
	})
	return result
}

func (w *HikingWorkflow) complete(ctx context.Context, span observability.SpanHandle, system, user string, maxTokens int, temperature float64) (string, error) {
	if w.Provider == nil {
		return "", errNoProvider
	}
	start := time.Now()
	resp, err := w.Provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{llm.SystemMessage(system), llm.UserMessage(user)},
		MaxTokens:   llm.Int(maxTokens),
		Temperature: llm.Float(temperature),
		Agent:       w.Agent,
	})
	if err != nil {
		return "", err
	}
	span.SetAttributes(map[string]any{
		tracing.AttrResponseTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		tracing.AttrResponseLength: len(resp.Content),
		tracing.AttrResponseTokens: w.Counter.Count(resp.Content),
		tracing.AttrModelTemp:      temperature,
	})
	return resp.Content, nil
}
