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
	"strings"

	"github.com/tombee/trailguide/internal/tracing"
	pkgerrors "github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/observability"
)

const (
	ErrorWorkflowName = "error_scenario_workflow"
	ErrorWorkflowType = "error_simulation"
	StepInvalidInput  = "process_invalid_input"
	ScenarioInvalid   = "invalid_input"
)

var errNoProvider = pkgerrors.New("no model provider configured")

// ErrorTrace describes a deliberately failed workflow.
type ErrorTrace struct {
	Scenario     string `json:"error_scenario"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Traced       bool   `json:"traced"`
}

// ValidateInput rejects blank input.
func ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return &pkgerrors.ValidationError{
			Field:   "input",
			Message: "Empty input provided - cannot process request",
			Hint:    "provide a non-empty request",
		}
	}
	return nil
}

// ErrorScenario processes an empty input so that the validation failure is
// captured on both the step span and the workflow span.
func ErrorScenario(ctx context.Context, tracer observability.Tracer, sessionID string) ErrorTrace {
	if tracer == nil {
		tracer = observability.NoopTracer()
	}

	var trace ErrorTrace
	_ = Span(ctx, tracer, ErrorWorkflowName, map[string]any{
		tracing.AttrSessionID:    sessionID,
		tracing.AttrWorkflowType: ErrorWorkflowType,
	}, func(ctx context.Context, outer observability.SpanHandle) error {
		input := ""
		err := Span(ctx, tracer, StepInvalidInput, map[string]any{
			"input.value":  input,
			"input.length": len(input),
		}, func(context.Context, observability.SpanHandle) error {
			return ValidateInput(input)
		})
		if err == nil {
			return nil
		}

		message := err.Error()
		var verr *pkgerrors.ValidationError
		if pkgerrors.As(err, &verr) {
			message = verr.Message
		}
		trace = ErrorTrace{
			Scenario:     ScenarioInvalid,
			ErrorType:    tracing.ErrorType(err),
			ErrorMessage: message,
			Traced:       true,
		}
		outer.SetAttributes(map[string]any{
			"workflow.error_occurred": true,
			"workflow.error_type":     trace.ErrorType,
			"workflow.error_message":  trace.ErrorMessage,
		})
		return err
	})
	return trace
}
