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

	pkgerrors "github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/observability"
)

// Attribute keys shared by workflow, step and request spans.
const (
	AttrSessionID     = "session.id"
	AttrWorkflowType  = "workflow.type"
	AttrStep          = "step"
	AttrErrorOccurred = "error.occurred"
	AttrErrorMessage  = "error.message"
	AttrErrorType     = "error.type"

	AttrResponseTimeMS  = "response.time_ms"
	AttrResponseLength  = "response.length"
	AttrResponseTokens  = "response.tokens"
	AttrResponseSuccess = "response.success"
	AttrModelTemp       = "model.temperature"

	AttrRequestID     = "request.id"
	AttrRequestIndex  = "request.index"
	AttrRequestPrompt = "request.prompt"
)

// StartWorkflow opens the root span of a workflow run.
func StartWorkflow(ctx context.Context, tracer observability.Tracer, name, sessionID, workflowType string) (context.Context, observability.SpanHandle) {
	attrs := map[string]any{AttrWorkflowType: workflowType}
	if sessionID != "" {
		attrs[AttrSessionID] = sessionID
	}
	return tracer.Start(ctx, name, observability.WithAttributes(attrs))
}

// StartStep opens a child span for one step of a workflow.
func StartStep(ctx context.Context, tracer observability.Tracer, name, step string) (context.Context, observability.SpanHandle) {
	return tracer.Start(ctx, name, observability.WithAttributes(map[string]any{AttrStep: step}))
}

// MarkError records err on span together with the error.* attributes.
func MarkError(span observability.SpanHandle, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(map[string]any{
		AttrErrorOccurred: true,
		AttrErrorMessage:  err.Error(),
		AttrErrorType:     ErrorType(err),
	})
	span.RecordError(err)
}

// ErrorType classifies err for the error.type attribute, e.g.
// "validation_error" or "transport_error".
func ErrorType(err error) string {
	return pkgerrors.Kind(err) + "_error"
}
