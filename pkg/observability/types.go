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

// Package observability defines the tracing types the rest of trailguide
// programs against. The OpenTelemetry implementation lives in
// internal/tracing; tests and callers only see these interfaces.
package observability

import (
	"time"
)

// Span is the stored representation of a finished unit of work.
type Span struct {
	TraceID  string
	SpanID   string
	ParentID string // empty for root spans

	Name      string
	Kind      SpanKind
	StartTime time.Time
	EndTime   time.Time
	Status    SpanStatus

	// Attributes contains key-value metadata about this span.
	Attributes map[string]any

	// Events are timestamped log entries within this span.
	Events []Event
}

// SpanKind categorizes the type of work represented by a span.
type SpanKind string

const (
	// SpanKindInternal represents work happening within the application.
	SpanKindInternal SpanKind = "internal"

	// SpanKindClient represents an outbound synchronous call, such as a
	// model request.
	SpanKindClient SpanKind = "client"
)

// SpanStatus indicates whether a span completed successfully.
type SpanStatus struct {
	Code    StatusCode
	Message string
}

// StatusCode represents the outcome of a span.
type StatusCode int

const (
	StatusCodeUnset StatusCode = 0
	StatusCodeOK    StatusCode = 1
	StatusCodeError StatusCode = 2
)

// String returns the lowercase status name.
func (c StatusCode) String() string {
	switch c {
	case StatusCodeOK:
		return "ok"
	case StatusCodeError:
		return "error"
	default:
		return "unset"
	}
}

// Event represents a timestamped occurrence within a span.
type Event struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]any
}

// TraceContext identifies a span for correlation in logs and reports.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// Duration returns the span's execution time, or 0 for active spans.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Success returns true if the span did not end in error.
func (s *Span) Success() bool {
	return s.Status.Code != StatusCodeError
}
