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

// Package simulate runs the traced hiking assistant workflow and the
// error scenario used to demonstrate tracing.
package simulate

import (
	"context"
	"fmt"

	"github.com/tombee/trailguide/internal/tracing"
	"github.com/tombee/trailguide/pkg/observability"
)

// Span runs fn inside a span named name. The span is ended exactly once on
// every exit path. A returned error is recorded on the span; a panic is
// recorded, the span is ended and the panic continues.
func Span(ctx context.Context, tracer observability.Tracer, name string, attrs map[string]any, fn func(context.Context, observability.SpanHandle) error) (err error) {
	ctx, span := tracer.Start(ctx, name, observability.WithAttributes(attrs))
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic in %s: %v", name, r)
			tracing.MarkError(span, perr)
			span.SetStatus(observability.StatusCodeError, perr.Error())
			span.End()
			panic(r)
		}
		if err != nil {
			tracing.MarkError(span, err)
			span.SetStatus(observability.StatusCodeError, err.Error())
		} else {
			span.SetStatus(observability.StatusCodeOK, "")
		}
		span.End()
	}()
	return fn(ctx, span)
}
