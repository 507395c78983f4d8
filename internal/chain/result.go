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

// Package chain runs fixed sequences of model prompts where each step's
// input is built from the decoded output of earlier steps.
package chain

import (
	"time"

	pkgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Status is the terminal state of a step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// ErrorKind classifies a failed step.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindFormat     ErrorKind = "format"
	KindValidation ErrorKind = "validation"
	KindCanceled   ErrorKind = "canceled"
)

// classify maps err onto the step error kinds. Anything that is not a
// decode or cancellation problem came from the model call.
func classify(err error) ErrorKind {
	switch pkgerrors.Kind(err) {
	case "format":
		return KindFormat
	case "validation":
		return KindValidation
	case "canceled":
		return KindCanceled
	default:
		return KindTransport
	}
}

// StepResult records one finished step. It is created once the step
// completes and is not modified afterwards.
type StepResult struct {
	Step          int           `json:"step"`
	Name          string        `json:"name"`
	Input         any           `json:"input,omitempty"`
	Output        any           `json:"output,omitempty"`
	RawOutput     string        `json:"raw_output,omitempty"`
	Status        Status        `json:"status"`
	Error         string        `json:"error,omitempty"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty"`
	Attempts      int           `json:"attempts,omitempty"`
	Duration      time.Duration `json:"-"`
	DurationMS    int64         `json:"duration_ms"`
	TokenEstimate int           `json:"token_estimate,omitempty"`

	err error
}

// Err returns the underlying error of a failed step.
func (r StepResult) Err() error { return r.err }

// Succeeded reports whether the step finished with StatusSuccess.
func (r StepResult) Succeeded() bool { return r.Status == StatusSuccess }

// NewStepResult builds a result from an outcome. A nil err yields a
// successful result.
func NewStepResult(step int, name string, input, output any, raw string, duration time.Duration, tokens int, err error) StepResult {
	r := StepResult{
		Step:          step,
		Name:          name,
		Input:         input,
		Output:        output,
		RawOutput:     raw,
		Status:        StatusSuccess,
		Duration:      duration,
		DurationMS:    duration.Milliseconds(),
		TokenEstimate: tokens,
	}
	if err != nil {
		r.Status = StatusError
		r.Error = err.Error()
		r.ErrorKind = classify(err)
		r.err = err
	}
	return r
}

func skipped(step int, name string) StepResult {
	return StepResult{Step: step, Name: name, Status: StatusSkipped}
}

// ChainResult is the ordered outcome of a chain run.
type ChainResult struct {
	Name     string        `json:"name"`
	Steps    []StepResult  `json:"steps"`
	Bindings Bindings      `json:"-"`
	Duration time.Duration `json:"-"`
}

// Err returns the error of the first failed step, or nil.
func (r ChainResult) Err() error {
	for _, s := range r.Steps {
		if s.Status == StatusError {
			return pkgerrors.Wrapf(s.err, "step %d (%s)", s.Step, s.Name)
		}
	}
	return nil
}

// Output returns the decoded output of the named step, or nil.
func (r ChainResult) Output(name string) any {
	for _, s := range r.Steps {
		if s.Name == name && s.Succeeded() {
			return s.Output
		}
	}
	return nil
}
