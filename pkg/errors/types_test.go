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

package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *tgerrors.ProviderError
		wantMsg string
	}{
		{
			name:    "message only",
			err:     &tgerrors.ProviderError{Provider: "foundry", Message: "connection refused"},
			wantMsg: "provider foundry error: connection refused",
		},
		{
			name: "with status and request id",
			err: &tgerrors.ProviderError{
				Provider:   "foundry",
				StatusCode: 429,
				Message:    "rate limited",
				RequestID:  "req-1",
			},
			wantMsg: "provider foundry error [HTTP 429]: rate limited (request-id: req-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestProviderError_IsRetryable(t *testing.T) {
	assert.True(t, (&tgerrors.ProviderError{StatusCode: 503}).IsRetryable())
	assert.True(t, (&tgerrors.ProviderError{StatusCode: 429}).IsRetryable())
	assert.False(t, (&tgerrors.ProviderError{StatusCode: 401}).IsRetryable())
	assert.False(t, (&tgerrors.ProviderError{}).IsRetryable())
}

func TestFormatError(t *testing.T) {
	cause := errors.New("invalid character 'S' looking for beginning of value")
	err := &tgerrors.FormatError{Step: "recommend_hike", Raw: "Sorry, I can't help with that.", Cause: cause}

	assert.Equal(t, "step recommend_hike returned malformed output: invalid character 'S' looking for beginning of value", err.Error())
	assert.Equal(t, "format", err.ErrorType())
	assert.ErrorIs(t, err, cause)

	withViolations := &tgerrors.FormatError{Step: "trip_profile", Violations: []string{"/recommendedGear: minItems 3", "missing trailType"}}
	assert.Equal(t, "step trip_profile returned malformed output: /recommendedGear: minItems 3; missing trailType", withViolations.Error())
	assert.Equal(t, "validation", withViolations.ErrorType())
}

func TestConfigError(t *testing.T) {
	err := &tgerrors.ConfigError{
		Key:    "project.endpoint",
		Reason: "required value is missing",
		Hint:   "Set AZURE_EXISTING_AIPROJECT_ENDPOINT",
	}
	assert.Equal(t, "config error at project.endpoint: required value is missing", err.Error())
	assert.Equal(t, "Set AZURE_EXISTING_AIPROJECT_ENDPOINT", err.Suggestion())

	var visible tgerrors.UserVisibleError = err
	assert.True(t, visible.IsUserVisible())
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"provider", &tgerrors.ProviderError{Provider: "x"}, "transport"},
		{"wrapped format", fmt.Errorf("step 1: %w", &tgerrors.FormatError{Step: "s"}), "format"},
		{"validation shape", &tgerrors.FormatError{Violations: []string{"x"}}, "validation"},
		{"config", &tgerrors.ConfigError{Reason: "missing"}, "config"},
		{"telemetry", &tgerrors.TelemetryError{Stage: "exporter", Cause: errors.New("boom")}, "telemetry"},
		{"input", &tgerrors.ValidationError{Message: "empty"}, "validation"},
		{"canceled", fmt.Errorf("waiting: %w", context.Canceled), "canceled"},
		{"other", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tgerrors.Kind(tt.err))
		})
	}
}
