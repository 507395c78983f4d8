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

package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Hint provides actionable guidance for fixing the error
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ValidationError) Suggestion() string { return e.Hint }

// ProviderError represents model endpoint failures: transport problems,
// non-2xx responses and undecodable API envelopes.
type ProviderError struct {
	// Provider is the name of the model provider (e.g., "foundry", "gemini")
	Provider string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Message is the human-readable error message
	Message string

	// Hint provides actionable guidance for resolution
	Hint string

	// RequestID correlates this error with provider logs
	RequestID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}

	msg = fmt.Sprintf("%s: %s", msg, e.Message)

	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ProviderError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ProviderError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ProviderError) Suggestion() string { return e.Hint }

// ErrorType implements ErrorClassifier.
func (e *ProviderError) ErrorType() string { return "transport" }

// IsRetryable implements ErrorClassifier. Server errors and rate limits are
// retryable; everything else is not.
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// FormatError reports model output that could not be decoded into the
// structure a step expects. Raw holds the untouched model text for diagnosis.
type FormatError struct {
	// Step is the name of the step whose output failed to decode
	Step string

	// Raw is the model output exactly as received
	Raw string

	// Violations lists schema violations when the text was valid JSON
	// but did not match the expected shape
	Violations []string

	// Cause is the decode or validation error
	Cause error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	msg := fmt.Sprintf("step %s returned malformed output", e.Step)
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", msg, strings.Join(e.Violations, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *FormatError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *FormatError) ErrorType() string {
	if len(e.Violations) > 0 {
		return "validation"
	}
	return "format"
}

// IsRetryable implements ErrorClassifier. A format error can be corrected by
// asking the model again with the violation attached.
func (e *FormatError) IsRetryable() bool { return true }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "project.endpoint")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Hint tells the user how to fix it
	Hint string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: %s", e.Reason)
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string { return e.Hint }

// TelemetryError describes a failure while wiring exporters or resolving the
// telemetry sink. It is logged and recorded, never fatal.
type TelemetryError struct {
	// Stage names what was being set up (e.g., "connection_string", "exporter")
	Stage string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TelemetryError) Error() string {
	return fmt.Sprintf("telemetry %s unavailable: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TelemetryError) Unwrap() error {
	return e.Cause
}
