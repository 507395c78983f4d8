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
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps err with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := session.Open(ctx, cfg); err != nil {
//	    return errors.Wrap(err, "opening session")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps err with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Kind classifies err for reporting: "config", "transport", "format",
// "validation", "telemetry", "canceled" or "unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorType()
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return "config"
	}

	var telemetryErr *TelemetryError
	if errors.As(err, &telemetryErr) {
		return "telemetry"
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return "validation"
	}

	if isCanceled(err) {
		return "canceled"
	}

	return "unknown"
}
