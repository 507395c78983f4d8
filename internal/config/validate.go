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

package config

import (
	"fmt"
	"strings"

	"github.com/tombee/trailguide/internal/tracing/redact"
	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Validate checks that the configuration is internally consistent. It
// returns a *errors.ConfigError naming the first offending key.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		return invalid("log.level", fmt.Sprintf("must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", fmt.Sprintf("must be one of [json, text], got %q", c.Log.Format))
	}

	if strings.TrimSpace(c.LLM.Provider) == "" {
		return invalid("llm.provider", "must not be empty")
	}
	if c.LLM.RequestTimeout <= 0 {
		return invalid("llm.request_timeout", fmt.Sprintf("must be positive, got %v", c.LLM.RequestTimeout))
	}
	if c.LLM.MaxRetries < 0 {
		return invalid("llm.max_retries", fmt.Sprintf("must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.LLM.MaxCorrections < 0 {
		return invalid("llm.max_corrections", fmt.Sprintf("must not be negative, got %d", c.LLM.MaxCorrections))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return invalid("telemetry.sample_rate", fmt.Sprintf("must be between 0.0 and 1.0, got %v", c.Telemetry.SampleRate))
	}
	switch redact.Mode(c.Telemetry.Redaction) {
	case redact.ModeNone, redact.ModeStandard, redact.ModeStrict:
	default:
		return invalid("telemetry.redaction", fmt.Sprintf("must be one of [none, standard, strict], got %q", c.Telemetry.Redaction))
	}
	for i, exp := range c.Telemetry.Exporters {
		if exp.Type == "" {
			return invalid(fmt.Sprintf("telemetry.exporters[%d].type", i), "must not be empty")
		}
	}

	if c.Monitor.Requests < 0 {
		return invalid("monitor.requests", fmt.Sprintf("must not be negative, got %d", c.Monitor.Requests))
	}
	if c.Monitor.Interval < 0 {
		return invalid("monitor.interval", fmt.Sprintf("must not be negative, got %v", c.Monitor.Interval))
	}

	return nil
}

// RequireProject reports a ConfigError when no project endpoint is
// configured. Commands that talk to the hosted project call it before
// opening a session.
func (c *Config) RequireProject() error {
	if c.Project.Endpoint != "" {
		return nil
	}
	return &tgerrors.ConfigError{
		Key:    "project.endpoint",
		Reason: "no AI project endpoint configured",
		Hint:   "set AZURE_EXISTING_AIPROJECT_ENDPOINT or PROJECT_CONNECTION_STRING",
	}
}

func invalid(key, reason string) error {
	return &tgerrors.ConfigError{Key: key, Reason: reason}
}
