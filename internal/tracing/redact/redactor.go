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

// Package redact scrubs secrets from prompt and completion text before it is
// attached to spans.
package redact

import (
	"regexp"
	"strings"
)

// Mode determines how aggressively values are redacted.
type Mode string

const (
	// ModeNone disables redaction.
	ModeNone Mode = "none"

	// ModeStandard applies pattern-based redaction for common secrets.
	ModeStandard Mode = "standard"

	// ModeStrict replaces every value (only keys are preserved).
	ModeStrict Mode = "strict"
)

// ParseMode maps a config value to a Mode. Unknown values fall back to
// ModeStandard.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone:
		return ModeNone
	case ModeStrict:
		return ModeStrict
	default:
		return ModeStandard
	}
}

// Pattern defines a redaction pattern with a name and regular expression.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// StandardPatterns returns the default set of redaction patterns.
func StandardPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "connection_string_key",
			Regex:       regexp.MustCompile(`(?i)(InstrumentationKey|AccountKey|SharedAccessKey|ApiKey)=([^;\s"]+)`),
			Replacement: "$1=[REDACTED]",
		},
		{
			Name:        "api_key",
			Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["\s:=]+([a-zA-Z0-9_\-]{16,})`),
			Replacement: "$1=[REDACTED]",
		},
		{
			Name:        "bearer_token",
			Regex:       regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-\.]{20,})`),
			Replacement: "$1[REDACTED]",
		},
		{
			Name:        "password",
			Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["\s:=]+([^\s";]+)`),
			Replacement: "$1=[REDACTED]",
		},
		{
			Name:        "private_key",
			Regex:       regexp.MustCompile(`(?s)(-----BEGIN (RSA |EC |DSA )?PRIVATE KEY-----).*?(-----END (RSA |EC |DSA )?PRIVATE KEY-----)`),
			Replacement: "$1[REDACTED]$3",
		},
		{
			Name:        "jwt",
			Regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
			Replacement: "[REDACTED-JWT]",
		},
		{
			Name:        "email",
			Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Replacement: "[REDACTED-EMAIL]",
		},
	}
}

// Redactor applies redaction rules to text and attribute maps.
type Redactor struct {
	mode     Mode
	patterns []Pattern
}

// NewRedactor creates a redactor using StandardPatterns.
func NewRedactor(mode Mode) *Redactor {
	return &Redactor{
		mode:     mode,
		patterns: StandardPatterns(),
	}
}

// Mode returns the configured mode.
func (r *Redactor) Mode() Mode {
	return r.mode
}

// RedactString applies redaction to a single value.
func (r *Redactor) RedactString(s string) string {
	switch r.mode {
	case ModeNone:
		return s
	case ModeStrict:
		return "[REDACTED]"
	}

	result := s
	for _, pattern := range r.patterns {
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

// RedactMap returns a copy of attrs with sensitive keys blanked and string
// values scrubbed. Non-string values pass through unless the mode is strict.
func (r *Redactor) RedactMap(attrs map[string]any) map[string]any {
	if r.mode == ModeNone {
		return attrs
	}

	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if shouldRedactKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = r.RedactString(val)
		default:
			if r.mode == ModeStrict {
				out[k] = "[REDACTED]"
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// shouldRedactKey checks if an attribute key names a credential.
func shouldRedactKey(key string) bool {
	lowerKey := strings.ToLower(key)
	sensitiveKeys := []string{
		"password", "passwd",
		"secret", "token_value",
		"api_key", "apikey",
		"private_key",
		"authorization",
		"connection_string",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
