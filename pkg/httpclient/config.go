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

package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds HTTP client settings.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	// Default: 120s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value. Required.
	UserAgent string

	// Headers are added to every request that does not already set them.
	Headers map[string]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   120 * time.Second,
		UserAgent: "trailguide/dev",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	for k := range c.Headers {
		if k == "" || http.CanonicalHeaderKey(k) == "" {
			return fmt.Errorf("invalid header name %q", k)
		}
	}
	return nil
}
