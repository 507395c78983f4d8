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

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	// EnvBackendPriority is the highest priority so the environment always
	// overrides stored secrets.
	EnvBackendPriority = 100

	envSecretPrefix = "TRAILGUIDE_SECRET_"
)

// EnvBackend provides read-only access to secrets via environment variables.
// A key is looked up as TRAILGUIDE_SECRET_<KEY> first and then as the
// variable named by the key itself.
type EnvBackend struct{}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from environment variables.
func (e *EnvBackend) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(strings.ReplaceAll(key, "/", "_"))
	if value := os.Getenv(envSecretPrefix + name); value != "" {
		return value, nil
	}
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, name)
}

// Set returns ErrReadOnlyBackend.
func (e *EnvBackend) Set(context.Context, string, string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend.
func (e *EnvBackend) Delete(context.Context, string) error {
	return ErrReadOnlyBackend
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority.
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}
