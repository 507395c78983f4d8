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

package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrFactoryNotFound indicates no factory is registered for the provider.
var ErrFactoryNotFound = errors.New("provider factory not found")

// Settings carries everything a provider factory needs to build a client.
type Settings struct {
	// Endpoint is the base URL of the model endpoint (AI project endpoint for foundry).
	Endpoint string

	// APIVersion is appended as the api-version query parameter when set.
	APIVersion string

	// Model is the default model or deployment name.
	Model string

	// APIKey authenticates with a static key when TokenSource is nil.
	APIKey string

	// TokenSource supplies bearer tokens (service principal or static token).
	TokenSource oauth2.TokenSource

	// Timeout bounds a single request. Zero uses the provider default.
	Timeout time.Duration
}

// ProviderFactory creates a Provider from Settings.
type ProviderFactory func(s Settings) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

// RegisterFactory registers a provider factory under name. Providers call
// this from init(); registering the same name twice replaces the factory.
func RegisterFactory(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewProvider instantiates the named provider.
func NewProvider(name string, s Settings) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrFactoryNotFound, name, Factories())
	}
	return factory(s)
}

// Factories lists the registered provider names in sorted order.
func Factories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UserAgent is sent with every model request. The CLI sets it to include
// the build version.
var UserAgent = "trailguide/dev"
