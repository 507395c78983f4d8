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
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

// ErrMaxRetriesExceeded indicates all retry attempts have been exhausted.
var ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

// RetryConfig configures transport retries with exponential backoff.
// The zero value performs no retries, which is the default for every command.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (typically 2.0 for exponential).
	Multiplier float64

	// Jitter adds randomness to the delay (0.0-1.0).
	Jitter float64
}

// DefaultRetryConfig returns backoff settings with retries disabled.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   0,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// RetryingProvider wraps a provider and retries transient transport failures.
// Format problems in the returned text are not its concern.
type RetryingProvider struct {
	provider Provider
	config   RetryConfig
}

// WithRetry wraps provider with retry logic. A config with MaxRetries of
// zero returns provider unchanged.
func WithRetry(provider Provider, config RetryConfig) Provider {
	if config.MaxRetries <= 0 {
		return provider
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	return &RetryingProvider{provider: provider, config: config}
}

// Name returns the wrapped provider's name.
func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

// Complete executes a completion request with retry logic.
func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, r.config.MaxRetries+1, lastErr)
}

// backoff computes initialDelay * multiplier^(attempt-1), capped and jittered.
func (r *RetryingProvider) backoff(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if r.config.MaxDelay > 0 && delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if r.config.Jitter > 0 {
		spread := delay * r.config.Jitter
		delay += (rand.Float64() * 2 * spread) - spread
	}
	return time.Duration(delay)
}

// isRetryable reports whether err is a server error, a rate limit or a
// network failure. Cancellation of the caller's context is checked before
// this is called.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var providerErr *tgerrors.ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode > 0 {
		return providerErr.IsRetryable()
	}

	// Connection resets, refused dials and client timeouts.
	var netErr net.Error
	return errors.As(err, &netErr)
}
