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
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

type flakyProvider struct {
	failCount int
	attempts  int
	failWith  error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.attempts++
	if f.attempts <= f.failCount {
		return nil, f.failWith
	}
	return &CompletionResponse{Content: "ok"}, nil
}

func fastRetry(n int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = n
	cfg.InitialDelay = time.Millisecond
	cfg.Jitter = 0
	return cfg
}

func TestWithRetry_ZeroRetriesReturnsProvider(t *testing.T) {
	p := &flakyProvider{}
	assert.Same(t, Provider(p), WithRetry(p, DefaultRetryConfig()))
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	p := &flakyProvider{
		failCount: 2,
		failWith:  &tgerrors.ProviderError{Provider: "flaky", StatusCode: http.StatusServiceUnavailable, Message: "unavailable"},
	}

	resp, err := WithRetry(p, fastRetry(3)).Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, p.attempts)
}

func TestWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	p := &flakyProvider{
		failCount: 5,
		failWith:  &tgerrors.ProviderError{Provider: "flaky", StatusCode: http.StatusUnauthorized, Message: "bad key"},
	}

	_, err := WithRetry(p, fastRetry(3)).Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, p.attempts)
}

func TestWithRetry_RetriesNetworkFailures(t *testing.T) {
	p := &flakyProvider{
		failCount: 1,
		failWith: &tgerrors.ProviderError{
			Provider: "flaky",
			Message:  "request failed",
			Cause:    &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET},
		},
	}

	resp, err := WithRetry(p, fastRetry(2)).Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, p.attempts)
}

func TestWithRetry_DoesNotRetryUndecodableResponses(t *testing.T) {
	p := &flakyProvider{
		failCount: 5,
		failWith: &tgerrors.ProviderError{
			Provider: "flaky",
			Message:  "decoding response",
			Cause:    errors.New("unexpected end of JSON input"),
		},
	}

	_, err := WithRetry(p, fastRetry(3)).Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, p.attempts)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	cause := &tgerrors.ProviderError{Provider: "flaky", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
	p := &flakyProvider{failCount: 10, failWith: cause}

	_, err := WithRetry(p, fastRetry(2)).Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 3, p.attempts)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	p := &flakyProvider{
		failCount: 10,
		failWith:  &tgerrors.ProviderError{Provider: "flaky", StatusCode: http.StatusBadGateway, Message: "bad gateway"},
	}
	cfg := fastRetry(5)
	cfg.InitialDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(p, cfg).Complete(ctx, CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.attempts)
}

func TestNewAgentReference(t *testing.T) {
	assert.Nil(t, NewAgentReference(""))
	ref := NewAgentReference("trail-guide")
	assert.Equal(t, &AgentReference{Name: "trail-guide", Type: "agent_reference"}, ref)
}

func TestNewProvider_UnknownFactory(t *testing.T) {
	_, err := NewProvider("does-not-exist", Settings{})
	assert.ErrorIs(t, err, ErrFactoryNotFound)
}
