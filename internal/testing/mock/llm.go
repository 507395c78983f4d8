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

package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tombee/trailguide/pkg/llm"
)

// Response is one scripted reply. When PromptContains is set the reply is
// only used for a request whose last user message contains it
// (case-insensitive).
type Response struct {
	PromptContains string
	Content        string
	Err            error
	Delay          time.Duration
}

// Reply is shorthand for an unconditional scripted response.
func Reply(content string) Response {
	return Response{Content: content}
}

// Fail is shorthand for an unconditional scripted error.
func Fail(err error) Response {
	return Response{Err: err}
}

// LLMProvider is a scripted llm.Provider. Each scripted response is used at
// most once, in order; Default answers anything left over.
type LLMProvider struct {
	Default *Response

	mu        sync.Mutex
	responses []Response
	used      []bool
	requests  []llm.CompletionRequest
}

// NewLLMProvider creates a provider that replays responses.
func NewLLMProvider(responses ...Response) *LLMProvider {
	return &LLMProvider{
		responses: responses,
		used:      make([]bool, len(responses)),
	}
}

// Name implements llm.Provider.
func (m *LLMProvider) Name() string { return "mock" }

// Complete returns the first unused matching response.
func (m *LLMProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	resp, ok := m.next(LastUserMessage(req))
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("mock: no scripted response for request %d", len(m.Requests()))
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &llm.CompletionResponse{
		Content:      resp.Content,
		FinishReason: llm.FinishReasonStop,
		Model:        model,
		RequestID:    fmt.Sprintf("mock-%d", len(m.Requests())),
		Created:      time.Now(),
		Usage: llm.TokenUsage{
			InputTokens:  len(strings.Fields(LastUserMessage(req))),
			OutputTokens: len(strings.Fields(resp.Content)),
		},
	}, nil
}

func (m *LLMProvider) next(prompt string) (Response, bool) {
	lower := strings.ToLower(prompt)
	for i, r := range m.responses {
		if m.used[i] {
			continue
		}
		if r.PromptContains != "" && !strings.Contains(lower, strings.ToLower(r.PromptContains)) {
			continue
		}
		m.used[i] = true
		return r, true
	}
	if m.Default != nil {
		return *m.Default, true
	}
	return Response{}, false
}

// Requests returns a copy of every request received.
func (m *LLMProvider) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of requests received.
func (m *LLMProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastUserMessage returns the content of the final user message in req.
func LastUserMessage(req llm.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.MessageRoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
