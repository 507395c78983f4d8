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

// Package llm defines the model endpoint abstraction used by the prompt
// chain, the traced workflow and the monitoring generator.
package llm

import (
	"context"
	"time"
)

// Provider sends a single completion request to a hosted model and returns
// its text. Implementations must be safe to call sequentially from one
// goroutine; nothing in this repository calls a provider concurrently.
type Provider interface {
	// Name returns the unique identifier for this provider (e.g., "foundry", "gemini").
	Name() string

	// Complete sends a synchronous completion request and returns the full response.
	// This method blocks until the model response is complete or ctx is done.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest contains all parameters for a completion request.
type CompletionRequest struct {
	// Messages is the conversation including the current prompt.
	Messages []Message

	// Model overrides the provider's configured model when set.
	Model string

	// Temperature controls randomness. Nil uses the provider default.
	Temperature *float64

	// MaxTokens limits the response length. Nil uses the provider default.
	MaxTokens *int

	// Agent routes the request through a pre-configured hosted agent.
	Agent *AgentReference

	// JSON asks the provider to constrain output to a JSON object where the
	// API supports it. Output is still validated by the caller.
	JSON bool

	// Metadata contains request tracking information (session and step names).
	Metadata map[string]string
}

// AgentReference names a hosted agent configuration resolved by the endpoint.
type AgentReference struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewAgentReference returns a reference of type "agent_reference".
func NewAgentReference(name string) *AgentReference {
	if name == "" {
		return nil
	}
	return &AgentReference{Name: name, Type: "agent_reference"}
}

// Message represents a single message in a conversation.
type Message struct {
	// Role indicates who sent this message (system, user, assistant).
	Role MessageRole

	// Content is the text content of the message.
	Content string
}

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	// MessageRoleSystem indicates a system message (context, instructions).
	MessageRoleSystem MessageRole = "system"

	// MessageRoleUser indicates a message from the user.
	MessageRoleUser MessageRole = "user"

	// MessageRoleAssistant indicates a message from the model.
	MessageRoleAssistant MessageRole = "assistant"
)

// UserMessage is shorthand for a user-role message.
func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

// SystemMessage is shorthand for a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

// CompletionResponse contains the full response from a completion.
type CompletionResponse struct {
	// Content is the generated text response.
	Content string

	// FinishReason explains why generation stopped.
	FinishReason FinishReason

	// Usage contains token consumption information.
	Usage TokenUsage

	// Model is the actual model ID that handled this request.
	Model string

	// RequestID is the unique identifier for this request (for tracing).
	RequestID string

	// Created is the timestamp when this response was generated.
	Created time.Time
}

// FinishReason indicates why completion generation stopped.
type FinishReason string

const (
	// FinishReasonStop indicates natural completion.
	FinishReasonStop FinishReason = "stop"

	// FinishReasonLength indicates the max token limit was reached.
	FinishReasonLength FinishReason = "length"

	// FinishReasonContentFilter indicates content policy violation.
	FinishReasonContentFilter FinishReason = "content_filter"

	// FinishReasonError indicates an error occurred.
	FinishReasonError FinishReason = "error"
)

// TokenUsage tracks token consumption reported by the endpoint.
type TokenUsage struct {
	// InputTokens is the number of tokens in the input (prompt).
	InputTokens int

	// OutputTokens is the number of tokens in the output (completion).
	OutputTokens int

	// TotalTokens is the sum of input and output tokens.
	TotalTokens int
}

// Float returns a pointer to v, for optional request parameters.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional request parameters.
func Int(v int) *int { return &v }
