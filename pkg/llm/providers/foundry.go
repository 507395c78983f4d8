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

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/httpclient"
	"github.com/tombee/trailguide/pkg/llm"
)

const (
	foundryName              = "foundry"
	foundryDefaultAPIVersion = "2025-05-15-preview"
	foundryDefaultModel      = "gpt-4o-mini"
	foundryDefaultMaxTokens  = 800
)

// FoundryProvider talks to an AI project's OpenAI-compatible responses
// endpoint. Requests may be routed to a hosted agent via an agent reference.
type FoundryProvider struct {
	endpoint    string
	apiVersion  string
	model       string
	apiKey      string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewFoundryProvider creates a provider from settings. An endpoint and one
// of APIKey or TokenSource are required.
func NewFoundryProvider(s llm.Settings) (llm.Provider, error) {
	if s.Endpoint == "" {
		return nil, &errors.ConfigError{
			Key:    "project.endpoint",
			Reason: "AI project endpoint is required for the foundry provider",
			Hint:   "Set AZURE_EXISTING_AIPROJECT_ENDPOINT or project.endpoint in the config file",
		}
	}
	if _, err := url.ParseRequestURI(s.Endpoint); err != nil {
		return nil, &errors.ConfigError{Key: "project.endpoint", Reason: "endpoint is not a valid URL", Cause: err}
	}
	if s.APIKey == "" && s.TokenSource == nil {
		return nil, &errors.ConfigError{
			Key:    "credentials",
			Reason: "no credentials available for the foundry provider",
			Hint:   "Set AZURE_AI_API_KEY, or AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET",
		}
	}

	cfg := httpclient.DefaultConfig()
	cfg.UserAgent = llm.UserAgent
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}

	p := &FoundryProvider{
		endpoint:    strings.TrimRight(s.Endpoint, "/"),
		apiVersion:  s.APIVersion,
		model:       s.Model,
		apiKey:      s.APIKey,
		tokenSource: s.TokenSource,
		httpClient:  client,
	}
	if p.apiVersion == "" {
		p.apiVersion = foundryDefaultAPIVersion
	}
	if p.model == "" {
		p.model = foundryDefaultModel
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *FoundryProvider) Name() string {
	return foundryName
}

// Complete sends one request to the responses endpoint and returns the text
// of all output_text parts concatenated.
func (p *FoundryProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	apiReq := p.buildRequest(req)
	apiResp, requestID, err := p.doRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	return p.parseResponse(apiResp, requestID)
}

func (p *FoundryProvider) buildRequest(req llm.CompletionRequest) *responsesRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}

	apiReq := &responsesRequest{
		Model:           model,
		Input:           make([]responsesInput, 0, len(req.Messages)),
		Temperature:     req.Temperature,
		MaxOutputTokens: foundryDefaultMaxTokens,
		Agent:           req.Agent,
	}
	if req.MaxTokens != nil {
		apiReq.MaxOutputTokens = *req.MaxTokens
	}
	for _, msg := range req.Messages {
		if msg.Role == llm.MessageRoleSystem {
			apiReq.Instructions = msg.Content
			continue
		}
		apiReq.Input = append(apiReq.Input, responsesInput{Role: string(msg.Role), Content: msg.Content})
	}
	if len(req.Metadata) > 0 {
		apiReq.Metadata = req.Metadata
	}
	if req.JSON {
		apiReq.Text = &responsesText{Format: responsesFormat{Type: "json_object"}}
	}
	return apiReq
}

func (p *FoundryProvider) doRequest(ctx context.Context, apiReq *responsesRequest) (*responsesResponse, string, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, "", &errors.ProviderError{
			Provider: foundryName,
			Message:  fmt.Sprintf("failed to marshal request: %v", err),
			Cause:    err,
		}
	}

	u := p.endpoint + "/openai/responses?api-version=" + url.QueryEscape(p.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, "", &errors.ProviderError{
			Provider: foundryName,
			Message:  fmt.Sprintf("failed to create request: %v", err),
			Cause:    err,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.authorize(httpReq); err != nil {
		return nil, "", err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", &errors.ProviderError{
			Provider: foundryName,
			Message:  fmt.Sprintf("request failed: %v", err),
			Hint:     "Check network connectivity and the project endpoint",
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("x-request-id")
	if requestID == "" {
		requestID = resp.Header.Get("apim-request-id")
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, requestID, &errors.ProviderError{
			Provider:   foundryName,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			RequestID:  requestID,
			Cause:      err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 512))
		var errResp responsesErrorEnvelope
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, requestID, &errors.ProviderError{
			Provider:   foundryName,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Hint:       foundryHint(resp.StatusCode),
			RequestID:  requestID,
		}
	}

	var apiResp responsesResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, requestID, &errors.ProviderError{
			Provider:   foundryName,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to parse response: %v", err),
			RequestID:  requestID,
			Cause:      err,
		}
	}
	if apiResp.Error != nil && apiResp.Error.Message != "" {
		return nil, requestID, &errors.ProviderError{
			Provider:  foundryName,
			Message:   apiResp.Error.Message,
			RequestID: requestID,
		}
	}
	return &apiResp, requestID, nil
}

func (p *FoundryProvider) authorize(req *http.Request) error {
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
		return nil
	}
	tok, err := p.tokenSource.Token()
	if err != nil {
		return &errors.ProviderError{
			Provider: foundryName,
			Message:  fmt.Sprintf("failed to acquire access token: %v", err),
			Hint:     "Verify the service principal credentials and tenant",
			Cause:    err,
		}
	}
	tok.SetAuthHeader(req)
	return nil
}

func (p *FoundryProvider) parseResponse(resp *responsesResponse, requestID string) (*llm.CompletionResponse, error) {
	var sb strings.Builder
	for _, item := range resp.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}

	if requestID == "" {
		requestID = resp.ID
	}
	created := time.Now()
	if resp.CreatedAt > 0 {
		created = time.Unix(resp.CreatedAt, 0)
	}

	return &llm.CompletionResponse{
		Content:      sb.String(),
		FinishReason: foundryFinishReason(resp),
		Usage: llm.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Model:     resp.Model,
		RequestID: requestID,
		Created:   created,
	}, nil
}

func foundryFinishReason(resp *responsesResponse) llm.FinishReason {
	switch resp.Status {
	case "incomplete":
		if resp.IncompleteDetails != nil && resp.IncompleteDetails.Reason == "content_filter" {
			return llm.FinishReasonContentFilter
		}
		return llm.FinishReasonLength
	case "failed":
		return llm.FinishReasonError
	default:
		return llm.FinishReasonStop
	}
}

func foundryHint(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return "Check that the API key or service principal is valid for this project"
	case http.StatusForbidden:
		return "The identity needs the Azure AI User role on the project"
	case http.StatusNotFound:
		return "Check the project endpoint, model deployment and agent name"
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Lower --requests or raise --interval"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return "The model endpoint is having issues. Retry after a short delay"
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type responsesRequest struct {
	Model           string              `json:"model,omitempty"`
	Instructions    string              `json:"instructions,omitempty"`
	Input           []responsesInput    `json:"input"`
	MaxOutputTokens int                 `json:"max_output_tokens,omitempty"`
	Temperature     *float64            `json:"temperature,omitempty"`
	Agent           *llm.AgentReference `json:"agent,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty"`
	Text            *responsesText      `json:"text,omitempty"`
}

type responsesText struct {
	Format responsesFormat `json:"format"`
}

type responsesFormat struct {
	Type string `json:"type"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	ID                string                `json:"id"`
	Model             string                `json:"model"`
	Status            string                `json:"status"`
	CreatedAt         int64                 `json:"created_at"`
	Output            []responsesOutputItem `json:"output"`
	Usage             responsesUsage        `json:"usage"`
	Error             *responsesError       `json:"error,omitempty"`
	IncompleteDetails *responsesIncomplete  `json:"incomplete_details,omitempty"`
}

type responsesOutputItem struct {
	Type    string                 `json:"type"`
	Role    string                 `json:"role"`
	Content []responsesContentPart `json:"content"`
}

type responsesContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type responsesIncomplete struct {
	Reason string `json:"reason"`
}

type responsesError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responsesErrorEnvelope struct {
	Error responsesError `json:"error"`
}

var _ llm.Provider = (*FoundryProvider)(nil)
