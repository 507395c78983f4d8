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
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/httpclient"
	"github.com/tombee/trailguide/pkg/llm"
)

const (
	geminiName         = "gemini"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiProvider runs the same prompts against the Gemini API. It has no
// notion of hosted agents; an agent reference on the request is ignored.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider from settings. APIKey is required.
// Endpoint, when set, overrides the API base URL.
func NewGeminiProvider(s llm.Settings) (llm.Provider, error) {
	if s.APIKey == "" {
		return nil, &errors.ConfigError{
			Key:    "gemini.api_key",
			Reason: "API key is required for the gemini provider",
			Hint:   "Set GEMINI_API_KEY or store it with the OS keychain",
		}
	}

	hcfg := httpclient.DefaultConfig()
	hcfg.UserAgent = llm.UserAgent
	if s.Timeout > 0 {
		hcfg.Timeout = s.Timeout
	}
	hc, err := httpclient.New(hcfg)
	if err != nil {
		return nil, err
	}

	cfg := &genai.ClientConfig{
		APIKey:     s.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if s.Endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.Endpoint}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := s.Model
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return geminiName
}

// Complete performs a single non-streaming generation.
func (p *GeminiProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	contents, config := p.buildRequest(req)

	genResp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		perr := &errors.ProviderError{
			Provider: geminiName,
			Message:  err.Error(),
			Cause:    err,
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			perr.StatusCode = apiErr.Code
			perr.Message = apiErr.Message
		}
		return nil, perr
	}
	return p.parseResponse(genResp, model)
}

func (p *GeminiProvider) buildRequest(req llm.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	var system []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.MessageRoleSystem:
			system = append(system, msg.Content)
		case llm.MessageRoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n")}}}
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return contents, config
}

func (p *GeminiProvider) parseResponse(genResp *genai.GenerateContentResponse, model string) (*llm.CompletionResponse, error) {
	if len(genResp.Candidates) == 0 {
		return nil, &errors.ProviderError{Provider: geminiName, Message: "empty response from Gemini"}
	}
	candidate := genResp.Candidates[0]

	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}

	resp := &llm.CompletionResponse{
		Content:      sb.String(),
		FinishReason: geminiFinishReason(candidate.FinishReason),
		Model:        model,
		RequestID:    genResp.ResponseID,
		Created:      time.Now(),
	}
	if genResp.ModelVersion != "" {
		resp.Model = genResp.ModelVersion
	}
	if genResp.UsageMetadata != nil {
		resp.Usage = llm.TokenUsage{
			InputTokens:  int(genResp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(genResp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(genResp.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

func geminiFinishReason(reason genai.FinishReason) llm.FinishReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return llm.FinishReasonLength
	case genai.FinishReasonSafety:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonStop
	}
}

var _ llm.Provider = (*GeminiProvider)(nil)
