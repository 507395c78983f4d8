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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/llm"
)

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(llm.Settings{})
	var cerr *errors.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "gemini.api_key", cerr.Key)
}

func TestGeminiProvider_BuildRequest(t *testing.T) {
	p := &GeminiProvider{model: geminiDefaultModel}
	contents, config := p.buildRequest(llm.CompletionRequest{
		Messages: []llm.Message{
			llm.SystemMessage("answer in JSON"),
			llm.UserMessage("recommend a hike"),
		},
		Temperature: llm.Float(0.5),
		MaxTokens:   llm.Int(150),
		JSON:        true,
	})

	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "recommend a hike", contents[0].Parts[0].Text)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "answer in JSON", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.5, float64(*config.Temperature), 1e-6)
	assert.Equal(t, int32(150), config.MaxOutputTokens)
	assert.Equal(t, "application/json", config.ResponseMIMEType)
}

func TestGeminiProvider_ParseResponse(t *testing.T) {
	p := &GeminiProvider{model: geminiDefaultModel}
	resp, err := p.parseResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: `{"trailType":"loop"}`},
			}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     5,
			CandidatesTokenCount: 7,
			TotalTokenCount:      12,
		},
	}, geminiDefaultModel)
	require.NoError(t, err)

	assert.Equal(t, `{"trailType":"loop"}`, resp.Content)
	assert.Equal(t, llm.FinishReasonLength, resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Equal(t, geminiDefaultModel, resp.Model)
}

func TestGeminiProvider_ParseEmpty(t *testing.T) {
	p := &GeminiProvider{model: geminiDefaultModel}
	_, err := p.parseResponse(&genai.GenerateContentResponse{}, geminiDefaultModel)
	var perr *errors.ProviderError
	require.True(t, errors.As(err, &perr))
}
