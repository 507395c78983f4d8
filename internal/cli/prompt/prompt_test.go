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

package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "plain", input: "a coastal hike"},
		{name: "multiline", input: "line one\nline two\ttabbed"},
		{name: "null byte", input: "a\x00b", wantErr: "null byte at position 1"},
		{name: "escape", input: "\x1b[31m", wantErr: "control character at position 0"},
		{name: "too large", input: strings.Repeat("x", MaxInputSize+1), wantErr: "maximum size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMockPrompter(t *testing.T) {
	ctx := context.Background()
	p := NewMockPrompter(true, "mountain trails", "")

	got, err := p.PromptString(ctx, "Preferences", "", "default")
	require.NoError(t, err)
	assert.Equal(t, "mountain trails", got)

	got, err = p.PromptString(ctx, "Again", "", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	got, err = p.PromptString(ctx, "Exhausted", "", "last")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	assert.Equal(t, []string{"Preferences", "Again", "Exhausted"}, p.Asked())
}

func TestPromptersRefuseNonInteractive(t *testing.T) {
	ctx := context.Background()

	_, err := NewSurveyPrompter(false).PromptString(ctx, "q", "", "")
	assert.ErrorIs(t, err, ErrNonInteractive)

	_, err = NewMockPrompter(false, "x").PromptString(ctx, "q", "", "")
	assert.ErrorIs(t, err, ErrNonInteractive)
}
