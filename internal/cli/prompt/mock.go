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
)

// MockPrompter implements Prompter with scripted answers for testing.
type MockPrompter struct {
	answers     []string
	next        int
	interactive bool
	asked       []string
}

// NewMockPrompter creates a mock prompter that returns answers in order and
// then falls back to each prompt's default.
func NewMockPrompter(interactive bool, answers ...string) *MockPrompter {
	return &MockPrompter{answers: answers, interactive: interactive}
}

// IsInteractive returns the configured value.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// PromptString returns the next scripted answer.
func (mp *MockPrompter) PromptString(_ context.Context, message, _, def string) (string, error) {
	if !mp.interactive {
		return "", ErrNonInteractive
	}
	mp.asked = append(mp.asked, message)
	if mp.next >= len(mp.answers) || mp.answers[mp.next] == "" {
		mp.next++
		return def, nil
	}
	answer := mp.answers[mp.next]
	mp.next++
	return answer, ValidateString(answer)
}

// Asked returns the prompt messages in the order they were shown.
func (mp *MockPrompter) Asked() []string {
	return mp.asked
}
