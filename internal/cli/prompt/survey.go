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

	"github.com/AlecAivazis/survey/v2"
)

// SurveyPrompter implements Prompter using the survey library.
type SurveyPrompter struct {
	interactive bool
}

// NewSurveyPrompter creates a new survey-based prompter.
func NewSurveyPrompter(interactive bool) *SurveyPrompter {
	return &SurveyPrompter{interactive: interactive}
}

// IsInteractive reports whether the prompter was created for a terminal.
func (sp *SurveyPrompter) IsInteractive() bool {
	return sp.interactive
}

// PromptString collects a string input using survey.Input.
func (sp *SurveyPrompter) PromptString(ctx context.Context, message, help, def string) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var result string
	input := &survey.Input{
		Message: message,
		Help:    help,
		Default: def,
	}
	err := survey.AskOne(input, &result, survey.WithValidator(func(ans interface{}) error {
		if str, ok := ans.(string); ok {
			return ValidateString(str)
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return def, nil
	}
	return result, nil
}
