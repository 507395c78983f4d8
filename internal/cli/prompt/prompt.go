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

// Package prompt collects free-text answers from the user at the terminal.
package prompt

import (
	"context"
	"errors"
)

// MaxInputSize bounds a single answer.
const MaxInputSize = 10 * 1024

// ErrNonInteractive is returned when a prompt is attempted without a terminal.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// Prompter asks the user for input.
type Prompter interface {
	// PromptString asks message and returns the answer, or def when the
	// answer is empty.
	PromptString(ctx context.Context, message, help, def string) (string, error)

	// IsInteractive reports whether prompting is possible.
	IsInteractive() bool
}
