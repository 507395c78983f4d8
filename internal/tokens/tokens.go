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

// Package tokens estimates token counts for prompts and responses.
package tokens

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

var (
	cacheMu       sync.Mutex
	encodingCache = make(map[string]*tiktoken.Tiktoken)
)

// NewCounter returns a BPE counter for model. Unknown models use
// cl100k_base; when no encoding can be loaded the counter falls back to
// counting whitespace-separated words.
func NewCounter(model string) Counter {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return &bpeCounter{enc: enc}
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		slog.Debug("token encoding unavailable, counting words", "model", model, "error", err)
		return Words()
	}
	encodingCache[model] = enc
	return &bpeCounter{enc: enc}
}

type bpeCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *bpeCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Words returns a counter that counts whitespace-separated words.
func Words() Counter {
	return wordCounter{}
}

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
