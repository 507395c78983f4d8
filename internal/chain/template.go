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

package chain

import (
	"bytes"
	"fmt"
	"maps"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Bindings are the named values a prompt template can reference. Initial
// inputs and exported step outputs share one namespace.
type Bindings map[string]any

// Clone returns a shallow copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	maps.Copy(out, b)
	return out
}

// Prompt is a parsed prompt template. Referencing a binding that does not
// exist is an error rather than an empty string.
type Prompt struct {
	name string
	tmpl *template.Template
}

// ParsePrompt parses text with the sprig function set.
func ParsePrompt(name, text string) (*Prompt, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(strings.TrimLeft(text, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}
	return &Prompt{name: name, tmpl: tmpl}, nil
}

// MustParsePrompt is ParsePrompt for package-level prompts.
func MustParsePrompt(name, text string) *Prompt {
	p, err := ParsePrompt(name, text)
	if err != nil {
		panic(err)
	}
	return p
}

// Render executes the template against b.
func (p *Prompt) Render(b Bindings) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, map[string]any(b)); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", p.name, err)
	}
	return buf.String(), nil
}
