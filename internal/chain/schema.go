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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	pkgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Decoder turns raw model text into a typed step output.
type Decoder interface {
	Decode(step, raw string) (any, error)
	Schema() []byte
}

// JSONDecoder decodes a single strict JSON object into T after validating
// it against a schema reflected from T. Fields without omitempty are
// required and unknown fields are rejected.
type JSONDecoder[T any] struct {
	schemaJSON []byte
	schema     *validator.Schema
}

// NewJSONDecoder reflects and compiles the schema for T. refine, when
// non-nil, may tighten the reflected schema before it is compiled.
func NewJSONDecoder[T any](refine func(*jsonschema.Schema)) (*JSONDecoder[T], error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := reflector.Reflect(new(T))
	if s.AdditionalProperties == nil {
		s.AdditionalProperties = jsonschema.FalseSchema
	}
	if refine != nil {
		refine(s)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal output schema: %w", err)
	}
	doc, err := validator.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal output schema: %w", err)
	}

	const url = "trailguide://output.json"
	c := validator.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add output schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile output schema: %w", err)
	}
	return &JSONDecoder[T]{schemaJSON: data, schema: compiled}, nil
}

// MustJSONDecoder is NewJSONDecoder for package-level decoders.
func MustJSONDecoder[T any](refine func(*jsonschema.Schema)) *JSONDecoder[T] {
	d, err := NewJSONDecoder[T](refine)
	if err != nil {
		panic(err)
	}
	return d
}

// Schema returns the compiled schema document.
func (d *JSONDecoder[T]) Schema() []byte { return d.schemaJSON }

// Decode implements Decoder. It returns *T on success. Text that is not
// exactly one JSON object (prose, markdown fences, trailing data) fails
// with a FormatError carrying the raw text.
func (d *JSONDecoder[T]) Decode(step, raw string) (any, error) {
	out, err := d.DecodeTyped(step, raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeTyped is Decode without the interface conversion.
func (d *JSONDecoder[T]) DecodeTyped(step, raw string) (*T, error) {
	formatErr := func(cause error, violations ...string) error {
		return &pkgerrors.FormatError{Step: step, Raw: raw, Violations: violations, Cause: cause}
	}

	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") {
		return nil, formatErr(errors.New("output is not a JSON object"))
	}

	doc, err := validator.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, formatErr(err)
	}
	if err := d.schema.Validate(doc); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return nil, formatErr(err, collectViolations(verr)...)
		}
		return nil, formatErr(err, err.Error())
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	out := new(T)
	if err := dec.Decode(out); err != nil {
		return nil, formatErr(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, formatErr(errors.New("unexpected data after JSON object"))
	}
	return out, nil
}

// collectViolations flattens a validation error tree into leaf messages
// prefixed with their instance location.
func collectViolations(verr *validator.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, leafMessage(verr))}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

var printer = message.NewPrinter(language.English)

func leafMessage(verr *validator.ValidationError) string {
	if verr.ErrorKind != nil {
		return verr.ErrorKind.LocalizedString(printer)
	}
	return verr.Error()
}
