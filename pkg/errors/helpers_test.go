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

package errors_test

import (
	"errors"
	"testing"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

func TestWrap(t *testing.T) {
	if got := tgerrors.Wrap(nil, "context"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}

	base := errors.New("base")
	wrapped := tgerrors.Wrap(base, "opening session")
	if wrapped.Error() != "opening session: base" {
		t.Errorf("Wrap() = %q", wrapped.Error())
	}
	if !tgerrors.Is(wrapped, base) {
		t.Error("Wrap() should preserve the error chain")
	}
}

func TestWrapf(t *testing.T) {
	base := &tgerrors.ConfigError{Key: "k", Reason: "bad"}
	wrapped := tgerrors.Wrapf(base, "loading %s", "config.yaml")

	var configErr *tgerrors.ConfigError
	if !tgerrors.As(wrapped, &configErr) {
		t.Fatal("Wrapf() should preserve typed errors")
	}
	if configErr.Key != "k" {
		t.Errorf("Key = %q, want k", configErr.Key)
	}
	if wrapped.Error() != "loading config.yaml: config error at k: bad" {
		t.Errorf("Wrapf() = %q", wrapped.Error())
	}
}
