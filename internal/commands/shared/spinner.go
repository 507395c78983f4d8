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

package shared

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner shows progress while waiting on the model. It does nothing when
// output is not a terminal or --quiet/--json is set.
type Spinner struct {
	s *spinner.Spinner
}

// StartSpinner starts a spinner on w with the given message.
func StartSpinner(w io.Writer, message string) *Spinner {
	if GetQuiet() || GetJSON() || !ColorEnabled() {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Spinner{s: s}
}

// Update replaces the spinner message.
func (sp *Spinner) Update(message string) {
	if sp.s == nil {
		return
	}
	sp.s.Lock()
	sp.s.Suffix = " " + message
	sp.s.Unlock()
}

// Stop stops the spinner and clears its line.
func (sp *Spinner) Stop() {
	if sp.s == nil {
		return
	}
	sp.s.Stop()
}
