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
	"fmt"
	"strings"
	"unicode"
)

// ValidateString checks an answer before it is placed into a prompt
// template. Newlines and tabs are allowed so preferences can span lines.
func ValidateString(input string) error {
	if n := len(input); n > MaxInputSize {
		return fmt.Errorf("input is %d bytes, exceeds maximum size of %d bytes", n, MaxInputSize)
	}
	if i := strings.IndexByte(input, 0); i >= 0 {
		return fmt.Errorf("input contains null byte at position %d", i)
	}
	if i := strings.IndexFunc(input, disallowed); i >= 0 {
		return fmt.Errorf("input contains control character at position %d", i)
	}
	return nil
}

func disallowed(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	}
	return unicode.IsControl(r)
}
