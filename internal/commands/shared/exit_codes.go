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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	pkgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Exit codes for every trailguide command.
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidUsage    = 2
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for configuration, model, decode or
// write failures.
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewUsageError creates an error for bad flags or arguments.
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidUsage,
		Message: msg,
		Cause:   cause,
	}
}

// FlagErrorFunc turns cobra flag parsing errors into usage errors.
func FlagErrorFunc(_ *cobra.Command, err error) error {
	return NewUsageError("invalid flags", err)
}

// NoArgs rejects positional arguments with a usage error.
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return NewUsageError(fmt.Sprintf("unknown argument %q for %q", args[0], cmd.CommandPath()), nil)
	}
	return nil
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitExecutionFailed
}

// PrintError writes err and any user-facing suggestion to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError("Error: "+msg))
	}
	printUserVisibleSuggestion(w, err)
}

// HandleExitError prints err and exits with the matching code. It returns
// when err is nil.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// printUserVisibleSuggestion walks the error chain and prints the first
// suggestion offered by a UserVisibleError.
func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok && userErr.IsUserVisible() {
			if suggestion := userErr.Suggestion(); suggestion != "" {
				fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				return
			}
		}
		err = errors.Unwrap(err)
	}
}
