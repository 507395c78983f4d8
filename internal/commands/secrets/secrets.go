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

// Package secrets implements the secrets command.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/secrets"
)

var (
	secretUnmask bool

	// newResolver is replaced in tests.
	newResolver = secrets.Default

	secretKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// NewCommand creates the secrets command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage API keys and client secrets in the system keychain",
		Long: `Manage API keys and client secrets.

Secrets are named after the environment variables that carry them. The
environment always wins; the system keychain is used when the variable is
unset.

Well-known keys:
  ` + secrets.KeyProjectAPIKey + `     project API key
  ` + secrets.KeyClientSecret + `  service principal client secret
  ` + secrets.KeyGeminiAPIKey + `       Gemini API key

Examples:
  trailguide secrets set AZURE_AI_API_KEY
  echo "$KEY" | trailguide secrets set GEMINI_API_KEY
  trailguide secrets get AZURE_AI_API_KEY
  trailguide secrets delete AZURE_CLIENT_SECRET`,
	}

	cmd.AddCommand(newSetCommand(), newGetCommand(), newDeleteCommand())
	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret in the keychain",
		Args:  exactKey,
		RunE:  runSet,
	}
}

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Show a secret (masked by default)",
		Args:  exactKey,
		RunE:  runGet,
	}
	cmd.Flags().BoolVar(&secretUnmask, "unmask", false, "Show the full value")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a secret from the keychain",
		Args:  exactKey,
		RunE:  runDelete,
	}
}

func exactKey(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return shared.NewUsageError(fmt.Sprintf("%s requires exactly one key", cmd.CommandPath()), nil)
	}
	if !secretKeyPattern.MatchString(args[0]) {
		return shared.NewUsageError(fmt.Sprintf("invalid key %q", args[0]), errors.New("keys are upper-case environment variable names such as AZURE_AI_API_KEY"))
	}
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	key := args[0]

	value, err := readSecretValue(cmd)
	if err != nil {
		return shared.NewExecutionError("reading secret value", err)
	}
	if value == "" {
		return shared.NewUsageError("secret value cannot be empty", nil)
	}

	if err := newResolver().Set(cmd.Context(), key, value); err != nil {
		if errors.Is(err, secrets.ErrBackendUnavailable) {
			return shared.NewExecutionError("no writable secret backend", fmt.Errorf("%w; export %s instead", err, key))
		}
		return shared.NewExecutionError("storing secret", err)
	}

	cmd.Println(shared.RenderOK("Stored " + key))
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	value, err := newResolver().Get(cmd.Context(), key)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return shared.NewExecutionError(fmt.Sprintf("secret %s not found", key), fmt.Errorf("set it with: trailguide secrets set %s", key))
		}
		return shared.NewExecutionError("reading secret", err)
	}

	if !secretUnmask {
		value = maskSecret(value)
	}
	cmd.Println(value)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	key := args[0]

	if err := newResolver().Delete(cmd.Context(), key); err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return shared.NewExecutionError(fmt.Sprintf("secret %s not found", key), nil)
		}
		return shared.NewExecutionError("deleting secret", err)
	}

	cmd.Println(shared.RenderOK("Deleted " + key))
	return nil
}

// readSecretValue reads piped input, or prompts with hidden input when
// stdin is a terminal.
func readSecretValue(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter secret value (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	data, err := io.ReadAll(io.LimitReader(in, 64*1024))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// maskSecret masks a secret value for display.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
