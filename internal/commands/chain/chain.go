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

// Package chain implements the chain command.
package chain

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/catalog"
	tgchain "github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/cli/prompt"
	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/report"
	"github.com/tombee/trailguide/internal/tokens"
)

const preferencesQuestion = "Tell me what kind of hike you're looking for (location, difficulty, scenery):"

var (
	preferencesFlag    string
	nonInteractiveFlag bool

	// Replaced in tests.
	newPrompter = func(interactive bool) prompt.Prompter {
		return prompt.NewSurveyPrompter(interactive)
	}
	isNonInteractive = shared.IsNonInteractive
	newCounter       = tokens.NewCounter
)

// NewCommand creates the chain command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Run the trail guide prompt chain",
		Long: `Run the three-step trail guide chain against the configured model.

The chain recommends a hike from your preferences, profiles the trail and
its gear, and matches the gear against the store catalog. Each step must
return JSON of a fixed shape; the first step that does not aborts the
chain and the remaining steps are recorded as skipped.

Examples:
  trailguide chain
  trailguide chain --preferences "coastal hike near Seattle, easy, ocean views"
  trailguide chain --ci-mode --preferences "alpine lakes" --json`,
		Args: shared.NoArgs,
		RunE: runChain,
	}

	cmd.Flags().StringVarP(&preferencesFlag, "preferences", "p", "", "Hike preferences (prompted for when omitted)")
	cmd.Flags().BoolVar(&nonInteractiveFlag, "non-interactive", false, "Never prompt; require --preferences")

	return cmd
}

func runChain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	preferences, err := resolvePreferences(cmd)
	if err != nil {
		return err
	}

	cat, err := catalog.Default()
	if err != nil {
		return shared.NewExecutionError("loading product catalog", err)
	}
	c, err := tgchain.TrailGuide(cat)
	if err != nil {
		return shared.NewExecutionError("building chain", err)
	}

	rt, err := shared.Start(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	sess := rt.Session

	results := report.NewChainResults(sess.ID(), preferences, rt.Config.Project.AgentName)
	path := shared.GetOutputPath(rt.Config.Output.ChainFile)

	agent, err := sess.ResolveAgent(ctx)
	if err != nil {
		results.Fail(err)
		return rt.Finish(cmd, path, results)
	}

	exec := tgchain.NewExecutor(sess.Provider(),
		tgchain.WithTracer(sess.Tracer("trailguide.chain")),
		tgchain.WithMetrics(sess.Metrics()),
		tgchain.WithTokenCounter(newCounter(rt.Config.LLM.Model)),
		tgchain.WithLogger(log.WithComponent(rt.Logger, "chain")),
		tgchain.WithAgent(agent),
		tgchain.WithSessionID(sess.ID()),
		tgchain.WithMaxCorrections(rt.Config.LLM.MaxCorrections),
	)

	spin := shared.StartSpinner(cmd.ErrOrStderr(), "Asking the trail guide...")
	result := exec.Run(ctx, c, tgchain.TrailGuideBindings(preferences, cat))
	spin.Stop()

	results.Complete(result, report.TelemetryFlags{
		Enabled:          sess.TelemetryEnabled(),
		AppInsights:      sess.AppInsightsConnected(),
		ContentRecording: sess.ContentRecording(),
	})
	return rt.Finish(cmd, path, results)
}

// resolvePreferences returns --preferences or asks for them when a
// terminal is available.
func resolvePreferences(cmd *cobra.Command) (string, error) {
	if p := strings.TrimSpace(preferencesFlag); p != "" {
		if err := prompt.ValidateString(p); err != nil {
			return "", shared.NewUsageError("invalid --preferences", err)
		}
		return p, nil
	}

	interactive := !nonInteractiveFlag && !shared.GetCIMode() && !isNonInteractive()
	if !interactive {
		return "", shared.NewUsageError("--preferences is required in non-interactive mode", nil)
	}

	answer, err := newPrompter(true).PromptString(cmd.Context(), preferencesQuestion, "Location, difficulty and scenery all help.", "")
	if err != nil {
		return "", shared.NewExecutionError("reading preferences", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", shared.NewUsageError("no preferences given", nil)
	}
	return answer, nil
}
