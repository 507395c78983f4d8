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

// Package trace implements the trace command.
package trace

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/report"
	"github.com/tombee/trailguide/internal/simulate"
	"github.com/tombee/trailguide/internal/tokens"
)

var (
	inputFlag      string
	skipErrorsFlag bool

	// Replaced in tests.
	newCounter = tokens.NewCounter
	now        = time.Now
)

// NewCommand creates the trace command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Run the traced hiking workflow and an error scenario",
		Long: `Run a four-step hiking assistant workflow with a span per step, then
process an empty request so a validation failure is captured in a trace.

A failed model step skips the steps that depend on it; the final step
always runs and reports how many steps were attempted. Step failures are
recorded in the results, they do not fail the command.

Examples:
  trailguide trace
  trailguide trace --input "an easy lakeside walk for a family of four"
  trailguide trace --skip-error-scenario`,
		Args: shared.NoArgs,
		RunE: runTrace,
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", simulate.DefaultHikingRequest, "Hiking request sent to the workflow")
	cmd.Flags().BoolVar(&skipErrorsFlag, "skip-error-scenario", false, "Only run the hiking workflow")

	return cmd
}

func runTrace(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := simulate.ValidateInput(inputFlag); err != nil {
		return shared.NewUsageError("invalid --input", err)
	}

	rt, err := shared.Start(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	sess := rt.Session

	setup := report.NewTracingSetup(sess.TelemetryEnabled(), sess.ContentRecording(), now())
	results := report.NewTraceResults(sess.ID(), setup)
	path := shared.GetOutputPath(rt.Config.Output.TraceFile)

	agent, err := sess.ResolveAgent(ctx)
	if err != nil {
		results.Fail(err)
		return rt.Finish(cmd, path, results)
	}

	tracer := sess.Tracer("trailguide.workflow")
	wf := &simulate.HikingWorkflow{
		Provider:  sess.Provider(),
		Tracer:    tracer,
		Metrics:   sess.Metrics(),
		Counter:   newCounter(rt.Config.LLM.Model),
		Logger:    log.WithComponent(rt.Logger, "workflow"),
		Agent:     agent,
		SessionID: sess.ID(),
		UserInput: inputFlag,
	}

	spin := shared.StartSpinner(cmd.ErrOrStderr(), "Running hiking workflow...")
	steps := wf.Run(ctx)

	errorTraces := []simulate.ErrorTrace{}
	if !skipErrorsFlag {
		spin.Update("Tracing error scenario...")
		errorTraces = append(errorTraces, simulate.ErrorScenario(ctx, tracer, sess.ID()))
	}
	spin.Stop()

	results.Complete(steps, errorTraces)
	if err := ctx.Err(); err != nil {
		results.Fail(err)
	}
	logWorkflow(rt, steps)
	return rt.Finish(cmd, path, results)
}

func logWorkflow(rt *shared.Runtime, steps []chain.StepResult) {
	for _, s := range steps {
		if s.Status == chain.StatusError {
			rt.Logger.Warn("workflow step failed", log.StepKey, s.Name, "error", s.Error)
		}
	}
}
