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

// Package monitor implements the monitor command.
package monitor

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/log"
	tgmonitor "github.com/tombee/trailguide/internal/monitor"
	"github.com/tombee/trailguide/internal/report"
	"github.com/tombee/trailguide/internal/tokens"
)

var (
	requestsFlag int
	intervalFlag time.Duration

	// Replaced in tests.
	newCounter = tokens.NewCounter
	now        = time.Now
)

// NewCommand creates the monitor command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Generate model telemetry and validate the monitoring setup",
		Long: `Send a series of traced chat requests so latency, token and error
telemetry shows up in the monitoring backend, then report what was sent.

Before sending, the project and its Application Insights connection are
probed. Probe failures are reported, not fatal. A failed request is
recorded and the remaining requests are still sent.

Examples:
  trailguide monitor
  trailguide monitor --requests 10 --interval 500ms
  trailguide monitor --metrics-addr :9464`,
		Args: shared.NoArgs,
		RunE: runMonitor,
	}

	cmd.Flags().IntVarP(&requestsFlag, "requests", "n", 0, "Number of requests to send (default from config: 5)")
	cmd.Flags().DurationVar(&intervalFlag, "interval", 0, "Minimum spacing between requests, 0 sends back to back (default from config: 1s)")

	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if requestsFlag < 0 {
		return shared.NewUsageError(fmt.Sprintf("--requests must not be negative, got %d", requestsFlag), nil)
	}
	if intervalFlag < 0 {
		return shared.NewUsageError(fmt.Sprintf("--interval must not be negative, got %v", intervalFlag), nil)
	}

	rt, err := shared.Start(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	sess := rt.Session

	n := rt.Config.Monitor.Requests
	if cmd.Flags().Changed("requests") {
		n = requestsFlag
	}
	interval := rt.Config.Monitor.Interval
	if cmd.Flags().Changed("interval") {
		interval = intervalFlag
	}

	results := report.NewMonitorResults(sess.ID(), sess.AppInsightsConnected(), now())
	path := shared.GetOutputPath(rt.Config.Output.MonitorFile)

	var project tgmonitor.Project
	if p := sess.Project(); p != nil {
		project = p
	}
	logger := log.WithComponent(rt.Logger, "monitor")
	validation := tgmonitor.Validate(ctx, project, logger)

	agent, err := sess.ResolveAgent(ctx)
	if err != nil {
		results.Complete(validation, []tgmonitor.Request{})
		results.Fail(err)
		return rt.Finish(cmd, path, results)
	}

	gen := &tgmonitor.Generator{
		Provider: sess.Provider(),
		Tracer:   sess.Tracer("trailguide.monitor"),
		Metrics:  sess.Metrics(),
		Counter:  newCounter(rt.Config.LLM.Model),
		Logger:   logger,
		Agent:    agent,
		Interval: interval,
	}

	spin := shared.StartSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Sending %d requests...", n))
	requests, runErr := gen.Run(ctx, n)
	spin.Stop()

	results.Complete(validation, requests)
	if runErr != nil {
		results.Fail(runErr)
	}
	return rt.Finish(cmd, path, results)
}
