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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tombee/trailguide/internal/chain"
	pkgerrors "github.com/tombee/trailguide/pkg/errors"
)

// WriteFile writes results as indented JSON to path, replacing any
// previous file.
func WriteFile(path string, results any) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "encoding results")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pkgerrors.Wrapf(err, "creating results directory %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return pkgerrors.Wrapf(err, "writing results to %s", path)
	}
	return nil
}

// RenderOptions controls console output.
type RenderOptions struct {
	// JSON writes the results record instead of tables.
	JSON bool

	// Color enables ANSI colors in tables.
	Color bool
}

// Render writes a human summary of r to w.
func Render(w io.Writer, r Results, opts RenderOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	paint := func(c text.Color, v any) any {
		if !opts.Color {
			return v
		}
		return c.Sprint(v)
	}

	if rows := r.stepRows(); len(rows) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "STEP", "STATUS", "DURATION", "DETAIL"})
		for _, row := range rows {
			status := row[2]
			switch status {
			case chain.StatusSuccess:
				status = paint(text.FgGreen, status)
			case chain.StatusError:
				status = paint(text.FgRed, status)
			case chain.StatusSkipped:
				status = paint(text.FgHiBlack, status)
			}
			t.AppendRow(table.Row{row[0], row[1], status, row[3], row[4]})
		}
		t.Render()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s: %s", r.LabName(), statusText(r)))
	for _, kv := range r.summaryRows() {
		t.AppendRow(table.Row{paint(text.FgHiCyan, kv[0]), kv[1]})
	}
	t.Render()
	return nil
}

func statusText(r Results) string {
	if r.Succeeded() {
		return StatusSuccess
	}
	return StatusFailed
}

func stepRow(s chain.StepResult) []any {
	detail := s.Error
	if s.Status == chain.StatusSuccess {
		detail = fmt.Sprintf("%d tokens", s.TokenEstimate)
	}
	if s.ErrorKind != "" {
		detail = fmt.Sprintf("[%s] %s", s.ErrorKind, detail)
	}
	duration := "-"
	if s.Status != chain.StatusSkipped {
		duration = fmt.Sprintf("%dms", s.DurationMS)
	}
	return []any{s.Step, s.Name, s.Status, duration, truncate(detail, 60)}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if text.StringWidthWithoutEscSequences(s) <= n {
		return s
	}
	return text.Trim(s, n-3) + "..."
}

func (r *ChainResults) stepRows() [][]any {
	rows := make([][]any, len(r.Steps))
	for i, s := range r.Steps {
		rows[i] = stepRow(s)
	}
	return rows
}

func (r *ChainResults) summaryRows() [][2]any {
	return [][2]any{
		{"Session ID", r.SessionID},
		{"Steps", fmt.Sprintf("%d/%d successful", r.Summary.SuccessfulSteps, r.Summary.TotalSteps)},
		{"Success rate", r.Summary.SuccessRate},
		{"Avg response time", fmt.Sprintf("%.0fms", r.Summary.AvgLatencyMS)},
		{"Telemetry enabled", r.Summary.TelemetryEnabled},
		{"Content recording", r.Summary.ContentRecordingEnabled},
	}
}

func (r *MonitorResults) stepRows() [][]any {
	rows := make([][]any, len(r.TelemetryData))
	for i, req := range r.TelemetryData {
		rows[i] = stepRow(req.StepResult())
	}
	return rows
}

func (r *MonitorResults) summaryRows() [][2]any {
	return [][2]any{
		{"Session ID", r.SessionID},
		{"Monitoring enabled", r.Summary.MonitoringEnabled},
		{"Application Insights", r.Summary.ApplicationInsightsConnected},
		{"Project accessible", r.ValidationResults.ProjectAccessible},
		{"Requests", fmt.Sprintf("%d/%d successful", r.Summary.SuccessfulRequests, r.Summary.TotalRequestsGenerated)},
		{"Success rate", r.Summary.SuccessRate},
		{"Avg response time", fmt.Sprintf("%.0fms", r.Summary.AvgResponseTimeMS)},
	}
}

func (r *TraceResults) stepRows() [][]any {
	rows := make([][]any, len(r.WorkflowTraces))
	for i, s := range r.WorkflowTraces {
		rows[i] = stepRow(s)
	}
	return rows
}

func (r *TraceResults) summaryRows() [][2]any {
	return [][2]any{
		{"Session ID", r.SessionID},
		{"Tracing enabled", r.Summary.TracingEnabled},
		{"Workflows executed", r.Summary.WorkflowsExecuted},
		{"Spans created", r.Summary.TotalSpansCreated},
		{"Workflow success rate", r.Summary.WorkflowSuccessRate},
		{"Error scenarios traced", r.Summary.ErrorScenariosTraced},
		{"Content recording", r.Summary.ContentRecordingEnabled},
	}
}
