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

// Package spans implements the spans command, which reads spans recorded
// by the sqlite exporter.
package spans

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/config"
	"github.com/tombee/trailguide/internal/tracing/storage"
	"github.com/tombee/trailguide/pkg/observability"
)

var (
	dbFlag      string
	sessionFlag string
	traceFlag   string
	limitFlag   int
)

// NewCommand creates the spans command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spans",
		Short: "List sessions and spans recorded by the sqlite exporter",
		Long: `Read spans written by a "sqlite" telemetry exporter.

Without --session or --trace the most recent sessions are listed. The
database is taken from --db or from the first sqlite exporter in the
config file.

Examples:
  trailguide spans
  trailguide spans --session 3f0c1d7e-...
  trailguide spans --db ./spans.db --trace 4bf92f3577b34da6a3ce929d0e0e4736 --json`,
		Args: shared.NoArgs,
		RunE: runSpans,
	}

	cmd.Flags().StringVar(&dbFlag, "db", "", "Span database path")
	cmd.Flags().StringVar(&sessionFlag, "session", "", "Show the spans of one session")
	cmd.Flags().StringVar(&traceFlag, "trace", "", "Show the spans of one trace")
	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Number of sessions to list")
	cmd.MarkFlagsMutuallyExclusive("session", "trace")

	return cmd
}

func runSpans(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	path, err := databasePath()
	if err != nil {
		return err
	}
	store, err := storage.New(storage.Config{Path: path})
	if err != nil {
		return shared.NewExecutionError("opening span database", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if sessionFlag == "" && traceFlag == "" {
		sessions, err := store.Sessions(ctx, limitFlag)
		if err != nil {
			return shared.NewExecutionError("listing sessions", err)
		}
		if shared.GetJSON() {
			return writeJSON(out, sessions)
		}
		renderSessions(out, sessions)
		return nil
	}

	var spans []*observability.Span
	if sessionFlag != "" {
		spans, err = store.SessionSpans(ctx, sessionFlag)
	} else {
		spans, err = store.TraceSpans(ctx, traceFlag)
	}
	if err != nil {
		return shared.NewExecutionError("reading spans", err)
	}
	if len(spans) == 0 {
		return shared.NewExecutionError("no spans found", nil)
	}
	if shared.GetJSON() {
		return writeJSON(out, spans)
	}
	renderSpans(out, spans)
	return nil
}

func databasePath() (string, error) {
	if dbFlag != "" {
		return dbFlag, nil
	}
	cfg, err := config.Load(shared.GetConfigPath(), config.LoadOptions{CIMode: shared.GetCIMode()})
	if err != nil {
		return "", shared.NewExecutionError("loading configuration", err)
	}
	for _, exp := range cfg.Telemetry.Exporters {
		if exp.Type == "sqlite" && exp.Path != "" {
			return exp.Path, nil
		}
	}
	return "", shared.NewUsageError("no span database", fmt.Errorf("pass --db or configure a sqlite exporter under telemetry.exporters"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSessions(w io.Writer, sessions []storage.SessionSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SESSION", "STARTED", "DURATION", "SPANS", "ERRORS"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.SessionID,
			s.StartTime.Local().Format(time.DateTime),
			s.EndTime.Sub(s.StartTime).Round(time.Millisecond),
			s.SpanCount,
			s.ErrorCount,
		})
	}
	t.Render()
}

func renderSpans(w io.Writer, spans []*observability.Span) {
	depth := map[string]int{}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SPAN", "STATUS", "DURATION", "TRACE"})
	for _, s := range spans {
		d := 0
		if p, ok := depth[s.ParentID]; ok {
			d = p + 1
		}
		depth[s.SpanID] = d

		duration := "-"
		if !s.EndTime.IsZero() {
			duration = s.EndTime.Sub(s.StartTime).Round(time.Millisecond).String()
		}
		status := s.Status.Code.String()
		if s.Status.Message != "" {
			status += ": " + s.Status.Message
		}
		t.AppendRow(table.Row{strings.Repeat("  ", d) + s.Name, status, duration, s.TraceID})
	}
	t.Render()
}
