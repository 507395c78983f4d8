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
	"time"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/monitor"
	"github.com/tombee/trailguide/internal/simulate"
)

// Lab identifiers written to the results files.
const (
	LabMonitor = "07-observability"
	LabTrace   = "08-tracing"
	LabChain   = "09-trail-guide"
)

// Run status values.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Results is implemented by every per-command results record.
type Results interface {
	LabName() string
	Succeeded() bool
	Fail(err error)
	Err() error

	summaryRows() [][2]any
	stepRows() [][]any
}

// header is shared by every results record.
type header struct {
	Lab       string `json:"lab"`
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`

	err error
}

func (h *header) LabName() string { return h.Lab }

func (h *header) Succeeded() bool { return h.Status == StatusSuccess }

// Fail marks the run failed with err.
func (h *header) Fail(err error) {
	h.Status = StatusFailed
	if err != nil {
		h.err = err
		h.Error = err.Error()
	}
}

// Err returns the error passed to Fail, or nil.
func (h *header) Err() error { return h.err }

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// ChainSummary extends the workflow summary with telemetry flags.
type ChainSummary struct {
	WorkflowSummary
	TelemetryEnabled        bool   `json:"telemetry_enabled"`
	ApplicationInsights     bool   `json:"application_insights_connected"`
	ContentRecordingEnabled bool   `json:"content_recording_enabled"`
	FailedStep              string `json:"failed_step,omitempty"`
}

// ChainResults is written by the chain command.
type ChainResults struct {
	header
	Agent       string             `json:"agent,omitempty"`
	Preferences string             `json:"preferences"`
	Steps       []chain.StepResult `json:"steps"`
	Summary     ChainSummary       `json:"summary"`
}

// TelemetryFlags are the session-level flags copied into summaries.
type TelemetryFlags struct {
	Enabled          bool
	AppInsights      bool
	ContentRecording bool
}

// NewChainResults starts a chain results record.
func NewChainResults(sessionID, preferences, agent string) *ChainResults {
	return &ChainResults{
		header:      header{Lab: LabChain, Status: StatusRunning, SessionID: sessionID},
		Agent:       agent,
		Preferences: preferences,
		Steps:       []chain.StepResult{},
	}
}

// Complete records the chain outcome and computes the summary.
func (r *ChainResults) Complete(result chain.ChainResult, flags TelemetryFlags) {
	r.Steps = result.Steps
	r.Summary = ChainSummary{
		WorkflowSummary:         Summarize(result.Steps),
		TelemetryEnabled:        flags.Enabled,
		ApplicationInsights:     flags.AppInsights,
		ContentRecordingEnabled: flags.ContentRecording,
	}
	if err := result.Err(); err != nil {
		for _, s := range result.Steps {
			if s.Status == chain.StatusError {
				r.Summary.FailedStep = s.Name
				break
			}
		}
		r.Fail(err)
		return
	}
	r.Status = StatusSuccess
}

// MonitoringSetup records whether the telemetry sink was configured.
type MonitoringSetup struct {
	AzureMonitorConfigured bool    `json:"azure_monitor_configured"`
	Timestamp              float64 `json:"timestamp"`
}

// MonitorSummary is the monitoring lab summary.
type MonitorSummary struct {
	MonitoringEnabled            bool    `json:"monitoring_enabled"`
	ApplicationInsightsConnected bool    `json:"application_insights_connected"`
	TotalRequestsGenerated       int     `json:"total_requests_generated"`
	SuccessfulRequests           int     `json:"successful_requests"`
	SuccessRate                  string  `json:"success_rate"`
	AvgResponseTimeMS            float64 `json:"avg_response_time_ms"`
}

// MonitorResults is written by the monitor command.
type MonitorResults struct {
	header
	MonitoringSetup   MonitoringSetup    `json:"monitoring_setup"`
	ValidationResults monitor.Validation `json:"validation_results"`
	TelemetryData     []monitor.Request  `json:"telemetry_data"`
	Summary           MonitorSummary     `json:"summary"`
}

// NewMonitorResults starts a monitor results record.
func NewMonitorResults(sessionID string, configured bool, now time.Time) *MonitorResults {
	return &MonitorResults{
		header:          header{Lab: LabMonitor, Status: StatusRunning, SessionID: sessionID},
		MonitoringSetup: MonitoringSetup{AzureMonitorConfigured: configured, Timestamp: unixSeconds(now)},
		TelemetryData:   []monitor.Request{},
	}
}

// Complete records the validation and requests and computes the summary.
// Failed requests do not fail the run.
func (r *MonitorResults) Complete(v monitor.Validation, requests []monitor.Request) {
	r.ValidationResults = v
	if requests != nil {
		r.TelemetryData = requests
	}

	steps := make([]chain.StepResult, len(requests))
	for i, req := range requests {
		steps[i] = req.StepResult()
	}
	s := Summarize(steps)
	r.Summary = MonitorSummary{
		MonitoringEnabled:            r.MonitoringSetup.AzureMonitorConfigured,
		ApplicationInsightsConnected: v.ApplicationInsightsConnected,
		TotalRequestsGenerated:       s.TotalSteps,
		SuccessfulRequests:           s.SuccessfulSteps,
		SuccessRate:                  s.SuccessRate,
		AvgResponseTimeMS:            s.AvgLatencyMS,
	}
	r.Status = StatusSuccess
}

// TracingSetup records how tracing was configured.
type TracingSetup struct {
	InstrumentationEnabled  bool    `json:"instrumentation_enabled"`
	ContentRecordingEnabled bool    `json:"content_recording_enabled"`
	Timestamp               float64 `json:"timestamp"`
}

// TraceSummary is the tracing lab summary.
type TraceSummary struct {
	TracingEnabled          bool   `json:"tracing_enabled"`
	WorkflowsExecuted       int    `json:"workflows_executed"`
	TotalSpansCreated       int    `json:"total_spans_created"`
	SuccessfulWorkflowSteps int    `json:"successful_workflow_steps"`
	WorkflowSuccessRate     string `json:"workflow_success_rate"`
	ErrorScenariosTraced    int    `json:"error_scenarios_traced"`
	ContentRecordingEnabled bool   `json:"content_recording_enabled"`
}

// TraceResults is written by the trace command.
type TraceResults struct {
	header
	TracingSetup   TracingSetup          `json:"tracing_setup"`
	WorkflowTraces []chain.StepResult    `json:"workflow_traces"`
	ErrorTraces    []simulate.ErrorTrace `json:"error_traces"`
	Summary        TraceSummary          `json:"summary"`
}

// NewTraceResults starts a trace results record.
func NewTraceResults(sessionID string, setup TracingSetup) *TraceResults {
	return &TraceResults{
		header:         header{Lab: LabTrace, Status: StatusRunning, SessionID: sessionID},
		TracingSetup:   setup,
		WorkflowTraces: []chain.StepResult{},
		ErrorTraces:    []simulate.ErrorTrace{},
	}
}

// NewTracingSetup stamps a tracing setup block with now.
func NewTracingSetup(instrumented, contentRecording bool, now time.Time) TracingSetup {
	return TracingSetup{
		InstrumentationEnabled:  instrumented,
		ContentRecordingEnabled: contentRecording,
		Timestamp:               unixSeconds(now),
	}
}

// Complete records the workflow steps and error traces.
func (r *TraceResults) Complete(steps []chain.StepResult, errorTraces []simulate.ErrorTrace) {
	r.WorkflowTraces = steps
	r.ErrorTraces = errorTraces

	s := Summarize(steps)
	r.Summary = TraceSummary{
		TracingEnabled:          r.TracingSetup.InstrumentationEnabled,
		WorkflowsExecuted:       1 + len(errorTraces),
		TotalSpansCreated:       s.TotalSteps - s.SkippedSteps + len(errorTraces),
		SuccessfulWorkflowSteps: s.SuccessfulSteps,
		WorkflowSuccessRate:     s.SuccessRate,
		ErrorScenariosTraced:    len(errorTraces),
		ContentRecordingEnabled: r.TracingSetup.ContentRecordingEnabled,
	}
	r.Status = StatusSuccess
}
