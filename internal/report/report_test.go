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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/trailguide/internal/chain"
	"github.com/tombee/trailguide/internal/monitor"
	"github.com/tombee/trailguide/internal/simulate"
)

func ok(step int, d time.Duration) chain.StepResult {
	return chain.NewStepResult(step, "s", nil, nil, "out", d, 1, nil)
}

func failed(step int) chain.StepResult {
	return chain.NewStepResult(step, "s", nil, nil, "", time.Second, 0, errors.New("boom"))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, "0%", s.SuccessRate)
	assert.Zero(t, s.TotalSteps)
	assert.Zero(t, s.AvgLatencyMS)
}

func TestSummarize_ThreeOfFive(t *testing.T) {
	s := Summarize([]chain.StepResult{
		ok(1, 100*time.Millisecond),
		failed(2),
		ok(3, 200*time.Millisecond),
		failed(4),
		ok(5, 300*time.Millisecond),
	})
	assert.Equal(t, "60.0%", s.SuccessRate)
	assert.Equal(t, 5, s.TotalSteps)
	assert.Equal(t, 3, s.SuccessfulSteps)
	assert.Equal(t, 2, s.FailedSteps)
	assert.Equal(t, 200.0, s.AvgLatencyMS)
	assert.Equal(t, 3, s.TotalTokens)
}

func TestSummarize_NoSuccesses(t *testing.T) {
	s := Summarize([]chain.StepResult{failed(1), {Step: 2, Status: chain.StatusSkipped}})
	assert.Equal(t, "0.0%", s.SuccessRate)
	assert.Equal(t, 1, s.SkippedSteps)
	assert.Zero(t, s.AvgLatencyMS)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "0%", SuccessRate(0, 0))
	assert.Equal(t, "100.0%", SuccessRate(4, 4))
	assert.Equal(t, "33.3%", SuccessRate(1, 3))
}

func TestChainResults_Failed(t *testing.T) {
	r := NewChainResults("sess", "easy coastal", "guide")
	r.Complete(chain.ChainResult{Steps: []chain.StepResult{
		chain.NewStepResult(1, chain.StepRecommendHike, nil, nil, "Sorry", time.Millisecond, 1, errors.New("not json")),
		{Step: 2, Name: chain.StepTripProfile, Status: chain.StatusSkipped},
	}}, TelemetryFlags{})

	assert.False(t, r.Succeeded())
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, chain.StepRecommendHike, r.Summary.FailedStep)
	assert.Contains(t, r.Error, "not json")
}

func TestMonitorResults(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := NewMonitorResults("sess", true, now)
	r.Complete(monitor.Validation{ProjectAccessible: true, ApplicationInsightsConnected: true, TelemetryEnabled: true}, []monitor.Request{
		{Index: 1, Status: chain.StatusSuccess, ResponseTimeMS: 100, Duration: 100 * time.Millisecond},
		{Index: 2, Status: chain.StatusError, Error: "boom"},
		{Index: 3, Status: chain.StatusSuccess, ResponseTimeMS: 300, Duration: 300 * time.Millisecond},
	})

	assert.True(t, r.Succeeded())
	assert.Equal(t, MonitorSummary{
		MonitoringEnabled:            true,
		ApplicationInsightsConnected: true,
		TotalRequestsGenerated:       3,
		SuccessfulRequests:           2,
		SuccessRate:                  "66.7%",
		AvgResponseTimeMS:            200,
	}, r.Summary)
	assert.Equal(t, float64(1700000000), r.MonitoringSetup.Timestamp)
}

func TestMonitorResults_NoRequestsWritesEmptyList(t *testing.T) {
	r := NewMonitorResults("sess", false, time.Unix(1700000000, 0))
	r.Complete(monitor.Validation{}, nil)
	r.Fail(errors.New("agent not found"))

	path := filepath.Join(t.TempDir(), "monitoring_results.json")
	require.NoError(t, WriteFile(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []any{}, doc["telemetry_data"])
	assert.Equal(t, "0%", r.Summary.SuccessRate)
}

func TestTraceResults(t *testing.T) {
	r := NewTraceResults("sess", NewTracingSetup(false, true, time.Now()))
	r.Complete([]chain.StepResult{ok(1, 0), failed(2), {Step: 3, Status: chain.StatusSkipped}, ok(4, 0)},
		[]simulate.ErrorTrace{{Scenario: "invalid_input", Traced: true}})

	assert.Equal(t, TraceSummary{
		TracingEnabled:          false,
		WorkflowsExecuted:       2,
		TotalSpansCreated:       4,
		SuccessfulWorkflowSteps: 2,
		WorkflowSuccessRate:     "50.0%",
		ErrorScenariosTraced:    1,
		ContentRecordingEnabled: true,
	}, r.Summary)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tracing_results.json")
	r := NewTraceResults("sess", TracingSetup{})
	r.Complete(nil, nil)

	require.NoError(t, WriteFile(path, r))
	require.NoError(t, WriteFile(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "08-tracing", decoded["lab"])
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "sess", decoded["session_id"])
	assert.Contains(t, decoded, "tracing_setup")
	assert.Contains(t, decoded, "summary")
}

func TestWriteFile_Error(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := WriteFile(filepath.Join(blocker, "results.json"), map[string]string{})
	assert.Error(t, err)
}

func TestRender_Table(t *testing.T) {
	r := NewChainResults("sess-42", "coastal", "")
	r.Complete(chain.ChainResult{Steps: []chain.StepResult{
		chain.NewStepResult(1, chain.StepRecommendHike, nil, nil, "{}", 20*time.Millisecond, 7, nil),
		chain.NewStepResult(2, chain.StepTripProfile, nil, nil, "nope", 10*time.Millisecond, 1, errors.New("bad output")),
		{Step: 3, Name: chain.StepMatchProducts, Status: chain.StatusSkipped},
	}}, TelemetryFlags{Enabled: true})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, RenderOptions{}))
	out := buf.String()
	assert.Contains(t, out, "recommend_hike")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "7 tokens")
	assert.Contains(t, out, "sess-42")
	assert.Contains(t, out, "09-trail-guide: failed")
	assert.NotContains(t, out, "\x1b[")
}

func TestTruncate_MultiByte(t *testing.T) {
	got := truncate(strings.Repeat("é", 70), 60)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 60, utf8.RuneCountInString(got))

	assert.Equal(t, "Sentier côtier 🥾", truncate("Sentier  côtier\n🥾", 60))
}

func TestRender_JSON(t *testing.T) {
	r := NewMonitorResults("sess", false, time.Now())
	r.Complete(monitor.Validation{}, nil)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, RenderOptions{JSON: true}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "07-observability", decoded["lab"])
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "0%", summary["success_rate"])
}
