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

package trace

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/simulate"
	"github.com/tombee/trailguide/internal/testing/clitest"
	"github.com/tombee/trailguide/internal/testing/mock"
	"github.com/tombee/trailguide/internal/tokens"
)

type traceFile struct {
	Lab            string `json:"lab"`
	Status         string `json:"status"`
	WorkflowTraces []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"workflow_traces"`
	ErrorTraces []simulate.ErrorTrace `json:"error_traces"`
	Summary     struct {
		WorkflowsExecuted       int    `json:"workflows_executed"`
		TotalSpansCreated       int    `json:"total_spans_created"`
		SuccessfulWorkflowSteps int    `json:"successful_workflow_steps"`
		WorkflowSuccessRate     string `json:"workflow_success_rate"`
		ErrorScenariosTraced    int    `json:"error_scenarios_traced"`
	} `json:"summary"`
}

func run(t *testing.T, m *mock.LLMProvider, args ...string) (traceFile, int, error) {
	t.Helper()
	exporter := clitest.Setup(t, m)
	prev := newCounter
	newCounter = func(string) tokens.Counter { return tokens.Words() }
	t.Cleanup(func() { newCounter = prev })

	_, _, err := clitest.Execute(t, NewCommand(), args...)

	var f traceFile
	if data, readErr := os.ReadFile("tracing_results.json"); readErr == nil {
		require.NoError(t, json.Unmarshal(data, &f))
	}
	return f, len(exporter.GetSpans()), err
}

func TestTrace_WorkflowAndErrorScenario(t *testing.T) {
	m := mock.NewLLMProvider(
		mock.Reply("Try the Enchantments or the Wonderland Trail."),
		mock.Reply("Boots, rain shell, trekking poles."),
	)

	f, spans, err := run(t, m)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Calls())

	assert.Equal(t, "08-tracing", f.Lab)
	assert.Equal(t, "success", f.Status)
	require.Len(t, f.WorkflowTraces, 4)
	for _, s := range f.WorkflowTraces {
		assert.Equal(t, "success", s.Status, s.Name)
	}
	require.Len(t, f.ErrorTraces, 1)
	assert.Equal(t, "validation_error", f.ErrorTraces[0].ErrorType)
	assert.Equal(t, "Empty input provided - cannot process request", f.ErrorTraces[0].ErrorMessage)

	assert.Equal(t, 2, f.Summary.WorkflowsExecuted)
	assert.Equal(t, 5, f.Summary.TotalSpansCreated)
	assert.Equal(t, "100.0%", f.Summary.WorkflowSuccessRate)
	assert.Equal(t, 1, f.Summary.ErrorScenariosTraced)

	// workflow + 4 steps, error workflow + its step, plus one model span per call.
	assert.Equal(t, 5+2+2, spans)
}

func TestTrace_ModelFailureIsRecordedNotFatal(t *testing.T) {
	m := mock.NewLLMProvider(mock.Fail(errors.New("connection refused")))

	f, _, err := run(t, m, "--skip-error-scenario")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())

	require.Len(t, f.WorkflowTraces, 4)
	assert.Equal(t, "error", f.WorkflowTraces[1].Status)
	assert.Equal(t, "skipped", f.WorkflowTraces[2].Status)
	assert.Empty(t, f.ErrorTraces)
	assert.Equal(t, 1, f.Summary.WorkflowsExecuted)
	assert.Equal(t, 3, f.Summary.TotalSpansCreated)
	assert.Equal(t, "50.0%", f.Summary.WorkflowSuccessRate)
}

func TestTrace_BlankInputIsUsageError(t *testing.T) {
	m := mock.NewLLMProvider()

	_, _, err := run(t, m, "--input", "   ")
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidUsage, shared.ExitCode(err))
	assert.Zero(t, m.Calls())
}
