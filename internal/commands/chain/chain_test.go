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

package chain

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/trailguide/internal/cli/prompt"
	"github.com/tombee/trailguide/internal/commands/shared"
	"github.com/tombee/trailguide/internal/testing/clitest"
	"github.com/tombee/trailguide/internal/testing/mock"
	"github.com/tombee/trailguide/internal/tokens"
)

const (
	hikeJSON    = `{"hikeName": "Cape Trail", "hikeSummary": "An easy one-day walk along the coastal bluffs."}`
	profileJSON = `{"trailType": "out-and-back", "typicalWeather": "Mild and breezy", "recommendedGear": ["shoes", "water bottle", "first aid kit"]}`
	productJSON = `{"matchedProducts": ["Comfort Fit Hiking Shoes", "Insulated Water Bottles", "Compact First Aid Kit"]}`
)

type chainFile struct {
	Lab         string `json:"lab"`
	Status      string `json:"status"`
	SessionID   string `json:"session_id"`
	Error       string `json:"error"`
	Preferences string `json:"preferences"`
	Steps       []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"steps"`
	Summary struct {
		TotalSteps       int    `json:"total_steps"`
		SuccessfulSteps  int    `json:"successful_steps"`
		SkippedSteps     int    `json:"skipped_steps"`
		SuccessRate      string `json:"success_rate"`
		TelemetryEnabled bool   `json:"telemetry_enabled"`
		AppInsights      bool   `json:"application_insights_connected"`
		FailedStep       string `json:"failed_step"`
	} `json:"summary"`
}

func setup(t *testing.T, responses ...mock.Response) *mock.LLMProvider {
	t.Helper()
	m := mock.NewLLMProvider(responses...)
	clitest.Setup(t, m)

	prev := newCounter
	newCounter = func(string) tokens.Counter { return tokens.Words() }
	t.Cleanup(func() { newCounter = prev })
	return m
}

func readResults(t *testing.T, path string) chainFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f chainFile
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestChain_WithoutTelemetry(t *testing.T) {
	m := setup(t,
		mock.Reply(hikeJSON),
		mock.Reply(profileJSON),
		mock.Reply(productJSON),
	)

	stdout, _, err := clitest.Execute(t, NewCommand(), "--preferences", "easy 1-day coastal hike")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Calls())
	assert.Contains(t, stdout, "Session ID:")
	assert.Contains(t, stdout, "Results saved to trail_guide_results.json")

	f := readResults(t, "trail_guide_results.json")
	assert.Equal(t, "09-trail-guide", f.Lab)
	assert.Equal(t, "success", f.Status)
	assert.NotEmpty(t, f.SessionID)
	assert.Equal(t, "easy 1-day coastal hike", f.Preferences)
	require.Len(t, f.Steps, 3)
	assert.Equal(t, 3, f.Summary.SuccessfulSteps)
	assert.Equal(t, "100.0%", f.Summary.SuccessRate)
	assert.False(t, f.Summary.TelemetryEnabled)
	assert.False(t, f.Summary.AppInsights)
}

func TestChain_NonJSONAbortsAndStillWritesResults(t *testing.T) {
	m := setup(t, mock.Reply("Sure! I recommend the Cape Trail."))
	out := filepath.Join(t.TempDir(), "out", "chain.json")

	_, _, err := clitest.Execute(t, NewCommand(), "--preferences", "coastal", "--output", out)
	require.Error(t, err)
	assert.Equal(t, shared.ExitExecutionFailed, shared.ExitCode(err))
	assert.Equal(t, 1, m.Calls())

	f := readResults(t, out)
	assert.Equal(t, "failed", f.Status)
	assert.Contains(t, f.Error, "malformed output")
	assert.Equal(t, "recommend_hike", f.Summary.FailedStep)
	assert.Equal(t, 2, f.Summary.SkippedSteps)
	require.Len(t, f.Steps, 3)
	assert.Equal(t, "error", f.Steps[0].Status)
	assert.Equal(t, "skipped", f.Steps[1].Status)
	assert.Equal(t, "skipped", f.Steps[2].Status)
}

func TestChain_JSONOutput(t *testing.T) {
	setup(t, mock.Reply(hikeJSON), mock.Reply(profileJSON), mock.Reply(productJSON))

	stdout, _, err := clitest.Execute(t, NewCommand(), "--preferences", "coastal", "--json")
	require.NoError(t, err)

	var f chainFile
	require.NoError(t, json.Unmarshal([]byte(stdout), &f))
	assert.Equal(t, "success", f.Status)
	assert.NotContains(t, stdout, "Session ID:")
}

func TestChain_PreferencesRequiredWithoutTerminal(t *testing.T) {
	m := setup(t)

	_, _, err := clitest.Execute(t, NewCommand())
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidUsage, shared.ExitCode(err))
	assert.Zero(t, m.Calls())

	_, err = os.Stat("trail_guide_results.json")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestChain_UnknownArgumentIsUsageError(t *testing.T) {
	setup(t)

	_, _, err := clitest.Execute(t, NewCommand(), "extra")
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidUsage, shared.ExitCode(err))
}

func TestResolvePreferences_Prompts(t *testing.T) {
	p := prompt.NewMockPrompter(true, "alpine lakes, moderate")
	prevPrompter, prevCheck := newPrompter, isNonInteractive
	newPrompter = func(bool) prompt.Prompter { return p }
	isNonInteractive = func() bool { return false }
	t.Cleanup(func() {
		newPrompter, isNonInteractive = prevPrompter, prevCheck
		shared.ResetFlagsForTest()
	})

	cmd := NewCommand()
	cmd.SetContext(t.Context())
	got, err := resolvePreferences(cmd)
	require.NoError(t, err)
	assert.Equal(t, "alpine lakes, moderate", got)
	assert.Equal(t, []string{preferencesQuestion}, p.Asked())
}
