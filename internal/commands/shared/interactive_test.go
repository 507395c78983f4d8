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

package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var interactiveEnv = []string{
	"TRAILGUIDE_NON_INTERACTIVE",
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"JENKINS_HOME",
}

func TestIsNonInteractive(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{name: "explicit", envVars: map[string]string{"TRAILGUIDE_NON_INTERACTIVE": "true"}},
		{name: "CI=true", envVars: map[string]string{"CI": "true"}},
		{name: "CI=1", envVars: map[string]string{"CI": "1"}},
		{name: "GITHUB_ACTIONS", envVars: map[string]string{"GITHUB_ACTIONS": "true"}},
		{name: "GITLAB_CI", envVars: map[string]string{"GITLAB_CI": "true"}},
		{name: "CIRCLECI", envVars: map[string]string{"CIRCLECI": "true"}},
		{name: "JENKINS_HOME path", envVars: map[string]string{"JENKINS_HOME": "/var/jenkins"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range interactiveEnv {
				t.Setenv(k, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.True(t, IsNonInteractive())
		})
	}
}

func TestColorEnabled_RespectsEnvironment(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled())

	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "dumb")
	assert.False(t, ColorEnabled())
}
