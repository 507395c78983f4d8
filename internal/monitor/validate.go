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

package monitor

import (
	"context"
	"log/slog"
)

// Validation reports which parts of the telemetry path are reachable.
type Validation struct {
	ApplicationInsightsConnected bool `json:"application_insights_connected"`
	TelemetryEnabled             bool `json:"telemetry_enabled"`
	ProjectAccessible            bool `json:"project_accessible"`
}

// Project is the part of the project client used for validation.
type Project interface {
	Ping(ctx context.Context) error
	TelemetryConnectionString(ctx context.Context) (string, error)
}

// Validate probes project access and then the telemetry connection
// string. Failures are logged and reported as false, never returned.
func Validate(ctx context.Context, project Project, logger *slog.Logger) Validation {
	if logger == nil {
		logger = slog.Default()
	}
	var v Validation
	if project == nil {
		logger.Warn("no project configured, skipping monitoring validation")
		return v
	}

	if err := project.Ping(ctx); err != nil {
		logger.Error("project not accessible", "error", err)
		return v
	}
	v.ProjectAccessible = true

	cs, err := project.TelemetryConnectionString(ctx)
	switch {
	case err != nil:
		logger.Warn("could not validate Application Insights connection", "error", err)
	case cs == "":
		logger.Warn("no Application Insights connection string found")
	default:
		v.ApplicationInsightsConnected = true
		v.TelemetryEnabled = true
		logger.Info("Application Insights connection validated")
	}
	return v
}
