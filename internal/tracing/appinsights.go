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

package tracing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tombee/trailguide/pkg/errors"
)

// ConnectionString is a parsed Application Insights connection string of the
// form "InstrumentationKey=...;IngestionEndpoint=https://...;...".
type ConnectionString struct {
	InstrumentationKey string
	IngestionEndpoint  string
	LiveEndpoint       string
	ApplicationID      string
}

const defaultIngestionEndpoint = "https://dc.services.visualstudio.com/"

// ParseConnectionString parses an Application Insights connection string.
// Keys are case-insensitive; unknown keys are ignored.
func ParseConnectionString(s string) (ConnectionString, error) {
	var cs ConnectionString
	s = strings.TrimSpace(s)
	if s == "" {
		return cs, &errors.TelemetryError{Stage: "connection_string", Cause: fmt.Errorf("connection string is empty")}
	}

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return cs, &errors.TelemetryError{
				Stage: "connection_string",
				Cause: fmt.Errorf("malformed segment %q", redactSegment(part)),
			}
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "instrumentationkey":
			cs.InstrumentationKey = strings.TrimSpace(value)
		case "ingestionendpoint":
			cs.IngestionEndpoint = strings.TrimSpace(value)
		case "liveendpoint":
			cs.LiveEndpoint = strings.TrimSpace(value)
		case "applicationid":
			cs.ApplicationID = strings.TrimSpace(value)
		}
	}

	if cs.InstrumentationKey == "" {
		return cs, &errors.TelemetryError{Stage: "connection_string", Cause: fmt.Errorf("InstrumentationKey is missing")}
	}
	if cs.IngestionEndpoint == "" {
		cs.IngestionEndpoint = defaultIngestionEndpoint
	}
	return cs, nil
}

// OTLPHTTPTarget returns the host and traces path of the ingestion endpoint
// and the headers identifying the Application Insights resource.
func (c ConnectionString) OTLPHTTPTarget() (host, path string, headers map[string]string, err error) {
	u, err := url.Parse(c.IngestionEndpoint)
	if err != nil || u.Host == "" {
		return "", "", nil, &errors.TelemetryError{
			Stage: "connection_string",
			Cause: fmt.Errorf("invalid IngestionEndpoint %q", c.IngestionEndpoint),
		}
	}
	path = strings.TrimRight(u.Path, "/") + "/v1/traces"
	headers = map[string]string{"x-ms-instrumentation-key": c.InstrumentationKey}
	return u.Host, path, headers, nil
}

func redactSegment(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***"
}
