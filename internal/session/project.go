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

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

const maxErrorBody = 4096

// Agent is a hosted agent definition.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Object string `json:"object,omitempty"`
}

// Connection is a project connection to an external resource.
type Connection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

type connectionList struct {
	Value []Connection `json:"value"`
}

type connectionWithCredentials struct {
	Connection
	Credentials struct {
		Type string `json:"type"`
		Key  string `json:"key"`
	} `json:"credentials"`
}

// ProjectClient calls the AI project data-plane API.
type ProjectClient struct {
	endpoint   string
	apiVersion string
	client     *http.Client
	creds      *Credentials
}

// NewProjectClient creates a client for the project at endpoint.
func NewProjectClient(endpoint, apiVersion string, client *http.Client, creds *Credentials) *ProjectClient {
	return &ProjectClient{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiVersion: apiVersion,
		client:     client,
		creds:      creds,
	}
}

// GetAgent looks up an agent by name.
func (p *ProjectClient) GetAgent(ctx context.Context, name string) (*Agent, error) {
	var agent Agent
	if err := p.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(name), nil, nil, &agent); err != nil {
		return nil, err
	}
	if agent.Name == "" {
		agent.Name = name
	}
	return &agent, nil
}

// ListConnections lists project connections, optionally filtered by type.
func (p *ProjectClient) ListConnections(ctx context.Context, connectionType string) ([]Connection, error) {
	query := url.Values{}
	if connectionType != "" {
		query.Set("connectionType", connectionType)
	}
	var list connectionList
	if err := p.do(ctx, http.MethodGet, "/connections", query, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// Ping checks that the project is reachable with the configured credentials.
func (p *ProjectClient) Ping(ctx context.Context) error {
	_, err := p.ListConnections(ctx, "")
	return err
}

// TelemetryConnectionString returns the Application Insights connection
// string attached to the project. The default connection is preferred.
func (p *ProjectClient) TelemetryConnectionString(ctx context.Context) (string, error) {
	conns, err := p.ListConnections(ctx, "AppInsights")
	if err != nil {
		return "", &tgerrors.TelemetryError{Stage: "connection_lookup", Cause: err}
	}
	if len(conns) == 0 {
		return "", &tgerrors.TelemetryError{
			Stage: "connection_lookup",
			Cause: fmt.Errorf("project has no Application Insights connection"),
		}
	}

	chosen := conns[0]
	for _, c := range conns {
		if c.IsDefault {
			chosen = c
			break
		}
	}

	var withCreds connectionWithCredentials
	path := "/connections/" + url.PathEscape(chosen.Name) + "/getConnectionWithCredentials"
	if err := p.do(ctx, http.MethodPost, path, nil, struct{}{}, &withCreds); err != nil {
		return "", &tgerrors.TelemetryError{Stage: "connection_credentials", Cause: err}
	}
	if withCreds.Credentials.Key == "" {
		return "", &tgerrors.TelemetryError{
			Stage: "connection_credentials",
			Cause: fmt.Errorf("connection %s has no connection string", chosen.Name),
		}
	}
	return withCreds.Credentials.Key, nil
}

func (p *ProjectClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if p.apiVersion != "" {
		query.Set("api-version", p.apiVersion)
	}
	target := p.endpoint + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := p.creds.Authorize(req); err != nil {
		return &tgerrors.ProviderError{Provider: "project", Message: "authentication failed", Cause: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &tgerrors.ProviderError{Provider: "project", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &tgerrors.ProviderError{
			Provider:   "project",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s %s: %s", method, path, strings.TrimSpace(string(snippet))),
			Hint:       projectHint(resp.StatusCode),
			RequestID:  firstHeader(resp.Header, "x-request-id", "apim-request-id", "x-ms-request-id"),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &tgerrors.ProviderError{Provider: "project", StatusCode: resp.StatusCode, Message: "undecodable response", Cause: err}
	}
	return nil
}

func projectHint(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "check the project credentials and role assignments"
	case http.StatusNotFound:
		return "check AZURE_EXISTING_AIPROJECT_ENDPOINT and AZURE_EXISTING_AGENT_ID"
	default:
		return ""
	}
}

func firstHeader(h http.Header, names ...string) string {
	for _, n := range names {
		if v := h.Get(n); v != "" {
			return v
		}
	}
	return ""
}
