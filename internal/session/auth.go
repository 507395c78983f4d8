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
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tombee/trailguide/internal/config"
	"github.com/tombee/trailguide/internal/secrets"
	tgerrors "github.com/tombee/trailguide/pkg/errors"
)

// Authentication methods reported by Credentials.Method.
const (
	MethodServicePrincipal = "service_principal"
	MethodAPIKey           = "api_key"
)

// Credentials authenticate requests to the AI project. Exactly one of
// TokenSource or APIKey is set.
type Credentials struct {
	Method      string
	TokenSource oauth2.TokenSource
	APIKey      string
}

// Authorize sets the authentication header on req.
func (c *Credentials) Authorize(req *http.Request) error {
	if c.TokenSource != nil {
		tok, err := c.TokenSource.Token()
		if err != nil {
			return fmt.Errorf("acquiring access token: %w", err)
		}
		tok.SetAuthHeader(req)
		return nil
	}
	req.Header.Set("api-key", c.APIKey)
	return nil
}

// ResolveCredentials picks service principal credentials when tenant,
// client and secret are all available and falls back to an API key.
// httpClient, when non-nil, is used for token requests.
func ResolveCredentials(ctx context.Context, cfg *config.Config, resolver *secrets.Resolver, httpClient *http.Client) (*Credentials, error) {
	secret, err := resolver.Lookup(ctx, secrets.KeyClientSecret)
	if err != nil {
		return nil, &tgerrors.ConfigError{Key: "credentials", Reason: "failed to read client secret", Cause: err}
	}

	if cfg.Auth.TenantID != "" && cfg.Auth.ClientID != "" && secret != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: secret,
			TokenURL:     tokenURL(cfg.Auth.AuthorityHost, cfg.Auth.TenantID),
			Scopes:       []string{cfg.Auth.Scope},
		}
		// The token source outlives ctx.
		tokenCtx := context.WithoutCancel(ctx)
		if httpClient != nil {
			tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, httpClient)
		}
		return &Credentials{
			Method:      MethodServicePrincipal,
			TokenSource: oauth2.ReuseTokenSource(nil, cc.TokenSource(tokenCtx)),
		}, nil
	}

	key, err := resolver.Lookup(ctx, secrets.KeyProjectAPIKey)
	if err != nil {
		return nil, &tgerrors.ConfigError{Key: "credentials", Reason: "failed to read API key", Cause: err}
	}
	if key != "" {
		return &Credentials{Method: MethodAPIKey, APIKey: key}, nil
	}

	return nil, &tgerrors.ConfigError{
		Key:    "credentials",
		Reason: "no project credentials found",
		Hint:   "set AZURE_AI_API_KEY, or AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET",
	}
}

func tokenURL(authority, tenant string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimSuffix(authority, "/"), tenant)
}
