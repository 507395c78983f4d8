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

package httpclient

import (
	"net/url"
	"slices"
	"strings"
)

// redactedQueryKeys are matched case-insensitively as substrings of query
// parameter names. "sig" covers SAS-signed storage URLs; "key" covers the
// api-key and subscription-key variants accepted by Azure endpoints.
var redactedQueryKeys = []string{"key", "token", "password", "secret", "credential", "sig"}

// sanitizeURL returns u as a string safe to log: userinfo is dropped and
// credential-bearing query values are replaced.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	safe.User = nil
	if safe.RawQuery != "" {
		q := safe.Query()
		for name := range q {
			if redactedParam(name) {
				q.Set(name, "[REDACTED]")
			}
		}
		safe.RawQuery = q.Encode()
	}
	return safe.String()
}

func redactedParam(name string) bool {
	name = strings.ToLower(name)
	return slices.ContainsFunc(redactedQueryKeys, func(k string) bool {
		return strings.Contains(name, k)
	})
}
