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

package export

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSOptions describes how an exporter should secure its connection.
type TLSOptions struct {
	// Insecure sends spans in plaintext. Only for local collectors.
	Insecure bool

	// SkipVerify disables server certificate verification.
	SkipVerify bool

	// CACertPath points to a PEM bundle used instead of the system pool.
	CACertPath string
}

// BuildTLSConfig returns the client TLS configuration for opts, or nil when
// the connection is plaintext.
func BuildTLSConfig(opts TLSOptions) (*tls.Config, error) {
	if opts.Insecure {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.SkipVerify, //nolint:gosec // opt-in for self-signed collectors
	}

	if opts.CACertPath != "" {
		pem, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", opts.CACertPath)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
