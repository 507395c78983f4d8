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

// Package export builds the OpenTelemetry span exporters trailguide can
// send to: an OTLP collector over gRPC or HTTP, or the console.
package export

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// OTLPConfig holds configuration for the OTLP gRPC exporter.
type OTLPConfig struct {
	// Endpoint is the gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// TLS configures transport security.
	TLS TLSOptions

	// Headers contains custom headers to send with each request.
	Headers map[string]string

	// Timeout bounds a single export. Zero uses the SDK default.
	Timeout time.Duration
}

// NewOTLPExporter creates a new OTLP gRPC trace exporter.
func NewOTLPExporter(ctx context.Context, cfg OTLPConfig) (trace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("otlp exporter requires an endpoint")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}

	tlsCfg, err := BuildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	if tlsCfg == nil {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}
	return exporter, nil
}
