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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/trailguide/internal/tracing/export"
	"github.com/tombee/trailguide/internal/tracing/storage"
	"github.com/tombee/trailguide/pkg/errors"
	"github.com/tombee/trailguide/pkg/observability"
)

// StorageExporter writes finished spans to the local SQLite store.
type StorageExporter struct {
	store *storage.SQLiteStore
}

// NewStorageExporter creates a storage exporter. The exporter owns store and
// closes it on Shutdown.
func NewStorageExporter(store *storage.SQLiteStore) *StorageExporter {
	return &StorageExporter{store: store}
}

// ExportSpans exports a batch of spans to storage. One bad span does not
// block the rest of the batch.
func (e *StorageExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		if err := e.store.StoreSpan(ctx, convertOTelSpan(s)); err != nil {
			slog.Warn("failed to store span", "span", s.Name(), "error", err)
		}
	}
	return nil
}

// Shutdown closes the underlying store.
func (e *StorageExporter) Shutdown(ctx context.Context) error {
	return e.store.Close()
}

func convertOTelSpan(s sdktrace.ReadOnlySpan) *observability.Span {
	span := &observability.Span{
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Name:       s.Name(),
		Kind:       observability.SpanKindInternal,
		StartTime:  s.StartTime(),
		EndTime:    s.EndTime(),
		Attributes: make(map[string]any, len(s.Attributes())),
	}
	if s.Parent().IsValid() {
		span.ParentID = s.Parent().SpanID().String()
	}
	if s.SpanKind() == trace.SpanKindClient {
		span.Kind = observability.SpanKindClient
	}

	status := s.Status()
	switch status.Code {
	case codes.Ok:
		span.Status.Code = observability.StatusCodeOK
	case codes.Error:
		span.Status.Code = observability.StatusCodeError
		span.Status.Message = status.Description
	}

	for _, attr := range s.Attributes() {
		span.Attributes[string(attr.Key)] = attr.Value.AsInterface()
	}

	span.Events = make([]observability.Event, 0, len(s.Events()))
	for _, ev := range s.Events() {
		event := observability.Event{
			Name:       ev.Name,
			Timestamp:  ev.Time,
			Attributes: make(map[string]any, len(ev.Attributes)),
		}
		for _, attr := range ev.Attributes {
			event.Attributes[string(attr.Key)] = attr.Value.AsInterface()
		}
		span.Events = append(span.Events, event)
	}
	return span
}

var _ sdktrace.SpanExporter = (*StorageExporter)(nil)

// CreateExporter creates a span exporter from configuration. A nil exporter
// with a nil error means the type was "none".
func CreateExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	tlsOpts := export.TLSOptions{
		Insecure:   cfg.TLS.Insecure,
		SkipVerify: cfg.TLS.SkipVerify,
		CACertPath: cfg.TLS.CACertPath,
	}

	switch strings.ToLower(cfg.Type) {
	case "console":
		return export.NewConsoleExporter(export.ConsoleConfig{PrettyPrint: true})

	case "otlp":
		return export.NewOTLPExporter(ctx, export.OTLPConfig{
			Endpoint: cfg.Endpoint,
			TLS:      tlsOpts,
			Headers:  cfg.Headers,
			Timeout:  cfg.Timeout,
		})

	case "otlp_http", "otlp-http":
		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			Endpoint: cfg.Endpoint,
			URLPath:  cfg.URLPath,
			TLS:      tlsOpts,
			Headers:  cfg.Headers,
			Timeout:  cfg.Timeout,
		})

	case "appinsights":
		cs, err := ParseConnectionString(cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		host, path, headers, err := cs.OTLPHTTPTarget()
		if err != nil {
			return nil, err
		}
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			Endpoint: host,
			URLPath:  path,
			Headers:  headers,
			Timeout:  cfg.Timeout,
		})

	case "sqlite":
		store, err := storage.New(storage.Config{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		if cfg.Retention > 0 {
			if n, err := store.DeleteOlderThan(ctx, time.Now().Add(-cfg.Retention)); err != nil {
				slog.Warn("failed to prune span store", "path", cfg.Path, "error", err)
			} else if n > 0 {
				slog.Debug("pruned span store", "path", cfg.Path, "deleted", n)
			}
		}
		return NewStorageExporter(store), nil

	case "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}

// CreateSpanProcessors creates batch span processors for all configured
// exporters. Failures are logged as telemetry errors and skipped.
func CreateSpanProcessors(ctx context.Context, cfg Config) []sdktrace.SpanProcessor {
	var processors []sdktrace.SpanProcessor

	for i, exporterCfg := range cfg.Exporters {
		exporter, err := CreateExporter(ctx, exporterCfg)
		if err != nil {
			slog.Warn("failed to create exporter, skipping",
				"index", i,
				"type", exporterCfg.Type,
				"error", &errors.TelemetryError{Stage: "exporter", Cause: err})
			continue
		}
		if exporter == nil {
			continue
		}

		var batchOpts []sdktrace.BatchSpanProcessorOption
		if cfg.BatchSize > 0 {
			batchOpts = append(batchOpts, sdktrace.WithMaxExportBatchSize(cfg.BatchSize))
		}
		if cfg.BatchInterval > 0 {
			batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(cfg.BatchInterval))
		}
		processors = append(processors, sdktrace.NewBatchSpanProcessor(exporter, batchOpts...))

		slog.Debug("created exporter", "type", exporterCfg.Type, "endpoint", exporterCfg.Endpoint)
	}

	return processors
}
