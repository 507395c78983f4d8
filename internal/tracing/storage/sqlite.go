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

// Package storage keeps finished spans in a local SQLite database so a run
// can be inspected by session ID without a telemetry backend.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/trailguide/pkg/observability"
)

// SessionAttribute is the span attribute copied into the indexed
// session_id column.
const SessionAttribute = "session.id"

// SQLiteStore provides SQLite-backed storage for spans and their events.
type SQLiteStore struct {
	db *sql.DB
}

// Config contains SQLite storage configuration.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// Special value ":memory:" creates an in-memory database.
	Path string
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	SessionID  string
	SpanCount  int
	ErrorCount int
	StartTime  time.Time
	EndTime    time.Time
}

// New opens (creating if needed) the store at cfg.Path.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each in-memory connection is its own database.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spans (
			trace_id TEXT NOT NULL,
			span_id TEXT NOT NULL,
			parent_id TEXT,
			session_id TEXT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			status_code INTEGER NOT NULL,
			status_message TEXT,
			attributes TEXT,
			PRIMARY KEY (trace_id, span_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_session ON spans(session_id) WHERE session_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_spans_start_time ON spans(start_time)`,
		`CREATE TABLE IF NOT EXISTS events (
			trace_id TEXT NOT NULL,
			span_id TEXT NOT NULL,
			name TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			attributes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_span ON events(trace_id, span_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// StoreSpan stores a span and its events. Storing the same span twice
// replaces the earlier row.
func (s *SQLiteStore) StoreSpan(ctx context.Context, span *observability.Span) error {
	if span == nil {
		return fmt.Errorf("span is nil")
	}
	if span.TraceID == "" || span.SpanID == "" {
		return fmt.Errorf("span trace_id and span_id are required")
	}

	attributesJSON, err := json.Marshal(span.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	var endTime *int64
	if !span.EndTime.IsZero() {
		et := span.EndTime.UnixNano()
		endTime = &et
	}
	var parentID, sessionID *string
	if span.ParentID != "" {
		parentID = &span.ParentID
	}
	if v, ok := span.Attributes[SessionAttribute].(string); ok && v != "" {
		sessionID = &v
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO spans (trace_id, span_id, parent_id, session_id, name, kind,
			start_time, end_time, status_code, status_message, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		span.TraceID, span.SpanID, parentID, sessionID, span.Name, string(span.Kind),
		span.StartTime.UnixNano(), endTime, int(span.Status.Code), span.Status.Message,
		string(attributesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store span: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE trace_id = ? AND span_id = ?`, span.TraceID, span.SpanID); err != nil {
		return fmt.Errorf("failed to replace events: %w", err)
	}
	for _, event := range span.Events {
		eventJSON, err := json.Marshal(event.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal event attributes: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (trace_id, span_id, name, timestamp, attributes) VALUES (?, ?, ?, ?, ?)`,
			span.TraceID, span.SpanID, event.Name, event.Timestamp.UnixNano(), string(eventJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
	}

	return tx.Commit()
}

// SessionSpans returns every span recorded for a session ordered by start
// time.
func (s *SQLiteStore) SessionSpans(ctx context.Context, sessionID string) ([]*observability.Span, error) {
	return s.querySpans(ctx, `session_id = ?`, sessionID)
}

// TraceSpans returns every span of a trace ordered by start time.
func (s *SQLiteStore) TraceSpans(ctx context.Context, traceID string) ([]*observability.Span, error) {
	return s.querySpans(ctx, `trace_id = ?`, traceID)
}

func (s *SQLiteStore) querySpans(ctx context.Context, where string, arg any) ([]*observability.Span, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, span_id, parent_id, name, kind, start_time, end_time,
			status_code, status_message, attributes
		FROM spans WHERE `+where+`
		ORDER BY start_time ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query spans: %w", err)
	}
	defer rows.Close()

	var spans []*observability.Span
	for rows.Next() {
		span := &observability.Span{}
		var parentID, statusMessage, attributesJSON sql.NullString
		var endTime sql.NullInt64
		var startTime int64
		var kind string
		var code int

		if err := rows.Scan(&span.TraceID, &span.SpanID, &parentID, &span.Name, &kind,
			&startTime, &endTime, &code, &statusMessage, &attributesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan span: %w", err)
		}

		span.ParentID = parentID.String
		span.Kind = observability.SpanKind(kind)
		span.StartTime = time.Unix(0, startTime)
		if endTime.Valid {
			span.EndTime = time.Unix(0, endTime.Int64)
		}
		span.Status = observability.SpanStatus{Code: observability.StatusCode(code), Message: statusMessage.String}
		if attributesJSON.Valid && attributesJSON.String != "" {
			if err := json.Unmarshal([]byte(attributesJSON.String), &span.Attributes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
			}
		}
		spans = append(spans, span)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Close rows before loading events to free the connection.
	rows.Close()

	for _, span := range spans {
		events, err := s.spanEvents(ctx, span.TraceID, span.SpanID)
		if err != nil {
			return nil, err
		}
		span.Events = events
	}
	return spans, nil
}

func (s *SQLiteStore) spanEvents(ctx context.Context, traceID, spanID string) ([]observability.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, timestamp, attributes FROM events WHERE trace_id = ? AND span_id = ? ORDER BY timestamp ASC`,
		traceID, spanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []observability.Event
	for rows.Next() {
		var ev observability.Event
		var ts int64
		var attrs sql.NullString
		if err := rows.Scan(&ev.Name, &ts, &attrs); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Timestamp = time.Unix(0, ts)
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), &ev.Attributes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event attributes: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Sessions lists the most recent sessions, newest first.
func (s *SQLiteStore) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), SUM(CASE WHEN status_code = 2 THEN 1 ELSE 0 END),
			MIN(start_time), MAX(COALESCE(end_time, start_time))
		FROM spans WHERE session_id IS NOT NULL
		GROUP BY session_id
		ORDER BY MIN(start_time) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var start, end int64
		if err := rows.Scan(&sum.SessionID, &sum.SpanCount, &sum.ErrorCount, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.StartTime = time.Unix(0, start)
		sum.EndTime = time.Unix(0, end)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes spans (and their events) that started before the
// given time. Returns the number of spans deleted.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM events WHERE EXISTS (
			SELECT 1 FROM spans
			WHERE spans.trace_id = events.trace_id AND spans.span_id = events.span_id
			AND spans.start_time < ?
		)`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM spans WHERE start_time < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old spans: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
