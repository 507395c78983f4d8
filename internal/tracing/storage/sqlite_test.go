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

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/trailguide/pkg/observability"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSpan(traceID, spanID, parentID, sessionID string, start time.Time, code observability.StatusCode) *observability.Span {
	attrs := map[string]any{"step": "get_user_preferences"}
	if sessionID != "" {
		attrs[SessionAttribute] = sessionID
	}
	return &observability.Span{
		TraceID:    traceID,
		SpanID:     spanID,
		ParentID:   parentID,
		Name:       "span-" + spanID,
		Kind:       observability.SpanKindInternal,
		StartTime:  start,
		EndTime:    start.Add(50 * time.Millisecond),
		Status:     observability.SpanStatus{Code: code},
		Attributes: attrs,
	}
}

func TestSQLiteStore_StoreAndQueryByTrace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	root := testSpan("t1", "a", "", "s1", now, observability.StatusCodeOK)
	root.Events = []observability.Event{{
		Name:       "gen_ai.content.prompt",
		Timestamp:  now.Add(time.Millisecond),
		Attributes: map[string]any{"gen_ai.prompt": "hello"},
	}}
	child := testSpan("t1", "b", "a", "", now.Add(10*time.Millisecond), observability.StatusCodeError)
	child.Status.Message = "boom"

	require.NoError(t, store.StoreSpan(ctx, root))
	require.NoError(t, store.StoreSpan(ctx, child))

	spans, err := store.TraceSpans(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, "a", spans[0].SpanID)
	assert.Empty(t, spans[0].ParentID)
	assert.Equal(t, "get_user_preferences", spans[0].Attributes["step"])
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "hello", spans[0].Events[0].Attributes["gen_ai.prompt"])

	assert.Equal(t, "a", spans[1].ParentID)
	assert.Equal(t, observability.StatusCodeError, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Message)
	assert.Equal(t, 50*time.Millisecond, spans[1].Duration())
}

func TestSQLiteStore_StoreIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	span := testSpan("t1", "a", "", "s1", time.Now(), observability.StatusCodeOK)
	span.Events = []observability.Event{{Name: "e", Timestamp: time.Now()}}

	require.NoError(t, store.StoreSpan(ctx, span))
	require.NoError(t, store.StoreSpan(ctx, span))

	spans, err := store.TraceSpans(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Events, 1)
}

func TestSQLiteStore_Sessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.StoreSpan(ctx, testSpan("t1", "a", "", "old", now.Add(-time.Hour), observability.StatusCodeOK)))
	require.NoError(t, store.StoreSpan(ctx, testSpan("t2", "b", "", "new", now, observability.StatusCodeOK)))
	require.NoError(t, store.StoreSpan(ctx, testSpan("t2", "c", "", "new", now.Add(time.Second), observability.StatusCodeError)))

	sessions, err := store.Sessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].SessionID)
	assert.Equal(t, 2, sessions[0].SpanCount)
	assert.Equal(t, 1, sessions[0].ErrorCount)

	spans, err := store.SessionSpans(ctx, "old")
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.StoreSpan(ctx, testSpan("t1", "a", "", "s1", now.Add(-48*time.Hour), observability.StatusCodeOK)))
	require.NoError(t, store.StoreSpan(ctx, testSpan("t2", "b", "", "s2", now, observability.StatusCodeOK)))

	n, err := store.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	spans, err := store.SessionSpans(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.db")
	store, err := New(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, store.StoreSpan(context.Background(), testSpan("t1", "a", "", "s1", time.Now(), observability.StatusCodeOK)))
	require.NoError(t, store.Close())

	reopened, err := New(Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()
	spans, err := reopened.SessionSpans(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
