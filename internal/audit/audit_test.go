package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lerian-normative-engine/internal/logging"
)

var auditNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewEvent_CarriesTraceID(t *testing.T) {
	ctx := logging.WithTraceID(context.Background(), "trace-123")

	e := NewEvent(ctx, auditNow, EventTypeConflictDetected, "Conflict detected", "conflict", "c-1", nil)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "trace-123", e.TraceID)
	assert.Equal(t, auditNow, e.Timestamp)
	assert.Equal(t, EventTypeConflictDetected, e.EventType)
}

func TestLogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.INFO, JSON: true, Output: &buf})
	sink := NewLogSink(logger)

	sink.Record(context.Background(), NewEvent(context.Background(), auditNow, EventTypeConflictResolved,
		"Conflict resolved", "conflict", "c-9", map[string]interface{}{"strategy": "more_recent_version"}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Conflict resolved", entry["message"])
	assert.Equal(t, "audit", entry["component"])
	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "conflict_resolved", fields["event_type"])
	assert.Equal(t, "more_recent_version", fields["strategy"])
}

func TestMemorySink_ConcurrentRecord(t *testing.T) {
	sink := NewMemorySink()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				sink.Record(context.Background(), Event{EventType: EventTypeFrameworkStored})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Events(), 200)
	assert.Equal(t, int64(200), sink.Count(EventTypeFrameworkStored))
	assert.Zero(t, sink.Count(EventTypeFrameworkDeleted))
}

func TestMultiSink(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	multi := MultiSink{a, b}

	multi.Record(context.Background(), Event{EventType: EventTypeHierarchyRebuilt})

	assert.Equal(t, int64(1), a.Count(EventTypeHierarchyRebuilt))
	assert.Equal(t, int64(1), b.Count(EventTypeHierarchyRebuilt))
}
