// Package audit records engine mutations and conflict lifecycle events.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/logging"
)

// EventType represents the type of audit event
type EventType string

const (
	EventTypeFrameworkStored   EventType = "framework_stored"
	EventTypeFrameworkUpdated  EventType = "framework_updated"
	EventTypeFrameworkDeleted  EventType = "framework_deleted"
	EventTypeFrameworksCompact EventType = "frameworks_compacted"
	EventTypeConflictDetected  EventType = "conflict_detected"
	EventTypeConflictResolved  EventType = "conflict_resolved"
	EventTypeHierarchyRebuilt  EventType = "hierarchy_rebuilt"
)

// Event is a single audit entry.
type Event struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	TraceID    string                 `json:"trace_id,omitempty"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource,omitempty"`
	ResourceID string                 `json:"resource_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// NewEvent creates an event stamped with at and the trace id carried by ctx.
func NewEvent(ctx context.Context, at time.Time, eventType EventType, action, resource, resourceID string, details map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Timestamp:  at,
		EventType:  eventType,
		TraceID:    logging.GetTraceID(ctx),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
	}
}

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes events through the structured logger.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.WithComponent("audit")}
}

// Record logs the event.
func (s *LogSink) Record(ctx context.Context, event Event) {
	fields := []interface{}{
		"event_id", event.ID,
		"event_type", string(event.EventType),
		"resource", event.Resource,
		"resource_id", event.ResourceID,
	}
	for k, v := range event.Details {
		fields = append(fields, k, v)
	}
	s.logger.InfoContext(ctx, event.Action, fields...)
}

// MemorySink keeps events in memory with per-type counters.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	counts map[EventType]int64
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{counts: make(map[EventType]int64)}
}

// Record appends the event.
func (s *MemorySink) Record(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.counts[event.EventType]++
}

// Events returns the recorded events in order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Count returns how many events of a type were recorded.
func (s *MemorySink) Count(eventType EventType) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[eventType]
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Record forwards the event to every sink.
func (m MultiSink) Record(ctx context.Context, event Event) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}
