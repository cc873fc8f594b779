package service

import (
	"context"
	"log"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples the service from its front end
// ─────────────────────────────────────────────────────────────

// Events emitted by PipelineService.
const (
	EventProcessCompleted = "process:completed"
	EventTriggerFired     = "trigger:fired"
)

// EventEmitter receives service events. The CLI logs them; tests record
// them with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to the standard logger.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event string, data any) {
	log.Printf("rite event: %s %+v", event, data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// It is safe for use from trigger goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Emitted returns a copy of the events recorded so far.
func (m *MockEmitter) Emitted() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}
