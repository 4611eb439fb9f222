package sinks

import (
	"context"
	"sync"

	"rollbacknet/logging"
)

// Memory records every event it receives, for use in tests that need to
// assert on emitted diagnostics without racing a goroutine-backed sink.
type Memory struct {
	mu     sync.Mutex
	events []logging.Event
}

// NewMemory constructs an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Write implements logging.Sink.
func (m *Memory) Write(event logging.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Close implements logging.Sink.
func (m *Memory) Close(context.Context) error {
	return nil
}

// Events returns a copy of every event recorded so far.
func (m *Memory) Events() []logging.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]logging.Event, len(m.events))
	copy(out, m.events)
	return out
}
