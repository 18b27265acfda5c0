package metrics

import (
	"sync"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
)

// MemorySink keeps dispatch events in memory. Scenario runs and tests use it
// to inspect what was recorded.
type MemorySink struct {
	mu     sync.Mutex
	events []coremetrics.DispatchEvent
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// RecordDispatch stores the event.
func (m *MemorySink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// Dispatches returns a copy of the recorded events.
func (m *MemorySink) Dispatches() []coremetrics.DispatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremetrics.DispatchEvent(nil), m.events...)
}
