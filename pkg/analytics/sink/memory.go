package sink

import (
	"context"
	"sync"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
)

// MemorySink captures delivered events in memory.
// Intended for tests and development; everything is lost on process exit.
type MemorySink struct {
	mu     sync.RWMutex
	events []*analytics.Event
	closed bool
}

// Compile-time interface check.
var _ analytics.Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Deliver appends the event. Returns ErrSinkClosed after Close.
func (s *MemorySink) Deliver(_ context.Context, evt *analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.events = append(s.events, evt)
	return nil
}

// Events returns the delivered events in delivery order.
// The returned slice is a copy; the events themselves are immutable.
func (s *MemorySink) Events() []*analytics.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*analytics.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of delivered events.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Reset discards all captured events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// Close implements analytics.Sink. Subsequent deliveries fail.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
