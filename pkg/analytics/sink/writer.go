package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
)

// WriterSink serializes events as JSON Lines to an io.Writer.
// Suitable for shipping to stdout, a file, or a log collector.
type WriterSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

// Compile-time interface check.
var _ analytics.Sink = (*WriterSink)(nil)

// NewWriterSink creates a sink writing one JSON object per line to w.
// The writer is not closed by Close; it belongs to the caller.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Deliver encodes the event as one line. Returns ErrSinkClosed after Close.
func (s *WriterSink) Deliver(_ context.Context, evt *analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if err := s.enc.Encode(evt); err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	return nil
}

// Close implements analytics.Sink. Subsequent deliveries fail.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
