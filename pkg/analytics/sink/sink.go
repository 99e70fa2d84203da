// Package sink provides delivery backends for finalized analytics events.
//
// The Sink interface itself lives in the analytics package; this package
// holds the implementations:
//   - MemorySink: in-memory capture for tests and development
//   - WriterSink: JSON Lines to an io.Writer
//   - SQLiteSink: single-process persistent storage
//   - ClickHouseSink: columnar analytics storage over the native protocol
//   - Multi: fan-out to several sinks
//
// Retry, batching, and transport policy belong to the sink, not to the
// analytics core; implementations here deliver one event per call and
// report failures as errors.
package sink

import (
	"context"
	"errors"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
)

// Sentinel errors for sink operations.
var (
	// ErrSinkClosed indicates a delivery after Close().
	ErrSinkClosed = errors.New("sink closed")
)

// Multi fans one event out to several sinks.
// Deliver hits every sink even when some fail; failures are joined.
type Multi struct {
	sinks []analytics.Sink
}

// Compile-time interface check.
var _ analytics.Sink = (*Multi)(nil)

// NewMulti creates a fan-out sink over the given sinks.
func NewMulti(sinks ...analytics.Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Deliver hands the event to every sink. Returns the joined errors of the
// sinks that failed, or nil when all succeeded.
func (m *Multi) Deliver(ctx context.Context, evt *analytics.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, joining any failures.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
