package analytics_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
	"github.com/boyanghu/battleship-sub001/pkg/analytics/sink"
)

// funcSink adapts a function to analytics.Sink for dispatch tests.
type funcSink struct {
	fn func(ctx context.Context, evt *analytics.Event) error
}

func (s *funcSink) Deliver(ctx context.Context, evt *analytics.Event) error {
	return s.fn(ctx, evt)
}

func (s *funcSink) Close() error { return nil }

func quietConfig() analytics.DispatcherConfig {
	return analytics.DispatcherConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testEvent(action analytics.Action) *analytics.Event {
	return &analytics.Event{
		ID:            "evt-" + string(action),
		Action:        action,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: analytics.TaxonomyVersion,
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	ms := sink.NewMemorySink()
	d := analytics.NewDispatcher(ms, quietConfig())
	defer d.Close()

	const n = 100
	for i := 0; i < n; i++ {
		evt := testEvent(analytics.ActionPress)
		evt.Metadata = map[string]any{"seq": i}
		if !d.Enqueue(evt) {
			t.Fatalf("enqueue %d dropped", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	events := ms.Events()
	if len(events) != n {
		t.Fatalf("delivered %d events, want %d", len(events), n)
	}
	for i, evt := range events {
		if evt.Metadata["seq"] != i {
			t.Fatalf("event %d has seq %v, want %d", i, evt.Metadata["seq"], i)
		}
	}
}

func TestDispatcherNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	blocking := &funcSink{fn: func(_ context.Context, _ *analytics.Event) error {
		<-release
		return nil
	}}

	var mu sync.Mutex
	var dropped []string

	cfg := quietConfig()
	cfg.BufferSize = 1
	cfg.OnDrop = func(evt *analytics.Event, reason string) {
		mu.Lock()
		dropped = append(dropped, reason)
		mu.Unlock()
	}

	d := analytics.NewDispatcher(blocking, cfg)
	defer d.Close()

	// First enqueue is taken by the worker and blocks inside the sink;
	// the second fills the buffer; later ones must drop, not block.
	d.Enqueue(testEvent(analytics.ActionPress))
	time.Sleep(10 * time.Millisecond)
	d.Enqueue(testEvent(analytics.ActionPress))

	done := make(chan bool, 1)
	go func() {
		done <- d.Enqueue(testEvent(analytics.ActionPress))
	}()

	select {
	case accepted := <-done:
		if accepted {
			t.Error("enqueue on a full buffer reported accepted")
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dropped) != 1 || dropped[0] != analytics.DropBufferFull {
		t.Errorf("drops = %v, want one %q", dropped, analytics.DropBufferFull)
	}

	close(release)
}

func TestDispatcherOnError(t *testing.T) {
	sinkErr := errors.New("backend unavailable")
	failing := &funcSink{fn: func(_ context.Context, _ *analytics.Event) error {
		return sinkErr
	}}

	errCh := make(chan *analytics.DeliveryError, 1)
	cfg := quietConfig()
	cfg.OnError = func(derr *analytics.DeliveryError) {
		errCh <- derr
	}

	d := analytics.NewDispatcher(failing, cfg)
	defer d.Close()

	evt := testEvent(analytics.ActionError)
	if !d.Enqueue(evt) {
		t.Fatal("enqueue dropped")
	}

	select {
	case derr := <-errCh:
		if !errors.Is(derr, sinkErr) {
			t.Errorf("delivery error does not unwrap to the sink error: %v", derr)
		}
		if derr.Event.ID != evt.ID {
			t.Errorf("delivery error carries event %s, want %s", derr.Event.ID, evt.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnError never called")
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	ms := sink.NewMemorySink()
	d := analytics.NewDispatcher(ms, quietConfig())

	for i := 0; i < 10; i++ {
		d.Enqueue(testEvent(analytics.ActionView))
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ms.Len() != 10 {
		t.Errorf("sink received %d events after Close, want 10", ms.Len())
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := analytics.NewDispatcher(sink.NewMemorySink(), quietConfig())
	if err := d.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	var mu sync.Mutex
	var reasons []string

	cfg := quietConfig()
	cfg.OnDrop = func(_ *analytics.Event, reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	}

	ms := sink.NewMemorySink()
	d := analytics.NewDispatcher(ms, cfg)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if d.Enqueue(testEvent(analytics.ActionPress)) {
		t.Error("enqueue after Close reported accepted")
	}
	if ms.Len() != 0 {
		t.Errorf("sink received %d events, want 0", ms.Len())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reasons) != 1 || reasons[0] != analytics.DropClosed {
		t.Errorf("drops = %v, want one %q", reasons, analytics.DropClosed)
	}
}

func TestDispatcherFlushHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := &funcSink{fn: func(_ context.Context, _ *analytics.Event) error {
		<-release
		return nil
	}}

	d := analytics.NewDispatcher(blocking, quietConfig())
	d.Enqueue(testEvent(analytics.ActionPress))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Flush error = %v, want DeadlineExceeded", err)
	}
}
