package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boyanghu/battleship-sub001/pkg/analytics/observability"
)

// Drop reasons passed to the OnDrop callback.
const (
	// DropBufferFull means the queue was full at enqueue time.
	DropBufferFull = "buffer full"

	// DropClosed means the dispatcher was already closed at enqueue time.
	DropClosed = "dispatcher closed"
)

// DispatcherConfig configures dispatch behavior.
type DispatcherConfig struct {
	// BufferSize is the event queue capacity.
	// Default: 256
	BufferSize int

	// OnDrop is called when an event is discarded before the sink
	// (full buffer or closed dispatcher).
	OnDrop func(evt *Event, reason string)

	// OnError is called when the sink fails to deliver an event.
	// This is the error-reporting channel for delivery failures; they never
	// reach the goroutine that finalized the event.
	OnError func(derr *DeliveryError)

	// Logger receives structured dispatch logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records pipeline metrics. Defaults to no-op.
	Metrics observability.MetricsRecorder

	// Spans traces sink deliveries. Defaults to no-op.
	Spans observability.SpanManager
}

// DefaultDispatcherConfig provides reasonable defaults.
var DefaultDispatcherConfig = DispatcherConfig{
	BufferSize: 256,
}

// Dispatcher owns the asynchronous boundary between Log and the sink.
// Enqueue never blocks; a single worker goroutine drains the queue in FIFO
// order, so events finalized in order on one goroutine reach the sink in
// that order.
type Dispatcher struct {
	config DispatcherConfig
	sink   Sink

	events  chan *Event
	done    chan struct{}
	closed  atomic.Bool
	pending atomic.Int64
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher delivering to the given sink and
// starts its worker.
func NewDispatcher(snk Sink, config DispatcherConfig) *Dispatcher {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultDispatcherConfig.BufferSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}

	d := &Dispatcher{
		config: config,
		sink:   snk,
		events: make(chan *Event, config.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Enqueue hands an event to the worker without blocking.
// Returns false if the event was dropped (full buffer or closed dispatcher);
// drops are reported via OnDrop, logger, and metrics.
func (d *Dispatcher) Enqueue(evt *Event) bool {
	if d.closed.Load() {
		d.drop(evt, DropClosed)
		return false
	}

	d.pending.Add(1)
	select {
	case d.events <- evt:
		return true
	default:
		d.pending.Add(-1)
		d.drop(evt, DropBufferFull)
		return false
	}
}

// Flush blocks until every enqueued event has been handed to the sink, or
// the context is done.
func (d *Dispatcher) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if d.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops intake, drains events already buffered, and waits for the
// worker to exit. Safe to call more than once. The sink is not closed; it
// belongs to the caller.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	close(d.done)
	d.wg.Wait()
	return nil
}

// run is the worker loop. On shutdown it drains whatever is buffered before
// exiting.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case evt := <-d.events:
			d.deliver(evt)

		case <-d.done:
			for {
				select {
				case evt := <-d.events:
					d.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one event to the sink and reports the outcome.
func (d *Dispatcher) deliver(evt *Event) {
	defer d.pending.Add(-1)

	ctx, span := d.config.Spans.StartDeliverySpan(context.Background(), evt.ID, string(evt.Action))
	start := time.Now()

	err := d.sink.Deliver(ctx, evt)

	duration := time.Since(start)
	d.config.Spans.EndSpanWithError(span, err)
	d.config.Metrics.RecordDelivery(ctx, string(evt.Action), duration, err)

	if err != nil {
		observability.LogDeliveryError(d.config.Logger, evt.ID, string(evt.Action), err)
		if d.config.OnError != nil {
			d.config.OnError(&DeliveryError{Event: evt, Err: err})
		}
		return
	}

	observability.LogEventDelivered(d.config.Logger, evt.ID, string(evt.Action),
		float64(duration.Milliseconds()))
}

// drop reports an event that never reached the sink.
func (d *Dispatcher) drop(evt *Event, reason string) {
	observability.LogEventDropped(d.config.Logger, evt.ID, string(evt.Action), reason)
	d.config.Metrics.RecordDrop(context.Background(), reason)
	if d.config.OnDrop != nil {
		d.config.OnDrop(evt, reason)
	}
}
