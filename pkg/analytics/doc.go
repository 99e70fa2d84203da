/*
Package analytics provides a context-scoped event-logging core for
instrumenting user interactions.

# Overview

analytics lets arbitrary handler code emit structured, taxonomy-constrained
interaction events without each call site re-deriving event shape or wiring.
A Scope is mounted once per UI boundary with a configured Sink and default
metadata; consumers acquire a Builder pre-seeded with a snapshot of that
ambient context, add fields, and finalize exactly once. Finalized events are
handed to the sink through an asynchronous dispatcher that never blocks the
caller.

The library is built around three guarantees:
  - Closed taxonomy: only Action values from the fixed set are emitted
  - Snapshot capture: an event reflects the context the interaction happened
    in, even if the scope changes before finalize
  - Fire-and-forget delivery: sink failures never reach the interaction path

# Basic Usage

Mount a scope, thread it through context, and log events:

	sink, _ := sink.NewSQLiteSink("./events.db")
	scope := analytics.NewScope(sink,
	    analytics.WithScreen("lobby"),
	    analytics.WithDefaults(map[string]any{"app_version": "1.4.2"}))
	defer scope.Close(context.Background())

	ctx := analytics.IntoContext(context.Background(), scope)

	// In a handler, far from the wiring above:
	b, err := analytics.NewBuilder(ctx, nil)
	if err != nil {
	    return err // no scope mounted: a wiring bug, not a runtime condition
	}
	b.SetAction(analytics.ActionPress).
	    SetMetadata("target", "join_button").
	    Log()

# Nested Boundaries

An inner boundary overrides the outer one's defaults while sharing its
dispatcher:

	game := scope.Child(
	    analytics.WithScreen("game"),
	    analytics.WithDefaults(map[string]any{"room": roomID}))
	ctx = analytics.IntoContext(ctx, game)

Components read the nearest enclosing scope via FromContext; an inner scope's
defaults merge over the outer chain.

# Builder Lifecycle

A Builder belongs to one logical interaction. SetAction and SetMetadata are
last-write-wins and chainable. Log is terminal: a second call returns
ErrBuilderFinalized and emits nothing, reported through the scope logger
rather than panicking into the interaction path. Log without an action
returns ErrMissingAction and leaves the builder usable. Discarding an
unfinalized builder has no side effects.

# Delivery

Log enqueues to a single-worker dispatcher and returns immediately. Events
finalized in order on one goroutine reach the sink in that order. A full
buffer drops the event and reports it through the OnDrop callback, logger,
and metrics; delivery failures surface as DeliveryError on the OnError
callback. Neither ever propagates to the caller of Log.

# Error Handling

Errors follow two tracks. Configuration and validation errors (ErrNoScope,
ErrScopeUnmounted, ErrMissingAction, ErrInvalidAction, ErrBuilderFinalized)
return synchronously from the call that caused them. Delivery errors are
asynchronous and observable only on the dispatcher callbacks:

	scope := analytics.NewScope(sink,
	    analytics.WithOnError(func(derr *analytics.DeliveryError) {
	        alerting.Report(derr)
	    }))

# Observability

Structured logging uses slog. Metrics and tracing use OpenTelemetry via the
observability subpackage:

	scope := analytics.NewScope(sink,
	    analytics.WithLogger(logger),
	    analytics.WithMetrics(observability.NewMetricsRecorder()),
	    analytics.WithTracing(observability.NewSpanManager()))

Metrics: analytics.builders.acquired, analytics.events.delivered,
analytics.events.dropped, analytics.delivery.errors,
analytics.delivery.latency_ms. Tracing: one analytics.deliver span per sink
hand-off.

# Thread Safety

  - Builder is NOT safe for concurrent use (one logical interaction each);
    the finalize guard is atomic, so a racing double-Log is still reported
  - Scope IS safe for concurrent use; only boundary code mutates it
  - Dispatcher and Sink implementations are safe for concurrent use

# Subpackages

  - sink: Sink implementations (memory, JSON Lines, SQLite, ClickHouse)
  - config: file- and environment-based configuration
  - observability: logging, metrics, and tracing helpers
*/
package analytics
