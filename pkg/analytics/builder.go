package analytics

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/boyanghu/battleship-sub001/pkg/analytics/observability"
	"github.com/google/uuid"
)

// Builder accumulates one event for one logical interaction.
// It is acquired from a Scope, mutated on the caller's goroutine, and
// finalized at most once with Log. Setters are last-write-wins and return
// the receiver so call sites can chain, but chaining is cosmetic; the same
// contract holds as a sequence of calls.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	snapshot   Snapshot

	action    Action
	metadata  map[string]any
	finalized atomic.Bool
}

// SetAction sets the interaction verb, overwriting any previous value.
// Call sites may compute the action conditionally before finalizing, so an
// overwrite is not an error. Validation happens at Log time.
func (b *Builder) SetAction(action Action) *Builder {
	b.action = action
	return b
}

// SetMetadata merges one field into the event metadata. A later call with
// the same key overwrites the earlier value, consistent with SetAction.
// Builder-level keys take precedence over snapshot defaults at Log time.
func (b *Builder) SetMetadata(key string, value any) *Builder {
	b.metadata[key] = value
	return b
}

// Action returns the currently set action (empty until SetAction).
func (b *Builder) Action() Action {
	return b.action
}

// Snapshot returns the context captured when the builder was acquired.
func (b *Builder) Snapshot() Snapshot {
	return b.snapshot
}

// Log finalizes the builder: it validates the action, constructs the
// immutable Event, and hands it to the dispatcher. Fire-and-forget: the
// call returns as soon as the event is enqueued, and delivery failures
// surface only on the dispatcher's error callback.
//
// Log is terminal. A second call returns ErrBuilderFinalized and emits
// nothing; the violation is logged rather than thrown into the interaction
// path. A Log rejected for a missing or invalid action does not consume the
// builder, so the call site can set the action and retry.
func (b *Builder) Log() error {
	if b.action == "" {
		return ErrMissingAction
	}
	if !b.action.Valid() {
		return &InvalidActionError{Action: b.action}
	}

	if !b.finalized.CompareAndSwap(false, true) {
		observability.LogDoubleFinalize(b.logger, string(b.action))
		return ErrBuilderFinalized
	}

	evt := &Event{
		ID:        uuid.New().String(),
		Action:    b.action,
		Timestamp: time.Now().UTC(),
		Context:   b.snapshot,
		// Builder keys win over snapshot defaults on collision.
		Metadata:      mergeMetadata(b.snapshot.Defaults, b.metadata),
		SchemaVersion: TaxonomyVersion,
	}

	b.dispatcher.Enqueue(evt)
	return nil
}
