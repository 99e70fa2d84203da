package analytics

import (
	"context"
	"time"
)

// Event is an immutable record of a single user interaction.
// Events are created only by finalizing a Builder and are never mutated
// after creation; the sink owns the event after hand-off.
type Event struct {
	ID            string         `json:"id"`
	Action        Action         `json:"action"`
	Timestamp     time.Time      `json:"timestamp"`
	Context       Snapshot       `json:"context"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	SchemaVersion int            `json:"schema_version"`
}

// Snapshot is a point-in-time copy of ambient scope state, captured when a
// builder is acquired rather than when it finalizes. An event always
// reflects the context the interaction happened in, even if the scope
// changes before Log is called.
type Snapshot struct {
	// Screen identifies the screen or route the interaction happened on.
	Screen string `json:"screen,omitempty"`

	// SessionID groups events from one user session.
	SessionID string `json:"session_id"`

	// Defaults holds the scope's default metadata at capture time, with any
	// per-acquisition seed already merged over it.
	Defaults map[string]any `json:"defaults,omitempty"`

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// Sink delivers finalized events to a backend.
// Implementations must be safe for concurrent use. Delivery failures are
// reported back to the dispatcher's error callback; the core never retries.
type Sink interface {
	// Deliver hands one finalized event to the backend.
	Deliver(ctx context.Context, evt *Event) error

	// Close releases any resources (connections, files).
	Close() error
}

// cloneMetadata returns a shallow copy of m. Values are scalars by
// convention, so a shallow copy is enough to isolate snapshots.
func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeMetadata copies base and overlays over it, with over winning on
// key collisions.
func mergeMetadata(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
