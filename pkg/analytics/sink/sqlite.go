package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
)

// SQLiteSink persists events to SQLite.
// It is suitable for single-process production use.
type SQLiteSink struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ analytics.Sink = (*SQLiteSink)(nil)

// NewSQLiteSink creates a new SQLite event sink.
// The path should be a file path (e.g., "./events.db") or ":memory:" for testing.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Create table and index
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			session_id TEXT NOT NULL,
			screen TEXT,
			timestamp TEXT NOT NULL,
			metadata BLOB,
			schema_version INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_session_id
		ON events(session_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Deliver implements analytics.Sink.
// Delivery is idempotent on event ID: a duplicate is a no-op, not an error.
func (s *SQLiteSink) Deliver(ctx context.Context, evt *analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	metadata, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, action, session_id, screen, timestamp, metadata, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, evt.ID, string(evt.Action), evt.Context.SessionID, evt.Context.Screen,
		evt.Timestamp.UTC().Format(time.RFC3339Nano), metadata, evt.SchemaVersion)

	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrSinkClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// BySession returns all events for a session, ordered by timestamp.
func (s *SQLiteSink) BySession(ctx context.Context, sessionID string) ([]*analytics.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, session_id, screen, timestamp, metadata, schema_version
		FROM events
		WHERE session_id = ?
		ORDER BY timestamp, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.Event
	for rows.Next() {
		var (
			evt       analytics.Event
			action    string
			timestamp string
			metadata  []byte
		)
		if err := rows.Scan(&evt.ID, &action, &evt.Context.SessionID, &evt.Context.Screen,
			&timestamp, &metadata, &evt.SchemaVersion); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Action = analytics.Action(action)
		evt.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &evt.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		events = append(events, &evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// Close implements analytics.Sink.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
