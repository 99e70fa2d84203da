package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/boyanghu/battleship-sub001/pkg/analytics"
)

// ErrNoAddress indicates a ClickHouse sink was configured without an address.
var ErrNoAddress = errors.New("clickhouse address required")

// ClickHouseConfig configures the ClickHouse connection.
type ClickHouseConfig struct {
	// Addr is the list of host:port endpoints (native protocol).
	Addr []string

	// Database, Username, Password authenticate the connection.
	Database string
	Username string
	Password string

	// DialTimeout bounds connection establishment. Default: 5s.
	DialTimeout time.Duration

	// Table is the target table name. Default: "events".
	Table string
}

// ClickHouseSink writes events to ClickHouse over the native protocol.
// The table is created on construction when it does not exist.
type ClickHouseSink struct {
	conn  clickhouse.Conn
	table string

	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ analytics.Sink = (*ClickHouseSink)(nil)

// NewClickHouseSink connects, pings, and ensures the events table exists.
func NewClickHouseSink(cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if len(cfg.Addr) == 0 {
		return nil, ErrNoAddress
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Table == "" {
		cfg.Table = "events"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id String,
			action LowCardinality(String),
			session_id String,
			screen String,
			timestamp DateTime64(3, 'UTC'),
			metadata String,
			schema_version UInt8
		)
		ENGINE = MergeTree
		ORDER BY (timestamp, session_id)
	`, cfg.Table)
	if err := conn.Exec(ctx, ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &ClickHouseSink{conn: conn, table: cfg.Table}, nil
}

// Deliver implements analytics.Sink.
func (s *ClickHouseSink) Deliver(ctx context.Context, evt *analytics.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}

	metadata, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, action, session_id, screen, timestamp, metadata, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.table)
	if err := s.conn.Exec(ctx, query,
		evt.ID, string(evt.Action), evt.Context.SessionID, evt.Context.Screen,
		evt.Timestamp.UTC(), string(metadata), uint8(evt.SchemaVersion)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Close implements analytics.Sink.
func (s *ClickHouseSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.conn.Close()
}
