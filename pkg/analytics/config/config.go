package config

import (
	"errors"
	"fmt"
	"time"
)

// Sink kinds accepted by SinkConfig.Kind.
const (
	SinkMemory     = "memory"
	SinkJSONL      = "jsonl"
	SinkSQLite     = "sqlite"
	SinkClickHouse = "clickhouse"
)

// Sentinel errors for validation.
var (
	// ErrUnknownSinkKind indicates a sink kind outside the supported set.
	ErrUnknownSinkKind = errors.New("unknown sink kind")

	// ErrPathRequired indicates a file-backed sink without a path.
	ErrPathRequired = errors.New("sink path required")

	// ErrAddrRequired indicates a clickhouse sink without an address.
	ErrAddrRequired = errors.New("clickhouse address required")

	// ErrDatabaseRequired indicates a clickhouse sink without a database.
	ErrDatabaseRequired = errors.New("clickhouse database required")

	// ErrNegativeBuffer indicates a negative queue buffer size.
	ErrNegativeBuffer = errors.New("buffer size must not be negative")
)

// Config describes how an application mounts its analytics scope.
type Config struct {
	// Screen is the initial screen/route identifier.
	Screen string `yaml:"screen" json:"screen" env:"ANALYTICS_SCREEN"`

	// SessionID pins the session identifier; empty means auto-generate.
	SessionID string `yaml:"session_id" json:"session_id" env:"ANALYTICS_SESSION_ID"`

	// Defaults is the scope's default metadata. Values are strings at the
	// config layer; the application widens them as needed.
	Defaults map[string]string `yaml:"defaults" json:"defaults" env:"ANALYTICS_DEFAULTS"`

	// Queue configures the dispatcher.
	Queue QueueConfig `yaml:"queue" json:"queue" envPrefix:"ANALYTICS_QUEUE_"`

	// Sink selects and configures the delivery backend.
	Sink SinkConfig `yaml:"sink" json:"sink" envPrefix:"ANALYTICS_SINK_"`
}

// QueueConfig configures the dispatch queue.
type QueueConfig struct {
	// BufferSize is the event queue capacity. Zero means the library default.
	BufferSize int `yaml:"buffer_size" json:"buffer_size" env:"BUFFER_SIZE"`
}

// SinkConfig selects a delivery backend.
type SinkConfig struct {
	// Kind is one of: memory, jsonl, sqlite, clickhouse.
	Kind string `yaml:"kind" json:"kind" env:"KIND"`

	// Path is the target file for jsonl and sqlite sinks.
	Path string `yaml:"path" json:"path" env:"PATH"`

	// ClickHouse configures the clickhouse kind.
	ClickHouse ClickHouseConfig `yaml:"clickhouse" json:"clickhouse" envPrefix:"CLICKHOUSE_"`
}

// ClickHouseConfig configures the ClickHouse connection.
type ClickHouseConfig struct {
	Addr        []string      `yaml:"addr" json:"addr" env:"ADDR"`
	Database    string        `yaml:"database" json:"database" env:"DATABASE"`
	Username    string        `yaml:"username" json:"username" env:"USERNAME"`
	Password    string        `yaml:"password" json:"password" env:"PASSWORD"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout" env:"DIAL_TIMEOUT"`
	Table       string        `yaml:"table" json:"table" env:"TABLE"`
}

// Default returns the baseline configuration: an in-memory sink with the
// library's queue default.
func Default() Config {
	return Config{
		Sink: SinkConfig{Kind: SinkMemory},
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Queue.BufferSize < 0 {
		return fmt.Errorf("queue: %w (got %d)", ErrNegativeBuffer, c.Queue.BufferSize)
	}

	switch c.Sink.Kind {
	case SinkMemory:
		return nil
	case SinkJSONL, SinkSQLite:
		if c.Sink.Path == "" {
			return fmt.Errorf("sink %s: %w", c.Sink.Kind, ErrPathRequired)
		}
		return nil
	case SinkClickHouse:
		if len(c.Sink.ClickHouse.Addr) == 0 {
			return fmt.Errorf("sink clickhouse: %w", ErrAddrRequired)
		}
		if c.Sink.ClickHouse.Database == "" {
			return fmt.Errorf("sink clickhouse: %w", ErrDatabaseRequired)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSinkKind, c.Sink.Kind)
	}
}

// DefaultsAny widens the string-valued defaults to the map[string]any the
// analytics scope expects.
func (c Config) DefaultsAny() map[string]any {
	if len(c.Defaults) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.Defaults))
	for k, v := range c.Defaults {
		out[k] = v
	}
	return out
}
