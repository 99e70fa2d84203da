package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boyanghu/battleship-sub001/pkg/analytics/observability"
	"github.com/google/uuid"
)

// Scope is a provider boundary: the region of the program within which
// builders can be acquired. It holds the configured sink (through its
// dispatcher) and the default metadata merged into every snapshot.
//
// A scope has two states: mounted (acquisitions succeed) and unmounted
// (acquisitions fail with ErrScopeUnmounted). Builders created before
// teardown stay valid to finalize; they hold their own captured snapshot.
//
// Scope is safe for concurrent use. Only boundary code should mutate it
// (SetDefaults, SetScreen, Unmount); consumers only read snapshots.
type Scope struct {
	parent         *Scope
	dispatcher     *Dispatcher
	ownsDispatcher bool

	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu        sync.RWMutex
	screen    string
	sessionID string
	defaults  map[string]any

	mounted atomic.Bool
}

// scopeConfig collects option values before the scope is built.
type scopeConfig struct {
	screen     string
	sessionID  string
	defaults   map[string]any
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	bufferSize int
	onDrop     func(evt *Event, reason string)
	onError    func(derr *DeliveryError)
}

// ScopeOption configures a Scope.
type ScopeOption func(*scopeConfig)

// WithScreen sets the screen or route identifier captured into snapshots.
func WithScreen(screen string) ScopeOption {
	return func(c *scopeConfig) {
		c.screen = screen
	}
}

// WithSessionID sets the session identifier.
// If not set, a UUID is auto-generated; a child scope inherits its parent's.
func WithSessionID(id string) ScopeOption {
	return func(c *scopeConfig) {
		c.sessionID = id
	}
}

// WithDefaults sets the scope's default metadata. On a child scope these
// merge over the parent chain's defaults, inner keys winning.
func WithDefaults(defaults map[string]any) ScopeOption {
	return func(c *scopeConfig) {
		c.defaults = defaults
	}
}

// WithLogger sets the logger for the scope and its dispatcher.
func WithLogger(logger *slog.Logger) ScopeOption {
	return func(c *scopeConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) ScopeOption {
	return func(c *scopeConfig) {
		c.metrics = m
	}
}

// WithTracing sets the span manager for sink deliveries. Defaults to no-op.
func WithTracing(s observability.SpanManager) ScopeOption {
	return func(c *scopeConfig) {
		c.spans = s
	}
}

// WithBufferSize sets the dispatcher queue capacity. Root scope only;
// children share the root's dispatcher.
func WithBufferSize(n int) ScopeOption {
	return func(c *scopeConfig) {
		c.bufferSize = n
	}
}

// WithOnDrop sets the callback for events discarded before the sink.
func WithOnDrop(fn func(evt *Event, reason string)) ScopeOption {
	return func(c *scopeConfig) {
		c.onDrop = fn
	}
}

// WithOnError sets the callback for sink delivery failures.
func WithOnError(fn func(derr *DeliveryError)) ScopeOption {
	return func(c *scopeConfig) {
		c.onError = fn
	}
}

// NewScope mounts a root provider boundary delivering to the given sink.
// The scope owns a dispatcher; tear it down with Close to drain the queue.
//
// Example:
//
//	scope := analytics.NewScope(snk,
//	    analytics.WithScreen("lobby"),
//	    analytics.WithDefaults(map[string]any{"app_version": version}))
//	defer scope.Close(ctx)
func NewScope(snk Sink, opts ...ScopeOption) *Scope {
	cfg := &scopeConfig{
		sessionID: uuid.New().String(),
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Scope{
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		screen:    cfg.screen,
		sessionID: cfg.sessionID,
		defaults:  cloneMetadata(cfg.defaults),
	}
	s.dispatcher = NewDispatcher(snk, DispatcherConfig{
		BufferSize: cfg.bufferSize,
		OnDrop:     cfg.onDrop,
		OnError:    cfg.onError,
		Logger:     cfg.logger,
		Metrics:    cfg.metrics,
		Spans:      cfg.spans,
	})
	s.ownsDispatcher = true
	s.mounted.Store(true)

	observability.LogScopeMounted(s.logger, s.sessionID, s.screen)
	return s
}

// Child mounts a nested boundary that shares this scope's dispatcher.
// Its defaults merge over the parent chain's (inner keys win); screen and
// session are inherited unless overridden. Unmounting a child does not
// affect the parent.
func (s *Scope) Child(opts ...ScopeOption) *Scope {
	s.mu.RLock()
	cfg := &scopeConfig{
		screen:    s.screen,
		sessionID: s.sessionID,
		logger:    s.logger,
		metrics:   s.metrics,
	}
	s.mu.RUnlock()

	for _, opt := range opts {
		opt(cfg)
	}

	child := &Scope{
		parent:     s,
		dispatcher: s.dispatcher,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
		screen:     cfg.screen,
		sessionID:  cfg.sessionID,
		defaults:   cloneMetadata(cfg.defaults),
	}
	child.mounted.Store(true)

	observability.LogScopeMounted(child.logger, child.sessionID, child.screen)
	return child
}

// NewBuilder acquires a builder for one logical interaction, capturing a
// snapshot of the scope's current state. Per-call seed metadata merges over
// the scope defaults (seed keys win).
//
// Fails with ErrScopeUnmounted after Unmount: new acquisitions after
// teardown are a wiring bug and surface loudly.
func (s *Scope) NewBuilder(seed map[string]any) (*Builder, error) {
	if !s.mounted.Load() {
		return nil, ErrScopeUnmounted
	}

	defaults := mergeMetadata(s.effectiveDefaults(), seed)

	s.mu.RLock()
	screen := s.screen
	sessionID := s.sessionID
	s.mu.RUnlock()

	s.metrics.RecordAcquire(context.Background(), screen)

	return &Builder{
		dispatcher: s.dispatcher,
		logger:     s.logger,
		snapshot: Snapshot{
			Screen:     screen,
			SessionID:  sessionID,
			Defaults:   defaults,
			CapturedAt: time.Now().UTC(),
		},
		metadata: make(map[string]any),
	}, nil
}

// SetDefaults replaces the scope's default metadata without a remount.
// Builders already acquired keep their captured snapshots.
func (s *Scope) SetDefaults(defaults map[string]any) {
	s.mu.Lock()
	s.defaults = cloneMetadata(defaults)
	s.mu.Unlock()
}

// SetScreen updates the screen identifier without a remount.
func (s *Scope) SetScreen(screen string) {
	s.mu.Lock()
	s.screen = screen
	s.mu.Unlock()
}

// Screen returns the current screen identifier.
func (s *Scope) Screen() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screen
}

// SessionID returns the session identifier.
func (s *Scope) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Mounted returns true until Unmount or Close.
func (s *Scope) Mounted() bool {
	return s.mounted.Load()
}

// Unmount tears down the boundary: new acquisitions fail, builders already
// acquired stay valid to finalize. The dispatcher keeps running until Close
// so late finalizes still reach the sink.
func (s *Scope) Unmount() {
	if !s.mounted.CompareAndSwap(true, false) {
		return
	}
	s.mu.RLock()
	sessionID, screen := s.sessionID, s.screen
	s.mu.RUnlock()
	observability.LogScopeUnmounted(s.logger, sessionID, screen)
}

// Flush blocks until every event finalized so far has been handed to the
// sink, or the context is done.
func (s *Scope) Flush(ctx context.Context) error {
	return s.dispatcher.Flush(ctx)
}

// Close unmounts the scope, drains the queue, and stops the dispatcher.
// On a child scope it only unmounts; the root owns the dispatcher. Events
// finalized after Close are dropped and reported via OnDrop.
func (s *Scope) Close(ctx context.Context) error {
	s.Unmount()
	if !s.ownsDispatcher {
		return nil
	}
	if err := s.dispatcher.Flush(ctx); err != nil {
		return err
	}
	return s.dispatcher.Close()
}

// effectiveDefaults merges defaults along the parent chain, outermost first,
// so inner scopes override outer ones. Reads live state: a parent updated
// after a child mounts is still visible to new acquisitions.
func (s *Scope) effectiveDefaults() map[string]any {
	var chain []*Scope
	for c := s; c != nil; c = c.parent {
		chain = append(chain, c)
	}

	out := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		sc := chain[i]
		sc.mu.RLock()
		for k, v := range sc.defaults {
			out[k] = v
		}
		sc.mu.RUnlock()
	}
	return out
}

// scopeKey is the context key for scope threading.
type scopeKey struct{}

// IntoContext returns a context carrying the scope. Nesting contexts with
// child scopes gives components the nearest enclosing boundary.
func IntoContext(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the nearest enclosing scope.
// Fails with ErrNoScope when no boundary is reachable: instrumentation
// outside a provider boundary is a programmer error and never no-ops.
func FromContext(ctx context.Context) (*Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || s == nil {
		return nil, ErrNoScope
	}
	return s, nil
}

// NewBuilder acquires a builder from the nearest enclosing scope in ctx.
// This is the consumer accessor: the only surface handler code needs.
func NewBuilder(ctx context.Context, seed map[string]any) (*Builder, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.NewBuilder(seed)
}
