package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/token"
	"github.com/c360/logstream/types"
)

// Callbacks is the set of consumer hooks a stream dispatches into. Any field
// may be nil. All callbacks for one handle fire from a single goroutine, so
// they are never concurrent with each other; they should return quickly since
// frame dispatch waits on them.
type Callbacks struct {
	// OnMessage receives each decoded log line
	OnMessage func(entry types.LogEntry)

	// OnStatusUpdate receives execution status changes pushed by the server
	OnStatusUpdate func(update types.StatusUpdate)

	// OnStateChange receives every connection state transition
	OnStateChange func(state types.ConnectionState)

	// OnError receives transport and protocol errors. Transient errors are
	// followed by a reconnecting transition, fatal ones by failed.
	OnError func(err error)
}

// ReconnectConfig controls the backoff policy applied after abnormal closes.
// The zero value reconnects with the default policy; set Disabled to turn
// reconnection off entirely.
type ReconnectConfig struct {
	Disabled bool `json:"disabled" yaml:"disabled"`

	// MaxAttempts bounds consecutive reconnection attempts. Zero takes the
	// default of five; a negative value removes the bound.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
}

// DefaultReconnectConfig returns the standard backoff policy: five attempts
// starting at one second, growing 1.5x per attempt, capped at thirty seconds
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Multiplier:      1.5,
		MaxInterval:     30 * time.Second,
	}
}

// normalize fills zero fields with their defaults
func (rc ReconnectConfig) normalize() ReconnectConfig {
	def := DefaultReconnectConfig()
	if rc.MaxAttempts == 0 {
		rc.MaxAttempts = def.MaxAttempts
	}
	if rc.InitialInterval <= 0 {
		rc.InitialInterval = def.InitialInterval
	}
	if rc.Multiplier <= 1.0 {
		rc.Multiplier = def.Multiplier
	}
	if rc.MaxInterval <= 0 {
		rc.MaxInterval = def.MaxInterval
	}
	return rc
}

// Config holds the stream manager settings
type Config struct {
	// BaseURL is the server origin, e.g. "https://api.example.com". The
	// scheme may be http, https, ws, or wss.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// HandshakeTimeout bounds the websocket upgrade
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`

	Reconnect ReconnectConfig `json:"reconnect" yaml:"reconnect"`
}

// DefaultConfig returns a Config with standard timeouts and backoff policy.
// BaseURL must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 45 * time.Second,
		Reconnect:        DefaultReconnectConfig(),
	}
}

// Option customizes a Manager
type Option func(*Manager)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithDialer replaces the websocket dialer entirely
func WithDialer(dialer *websocket.Dialer) Option {
	return func(m *Manager) {
		if dialer != nil {
			m.dialer = dialer
		}
	}
}

// WithTLSConfig sets the TLS configuration used when dialing wss endpoints.
// Nil keeps the defaults. Ignored when WithDialer is also given.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(m *Manager) {
		m.tlsConfig = tlsConfig
	}
}

// Manager opens and supervises push channels, one per execution. It drives
// each channel's state machine, applies the reconnection policy, and routes
// inbound frames to the consumer's callbacks.
type Manager struct {
	config    Config
	tokens    token.Provider
	logger    *slog.Logger
	metrics   *metric.Metrics
	dialer    *websocket.Dialer
	tlsConfig *tls.Config

	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// NewManager creates a stream manager. The token provider supplies the
// access token placed on every push channel URL.
func NewManager(cfg Config, tokens token.Provider, opts ...Option) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"stream", "NewManager", "base URL required")
	}
	if tokens == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"stream", "NewManager", "token provider required")
	}

	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	cfg.Reconnect = cfg.Reconnect.normalize()

	m := &Manager{
		config:  cfg,
		tokens:  tokens,
		logger:  slog.Default(),
		handles: make(map[string]*Handle),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.dialer == nil {
		m.dialer = &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  m.tlsConfig,
		}
	}

	return m, nil
}

// Connect opens a push channel for an execution and starts streaming into
// the given callbacks. The returned handle exposes Disconnect. A second
// Connect for the same execution replaces the earlier handle.
//
// The context governs the whole lifetime of the handle: cancelling it stops
// the stream just like Disconnect. Without a retrievable token Connect fails
// synchronously, before any transport attempt; that failure is not retried.
func (m *Manager) Connect(ctx context.Context, executionID string, callbacks Callbacks) (*Handle, error) {
	if executionID == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("empty execution id"),
			"stream", "Connect", "validate execution id")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	accessToken, err := m.tokens.Token(ctx)
	if err != nil || accessToken == "" {
		if err == nil {
			err = errors.ErrNoToken
		}
		werr := errors.WrapInvalid(err, "stream", "Connect", "retrieve access token")
		if callbacks.OnError != nil {
			callbacks.OnError(werr)
		}
		return nil, werr
	}

	url, err := streamURL(m.config.BaseURL, executionID, accessToken)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.WrapInvalid(errors.ErrClosed, "stream", "Connect", "manager closed")
	}

	prev := m.handles[executionID]
	h := newHandle(ctx, executionID, url, callbacks,
		m.config.Reconnect, m.dialer, m.logger, m.metrics)
	m.handles[executionID] = h
	m.mu.Unlock()

	if prev != nil {
		prev.Disconnect()
	}

	m.logger.Debug("opening push channel",
		"execution_id", executionID, "url", sanitizeStreamURL(url))

	go h.run()

	return h, nil
}

// Handle returns the current handle for an execution, if any
func (m *Manager) Handle(executionID string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[executionID]
	return h, ok
}

// Disconnect closes the push channel for an execution. It is a no-op for an
// unknown execution and idempotent for a known one.
func (m *Manager) Disconnect(executionID string) {
	m.mu.Lock()
	h := m.handles[executionID]
	delete(m.handles, executionID)
	m.mu.Unlock()

	if h != nil {
		h.Disconnect()
	}
}

// States returns a snapshot of the connection state per execution
func (m *Manager) States() map[string]types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]types.ConnectionState, len(m.handles))
	for id, h := range m.handles {
		states[id] = h.State()
	}
	return states
}

// Close disconnects every handle and rejects future Connect calls
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	for _, h := range handles {
		h.Disconnect()
	}
}
