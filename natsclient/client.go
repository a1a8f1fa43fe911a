// Package natsclient manages the NATS connection the log relay publishes
// through. It wraps nats.go with startup retry, lifecycle status, metrics,
// and a drain-on-close shutdown.
package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/health"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/pkg/retry"
)

// Status represents the state of the NATS connection
type Status int32

// Possible connection statuses
const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by publish calls before Connect succeeds or
// after the connection is gone.
var ErrNotConnected = stderrors.New("not connected to NATS")

// Snapshot holds runtime status information for the client
type Snapshot struct {
	Status     Status
	Reconnects int64
	RTT        time.Duration
	LastError  string
}

// Client is a publisher-side NATS connection manager. nats.go handles
// reconnection internally; the client layers status tracking, startup
// retry, and metrics on top.
type Client struct {
	url  string
	name string

	timeout         time.Duration
	drainTimeout    time.Duration
	reconnectWait   time.Duration
	maxReconnects   int
	pingInterval    time.Duration
	monitorInterval time.Duration
	connectRetry    retry.Config

	// Credentials are cleared on Close
	username string
	password string
	token    string

	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string
	tlsEnabled  bool

	logger  *slog.Logger
	metrics *metric.Metrics

	status     atomic.Int32
	reconnects atomic.Int64
	lastErr    atomic.Value // stores string

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	monitorDone chan struct{}

	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a NATS client for the given server URL
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"natsclient", "NewClient", "server URL required")
	}

	c := &Client{
		url:             serverURL,
		timeout:         5 * time.Second,
		drainTimeout:    30 * time.Second,
		reconnectWait:   2 * time.Second,
		maxReconnects:   -1,
		pingInterval:    30 * time.Second,
		monitorInterval: 10 * time.Second,
		connectRetry:    retry.Quick(),
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "natsclient", "NewClient", "apply option")
		}
	}

	c.lastErr.Store("")

	return c, nil
}

// URL returns the configured server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// IsHealthy reports whether the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Conn returns the underlying NATS connection, or nil before Connect
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// JetStream returns the JetStream context, or an error before Connect
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.js == nil {
		return nil, errors.WrapTransient(ErrNotConnected,
			"natsclient", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

// Connect establishes the connection, retrying transient dial failures with
// backoff. The context bounds the whole retry sequence.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapInvalid(errors.ErrClosed, "natsclient", "Connect", "client closed")
	}

	c.setStatus(StatusConnecting)
	c.logger.Debug("connecting to NATS", "url", redactURL(c.url))

	err := retry.Do(ctx, c.connectRetry, func() error {
		conn, dialErr := nats.Connect(c.url, c.buildOptions()...)
		if dialErr != nil {
			c.noteError(dialErr)
			c.logger.Warn("NATS connection attempt failed", "error", dialErr)
			return dialErr
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "natsclient", "Connect", "establish connection")
	}

	// JetStream context is best effort: core publishing still works on
	// servers without JetStream enabled
	if js, jsErr := jetstream.New(c.Conn()); jsErr == nil {
		c.mu.Lock()
		c.js = js
		c.mu.Unlock()
	}

	c.setStatus(StatusConnected)
	c.startMonitor()
	c.logger.Info("connected to NATS", "url", redactURL(c.url))

	return nil
}

// Publish sends a message over core NATS
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn := c.Conn()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// PublishMsg sends a message with headers over core NATS
func (c *Client) PublishMsg(_ context.Context, msg *nats.Msg) error {
	conn := c.Conn()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.PublishMsg(msg)
}

// JetStreamPublish publishes with an acknowledged write. A non-empty msgID
// enables server-side de-duplication within the stream's duplicate window.
func (c *Client) JetStreamPublish(ctx context.Context, subject string, data []byte, msgID string) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return ErrNotConnected
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	_, err := js.Publish(ctx, subject, data, opts...)
	return err
}

// RTT returns the round-trip time to the NATS server
func (c *Client) RTT() (time.Duration, error) {
	conn := c.Conn()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

// GetSnapshot returns current status information
func (c *Client) GetSnapshot() Snapshot {
	snap := Snapshot{
		Status:     c.Status(),
		Reconnects: c.reconnects.Load(),
	}
	if s, ok := c.lastErr.Load().(string); ok {
		snap.LastError = s
	}
	if rtt, err := c.RTT(); err == nil {
		snap.RTT = rtt
	}
	return snap
}

// Healthz reports the connection as a health status for the admin endpoint.
// A reconnecting client is degraded; nats.go is still working on it.
func (c *Client) Healthz() health.Status {
	switch c.Status() {
	case StatusConnected:
		return health.NewHealthy("nats", "connected")
	case StatusConnecting, StatusReconnecting:
		return health.NewDegraded("nats", c.Status().String())
	default:
		return health.NewUnhealthy("nats", ErrNotConnected.Error())
	}
}

// Close drains and closes the connection. Undelivered published messages are
// flushed within the drain timeout; after that the connection is forced shut.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.stopMonitor()

	c.mu.Lock()
	defer c.mu.Unlock()

	var drainErr error
	if c.conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		conn := c.conn
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				drainErr = errors.Wrap(err, "natsclient", "Close", "drain connection")
			}
		case <-time.After(drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"natsclient", "Close", "drain connection")
		case <-ctx.Done():
			drainErr = errors.Wrap(ctx.Err(), "natsclient", "Close", "drain connection")
		}

		c.conn.Close()
		c.conn = nil
		c.js = nil
	}

	// Clear sensitive credentials from memory
	c.username = ""
	c.password = ""
	c.token = ""

	c.setStatus(StatusDisconnected)
	c.logger.Debug("NATS client closed")

	return drainErr
}

// buildOptions builds nats.go connection options from client configuration
func (c *Client) buildOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleAsyncError),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	if c.tlsEnabled {
		if c.tlsCertFile != "" && c.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}

	if c.name != "" {
		opts = append(opts, nats.Name(c.name))
	}

	return opts
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.noteError(err)
	c.logger.Warn("NATS connection lost", "error", err)
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.reconnects.Add(1)
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
	c.logger.Info("NATS connection restored", "server", conn.ConnectedAddr())
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
}

func (c *Client) handleAsyncError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.noteError(err)
	c.logger.Error("NATS async error", "error", err)
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(s == StatusConnected)
	}
}

func (c *Client) noteError(err error) {
	if err == nil {
		return
	}
	c.lastErr.Store(err.Error())
	if c.metrics != nil {
		c.metrics.RecordError("natsclient", errors.Classify(err).String())
	}
}

// startMonitor periodically records connection gauges. Without a metrics
// sink there is nothing to do.
func (c *Client) startMonitor() {
	if c.monitorInterval <= 0 || c.metrics == nil {
		return
	}

	c.stopMonitor()

	done := make(chan struct{})
	c.mu.Lock()
	c.monitorDone = done
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn := c.Conn()
				if conn == nil {
					continue
				}
				c.metrics.RecordNATSStatus(conn.IsConnected())
				if rtt, err := conn.RTT(); err == nil {
					c.metrics.RecordNATSRTT(rtt)
				}
			}
		}
	}()
}

func (c *Client) stopMonitor() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.monitorDone != nil {
		close(c.monitorDone)
		c.monitorDone = nil
	}
}

// redactURL strips credentials from a NATS URL before logging
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	u.User = nil
	return u.String()
}
