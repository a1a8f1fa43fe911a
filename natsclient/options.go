package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/pkg/retry"
)

// Option is a functional option for configuring the Client
type Option func(*Client) error

// WithName sets the client name reported to the server
func WithName(name string) Option {
	return func(c *Client) error {
		c.name = name
		return nil
	}
}

// WithCredentials sets username and password for authentication
func WithCredentials(username, password string) Option {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken sets a token for authentication
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithTLS enables TLS with optional certificate paths
func WithTLS(certFile, keyFile, caFile string) Option {
	return func(c *Client) error {
		c.tlsCertFile = certFile
		c.tlsKeyFile = keyFile
		c.tlsCAFile = caFile
		c.tlsEnabled = true
		return nil
	}
}

// WithTimeout sets the per-dial connection timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithDrainTimeout sets the timeout for draining on Close
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("drain timeout must be positive, got %v", d)
		}
		c.drainTimeout = d
		return nil
	}
}

// WithReconnectWait sets the wait between nats.go reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) error {
		c.reconnectWait = d
		return nil
	}
}

// WithMaxReconnects sets the nats.go reconnection budget (-1 for unlimited)
func WithMaxReconnects(max int) Option {
	return func(c *Client) error {
		c.maxReconnects = max
		return nil
	}
}

// WithPingInterval sets the protocol-level keepalive interval
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) error {
		c.pingInterval = d
		return nil
	}
}

// WithConnectRetry sets the backoff policy applied to the initial dial
// sequence in Connect
func WithConnectRetry(cfg retry.Config) Option {
	return func(c *Client) error {
		c.connectRetry = cfg
		return nil
	}
}

// WithMonitorInterval sets how often connection gauges are refreshed.
// Zero disables the monitor.
func WithMonitorInterval(d time.Duration) Option {
	return func(c *Client) error {
		c.monitorInterval = d
		return nil
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics sets the metrics sink for connection gauges and counters
func WithMetrics(metrics *metric.Metrics) Option {
	return func(c *Client) error {
		c.metrics = metrics
		return nil
	}
}
