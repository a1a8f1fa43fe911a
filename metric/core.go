package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all client-level metrics (not per-consumer state)
type Metrics struct {
	// Stream metrics
	ConnectionState *prometheus.GaugeVec
	FramesReceived  *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	Reconnects      *prometheus.CounterVec
	PongsSent       *prometheus.CounterVec

	// Query metrics
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Relay metrics
	RelayPublished *prometheus.CounterVec
	RelayDropped   *prometheus.CounterVec

	// Error and health metrics
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Stream metrics
		ConnectionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logstream",
				Subsystem: "stream",
				Name:      "connection_state",
				Help:      "Stream connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=failed)",
			},
			[]string{"execution_id"},
		),

		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "stream",
				Name:      "frames_received_total",
				Help:      "Total number of frames received over the push channel",
			},
			[]string{"execution_id", "type"},
		),

		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "stream",
				Name:      "frames_dropped_total",
				Help:      "Total number of frames dropped without dispatch",
			},
			[]string{"execution_id", "reason"},
		),

		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "stream",
				Name:      "reconnects_total",
				Help:      "Total number of reconnection attempts",
			},
			[]string{"execution_id"},
		),

		PongsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "stream",
				Name:      "pongs_sent_total",
				Help:      "Total number of pong frames sent in reply to server pings",
			},
			[]string{"execution_id"},
		),

		// Query metrics
		QueryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Total number of log query requests",
			},
			[]string{"endpoint", "status"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logstream",
				Subsystem: "query",
				Name:      "request_duration_seconds",
				Help:      "Log query request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		// Relay metrics
		RelayPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "relay",
				Name:      "published_total",
				Help:      "Total number of log entries published to NATS",
			},
			[]string{"log_type"},
		),

		RelayDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "relay",
				Name:      "dropped_total",
				Help:      "Total number of log entries the relay failed to publish",
			},
			[]string{"reason"},
		),

		// Error and health metrics
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "class"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logstream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logstream",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logstream",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logstream",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordConnectionState updates the stream connection state gauge
func (c *Metrics) RecordConnectionState(executionID string, state int) {
	c.ConnectionState.WithLabelValues(executionID).Set(float64(state))
}

// RecordFrameReceived increments the received frame counter
func (c *Metrics) RecordFrameReceived(executionID, frameType string) {
	c.FramesReceived.WithLabelValues(executionID, frameType).Inc()
}

// RecordFrameDropped increments the dropped frame counter
func (c *Metrics) RecordFrameDropped(executionID, reason string) {
	c.FramesDropped.WithLabelValues(executionID, reason).Inc()
}

// RecordReconnect increments the reconnection attempt counter
func (c *Metrics) RecordReconnect(executionID string) {
	c.Reconnects.WithLabelValues(executionID).Inc()
}

// RecordPongSent increments the pong reply counter
func (c *Metrics) RecordPongSent(executionID string) {
	c.PongsSent.WithLabelValues(executionID).Inc()
}

// RecordQueryRequest increments the query request counter
func (c *Metrics) RecordQueryRequest(endpoint, status string) {
	c.QueryRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordQueryDuration records query round-trip time
func (c *Metrics) RecordQueryDuration(endpoint string, duration time.Duration) {
	c.QueryDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRelayPublished increments the relay publish counter
func (c *Metrics) RecordRelayPublished(logType string) {
	c.RelayPublished.WithLabelValues(logType).Inc()
}

// RecordRelayDropped increments the relay drop counter
func (c *Metrics) RecordRelayDropped(reason string) {
	c.RelayDropped.WithLabelValues(reason).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments the NATS reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
