// Package metric provides Prometheus-based metrics collection and a
// diagnostics HTTP server for the log streaming client.
//
// The package offers a centralized metrics registry managing both core client
// metrics (stream connection state, frame traffic, query latency, relay
// throughput, NATS health) and custom component-specific metrics. It includes
// an HTTP server exposing metrics in Prometheus format alongside a health
// endpoint.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Client-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// component concerns (custom metrics) while providing a unified endpoint for
// monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and the diagnostics server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, nil)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("diagnostics server error: %v", err)
//	    }
//	}()
//
//	// Record core client metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordConnectionState("exec-42", 2)
//	coreMetrics.RecordFrameReceived("exec-42", "log_line")
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/healthz.
//
// # Core Metrics
//
// The package automatically registers core client metrics tracking:
//
//   - Stream lifecycle: stream_connection_state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=failed)
//   - Frame traffic: stream_frames_received_total, stream_frames_dropped_total, stream_pongs_sent_total
//   - Reconnection behavior: stream_reconnects_total
//   - Query performance: query_requests_total, query_request_duration_seconds
//   - Relay throughput: relay_published_total, relay_dropped_total
//   - NATS connectivity: nats_connected, nats_rtt_milliseconds, nats_reconnects_total
//   - Error tracking: errors_total
//
// All core metrics carry the "logstream" namespace. Access them through the
// registry:
//
//	coreMetrics := registry.CoreMetrics()
//
//	// Stream lifecycle tracking
//	coreMetrics.RecordConnectionState("exec-42", 3) // 3 = reconnecting
//	coreMetrics.RecordReconnect("exec-42")
//
//	// Query metrics
//	coreMetrics.RecordQueryRequest("unified", "200")
//	coreMetrics.RecordQueryDuration("unified", 150*time.Millisecond)
//
//	// Relay metrics
//	coreMetrics.RecordRelayPublished("stdout")
//	coreMetrics.RecordRelayDropped("rate_limited")
//
//	// Error tracking
//	coreMetrics.RecordError("stream", "transient")
//
// # Component-Specific Metrics
//
// Components can register custom metrics through the registry:
//
//	linesPrinted := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "tail_lines_printed_total",
//	    Help: "Total number of log lines printed to the terminal",
//	})
//	err := registry.RegisterCounter("tail", "tail_lines_printed_total", linesPrinted)
//
// The registry tracks registrations per component so the same metric name can
// be detected as a duplicate before Prometheus rejects it. Unregister removes
// a component metric when the component shuts down:
//
//	registry.Unregister("tail", "tail_lines_printed_total")
//
// # Thread Safety
//
// MetricsRegistry is safe for concurrent use. Registration and unregistration
// take an internal lock; recording values on already-registered collectors is
// handled by the Prometheus client and needs no additional synchronization.
package metric
