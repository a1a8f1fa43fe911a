// Package health provides health monitoring functionality for log streaming
// client components with thread-safe status tracking and aggregation.
//
// The health package tracks the health status of individual client components
// (stream connections, the query facade, the NATS relay) and aggregates them
// into a single view for the diagnostics endpoint.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// A reconnecting stream is degraded rather than unhealthy: the client is
// still working toward recovery and no operator action is needed yet. A
// stream that exhausted its reconnection budget is unhealthy.
//
// # Basic Usage
//
// Creating and tracking component health:
//
//	monitor := health.NewMonitor()
//
//	// Update component health
//	monitor.UpdateHealthy("relay", "NATS connection stable")
//	monitor.UpdateFromState("stream:exec-42", types.StateReconnecting)
//	monitor.UpdateFromError("query", err)
//
//	// Check individual component health
//	if status, exists := monitor.Get("relay"); exists {
//	    if status.IsHealthy() {
//	        log.Println("relay is healthy")
//	    }
//	}
//
// # Aggregation
//
// Combining component statuses into a client-wide indicator:
//
//	clientHealth := monitor.AggregateHealth("logstream")
//	if clientHealth.IsUnhealthy() {
//	    log.Printf("client unhealthy: %s", clientHealth.Message)
//	}
//
// Aggregation rules: any unhealthy sub-status makes the aggregate unhealthy;
// otherwise any degraded sub-status makes it degraded; otherwise healthy.
//
// # HTTP Endpoint
//
// Handler exposes the aggregate as JSON for probes:
//
//	mux.Handle("/healthz", health.NewHandler(monitor, "logstream"))
//
// Healthy and degraded aggregates answer 200, unhealthy answers 503.
//
// # Message Sanitization
//
// Error text recorded through FromError and UpdateFromError is sanitized
// before storage: URLs, file paths, IP addresses, ports, and credential
// patterns are replaced with placeholders. Stream errors often embed the
// push channel URL, which carries the access token in its query string, so
// raw error strings must never reach health output.
package health
