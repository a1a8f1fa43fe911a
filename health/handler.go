package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the aggregated health of a Monitor as JSON. Healthy and
// degraded aggregates answer 200; an unhealthy aggregate answers 503 so
// load balancer probes see the distinction.
type Handler struct {
	monitor *Monitor
	system  string
}

// NewHandler creates an HTTP handler reporting the monitor's aggregate health
func NewHandler(monitor *Monitor, system string) *Handler {
	if system == "" {
		system = "logstream"
	}
	return &Handler{
		monitor: monitor,
		system:  system,
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := h.monitor.AggregateHealth(h.system)

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
