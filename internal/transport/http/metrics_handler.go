package http

import (
	"net/http"

	apierrors "datacheck/internal/errors"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
	enabled  bool
}

// NewMetricsHandler wraps the Prometheus exporter handler. A nil exporter
// with metrics enabled means the exporter failed to start.
func NewMetricsHandler(exporter http.Handler, enabled bool) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, enabled: enabled}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case !h.enabled:
		apierrors.WriteError(w, apierrors.New(http.StatusNotFound, "METRICS_DISABLED", "Metrics are disabled"))
	case h.exporter == nil:
		apierrors.WriteError(w, apierrors.New(http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "Metrics exporter is not available"))
	default:
		h.exporter.ServeHTTP(w, r)
	}
}
