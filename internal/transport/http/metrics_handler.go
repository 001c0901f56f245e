package http

import (
	"net/http"
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	scrape http.Handler
}

// NewMetricsHandler wraps the exporter's scrape handler. A nil handler
// answers 404, which is what a disabled exporter looks like.
func NewMetricsHandler(scrape http.Handler) *MetricsHandler {
	if scrape == nil {
		scrape = http.NotFoundHandler()
	}
	return &MetricsHandler{scrape: scrape}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.scrape.ServeHTTP(w, r)
}
