package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hay5612/scorebot/pkg/metrics"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Teams   int    `json:"teams"`
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	deps    Dependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{
		deps: deps,
		// Use our custom metrics registry to serve metrics
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "scorebot backend running",
		Teams:   len(h.deps.Teams()),
	})
}

// HandleMetrics handles GET /metrics requests in the Prometheus exposition format.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
