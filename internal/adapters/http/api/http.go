// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/hay5612/scorebot/internal/app"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Predict(ctx context.Context, req service.Request) (types.PredictionResult, error)
	PredictBatch(ctx context.Context, reqs []service.Request) []service.BatchItem

	// Read operations expose the stats table and model state.
	Teams() []types.TeamSeasons
	Metrics() []string
	Models() []service.ModelInfo
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	catalogHandler *CatalogHandler
	opts           options
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		predictHandler: NewPredictHandler(deps, o),
		catalogHandler: NewCatalogHandler(deps),
		opts:           o,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/predict/batch", MetricsMiddleware(s.predictHandler.HandleBatch, "predict_batch"))
	mux.HandleFunc("/teams", MetricsMiddleware(s.catalogHandler.HandleTeams, "teams"))
	mux.HandleFunc("/models", MetricsMiddleware(s.catalogHandler.HandleModels, "models"))
}

// Handler wraps next with request IDs and CORS.
func (s *Server) Handler(next http.Handler) http.Handler {
	return RequestIDMiddleware(CORSMiddleware(next, s.opts.corsOrigins))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing the status, so an unencodable
// value becomes a 500 rather than a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Get().Named("api").Error(context.Background(), "encode response failed",
			logger.Int("status", status),
			logger.Error(err),
		)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "internal server error"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// failure maps a prediction error to a status and client body. Unexpected
// errors get a generic message; their details only reach the log.
func failure(err error) (int, errorResponse) {
	switch types.FailureKind(err) {
	case types.FailureValidation:
		return http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()}
	case types.FailureNotFound:
		return http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()}
	case types.FailureModelLoad:
		msg := "models are unavailable"
		var lerr *types.ModelLoadError
		if errors.As(err, &lerr) {
			msg = fmt.Sprintf("%s models are unavailable", lerr.ModelType)
		}
		return http.StatusServiceUnavailable, errorResponse{Code: "model_unavailable", Message: msg}
	}
	return http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "internal server error"}
}

func writeFailure(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	status, body := failure(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed",
			logger.String("request_id", RequestIDFrom(ctx)),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeJSON(w, status, body)
}
