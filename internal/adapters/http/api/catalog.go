package api

import (
	"net/http"

	service "github.com/hay5612/scorebot/internal/app"
	"github.com/hay5612/scorebot/internal/domain/types"
)

type teamsResponse struct {
	Teams   []types.TeamSeasons `json:"teams"`
	Metrics []string            `json:"metrics"`
}

type modelsResponse struct {
	Models []service.ModelInfo `json:"models"`
}

// CatalogHandler lists the teams, metrics and model types the service knows.
type CatalogHandler struct {
	deps Dependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps Dependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleTeams handles GET /teams requests.
func (h *CatalogHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{Teams: h.deps.Teams(), Metrics: h.deps.Metrics()})
}

// HandleModels handles GET /models requests.
func (h *CatalogHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: h.deps.Models()})
}
