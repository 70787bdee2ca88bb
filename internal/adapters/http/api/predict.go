package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/hay5612/scorebot/internal/app"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
)

// predictRequest mirrors the OpenAPI schema for POST /predict.
type predictRequest struct {
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	Season      *int   `json:"season"`
	StartSeason *int   `json:"start_season"`
	EndSeason   *int   `json:"end_season"`
	// Week is accepted for compatibility and does not affect the prediction.
	Week         *int   `json:"week"`
	ModelType    string `json:"model_type"`
	NeutralField *bool  `json:"neutral_field"`
	NeutralSite  *bool  `json:"neutral_site"`
}

// toRequest validates the body and converts it to a service request.
func (p predictRequest) toRequest(o options) (service.Request, error) {
	invalid := func(field, reason string) error {
		return &types.ValidationError{Field: field, Reason: reason}
	}

	if strings.TrimSpace(p.HomeTeam) == "" {
		return service.Request{}, invalid("home_team", "is required")
	}
	if strings.TrimSpace(p.AwayTeam) == "" {
		return service.Request{}, invalid("away_team", "is required")
	}

	var start, end int
	switch {
	case p.Season != nil && (p.StartSeason != nil || p.EndSeason != nil):
		return service.Request{}, invalid("season", "give either season or start_season and end_season, not both")
	case p.Season != nil:
		start, end = *p.Season, *p.Season
	case p.StartSeason != nil && p.EndSeason != nil:
		start, end = *p.StartSeason, *p.EndSeason
	case p.StartSeason != nil || p.EndSeason != nil:
		return service.Request{}, invalid("season", "start_season and end_season must be given together")
	default:
		return service.Request{}, invalid("season", "is required")
	}
	for _, s := range []int{start, end} {
		if s < o.seasonMin || s > o.seasonMax {
			return service.Request{}, invalid("season", fmt.Sprintf("must be between %d and %d", o.seasonMin, o.seasonMax))
		}
	}

	modelType := p.ModelType
	if strings.TrimSpace(modelType) == "" {
		modelType = types.ModelLinear.String()
	}
	if _, err := types.ParseModelType(modelType); err != nil {
		return service.Request{}, err
	}

	neutral := false
	switch {
	case p.NeutralSite != nil && p.NeutralField != nil && *p.NeutralSite != *p.NeutralField:
		return service.Request{}, invalid("neutral_site", "conflicts with neutral_field")
	case p.NeutralSite != nil:
		neutral = *p.NeutralSite
	case p.NeutralField != nil:
		neutral = *p.NeutralField
	}

	return service.Request{
		HomeTeam:    p.HomeTeam,
		AwayTeam:    p.AwayTeam,
		StartSeason: start,
		EndSeason:   end,
		ModelType:   modelType,
		NeutralSite: neutral,
	}, nil
}

type batchRequest struct {
	Requests []predictRequest `json:"requests"`
}

type batchItem struct {
	Result *types.PredictionResult `json:"result,omitempty"`
	Error  *errorResponse          `json:"error,omitempty"`
}

type batchResponse struct {
	Results   []batchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps   Dependencies
	opts   options
	logger logger.Logger
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps Dependencies, o options) *PredictHandler {
	return &PredictHandler{deps: deps, opts: o, logger: o.logger}
}

// decode reads a JSON body bounded by maxBodyBytes.
func (h *PredictHandler) decode(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	body := http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		return http.StatusBadRequest, fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	return 0, nil
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body predictRequest
	if status, err := h.decode(w, r, &body); err != nil {
		writeError(w, status, codeFor(status), err)
		return
	}
	req, err := body.toRequest(h.opts)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, err)
		return
	}

	res, err := h.deps.Predict(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleBatch handles POST /predict/batch requests. Items are validated and
// predicted independently; the response keeps request order.
func (h *PredictHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body batchRequest
	if status, err := h.decode(w, r, &body); err != nil {
		writeError(w, status, codeFor(status), err)
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: requests must not be empty", ErrBadRequest))
		return
	}
	if len(body.Requests) > h.opts.batchLimit {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: %d requests exceeds the limit of %d", ErrBatchTooLarge, len(body.Requests), h.opts.batchLimit))
		return
	}

	resp := batchResponse{Results: make([]batchItem, len(body.Requests))}
	var valid []service.Request
	var index []int
	for i, item := range body.Requests {
		req, err := item.toRequest(h.opts)
		if err != nil {
			_, e := failure(err)
			resp.Results[i] = batchItem{Error: &e}
			continue
		}
		valid = append(valid, req)
		index = append(index, i)
	}

	if len(valid) > 0 {
		for k, out := range h.deps.PredictBatch(r.Context(), valid) {
			i := index[k]
			if out.Err != nil {
				status, e := failure(out.Err)
				if status >= http.StatusInternalServerError {
					h.logger.Error(r.Context(), "batch item failed",
						logger.String("request_id", RequestIDFrom(r.Context())),
						logger.Int("item", i),
						logger.Error(out.Err),
					)
				}
				resp.Results[i] = batchItem{Error: &e}
				continue
			}
			resp.Results[i] = batchItem{Result: out.Result}
		}
	}

	for _, item := range resp.Results {
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func codeFor(status int) string {
	if status == http.StatusRequestEntityTooLarge {
		return "payload_too_large"
	}
	return "bad_request"
}
