package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hay5612/scorebot/internal/adapters/http/api"
	service "github.com/hay5612/scorebot/internal/app"
	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies implements api.Dependencies.
type mockDependencies struct {
	mu    sync.Mutex
	calls []service.Request
	err   error
}

func (m *mockDependencies) Predict(_ context.Context, req service.Request) (types.PredictionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.err != nil {
		return types.PredictionResult{}, m.err
	}
	n := req.Normalized()
	if n.HomeTeam == "XYZ" {
		return types.PredictionResult{}, &types.NotFoundError{Team: "XYZ", Range: n.Range()}
	}
	res := types.PredictionResult{
		StartSeason:        n.StartSeason,
		EndSeason:          n.EndSeason,
		HomeTeam:           n.HomeTeam,
		AwayTeam:           n.AwayTeam,
		ModelType:          types.ModelType(strings.ToLower(req.ModelType)),
		NeutralSite:        n.NeutralSite,
		HomeWinProbability: 0.7,
		PredictedPointDiff: 3,
		PredictedWinner:    n.HomeTeam,
	}
	if n.StartSeason == n.EndSeason {
		res.Season = n.StartSeason
	}
	if n.HomeTeam == "INF" {
		res.PredictedPointDiff = math.Inf(1)
	}
	return res, nil
}

func (m *mockDependencies) PredictBatch(ctx context.Context, reqs []service.Request) []service.BatchItem {
	out := make([]service.BatchItem, len(reqs))
	for i, req := range reqs {
		res, err := m.Predict(ctx, req)
		if err != nil {
			out[i] = service.BatchItem{Err: err}
			continue
		}
		out[i] = service.BatchItem{Result: &res}
	}
	return out
}

func (m *mockDependencies) Teams() []types.TeamSeasons {
	return []types.TeamSeasons{{Team: "BUF", Seasons: []int{2023}}, {Team: "KC", Seasons: []int{2022, 2023}}}
}

func (m *mockDependencies) Metrics() []string { return []string{"epa"} }

func (m *mockDependencies) Models() []service.ModelInfo {
	return []service.ModelInfo{{Type: types.ModelLinear, Loaded: true, Columns: 2}, {Type: types.ModelGBoost}, {Type: types.ModelRF}}
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"predictions": 12, "started": true}
}

func newHandler(deps *mockDependencies, opts ...api.Option) http.Handler {
	srv := api.NewServer(deps, deps, opts...)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return srv.Handler(mux)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) (string, string) {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
	return body.Code, body.Message
}

func TestPredictHandler(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps)

		Convey("When posting a single-season prediction", func() {
			w := do(h, http.MethodPost, "/predict", `{"home_team":"kc","away_team":"BUF","season":2023}`)

			Convey("Then the result is returned with the default model type", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res types.PredictionResult
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.HomeTeam, ShouldEqual, "KC")
				So(res.Season, ShouldEqual, 2023)
				So(res.ModelType, ShouldEqual, types.ModelLinear)
				So(deps.calls, ShouldHaveLength, 1)
				So(deps.calls[0].StartSeason, ShouldEqual, 2023)
				So(deps.calls[0].EndSeason, ShouldEqual, 2023)
			})

			Convey("And a request ID is assigned", func() {
				So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
			})
		})

		Convey("When posting a season range with neutral_field", func() {
			w := do(h, http.MethodPost, "/predict",
				`{"home_team":"KC","away_team":"BUF","start_season":2023,"end_season":2021,"model_type":"RF","neutral_field":true,"week":7}`)

			Convey("Then the range and flag are forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.calls[0].StartSeason, ShouldEqual, 2023)
				So(deps.calls[0].EndSeason, ShouldEqual, 2021)
				So(deps.calls[0].NeutralSite, ShouldBeTrue)
				So(deps.calls[0].ModelType, ShouldEqual, "RF")
			})
		})

		Convey("When the request is invalid", func() {
			cases := map[string]string{
				"season out of range":       `{"home_team":"KC","away_team":"BUF","season":1999}`,
				"missing season":            `{"home_team":"KC","away_team":"BUF"}`,
				"season and range":          `{"home_team":"KC","away_team":"BUF","season":2023,"start_season":2022,"end_season":2023}`,
				"half a range":              `{"home_team":"KC","away_team":"BUF","start_season":2022}`,
				"missing home team":         `{"away_team":"BUF","season":2023}`,
				"unknown model type":        `{"home_team":"KC","away_team":"BUF","season":2023,"model_type":"xgboost"}`,
				"conflicting neutral flags": `{"home_team":"KC","away_team":"BUF","season":2023,"neutral_site":true,"neutral_field":false}`,
				"malformed JSON":            `{"home_team":`,
			}

			Convey("Then each is rejected with 400 and no prediction runs", func() {
				for _, body := range cases {
					w := do(h, http.MethodPost, "/predict", body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					code, _ := decodeError(w)
					So(code, ShouldEqual, "bad_request")
				}
				So(deps.calls, ShouldBeEmpty)
			})
		})

		Convey("When the team has no stats", func() {
			w := do(h, http.MethodPost, "/predict", `{"home_team":"XYZ","away_team":"BUF","season":2023}`)

			Convey("Then 404 not_found names the team", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				code, msg := decodeError(w)
				So(code, ShouldEqual, "not_found")
				So(msg, ShouldContainSubstring, "XYZ")
			})
		})

		Convey("When using the wrong method", func() {
			w := do(h, http.MethodGet, "/predict", "")

			Convey("Then 405 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			})
		})
	})

	Convey("Given an API server whose service fails", t, func() {
		Convey("When the models cannot be loaded", func() {
			deps := &mockDependencies{err: &types.ModelLoadError{ModelType: types.ModelRF, Err: errors.New("/srv/models/rf_win.json: no such file")}}
			w := do(newHandler(deps), http.MethodPost, "/predict", `{"home_team":"KC","away_team":"BUF","season":2023,"model_type":"rf"}`)

			Convey("Then 503 model_unavailable is returned without file details", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				code, msg := decodeError(w)
				So(code, ShouldEqual, "model_unavailable")
				So(msg, ShouldNotContainSubstring, "/srv/models")
			})
		})

		Convey("When an unexpected error occurs", func() {
			deps := &mockDependencies{err: fmt.Errorf("linear win probability: %w", errors.New("non-finite feature value"))}
			w := do(newHandler(deps), http.MethodPost, "/predict", `{"home_team":"KC","away_team":"BUF","season":2023}`)

			Convey("Then a generic 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				code, msg := decodeError(w)
				So(code, ShouldEqual, "internal_error")
				So(msg, ShouldEqual, "internal server error")
			})
		})
	})

	Convey("Given an API server whose result cannot be encoded", t, func() {
		w := do(newHandler(&mockDependencies{}), http.MethodPost, "/predict", `{"home_team":"INF","away_team":"BUF","season":2023}`)

		Convey("Then a complete 500 body is returned instead of an empty success", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			code, msg := decodeError(w)
			So(code, ShouldEqual, "internal_error")
			So(msg, ShouldEqual, "internal server error")
		})
	})

	Convey("Given an API server with a small body limit", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps, api.WithMaxBodyBytes(16))

		Convey("When the body exceeds the limit", func() {
			w := do(h, http.MethodPost, "/predict", `{"home_team":"KC","away_team":"BUF","season":2023}`)

			Convey("Then 413 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				code, _ := decodeError(w)
				So(code, ShouldEqual, "payload_too_large")
			})
		})
	})
}

func TestBatchHandler(t *testing.T) {
	Convey("Given an API server with a batch limit of two", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps, api.WithBatchLimit(2))

		Convey("When a batch mixes valid and invalid items", func() {
			w := do(h, http.MethodPost, "/predict/batch", `{"requests":[
				{"home_team":"XYZ","away_team":"BUF","season":2023},
				{"home_team":"KC","away_team":"BUF","season":1900}
			]}`)

			Convey("Then every item reports its own outcome", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Results []struct {
						Result *types.PredictionResult `json:"result"`
						Error  *struct {
							Code string `json:"code"`
						} `json:"error"`
					} `json:"results"`
					Succeeded int `json:"succeeded"`
					Failed    int `json:"failed"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Results, ShouldHaveLength, 2)
				So(resp.Results[0].Error.Code, ShouldEqual, "not_found")
				So(resp.Results[1].Error.Code, ShouldEqual, "bad_request")
				So(resp.Failed, ShouldEqual, 2)
				So(deps.calls, ShouldHaveLength, 1)
			})
		})

		Convey("When a batch succeeds", func() {
			w := do(h, http.MethodPost, "/predict/batch", `{"requests":[
				{"home_team":"KC","away_team":"BUF","season":2023},
				{"home_team":"BUF","away_team":"KC","season":2023,"model_type":"gboost"}
			]}`)

			Convey("Then results keep request order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Results []struct {
						Result *types.PredictionResult `json:"result"`
					} `json:"results"`
					Succeeded int `json:"succeeded"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Succeeded, ShouldEqual, 2)
				So(resp.Results[0].Result.HomeTeam, ShouldEqual, "KC")
				So(resp.Results[1].Result.HomeTeam, ShouldEqual, "BUF")
			})
		})

		Convey("When the batch exceeds the limit", func() {
			item := `{"home_team":"KC","away_team":"BUF","season":2023}`
			w := do(h, http.MethodPost, "/predict/batch", `{"requests":[`+item+`,`+item+`,`+item+`]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.calls, ShouldBeEmpty)
			})
		})

		Convey("When the batch is empty", func() {
			w := do(h, http.MethodPost, "/predict/batch", `{"requests":[]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCatalogAndHealth(t *testing.T) {
	Convey("Given an API server", t, func() {
		h := newHandler(&mockDependencies{})

		Convey("When listing teams", func() {
			w := do(h, http.MethodGet, "/teams", "")

			Convey("Then teams and metrics are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Teams   []types.TeamSeasons `json:"teams"`
					Metrics []string            `json:"metrics"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Teams, ShouldHaveLength, 2)
				So(resp.Metrics, ShouldResemble, []string{"epa"})
			})
		})

		Convey("When listing models", func() {
			w := do(h, http.MethodGet, "/models", "")

			Convey("Then every model type is listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"model_type":"gboost"`)
			})
		})

		Convey("When checking health", func() {
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then the service reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When scraping metrics", func() {
			_ = do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")

			Convey("Then the Prometheus exposition is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "scorebot_predictor_http_requests_total")
			})
		})

		Convey("When reading service stats", func() {
			w := do(h, http.MethodGet, "/stats", "")

			Convey("Then the stats map is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp["predictions"], ShouldEqual, float64(12))
				So(resp["started"], ShouldEqual, true)
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given an API server restricted to one origin", t, func() {
		h := newHandler(&mockDependencies{}, api.WithCORSOrigins([]string{"https://scorebot.example"}))

		Convey("When a preflight arrives from the allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
			req.Header.Set("Origin", "https://scorebot.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is answered with CORS headers", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://scorebot.example")
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, http.MethodPost)
			})
		})

		Convey("When a request comes from another origin", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", "https://elsewhere.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then no CORS grant is made", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})

		Convey("When the client sends a request ID", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(api.HeaderRequestID, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "abc-123")
			})
		})
	})

	Convey("Given a handler behind the request ID middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = api.RequestIDFrom(r.Context())
		}))

		Convey("When no ID is supplied", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then a UUID is generated and exposed to the handler", func() {
				So(seen, ShouldHaveLength, 36)
				So(w.Header().Get(api.HeaderRequestID), ShouldEqual, seen)
			})
		})
	})
}
