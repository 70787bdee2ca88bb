// Package types contains common types used across the application
package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ModelType selects which trained model pair serves a prediction.
type ModelType string

// Supported model types.
const (
	ModelLinear ModelType = "linear"
	ModelGBoost ModelType = "gboost"
	ModelRF     ModelType = "rf"
)

// ModelTypes lists every supported model type in a stable order.
func ModelTypes() []ModelType {
	return []ModelType{ModelLinear, ModelGBoost, ModelRF}
}

// ParseModelType resolves a case-insensitive model type name.
func ParseModelType(raw string) (ModelType, error) {
	mt := ModelType(strings.ToLower(strings.TrimSpace(raw)))
	switch mt {
	case ModelLinear, ModelGBoost, ModelRF:
		return mt, nil
	}
	return "", &ValidationError{
		Field:  "model_type",
		Reason: fmt.Sprintf("unknown model type %q: must be linear, gboost, or rf", raw),
	}
}

// String implements fmt.Stringer.
func (m ModelType) String() string { return string(m) }

// NormalizeTeam returns the canonical form of a team code: trimmed and uppercase.
func NormalizeTeam(code string) string {
	// Caser values keep state, so a fresh one is used per call.
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// SeasonRange is an inclusive interval of seasons.
type SeasonRange struct {
	Start int `json:"start_season"`
	End   int `json:"end_season"`
}

// NewSeasonRange builds a range with Start <= End regardless of argument order.
func NewSeasonRange(start, end int) SeasonRange {
	if start > end {
		start, end = end, start
	}
	return SeasonRange{Start: start, End: end}
}

// Contains reports whether season lies within the range.
func (r SeasonRange) Contains(season int) bool {
	return season >= r.Start && season <= r.End
}

// Single reports whether the range covers exactly one season.
func (r SeasonRange) Single() bool { return r.Start == r.End }

func (r SeasonRange) String() string {
	if r.Single() {
		return fmt.Sprintf("season %d", r.Start)
	}
	return fmt.Sprintf("seasons %d-%d", r.Start, r.End)
}

// PredictionResult is the canonical outcome of a matchup prediction.
type PredictionResult struct {
	Season             int       `json:"season,omitempty"`
	StartSeason        int       `json:"start_season"`
	EndSeason          int       `json:"end_season"`
	HomeTeam           string    `json:"home_team"`
	AwayTeam           string    `json:"away_team"`
	ModelType          ModelType `json:"model_type"`
	NeutralSite        bool      `json:"neutral_site"`
	HomeWinProbability float64   `json:"home_win_probability"`
	PredictedPointDiff float64   `json:"predicted_point_diff"`
	PredictedWinner    string    `json:"predicted_winner"`
}

// TeamSeasons lists the seasons available for one team.
type TeamSeasons struct {
	Team    string `json:"team"`
	Seasons []int  `json:"seasons"`
}
