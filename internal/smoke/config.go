// Package smoke drives a running scorebot service end to end: it checks
// health, reads the team catalog, fires concurrent predictions and verifies
// every answer is internally consistent.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of single predictions to send
	BatchSize  int           // Size of the batch request; 0 skips it
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	ModelTypes []string      // Model types to cycle through
	Seed       uint64        // Seed for matchup selection
	OutputFile string        // Optional JSON report path
}

// TeamSeasons mirrors an entry of GET /teams.
type TeamSeasons struct {
	Team    string `json:"team"`
	Seasons []int  `json:"seasons"`
}

// Matchup is a request body for POST /predict.
type Matchup struct {
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	StartSeason int    `json:"start_season"`
	EndSeason   int    `json:"end_season"`
	ModelType   string `json:"model_type"`
	NeutralSite bool   `json:"neutral_site"`
}

// Prediction mirrors the body of a successful POST /predict.
type Prediction struct {
	Season             int     `json:"season,omitempty"`
	StartSeason        int     `json:"start_season"`
	EndSeason          int     `json:"end_season"`
	HomeTeam           string  `json:"home_team"`
	AwayTeam           string  `json:"away_team"`
	ModelType          string  `json:"model_type"`
	NeutralSite        bool    `json:"neutral_site"`
	HomeWinProbability float64 `json:"home_win_probability"`
	PredictedPointDiff float64 `json:"predicted_point_diff"`
	PredictedWinner    string  `json:"predicted_winner"`
}

// Outcome records one prediction call.
type Outcome struct {
	RequestID  string      `json:"request_id"`
	Matchup    Matchup     `json:"matchup"`
	Status     int         `json:"status"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Problem    string      `json:"problem,omitempty"`
}

// Stats summarizes a smoke run.
type Stats struct {
	Teams        int           `json:"teams"`
	Sent         int           `json:"sent"`
	Succeeded    int           `json:"succeeded"`
	Unavailable  int           `json:"unavailable"`
	Failed       int           `json:"failed"`
	Inconsistent int           `json:"inconsistent"`
	BatchItems   int           `json:"batch_items"`
	Duration     time.Duration `json:"duration"`
}
