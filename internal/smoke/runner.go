package smoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hay5612/scorebot/pkg/logger"
)

const (
	directoryPermission = 0750
	defaultWorkers      = 4
)

// ErrInconsistent is returned when at least one prediction failed a check.
var ErrInconsistent = errors.New("inconsistent predictions")

type report struct {
	Stats    Stats     `json:"stats"`
	Outcomes []Outcome `json:"outcomes"`
}

// Run executes a complete smoke run against config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get().Named("smoke")
	began := time.Now()
	client := NewClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Any("modelTypes", config.ModelTypes))

	var health struct {
		Status string `json:"status"`
	}
	if err := client.Get(ctx, "/healthz", &health); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var catalog struct {
		Teams []TeamSeasons `json:"teams"`
	}
	if err := client.Get(ctx, "/teams", &catalog); err != nil {
		return nil, fmt.Errorf("team catalog: %w", err)
	}
	stats := &Stats{Teams: len(catalog.Teams)}

	matchups, err := Matchups(catalog.Teams, config.Requests, config.ModelTypes, config.Seed)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(matchups))
	workers := config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range matchups {
		g.Go(func() error {
			var p Prediction
			status, id, err := client.Post(gctx, "/predict", m, &p)
			if err != nil {
				return err
			}
			o := Outcome{RequestID: id, Matchup: m, Status: status}
			if status == http.StatusOK {
				o.Prediction = &p
				o.Problem = Check(m, p)
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}

	for _, o := range outcomes {
		tally(ctx, log, stats, o)
	}

	if config.BatchSize > 0 {
		n, err := runBatch(ctx, client, matchups, config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("batch: %w", err)
		}
		stats.BatchItems = n
	}

	stats.Duration = time.Since(began)
	log.Info(ctx, "smoke run finished",
		logger.Int("teams", stats.Teams),
		logger.Int("sent", stats.Sent),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("unavailable", stats.Unavailable),
		logger.Int("failed", stats.Failed),
		logger.Int("inconsistent", stats.Inconsistent),
		logger.String("duration", stats.Duration.String()))

	if config.OutputFile != "" {
		if err := saveReport(config.OutputFile, report{Stats: *stats, Outcomes: outcomes}); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	if stats.Inconsistent > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrInconsistent, stats.Inconsistent, stats.Succeeded)
	}
	return stats, nil
}

func tally(ctx context.Context, log logger.Logger, stats *Stats, o Outcome) {
	stats.Sent++
	switch {
	case o.Status == http.StatusOK && o.Problem == "":
		stats.Succeeded++
	case o.Status == http.StatusOK:
		stats.Succeeded++
		stats.Inconsistent++
		log.Error(ctx, "inconsistent prediction",
			logger.String("request_id", o.RequestID),
			logger.String("problem", o.Problem))
	case o.Status == http.StatusServiceUnavailable:
		stats.Unavailable++
	default:
		stats.Failed++
		log.Warn(ctx, "prediction failed",
			logger.String("request_id", o.RequestID),
			logger.Int("status", o.Status))
	}
}

// runBatch posts the first size matchups to /predict/batch and checks that
// the response has one item per request.
func runBatch(ctx context.Context, client *Client, matchups []Matchup, size int) (int, error) {
	if size > len(matchups) {
		size = len(matchups)
	}
	if size == 0 {
		return 0, nil
	}
	var resp struct {
		Results   []json.RawMessage `json:"results"`
		Succeeded int               `json:"succeeded"`
		Failed    int               `json:"failed"`
	}
	status, _, err := client.Post(ctx, "/predict/batch", map[string]any{"requests": matchups[:size]}, &resp)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", status)
	}
	if len(resp.Results) != size || resp.Succeeded+resp.Failed != size {
		return 0, fmt.Errorf("got %d results for %d requests", len(resp.Results), size)
	}
	return len(resp.Results), nil
}

func saveReport(filename string, r report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}
