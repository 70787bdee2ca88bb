// Package repository loads the team-season statistics table from a CSV file
// or a SQL database and hands it to the stats domain as an immutable table.
package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hay5612/scorebot/internal/domain/stats"
	"github.com/hay5612/scorebot/pkg/logger"
)

// Source kinds accepted by Open.
const (
	KindCSV      = "csv"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// DefaultTable is queried when no table is configured.
const DefaultTable = "team_stats"

// Source reads the full statistics table once.
type Source interface {
	Load(ctx context.Context) (*stats.Table, error)
	// Describe names the source for logs, without credentials.
	Describe() string
}

// Open builds the source named by kind.
func Open(kind string, opts ...Option) (Source, error) {
	s := settings{table: DefaultTable}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("stats_source")
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindCSV:
		if s.path == "" {
			return nil, fmt.Errorf("%w: csv source needs a path", ErrSourceNotReady)
		}
		return &CSVSource{path: s.path, logger: s.logger}, nil
	case KindSQLite:
		return newSQLSource(driverSQLite, s)
	case KindPostgres:
		return newSQLSource(driverPostgres, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
}

// missing reports cells the training pipeline treats as absent.
func missing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}

// buildTable classifies columns and converts raw cells into a stats table.
// A column is a metric when every non-missing cell parses as a number.
// line0 is the source line number of records[0], for error messages.
func buildTable(header []string, records [][]string, line0 int) (*stats.Table, error) {
	teamIdx, seasonIdx := -1, -1
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch strings.ToLower(names[i]) {
		case stats.ColumnTeam:
			teamIdx = i
		case stats.ColumnSeason:
			seasonIdx = i
		}
	}
	if teamIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, stats.ColumnTeam)
	}
	if seasonIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, stats.ColumnSeason)
	}

	var metricIdx []int
	for i := range names {
		if i == teamIdx || i == seasonIdx {
			continue
		}
		if numericColumn(records, i) {
			metricIdx = append(metricIdx, i)
		}
	}
	metrics := make([]string, len(metricIdx))
	for k, i := range metricIdx {
		metrics[k] = names[i]
	}

	rows := make([]stats.TeamSeasonStat, 0, len(records))
	for n, rec := range records {
		if len(rec) != len(names) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrInvalidRow, line0+n, len(rec), len(names))
		}
		season, err := parseSeason(rec[seasonIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRow, line0+n, err)
		}
		values := make(map[string]float64, len(metricIdx))
		for k, i := range metricIdx {
			v := math.NaN()
			if !missing(rec[i]) {
				v, _ = strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
				if math.IsInf(v, 0) {
					return nil, fmt.Errorf("%w: line %d: %s is not finite", ErrInvalidRow, line0+n, metrics[k])
				}
			}
			values[metrics[k]] = v
		}
		rows = append(rows, stats.TeamSeasonStat{Team: rec[teamIdx], Season: season, Metrics: values})
	}
	return stats.NewTable(metrics, rows)
}

func numericColumn(records [][]string, i int) bool {
	for _, rec := range records {
		if i >= len(rec) || missing(rec[i]) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err != nil {
			return false
		}
	}
	return true
}

// parseSeason accepts integer years, including float renderings like "2023.0".
func parseSeason(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if n, err := strconv.Atoi(cell); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("season %q is not an integer", cell)
	}
	return int(f), nil
}
