package stats

import (
	"context"
	"math"
	"time"

	"github.com/hay5612/scorebot/internal/domain/types"
	"github.com/hay5612/scorebot/pkg/metrics"
)

// Aggregate is the per-metric mean of a team's rows over a season range.
// Values may hold NaN for a metric that was absent in every matched row.
type Aggregate struct {
	Team    string
	Range   types.SeasonRange
	Seasons int
	Values  map[string]float64
}

// Repository answers aggregate lookups over a Table.
type Repository struct {
	table *Table
}

// NewRepository wraps table. The table must not be modified afterwards.
func NewRepository(table *Table) *Repository {
	metrics.UpdateStatsTable(table.Len(), len(table.byTeam))
	return &Repository{table: table}
}

// Lookup averages the team's metrics over the inclusive range [start, end].
// The team code is normalized and the bounds may be given in either order.
// A team with no rows in the range yields a *types.NotFoundError.
func (r *Repository) Lookup(ctx context.Context, team string, start, end int) (Aggregate, error) {
	begin := time.Now()
	defer func() {
		metrics.RecordStatsLookupLatency(float64(time.Since(begin).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}

	code := types.NormalizeTeam(team)
	rng := types.NewSeasonRange(start, end)
	rows := r.table.rowsFor(code, rng)
	if len(rows) == 0 {
		metrics.RecordStatsLookup(false)
		return Aggregate{}, &types.NotFoundError{Team: code, Range: rng}
	}
	metrics.RecordStatsLookup(true)

	values := make(map[string]float64, len(r.table.metrics))
	for _, m := range r.table.metrics {
		values[m] = mean(rows, m)
	}
	return Aggregate{Team: code, Range: rng, Seasons: len(rows), Values: values}, nil
}

// Table exposes the underlying read-only table.
func (r *Repository) Table() *Table { return r.table }

// mean skips NaN cells; all-NaN yields NaN.
func mean(rows []TeamSeasonStat, metric string) float64 {
	var sum float64
	var n int
	for _, row := range rows {
		v := row.Metrics[metric]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
