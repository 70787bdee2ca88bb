// Package stats holds the immutable team-season statistics table and the
// repository that answers aggregate lookups over it.
package stats

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/hay5612/scorebot/internal/domain/types"
)

// Identifier columns that never count as metrics.
const (
	ColumnTeam   = "team"
	ColumnSeason = "season"
)

// TeamSeasonStat is one row of the statistics table. Absent metric cells are NaN.
type TeamSeasonStat struct {
	Team    string
	Season  int
	Metrics map[string]float64
}

// Table is a read-only index of team-season rows. It is never mutated after
// NewTable returns, so concurrent readers need no synchronization.
type Table struct {
	metrics []string
	byTeam  map[string][]TeamSeasonStat // sorted by season
	rows    int
}

// NewTable indexes rows by normalized team code. metrics fixes the metric
// names every row is expected to carry; a row missing one stores NaN for it.
func NewTable(metrics []string, rows []TeamSeasonStat) (*Table, error) {
	t := &Table{
		byTeam: make(map[string][]TeamSeasonStat),
	}

	seenMetric := make(map[string]struct{}, len(metrics))
	for _, m := range metrics {
		if m == ColumnTeam || m == ColumnSeason {
			continue
		}
		if _, dup := seenMetric[m]; dup {
			return nil, fmt.Errorf("%w: duplicate metric %q", ErrInvalidTable, m)
		}
		seenMetric[m] = struct{}{}
		t.metrics = append(t.metrics, m)
	}

	type key struct {
		team   string
		season int
	}
	seenRow := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		team := types.NormalizeTeam(r.Team)
		if team == "" {
			return nil, fmt.Errorf("%w: row with empty team for season %d", ErrInvalidTable, r.Season)
		}
		k := key{team: team, season: r.Season}
		if _, dup := seenRow[k]; dup {
			return nil, fmt.Errorf("%w: duplicate row for %s season %d", ErrInvalidTable, team, r.Season)
		}
		seenRow[k] = struct{}{}

		values := make(map[string]float64, len(t.metrics))
		for _, m := range t.metrics {
			v, ok := r.Metrics[m]
			if !ok {
				v = math.NaN()
			}
			values[m] = v
		}
		t.byTeam[team] = append(t.byTeam[team], TeamSeasonStat{Team: team, Season: r.Season, Metrics: values})
		t.rows++
	}

	for _, seasons := range t.byTeam {
		sort.Slice(seasons, func(i, j int) bool { return seasons[i].Season < seasons[j].Season })
	}
	return t, nil
}

// Metrics returns the metric names in table order.
func (t *Table) Metrics() []string { return slices.Clone(t.metrics) }

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Teams lists every team with its available seasons, ordered by team code.
func (t *Table) Teams() []types.TeamSeasons {
	out := make([]types.TeamSeasons, 0, len(t.byTeam))
	for team, rows := range t.byTeam {
		seasons := make([]int, len(rows))
		for i, r := range rows {
			seasons[i] = r.Season
		}
		out = append(out, types.TeamSeasons{Team: team, Seasons: seasons})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return out
}

// rowsFor returns the team's rows within r. The returned slice aliases the
// table and must not be modified.
func (t *Table) rowsFor(team string, r types.SeasonRange) []TeamSeasonStat {
	rows := t.byTeam[team]
	lo := sort.Search(len(rows), func(i int) bool { return rows[i].Season >= r.Start })
	hi := sort.Search(len(rows), func(i int) bool { return rows[i].Season > r.End })
	return rows[lo:hi]
}
