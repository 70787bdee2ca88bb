package smoke

import (
	"errors"
	"math/rand/v2"
	"slices"
)

// ErrNoMatchups is returned when no two teams share a season.
var ErrNoMatchups = errors.New("no two teams share a season")

// Matchups draws n matchups between teams that share at least one season.
// Model types cycle in order; the draw is deterministic for a given seed.
func Matchups(teams []TeamSeasons, n int, modelTypes []string, seed uint64) ([]Matchup, error) {
	type pair struct {
		home, away string
		shared     []int
	}
	var pairs []pair
	for i, h := range teams {
		for j, a := range teams {
			if i == j {
				continue
			}
			if shared := intersect(h.Seasons, a.Seasons); len(shared) > 0 {
				pairs = append(pairs, pair{home: h.Team, away: a.Team, shared: shared})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, ErrNoMatchups
	}
	if len(modelTypes) == 0 {
		modelTypes = []string{"linear"}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Matchup, n)
	for i := range n {
		p := pairs[rng.IntN(len(pairs))]
		end := p.shared[rng.IntN(len(p.shared))]
		start := end
		// Every other draw spans from the earliest shared season.
		if i%2 == 1 {
			start = p.shared[0]
		}
		out[i] = Matchup{
			HomeTeam:    p.home,
			AwayTeam:    p.away,
			StartSeason: start,
			EndSeason:   end,
			ModelType:   modelTypes[i%len(modelTypes)],
			NeutralSite: rng.IntN(4) == 0,
		}
	}
	return out, nil
}

func intersect(a, b []int) []int {
	var out []int
	for _, s := range a {
		if slices.Contains(b, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
