// Package model contains domain models passed between layers.
package model

import "github.com/hay5612/scorebot/internal/domain/types"

// Matchup is a prediction request as it reaches the core. Team codes and
// seasons are taken as given; normalization happens in the service.
type Matchup struct {
	HomeTeam    string // home team code, any case
	AwayTeam    string // away team code, any case
	StartSeason int    // first season of the range, inclusive
	EndSeason   int    // last season of the range, inclusive; may precede StartSeason
	ModelType   string // linear, gboost or rf, case-insensitive
	NeutralSite bool   // game played at neither team's venue
}

// Normalized returns the canonical form of the matchup: uppercase trimmed
// team codes and an ordered season range. The model type is left untouched.
func (m Matchup) Normalized() Matchup {
	r := types.NewSeasonRange(m.StartSeason, m.EndSeason)
	return Matchup{
		HomeTeam:    types.NormalizeTeam(m.HomeTeam),
		AwayTeam:    types.NormalizeTeam(m.AwayTeam),
		StartSeason: r.Start,
		EndSeason:   r.End,
		ModelType:   m.ModelType,
		NeutralSite: m.NeutralSite,
	}
}

// Range returns the matchup's ordered season range.
func (m Matchup) Range() types.SeasonRange {
	return types.NewSeasonRange(m.StartSeason, m.EndSeason)
}
