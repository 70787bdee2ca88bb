package smoke

import (
	"fmt"
	"math"
	"strings"
)

// Check reports the first way p is inconsistent with the matchup m that
// produced it, or "" when it is consistent.
func Check(m Matchup, p Prediction) string {
	home := strings.ToUpper(strings.TrimSpace(m.HomeTeam))
	away := strings.ToUpper(strings.TrimSpace(m.AwayTeam))
	start, end := m.StartSeason, m.EndSeason
	if start > end {
		start, end = end, start
	}

	switch {
	case p.HomeTeam != home || p.AwayTeam != away:
		return fmt.Sprintf("teams %s/%s do not match request %s/%s", p.HomeTeam, p.AwayTeam, home, away)
	case p.StartSeason != start || p.EndSeason != end:
		return fmt.Sprintf("range %d-%d does not match request %d-%d", p.StartSeason, p.EndSeason, start, end)
	case start == end && p.Season != start:
		return fmt.Sprintf("season %d missing for single-season request", start)
	case math.IsNaN(p.HomeWinProbability) || p.HomeWinProbability < 0 || p.HomeWinProbability > 1:
		return fmt.Sprintf("probability %v outside [0,1]", p.HomeWinProbability)
	case math.IsNaN(p.PredictedPointDiff) || math.IsInf(p.PredictedPointDiff, 0):
		return fmt.Sprintf("point differential %v is not finite", p.PredictedPointDiff)
	case p.PredictedPointDiff >= 0 && p.PredictedWinner != home:
		return fmt.Sprintf("winner %s but differential %.3f favours %s", p.PredictedWinner, p.PredictedPointDiff, home)
	case p.PredictedPointDiff < 0 && p.PredictedWinner != away:
		return fmt.Sprintf("winner %s but differential %.3f favours %s", p.PredictedWinner, p.PredictedPointDiff, away)
	case p.NeutralSite != m.NeutralSite:
		return "neutral_site flag not echoed"
	}
	return ""
}
