package engine

import (
	"math"

	"github.com/pable/go-match-telemetry/internal/model"
)

// TeamAggregates sums per-player contributions by team number.
func TeamAggregates(players map[string]model.PlayerRecord) map[int]model.TeamAggregate {
	teams := make(map[int]model.TeamAggregate)
	for _, p := range players {
		agg := teams[p.Team]
		agg.FinalHits += p.FinalHits
		agg.TotalDamage += p.DamageDealt
		agg.TotalBlocked += p.DamageBlocked
		agg.TotalHealing += p.TotalHeal
		teams[p.Team] = agg
	}
	return teams
}

// ApplyTeamStats recomputes m.TeamStats and every player's percentage fields in place.
func ApplyTeamStats(m *model.MatchSnapshot) {
	m.TeamStats = TeamAggregates(m.Players)
	for uid, p := range m.Players {
		team := m.TeamStats[p.Team]
		p.PctTeamDamage = percentOf(p.DamageDealt, team.TotalDamage)
		p.PctTeamBlocked = percentOf(p.DamageBlocked, team.TotalBlocked)
		p.PctTeamHealing = percentOf(p.TotalHeal, team.TotalHealing)
		m.Players[uid] = p
	}
}

// percentOf returns v as a share of total, 0-100 with one decimal, and 0 for an empty total.
func percentOf(v, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(v/total*1000) / 10
}
