package engine

import "github.com/pable/go-match-telemetry/internal/model"

// BuildSnapshot deep-copies m and computes team aggregates and percentages on
// the copy. m itself is left untouched.
func BuildSnapshot(m model.MatchSnapshot) model.MatchSnapshot {
	snap := m.Clone()
	ApplyTeamStats(&snap)
	return snap
}
