package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-match-telemetry/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// FormatTime renders epoch millis as a UTC timestamp, or a dash when unset.
func FormatTime(ms int64) string {
	if ms <= 0 {
		return "—"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

// FormatDuration renders millis as m:ss.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "—"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, m *model.MatchSnapshot) {
	fmt.Fprintf(w, "\nMap: %s  |  Mode: %s  |  Type: %s  |  Result: %s  |  Start: %s  |  Length: %s  |  ID: %s\n\n",
		orDash(m.Map), orDash(m.GameMode), orDash(m.GameType), m.Outcome,
		FormatTime(deref(m.Timestamps.MatchStart)), FormatDuration(m.DurationMs()), orDash(m.MatchID))
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// sortedPlayers orders the local team first, then by final hits.
func sortedPlayers(m *model.MatchSnapshot) []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(m.Players))
	for _, p := range m.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsTeammate != b.IsTeammate {
			return a.IsTeammate
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.FinalHits != b.FinalHits {
			return a.FinalHits > b.FinalHits
		}
		return a.UID < b.UID
	})
	return out
}

// PrintPlayerTable prints one row per player. The local player is marked with ">".
func PrintPlayerTable(w io.Writer, m *model.MatchSnapshot) {
	table := newTable(w)
	table.Header(" ", "NAME", "HERO", "TEAM", "K", "D", "A", "FH", "K/D", "KDA",
		"DMG", "BLK", "HEAL", "DMG%", "BLK%", "HEAL%", "ULT")

	for _, p := range sortedPlayers(m) {
		marker := " "
		if p.IsLocal {
			marker = ">"
		}
		ult := "—"
		if p.UltCharge != nil {
			ult = fmt.Sprintf("%.0f%%", *p.UltCharge)
		}
		table.Append(
			marker,
			p.Name,
			orDash(p.CharacterName),
			strconv.Itoa(p.Team),
			strconv.Itoa(p.Kills),
			strconv.Itoa(p.Deaths),
			strconv.Itoa(p.Assists),
			strconv.Itoa(p.FinalHits),
			fmt.Sprintf("%.2f", p.KDRatio()),
			fmt.Sprintf("%.2f", p.KDARatio()),
			fmt.Sprintf("%.0f", p.DamageDealt),
			fmt.Sprintf("%.0f", p.DamageBlocked),
			fmt.Sprintf("%.0f", p.TotalHeal),
			fmt.Sprintf("%.1f", p.PctTeamDamage),
			fmt.Sprintf("%.1f", p.PctTeamBlocked),
			fmt.Sprintf("%.1f", p.PctTeamHealing),
			ult,
		)
	}
	table.Render()
}

// PrintTeamTable prints the per-team aggregates.
func PrintTeamTable(w io.Writer, m *model.MatchSnapshot) {
	teams := make([]int, 0, len(m.TeamStats))
	for team := range m.TeamStats {
		teams = append(teams, team)
	}
	sort.Ints(teams)

	table := newTable(w)
	table.Header("TEAM", "FINAL_HITS", "DAMAGE", "BLOCKED", "HEALING")
	for _, team := range teams {
		agg := m.TeamStats[team]
		table.Append(
			strconv.Itoa(team),
			strconv.Itoa(agg.FinalHits),
			fmt.Sprintf("%.0f", agg.TotalDamage),
			fmt.Sprintf("%.0f", agg.TotalBlocked),
			fmt.Sprintf("%.0f", agg.TotalHealing),
		)
	}
	table.Render()
}

// KillPair is one attacker/victim tally from the kill feed.
type KillPair struct {
	Attacker, Victim string
	Kills            int
}

// KillPairs flattens every player's killed-players counts, most kills first.
func KillPairs(m *model.MatchSnapshot) []KillPair {
	name := func(uid string) string {
		if p, ok := m.Players[uid]; ok && p.Name != "" {
			return p.Name
		}
		return uid
	}
	var out []KillPair
	for _, p := range m.Players {
		for victim, n := range p.KilledPlayers {
			if n > 0 {
				out = append(out, KillPair{Attacker: name(p.UID), Victim: name(victim), Kills: n})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kills != out[j].Kills {
			return out[i].Kills > out[j].Kills
		}
		if out[i].Attacker != out[j].Attacker {
			return out[i].Attacker < out[j].Attacker
		}
		return out[i].Victim < out[j].Victim
	})
	return out
}

// PrintKillMatrix prints who eliminated whom and how often.
func PrintKillMatrix(w io.Writer, m *model.MatchSnapshot) {
	pairs := KillPairs(m)
	if len(pairs) == 0 {
		fmt.Fprintln(w, "No kill-feed eliminations recorded.")
		return
	}
	table := newTable(w)
	table.Header("ATTACKER", "VICTIM", "KILLS")
	for _, kp := range pairs {
		table.Append(kp.Attacker, kp.Victim, strconv.Itoa(kp.Kills))
	}
	table.Render()
}

// PrintSwapTable prints every recorded character change.
func PrintSwapTable(w io.Writer, m *model.MatchSnapshot) {
	type row struct {
		name string
		swap model.CharacterSwap
	}
	var rows []row
	for _, p := range m.Players {
		for _, s := range p.CharacterSwaps {
			rows = append(rows, row{p.Name, s})
		}
	}
	if len(rows) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].swap.Timestamp < rows[j].swap.Timestamp })

	start := deref(m.Timestamps.MatchStart)
	table := newTable(w)
	table.Header("AT", "PLAYER", "FROM", "TO")
	for _, r := range rows {
		at := "—"
		if start > 0 && r.swap.Timestamp >= start {
			at = FormatDuration(r.swap.Timestamp - start)
		}
		table.Append(at, r.name, orDash(r.swap.Old), r.swap.New)
	}
	table.Render()
}

// PrintRoundTable prints one player's cumulative stats at each round boundary
// next to both teams' final hits.
func PrintRoundTable(w io.Writer, rounds []model.MatchSnapshot, uid string) {
	table := newTable(w)
	table.Header("ROUND", "HERO", "K", "D", "A", "FH", "K/D", "TEAM_FH", "ENEMY_FH")
	for i := range rounds {
		r := &rounds[i]
		p, ok := r.Players[uid]
		if !ok {
			table.Append(strconv.Itoa(i+1), "—", "—", "—", "—", "—", "—", "—", "—")
			continue
		}
		var own, enemy int
		for team, agg := range r.TeamStats {
			if team == p.Team {
				own += agg.FinalHits
			} else {
				enemy += agg.FinalHits
			}
		}
		table.Append(
			strconv.Itoa(i+1),
			orDash(p.CharacterName),
			strconv.Itoa(p.Kills),
			strconv.Itoa(p.Deaths),
			strconv.Itoa(p.Assists),
			strconv.Itoa(p.FinalHits),
			fmt.Sprintf("%.2f", p.KDRatio()),
			strconv.Itoa(own),
			strconv.Itoa(enemy),
		)
	}
	table.Render()
}

// PrintSessionTable prints completed character sessions. names maps uid to
// display name; unknown uids are printed as is.
func PrintSessionTable(w io.Writer, sessions []model.CompletedSession, names map[string]string) {
	table := newTable(w)
	table.Header("PLAYER", "SIDE", "HERO", "TIME", "K", "D", "A", "STARTED")
	for _, s := range sessions {
		name := names[s.UID]
		if name == "" {
			name = s.UID
		}
		side := "enemy"
		if s.IsAlly {
			side = "ally"
		}
		table.Append(
			name,
			side,
			s.CharacterName,
			FormatDuration(s.TimeSpentMs),
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Deaths),
			strconv.Itoa(s.Assists),
			FormatTime(s.Timestamp),
		)
	}
	table.Render()
}

// PrintMatchList prints stored matches, newest first.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("ID", "MAP", "MODE", "RESULT", "STARTED", "LENGTH", "PLAYERS", "ROUNDS")
	for _, m := range matches {
		table.Append(
			shortID(m.MatchID),
			orDash(m.Map),
			orDash(m.GameMode),
			string(m.Outcome),
			FormatTime(m.MatchStart),
			FormatDuration(m.DurationMs()),
			strconv.Itoa(m.Players),
			strconv.Itoa(m.Rounds),
		)
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// PrintRatingTable prints rating points oldest first with the change from the
// previous point.
func PrintRatingTable(w io.Writer, points []model.RatingPoint) {
	table := newTable(w)
	table.Header("WHEN", "ELO", "CHANGE", "MATCH")
	for i, p := range points {
		change := "—"
		if i > 0 {
			change = fmt.Sprintf("%+.0f", p.Elo-points[i-1].Elo)
		}
		table.Append(FormatTime(p.Timestamp), fmt.Sprintf("%.0f", p.Elo), change, orDash(shortID(p.MatchID)))
	}
	table.Render()
}

// sampleFlag marks win rates drawn from too few games to mean much.
func sampleFlag(n int) string {
	switch {
	case n < 5:
		return " (!)"
	case n < 15:
		return " (~)"
	default:
		return ""
	}
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 0
	}
	const z = 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	centre := (p + z*z/(2*nf)) / denom
	margin := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, centre-margin), math.Min(1, centre+margin)
}

// winRate renders wins out of games with its confidence interval.
func winRate(wins, games int) string {
	if games == 0 {
		return "—"
	}
	lo, hi := wilsonCI(wins, games)
	return fmt.Sprintf("%.0f%% [%.0f-%.0f]%s", 100*float64(wins)/float64(games), lo*100, hi*100, sampleFlag(games))
}

// PrintQueryResult prints raw query output, one table row per result row.
func PrintQueryResult(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
}
