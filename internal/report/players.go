package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/pable/go-match-telemetry/internal/encounters"
)

// PrintEncounterTable prints encountered players. Win figures are from the
// local player's side: "VS" wins are matches the local player won against them.
func PrintEncounterTable(w io.Writer, players []encounters.Player) {
	table := newTable(w)
	table.Header("NAME", "LAST SEEN", "GAMES", "WITH W-L", "WITH WIN%", "VS W-L", "VS WIN%", "TOP HERO")
	for _, p := range players {
		table.Append(
			p.Name,
			FormatTime(p.LastSeen),
			strconv.Itoa(p.Games()),
			fmt.Sprintf("%d-%d", p.WithWins, p.WithLosses),
			winRate(p.WithWins, p.WithCount),
			fmt.Sprintf("%d-%d", p.AgainstLosses, p.AgainstWins),
			winRate(p.AgainstLosses, p.AgainstCount),
			topCharacter(p),
		)
	}
	table.Render()
}

// topCharacter is the hero the player was seen on most, across both sides.
func topCharacter(p encounters.Player) string {
	counts := make(map[string]int)
	for name, r := range p.AllyCharacters {
		counts[name] += r.Count
	}
	for name, r := range p.OpponentCharacters {
		counts[name] += r.Count
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "—"
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return fmt.Sprintf("%s (%d)", names[0], counts[names[0]])
}

// PrintCharacterHistory prints one encountered player's recent character sessions.
func PrintCharacterHistory(w io.Writer, p encounters.Player) {
	table := newTable(w)
	table.Header("WHEN", "SIDE", "HERO", "TIME", "K", "D", "A", "MATCH")
	for _, h := range p.CharacterHistory {
		side := "enemy"
		if h.IsAlly {
			side = "ally"
		}
		table.Append(
			FormatTime(h.Timestamp),
			side,
			h.CharacterName,
			FormatDuration(h.TimeSpentMs),
			strconv.Itoa(h.Kills),
			strconv.Itoa(h.Deaths),
			strconv.Itoa(h.Assists),
			shortID(h.MatchID),
		)
	}
	table.Render()
}
