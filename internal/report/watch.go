package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pable/go-match-telemetry/internal/model"
)

var (
	cAlly   = color.New(color.FgGreen)
	cEnemy  = color.New(color.FgRed)
	cLocal  = color.New(color.FgGreen, color.Bold)
	cTitle  = color.New(color.FgCyan, color.Bold)
	cStatus = color.New(color.FgYellow)
	cMuted  = color.New(color.Faint)
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// Status names where the match is in its lifecycle.
func Status(m *model.CurrentMatch) string {
	switch {
	case model.IsLive(m):
		return "LIVE"
	case m.Timestamps.MatchEnd != nil:
		return "ENDED"
	case model.HasAnyData(m):
		return "WAITING"
	default:
		return "NO MATCH"
	}
}

// PrintScoreboard draws the live view: a status line then allies and enemies,
// coloured by side. When redraw is set the terminal is cleared first.
func PrintScoreboard(w io.Writer, m *model.CurrentMatch, redraw bool) {
	if redraw {
		fmt.Fprint(w, clearScreen)
	}
	cTitle.Fprintf(w, "%s  ", orDash(m.Map))
	cStatus.Fprintf(w, "[%s]", Status(m))
	cMuted.Fprintf(w, "  %s  rounds:%d  id:%s\n\n", orDash(m.GameMode), len(m.Rounds), orDash(shortID(m.MatchID)))
	if len(m.Players) == 0 {
		cMuted.Fprintln(w, "waiting for roster…")
		return
	}

	header := fmt.Sprintf("  %-20s %-16s %4s %4s %4s %4s %7s %6s", "NAME", "HERO", "K", "D", "A", "FH", "DMG", "ULT")
	cMuted.Fprintln(w, header)
	cMuted.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	prevAlly := false
	for i, p := range sortedPlayers(&m.MatchSnapshot) {
		if i > 0 && prevAlly && !p.IsTeammate {
			fmt.Fprintln(w)
		}
		prevAlly = p.IsTeammate
		c := cEnemy
		switch {
		case p.IsLocal:
			c = cLocal
		case p.IsTeammate:
			c = cAlly
		}
		ult := "—"
		if p.UltCharge != nil {
			ult = fmt.Sprintf("%.0f%%", *p.UltCharge)
		}
		name := truncate(p.Name, 20)
		if p.IsLocal {
			name = truncate("> "+p.Name, 20)
		}
		c.Fprintf(w, "  %-20s %-16s %4d %4d %4d %4d %7.0f %6s\n",
			name, truncate(orDash(p.CharacterName), 16), p.Kills, p.Deaths, p.Assists, p.FinalHits, p.DamageDealt, ult)
	}
	if m.Outcome != model.OutcomeUnknown && m.Outcome != "" {
		fmt.Fprintln(w)
		cTitle.Fprintf(w, "  %s\n", m.Outcome)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
