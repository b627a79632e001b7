package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/pable/go-match-telemetry/internal/encounters"
	"github.com/pable/go-match-telemetry/internal/model"
)

func sample() model.CurrentMatch {
	start := int64(1_700_000_000_000)
	m := model.NewCurrentMatch()
	m.MatchID = "a1b2c3d4e5f6a7b8"
	m.Map = "Tokyo 2099"
	m.GameMode = "Ranked"
	m.Timestamps.MatchStart = &start
	m.Players["me"] = model.PlayerRecord{UID: "me", Name: "Me", CharacterName: "Thor", Team: 1, IsTeammate: true, IsLocal: true,
		FinalHits: 3, KilledPlayers: map[string]int{"foe": 3}}
	m.Players["mate"] = model.PlayerRecord{UID: "mate", Name: "Mate", CharacterName: "Loki", Team: 1, IsTeammate: true,
		FinalHits: 1, KilledPlayers: map[string]int{"foe": 1}}
	m.Players["foe"] = model.PlayerRecord{UID: "foe", Name: "Foe", CharacterName: "Hulk", Team: 2,
		KilledPlayers: map[string]int{"me": 1, "mate": 1}}
	return m
}

func TestKillPairs(t *testing.T) {
	m := sample()
	want := []KillPair{
		{Attacker: "Me", Victim: "Foe", Kills: 3},
		{Attacker: "Foe", Victim: "Mate", Kills: 1},
		{Attacker: "Foe", Victim: "Me", Kills: 1},
		{Attacker: "Mate", Victim: "Foe", Kills: 1},
	}
	if diff := cmp.Diff(want, KillPairs(&m.MatchSnapshot)); diff != "" {
		t.Errorf("kill pairs (-want +got):\n%s", diff)
	}
}

func TestSortedPlayers_AlliesFirst(t *testing.T) {
	m := sample()
	var got []string
	for _, p := range sortedPlayers(&m.MatchSnapshot) {
		got = append(got, p.UID)
	}
	if diff := cmp.Diff([]string{"me", "mate", "foe"}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestWilsonCI(t *testing.T) {
	if lo, hi := wilsonCI(0, 0); lo != 0 || hi != 0 {
		t.Errorf("empty sample: %v %v", lo, hi)
	}
	lo, hi := wilsonCI(5, 10)
	if lo >= 0.5 || hi <= 0.5 || lo < 0 || hi > 1 {
		t.Errorf("5/10 interval should straddle 0.5: [%v, %v]", lo, hi)
	}
	lo, hi = wilsonCI(10, 10)
	if hi < 0.999 || lo <= 0.6 {
		t.Errorf("10/10 interval: [%v, %v]", lo, hi)
	}
}

func TestStatus(t *testing.T) {
	m := model.NewCurrentMatch()
	if got := Status(&m); got != "NO MATCH" {
		t.Errorf("empty: %s", got)
	}
	m.MatchID = "x"
	if got := Status(&m); got != "WAITING" {
		t.Errorf("identity only: %s", got)
	}
	start, end := int64(1), int64(2)
	m.Timestamps.MatchStart = &start
	if got := Status(&m); got != "LIVE" {
		t.Errorf("started: %s", got)
	}
	m.Timestamps.MatchEnd = &end
	if got := Status(&m); got != "ENDED" {
		t.Errorf("ended: %s", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int64]string{0: "—", 999: "0:00", 61_000: "1:01", 754_000: "12:34"}
	for ms, want := range tests {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestPrintScoreboard(t *testing.T) {
	color.NoColor = true
	m := sample()
	var buf bytes.Buffer
	PrintScoreboard(&buf, &m, false)
	out := buf.String()
	for _, want := range []string{"Tokyo 2099", "[LIVE]", "> Me", "Mate", "Foe", "Hulk"} {
		if !strings.Contains(out, want) {
			t.Errorf("scoreboard missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Mate") > strings.Index(out, "Foe") {
		t.Errorf("allies should be listed before enemies:\n%s", out)
	}
}

func TestPrintTables(t *testing.T) {
	m := sample()
	var buf bytes.Buffer
	PrintMatchSummary(&buf, &m.MatchSnapshot)
	PrintPlayerTable(&buf, &m.MatchSnapshot)
	PrintKillMatrix(&buf, &m.MatchSnapshot)
	PrintEncounterTable(&buf, []encounters.Player{{
		Name: "Foe", AgainstCount: 4, AgainstWins: 1, AgainstLosses: 3,
		OpponentCharacters: map[string]encounters.CharacterRecord{"Hulk": {Count: 4}},
	}})
	out := buf.String()
	for _, want := range []string{"Ranked", "a1b2c3d4e5f6a7b8", "Thor", "3-1", "Hulk (4)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
