package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseOutcome(t *testing.T) {
	cases := map[string]Outcome{
		"Victory": OutcomeVictory,
		"win":     OutcomeVictory,
		"Defeat":  OutcomeDefeat,
		"lose":    OutcomeDefeat,
		"tie":     OutcomeDraw,
		"":        OutcomeUnknown,
		"VICTORY": OutcomeUnknown,
	}
	for in, want := range cases {
		if got := ParseOutcome(in); got != want {
			t.Errorf("ParseOutcome(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCurrentMatch_CloneIsIndependent(t *testing.T) {
	start := int64(1000)
	ult := 40.0
	m := NewCurrentMatch()
	m.MatchID = "m-1"
	m.Timestamps.MatchStart = &start
	m.Players["a"] = PlayerRecord{
		UID:            "a",
		UltCharge:      &ult,
		KilledPlayers:  map[string]int{"b": 1},
		KilledBy:       map[string]int{},
		CharacterSwaps: []CharacterSwap{{Old: "", New: "Thor", Timestamp: 1000}},
	}
	m.Rounds = []MatchSnapshot{m.MatchSnapshot.Clone()}

	c := m.Clone()
	if diff := cmp.Diff(m, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	*c.Timestamps.MatchStart = 9
	*c.Players["a"].UltCharge = 99
	c.Players["a"].KilledPlayers["b"] = 5
	c.Rounds[0].MatchID = "other"

	if *m.Timestamps.MatchStart != 1000 || *m.Players["a"].UltCharge != 40 ||
		m.Players["a"].KilledPlayers["b"] != 1 || m.Rounds[0].MatchID != "m-1" {
		t.Error("mutating the clone changed the original")
	}
}

func TestStatusHelpers(t *testing.T) {
	m := NewCurrentMatch()
	if IsLive(&m) || HasAnyData(&m) {
		t.Fatal("empty match reported live or populated")
	}
	start, end := int64(1), int64(2)
	m.Timestamps.MatchStart = &start
	if !IsLive(&m) {
		t.Error("started match should be live")
	}
	m.Timestamps.MatchEnd = &end
	if IsLive(&m) {
		t.Error("ended match should not be live")
	}
	m.MatchID = "m-1"
	if !HasAnyData(&m) {
		t.Error("match with an id has data")
	}
}

func TestRatios(t *testing.T) {
	p := PlayerRecord{Kills: 6, Deaths: 0, Assists: 2}
	if p.KDRatio() != 6 || p.KDARatio() != 8 {
		t.Errorf("no deaths: kd=%v kda=%v", p.KDRatio(), p.KDARatio())
	}
	p.Deaths = 4
	if p.KDRatio() != 1.5 || p.KDARatio() != 2 {
		t.Errorf("kd=%v kda=%v", p.KDRatio(), p.KDARatio())
	}
}
