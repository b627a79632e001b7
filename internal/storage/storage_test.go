package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pable/go-match-telemetry/internal/encounters"
	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/rating"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func sampleMatch(id string, start int64, outcome model.Outcome) model.MatchHistoryEntry {
	m := model.NewCurrentMatch()
	m.MatchID = id
	m.Map = "Tokyo 2099"
	m.GameMode = "Ranked"
	m.GameType = "Competitive"
	m.Outcome = outcome
	m.Timestamps = model.Timestamps{MatchStart: i64(start), MatchEnd: i64(start + 600000)}
	m.Players["a"] = model.PlayerRecord{
		UID: "a", Name: "Alice", CharacterName: "Thor", CharacterID: "1011", Team: 1,
		IsTeammate: true, IsLocal: true, IsAlive: true,
		Kills: 12, Deaths: 4, Assists: 7, FinalHits: 9,
		DamageDealt: 15000, DamageBlocked: 3000, TotalHeal: 0,
		PctTeamDamage: 100, PctTeamBlocked: 100,
		UltCharge:      f64(42),
		KilledPlayers:  map[string]int{"b": 9},
		KilledBy:       map[string]int{"b": 4},
		CharacterSwaps: []model.CharacterSwap{{Old: "Hulk", New: "Thor", Timestamp: start + 1000}},
		LastUpdated:    i64(start + 599000),
	}
	m.Players["b"] = model.PlayerRecord{
		UID: "b", Name: "Bob", CharacterName: "Hela", Team: 2,
		Kills: 4, Deaths: 12, FinalHits: 4,
		KilledPlayers: map[string]int{"a": 4},
		KilledBy:      map[string]int{"a": 9},
	}
	m.TeamStats = map[int]model.TeamAggregate{
		1: {FinalHits: 9, TotalDamage: 15000, TotalBlocked: 3000},
		2: {FinalHits: 4},
	}
	round := m.MatchSnapshot.Clone()
	round.Timestamps.MatchEnd = nil
	round.Players["a"] = model.PlayerRecord{
		UID: "a", Name: "Alice", CharacterName: "Hulk", Team: 1, Kills: 3,
		KilledPlayers: map[string]int{}, KilledBy: map[string]int{},
	}
	round.Players["b"] = model.PlayerRecord{
		UID: "b", Name: "Bob", CharacterName: "Hela", Team: 2, Deaths: 3,
		KilledPlayers: map[string]int{}, KilledBy: map[string]int{},
	}
	round.TeamStats = map[int]model.TeamAggregate{1: {}, 2: {}}
	m.Rounds = []model.MatchSnapshot{round}
	return m
}

func TestSaveAndLoadMatch(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	m := sampleMatch("match-1", 1700000000000, model.OutcomeVictory)
	sessions := []model.CompletedSession{
		{UID: "a", CharacterName: "Hulk", TimeSpentMs: 1000 * 60, Kills: 3, Timestamp: 1700000000000, IsAlly: true},
	}

	if err := db.SaveMatch(ctx, m, sessions); err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	got, err := db.LoadMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("LoadMatch: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("match round trip (-want +got):\n%s", diff)
	}

	gotSessions, err := db.GetSessions(ctx, "match-1")
	if err != nil {
		t.Fatalf("GetSessions: %v", err)
	}
	if diff := cmp.Diff(sessions, gotSessions); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}
}

func TestSaveMatchIdempotent(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	m := sampleMatch("idem", 1, model.OutcomeDefeat)
	sessions := []model.CompletedSession{{UID: "a", CharacterName: "Thor", TimeSpentMs: 5000, Timestamp: 1}}
	for i := 0; i < 2; i++ {
		if err := db.SaveMatch(ctx, m, sessions); err != nil {
			t.Fatalf("SaveMatch #%d: %v", i+1, err)
		}
	}
	got, err := db.GetSessions(ctx, "idem")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 session after re-save, got %d", len(got))
	}
}

func TestSaveMatchRequiresID(t *testing.T) {
	db := openMemDB(t)
	if err := db.SaveMatch(context.Background(), model.NewCurrentMatch(), nil); err == nil {
		t.Error("expected an error for an empty match id")
	}
}

func TestListMatches(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	for _, m := range []model.MatchHistoryEntry{
		sampleMatch("old", 1000, model.OutcomeDefeat),
		sampleMatch("new", 2000, model.OutcomeVictory),
	} {
		if err := db.SaveMatch(ctx, m, nil); err != nil {
			t.Fatalf("SaveMatch: %v", err)
		}
	}

	list, err := db.ListMatches(ctx)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(list))
	}
	if list[0].MatchID != "new" {
		t.Errorf("expected newest first, got %s", list[0].MatchID)
	}
	if list[0].Players != 2 || list[0].Rounds != 1 || list[0].DurationMs() != 600000 {
		t.Errorf("summary mismatch: %+v", list[0])
	}
}

func TestGetMatchByPrefix(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	db.SaveMatch(ctx, sampleMatch("deadbeef-1234", 1, model.OutcomeVictory), nil)

	s, err := db.GetMatchByPrefix(ctx, "deadb")
	if err != nil {
		t.Fatalf("GetMatchByPrefix: %v", err)
	}
	if s.MatchID != "deadbeef-1234" {
		t.Errorf("unexpected id %s", s.MatchID)
	}

	_, err = db.GetMatchByPrefix(ctx, "ffff")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown prefix, got %v", err)
	}
	_, err = db.GetMatchByPrefix(ctx, "%")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LIKE wildcards must be literal, got %v", err)
	}
	if _, err := db.LoadMatch(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadMatch unknown id: %v", err)
	}
}

func TestDeleteMatch(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	db.SaveMatch(ctx, sampleMatch("gone", 1, model.OutcomeVictory), []model.CompletedSession{{UID: "a", CharacterName: "Thor", TimeSpentMs: 2000}})
	if err := db.DeleteMatch(ctx, "gone"); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	exists, err := db.MatchExists(ctx, "gone")
	if err != nil || exists {
		t.Errorf("match still exists: %v %v", exists, err)
	}
	_, rows, err := db.QueryRaw(ctx, "SELECT * FROM match_players")
	if err != nil || len(rows) != 0 {
		t.Errorf("orphaned player rows: %d %v", len(rows), err)
	}
}

func TestRatingsRoundTrip(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	want := rating.Tiers{
		Recent:   []model.RatingPoint{{Elo: 3000, Timestamp: 10, MatchID: "m1"}, {Elo: 3050, Timestamp: 20}},
		LongTerm: []model.RatingPoint{{Elo: 2900, Timestamp: 1}},
	}
	if err := db.SaveRatings(ctx, rating.ModeComp, want); err != nil {
		t.Fatalf("SaveRatings: %v", err)
	}
	got, err := db.LoadRatings(ctx, rating.ModeComp)
	if err != nil {
		t.Fatalf("LoadRatings: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ratings (-want +got):\n%s", diff)
	}

	quick, err := db.LoadRatings(ctx, rating.ModeQuick)
	if err != nil || len(quick.Recent)+len(quick.LongTerm) != 0 {
		t.Errorf("quick ladder should be empty: %+v %v", quick, err)
	}

	if err := db.ClearRatings(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadRatings(ctx, rating.ModeComp)
	if len(got.Recent) != 0 {
		t.Errorf("ratings survived clear: %+v", got)
	}
}

func TestEncountersRoundTrip(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	players := []encounters.Player{
		{
			UID: "f", Name: "Foe", LastSeen: 50, AgainstCount: 2, AgainstWins: 1, AgainstLosses: 1,
			AllyCharacters:     map[string]encounters.CharacterRecord{},
			OpponentCharacters: map[string]encounters.CharacterRecord{"Hulk": {Count: 2, Wins: 1, Losses: 1}},
			CharacterHistory:   []encounters.HistoryEntry{{MatchID: "m", CharacterName: "Hulk", TimeSpentMs: 3000, Timestamp: 40}},
		},
		{
			UID: "me", Name: "Me", LastSeen: 60, IsLocal: true,
			AllyCharacters:     map[string]encounters.CharacterRecord{},
			OpponentCharacters: map[string]encounters.CharacterRecord{},
			EloByMode:          map[string]float64{"Ranked": 3100},
		},
	}
	if err := db.SaveEncounters(ctx, players); err != nil {
		t.Fatalf("SaveEncounters: %v", err)
	}

	got, err := db.LoadEncounters(ctx, []string{"f", "me", "unknown"})
	if err != nil {
		t.Fatalf("LoadEncounters: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if diff := cmp.Diff(players[0], got["f"]); diff != "" {
		t.Errorf("encounter (-want +got):\n%s", diff)
	}
	if got["me"].EloByMode["Ranked"] != 3100 {
		t.Errorf("local elo lost: %+v", got["me"])
	}

	list, err := db.ListEncounters(ctx, 10)
	if err != nil {
		t.Fatalf("ListEncounters: %v", err)
	}
	if len(list) != 1 || list[0].UID != "f" {
		t.Errorf("list should hold only non-local players: %+v", list)
	}
}

func TestOverviewAndQueryRaw(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	ov, err := db.GetDBOverview(ctx)
	if err != nil {
		t.Fatalf("GetDBOverview on empty db: %v", err)
	}
	if ov.TotalMatches != 0 {
		t.Errorf("empty db overview: %+v", ov)
	}

	db.SaveMatch(ctx, sampleMatch("m1", 1000, model.OutcomeVictory), nil)
	db.SaveMatch(ctx, sampleMatch("m2", 2000, model.OutcomeDefeat), nil)

	ov, err = db.GetDBOverview(ctx)
	if err != nil {
		t.Fatalf("GetDBOverview: %v", err)
	}
	want := DBOverview{TotalMatches: 2, EarliestMatch: 1000, LatestMatch: 2000, UniqueMaps: 1, UniquePlayers: 2, TotalRounds: 2}
	if diff := cmp.Diff(want, ov); diff != "" {
		t.Errorf("overview (-want +got):\n%s", diff)
	}

	maps, err := db.GetMapStats(ctx)
	if err != nil {
		t.Fatalf("GetMapStats: %v", err)
	}
	if len(maps) != 1 || maps[0].Wins != 1 || maps[0].Losses != 1 {
		t.Errorf("map stats: %+v", maps)
	}

	cols, rows, err := db.QueryRaw(ctx, "SELECT match_id, outcome FROM matches ORDER BY match_id")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if diff := cmp.Diff([]string{"match_id", "outcome"}, cols); diff != "" {
		t.Errorf("columns: %s", diff)
	}
	if diff := cmp.Diff([][]string{{"m1", "Victory"}, {"m2", "Defeat"}}, rows); diff != "" {
		t.Errorf("rows: %s", diff)
	}
}
