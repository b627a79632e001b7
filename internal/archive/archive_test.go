package archive

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/encounters"
	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/storage"
	"github.com/pable/go-match-telemetry/internal/tracker"
)

func openMemDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func finished(id string) model.MatchHistoryEntry {
	start, end := int64(1000), int64(61000)
	m := model.NewCurrentMatch()
	m.MatchID = id
	m.Map = "Tokyo 2099"
	m.GameMode = "Ranked"
	m.Outcome = model.OutcomeVictory
	m.Timestamps = model.Timestamps{MatchStart: &start, MatchEnd: &end}
	m.Players["me"] = model.PlayerRecord{
		UID: "me", Name: "Me", CharacterName: "Thor", Team: 1, IsTeammate: true, IsLocal: true,
		KilledPlayers: map[string]int{}, KilledBy: map[string]int{},
	}
	m.Players["foe"] = model.PlayerRecord{
		UID: "foe", Name: "Foe", CharacterName: "Hulk", Team: 2,
		KilledPlayers: map[string]int{}, KilledBy: map[string]int{},
	}
	m.TeamStats = map[int]model.TeamAggregate{1: {}, 2: {}}
	return m
}

func TestPipeline_StoresMatchAndEncounters(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	p := New(db, encounters.NewBook(db, zerolog.Nop()), zerolog.Nop())

	a := tracker.Archived{
		Match:    finished("m-1"),
		Sessions: []model.CompletedSession{{UID: "foe", CharacterName: "Hulk", TimeSpentMs: 60000, Timestamp: 1000}},
		Rating:   &tracker.RatingObservation{Elo: 3100, Mode: "Ranked"},
	}
	if err := p.MatchArchived(ctx, a); err != nil {
		t.Fatalf("MatchArchived: %v", err)
	}

	if ok, err := db.MatchExists(ctx, "m-1"); err != nil || !ok {
		t.Fatalf("match not stored: ok=%v err=%v", ok, err)
	}
	sessions, err := db.GetSessions(ctx, "m-1")
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions: %v %v", sessions, err)
	}

	got, err := db.LoadEncounters(ctx, []string{"me", "foe"})
	if err != nil {
		t.Fatal(err)
	}
	if foe := got["foe"]; foe.AgainstCount != 1 || foe.AgainstWins != 0 || len(foe.CharacterHistory) != 1 {
		t.Errorf("opponent record: %+v", foe)
	}
	if me := got["me"]; me.EloByMode["comp"] != 3100 {
		t.Errorf("local elo: %+v", me.EloByMode)
	}
}

func TestPipeline_ReArchiveDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	p := New(db, encounters.NewBook(db, zerolog.Nop()), zerolog.Nop())

	a := tracker.Archived{Match: finished("m-1")}
	for i := 0; i < 2; i++ {
		if err := p.MatchArchived(ctx, a); err != nil {
			t.Fatalf("MatchArchived #%d: %v", i, err)
		}
	}
	got, err := db.LoadEncounters(ctx, []string{"foe"})
	if err != nil {
		t.Fatal(err)
	}
	if n := got["foe"].AgainstCount; n != 1 {
		t.Errorf("against count: want 1, got %d", n)
	}
}

func TestPipeline_WithoutBook(t *testing.T) {
	db := openMemDB(t)
	p := New(db, nil, zerolog.Nop())
	if err := p.MatchArchived(context.Background(), tracker.Archived{Match: finished("m-2")}); err != nil {
		t.Fatal(err)
	}
	enc, err := db.ListEncounters(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 0 {
		t.Errorf("want no encounters, got %d", len(enc))
	}
}
