package rating

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/model"
)

type memStore struct {
	tiers map[Mode]Tiers
}

func newMemStore() *memStore { return &memStore{tiers: make(map[Mode]Tiers)} }

func (m *memStore) LoadRatings(_ context.Context, mode Mode) (Tiers, error) {
	t := m.tiers[mode]
	return Tiers{
		Recent:   append([]model.RatingPoint(nil), t.Recent...),
		LongTerm: append([]model.RatingPoint(nil), t.LongTerm...),
	}, nil
}

func (m *memStore) SaveRatings(_ context.Context, mode Mode, t Tiers) error {
	m.tiers[mode] = t
	return nil
}

func (m *memStore) ClearRatings(context.Context) error {
	m.tiers = make(map[Mode]Tiers)
	return nil
}

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		in     string
		want   Mode
		wantOK bool
	}{
		{"Ranked", ModeComp, true},
		{"Competitive", ModeComp, true},
		{"Quick Match", ModeQuick, true},
		{"casual", ModeQuick, true},
		{"Practice Range", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeMode(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeMode(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRecord_SkipsInvalidInput(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, 0, zerolog.Nop())
	ctx := context.Background()

	for _, elo := range []float64{math.NaN(), math.Inf(1)} {
		ok, err := svc.Record(ctx, elo, "Ranked", "m1", 1)
		if err != nil || ok {
			t.Errorf("elo %v: want skipped, got ok=%v err=%v", elo, ok, err)
		}
	}
	ok, err := svc.Record(ctx, 3000, "Tutorial", "m1", 1)
	if err != nil || ok {
		t.Errorf("unrated mode: want skipped, got ok=%v err=%v", ok, err)
	}
	if len(store.tiers) != 0 {
		t.Errorf("skipped points reached the store: %+v", store.tiers)
	}
}

func TestRecord_ModesAreSeparate(t *testing.T) {
	svc := NewService(newMemStore(), 0, zerolog.Nop())
	ctx := context.Background()
	mustRecord(t, svc, 3000, "Ranked", 1)
	mustRecord(t, svc, 2500, "Quick Match", 2)
	mustRecord(t, svc, 3050, "Competitive", 3)

	latest, ok, err := svc.Latest(ctx, ModeComp)
	if err != nil || !ok || latest != 3050 {
		t.Errorf("comp latest: %v %v %v", latest, ok, err)
	}
	quick, err := svc.Recent(ctx, ModeQuick)
	if err != nil || len(quick) != 1 || quick[0].Elo != 2500 {
		t.Errorf("quick recent: %+v %v", quick, err)
	}
}

func TestLatest_EmptyHistory(t *testing.T) {
	svc := NewService(newMemStore(), 0, zerolog.Nop())
	if _, ok, err := svc.Latest(context.Background(), ModeComp); ok || err != nil {
		t.Errorf("want no latest, got ok=%v err=%v", ok, err)
	}
}

func TestRecord_CompressesOverflowByDay(t *testing.T) {
	svc := NewService(newMemStore(), 3, zerolog.Nop())
	ctx := context.Background()
	day := int64(24 * time.Hour / time.Millisecond)

	// two points on day 0, one on day 1, then three on day 5
	mustRecord(t, svc, 1000, "Ranked", 0*day+10)
	mustRecord(t, svc, 1010, "Ranked", 0*day+20)
	mustRecord(t, svc, 1020, "Ranked", 1*day+5)
	mustRecord(t, svc, 1030, "Ranked", 5*day+1)
	mustRecord(t, svc, 1040, "Ranked", 5*day+2)
	mustRecord(t, svc, 1050, "Ranked", 5*day+3)

	recent, err := svc.Recent(ctx, ModeComp)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].Elo != 1030 {
		t.Errorf("recent tier: %+v", recent)
	}

	hist, err := svc.History(ctx, ModeComp)
	if err != nil {
		t.Fatal(err)
	}
	var elos []float64
	for _, p := range hist {
		elos = append(elos, p.Elo)
	}
	want := []float64{1010, 1020, 1030, 1040, 1050}
	if diff := cmp.Diff(want, elos); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
}

func TestCompress_WithinLimitUnchanged(t *testing.T) {
	in := Tiers{Recent: []model.RatingPoint{{Elo: 1, Timestamp: 1}}}
	if diff := cmp.Diff(in, Compress(in, 100)); diff != "" {
		t.Errorf("compress changed a short history:\n%s", diff)
	}
}

func TestCompress_MergesWithExistingLongTerm(t *testing.T) {
	in := Tiers{
		LongTerm: []model.RatingPoint{{Elo: 1, Timestamp: 100}},
		Recent:   []model.RatingPoint{{Elo: 2, Timestamp: 200}, {Elo: 3, Timestamp: 300}},
	}
	got := Compress(in, 1)
	want := Tiers{
		LongTerm: []model.RatingPoint{{Elo: 2, Timestamp: 200}},
		Recent:   []model.RatingPoint{{Elo: 3, Timestamp: 300}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compress (-want +got):\n%s", diff)
	}
}

func TestClear(t *testing.T) {
	svc := NewService(newMemStore(), 0, zerolog.Nop())
	ctx := context.Background()
	mustRecord(t, svc, 3000, "Ranked", 1)
	if err := svc.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	hist, err := svc.History(ctx, ModeComp)
	if err != nil || len(hist) != 0 {
		t.Errorf("history after clear: %+v %v", hist, err)
	}
}

func mustRecord(t *testing.T, svc *Service, elo float64, mode string, ts int64) {
	t.Helper()
	ok, err := svc.Record(context.Background(), elo, mode, "", ts)
	if err != nil || !ok {
		t.Fatalf("record %v: ok=%v err=%v", elo, ok, err)
	}
}
