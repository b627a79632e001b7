// Package rating keeps the local player's ELO history per game mode.
//
// The newest points live in a bounded recent tier. Points that fall out of it
// are folded into a long-term tier that keeps only the last point of each UTC
// calendar day.
package rating

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/model"
)

// Mode is a normalized rating ladder.
type Mode string

const (
	ModeComp  Mode = "comp"
	ModeQuick Mode = "quick"
)

// Modes lists every ladder in display order.
var Modes = []Mode{ModeComp, ModeQuick}

// DefaultMaxRecent is the size of the recent tier.
const DefaultMaxRecent = 100

// NormalizeMode maps a feed game mode or game type onto a ladder.
func NormalizeMode(gameMode string) (Mode, bool) {
	lower := strings.ToLower(gameMode)
	switch {
	case strings.Contains(lower, "rank"), strings.Contains(lower, "comp"):
		return ModeComp, true
	case strings.Contains(lower, "quick"), strings.Contains(lower, "casual"):
		return ModeQuick, true
	default:
		return "", false
	}
}

// ParseMode accepts a ladder name as typed on the command line.
func ParseMode(s string) (Mode, error) {
	if m, ok := NormalizeMode(s); ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown rating mode %q (want comp or quick)", s)
}

// Tiers is the stored history of one ladder.
type Tiers struct {
	Recent   []model.RatingPoint
	LongTerm []model.RatingPoint
}

// Store persists rating tiers.
type Store interface {
	LoadRatings(ctx context.Context, mode Mode) (Tiers, error)
	SaveRatings(ctx context.Context, mode Mode, t Tiers) error
	ClearRatings(ctx context.Context) error
}

// Service records and queries ELO history.
type Service struct {
	store     Store
	maxRecent int
	log       zerolog.Logger
}

// NewService returns a Service. maxRecent <= 0 means DefaultMaxRecent.
func NewService(store Store, maxRecent int, log zerolog.Logger) *Service {
	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecent
	}
	return &Service{store: store, maxRecent: maxRecent, log: log}
}

// Record appends one observation. It reports false when the point was skipped
// because the ELO is not a finite number or the mode is not a rated ladder.
func (s *Service) Record(ctx context.Context, elo float64, gameMode, matchID string, ts int64) (bool, error) {
	if math.IsNaN(elo) || math.IsInf(elo, 0) {
		s.log.Info().Float64("elo", elo).Str("game_mode", gameMode).Msg("invalid elo skipped")
		return false, nil
	}
	mode, ok := NormalizeMode(gameMode)
	if !ok {
		s.log.Info().Str("game_mode", gameMode).Msg("unrated game mode skipped")
		return false, nil
	}

	t, err := s.store.LoadRatings(ctx, mode)
	if err != nil {
		return false, fmt.Errorf("load %s ratings: %w", mode, err)
	}
	t.Recent = append(t.Recent, model.RatingPoint{Elo: elo, Timestamp: ts, MatchID: matchID})
	before := len(t.Recent)
	t = Compress(t, s.maxRecent)
	if moved := before - len(t.Recent); moved > 0 {
		s.log.Info().Int("moved", moved).Int("long_term", len(t.LongTerm)).Str("mode", string(mode)).
			Msg("elo history compressed")
	}
	if err := s.store.SaveRatings(ctx, mode, t); err != nil {
		return false, fmt.Errorf("save %s ratings: %w", mode, err)
	}
	s.log.Info().Float64("elo", elo).Str("mode", string(mode)).Str("match_id", matchID).
		Int("recent", len(t.Recent)).Int("long_term", len(t.LongTerm)).Msg("elo recorded")
	return true, nil
}

// History returns long-term and recent points merged in time order.
func (s *Service) History(ctx context.Context, mode Mode) ([]model.RatingPoint, error) {
	t, err := s.store.LoadRatings(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("load %s ratings: %w", mode, err)
	}
	out := make([]model.RatingPoint, 0, len(t.LongTerm)+len(t.Recent))
	out = append(out, t.LongTerm...)
	out = append(out, t.Recent...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Recent returns only the recent tier.
func (s *Service) Recent(ctx context.Context, mode Mode) ([]model.RatingPoint, error) {
	t, err := s.store.LoadRatings(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("load %s ratings: %w", mode, err)
	}
	return t.Recent, nil
}

// Latest returns the newest recent point's ELO.
func (s *Service) Latest(ctx context.Context, mode Mode) (float64, bool, error) {
	recent, err := s.Recent(ctx, mode)
	if err != nil || len(recent) == 0 {
		return 0, false, err
	}
	return recent[len(recent)-1].Elo, true, nil
}

// Clear removes every stored point.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.ClearRatings(ctx); err != nil {
		return fmt.Errorf("clear ratings: %w", err)
	}
	s.log.Info().Msg("elo history cleared")
	return nil
}

// Compress moves the oldest recent points beyond maxRecent into the long-term
// tier, keeping the latest point of each UTC day.
func Compress(t Tiers, maxRecent int) Tiers {
	if len(t.Recent) <= maxRecent {
		return t
	}
	cut := len(t.Recent) - maxRecent
	overflow := t.Recent[:cut]

	byDay := make(map[int64]model.RatingPoint)
	keep := func(p model.RatingPoint) {
		day := startOfDay(p.Timestamp)
		if cur, ok := byDay[day]; !ok || p.Timestamp > cur.Timestamp {
			byDay[day] = p
		}
	}
	for _, p := range t.LongTerm {
		keep(p)
	}
	for _, p := range overflow {
		keep(p)
	}

	long := make([]model.RatingPoint, 0, len(byDay))
	for _, p := range byDay {
		long = append(long, p)
	}
	sort.Slice(long, func(i, j int) bool { return long[i].Timestamp < long[j].Timestamp })

	return Tiers{
		Recent:   append([]model.RatingPoint(nil), t.Recent[cut:]...),
		LongTerm: long,
	}
}

func startOfDay(ms int64) int64 {
	return time.UnixMilli(ms).UTC().Truncate(24 * time.Hour).UnixMilli()
}
