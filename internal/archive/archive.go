// Package archive persists finished matches: the match itself, its rounds and
// character sessions go to storage, then the players are folded into the
// encounter book.
package archive

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/encounters"
	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/rating"
	"github.com/pable/go-match-telemetry/internal/tracker"
)

// MatchStore is the part of storage.DB the pipeline writes to.
type MatchStore interface {
	MatchExists(ctx context.Context, matchID string) (bool, error)
	SaveMatch(ctx context.Context, m model.MatchHistoryEntry, sessions []model.CompletedSession) error
}

// Pipeline implements tracker.Sink.
type Pipeline struct {
	matches MatchStore
	book    *encounters.Book
	log     zerolog.Logger
}

var _ tracker.Sink = (*Pipeline)(nil)

// New returns a Pipeline. book may be nil to skip encounter tracking.
func New(matches MatchStore, book *encounters.Book, log zerolog.Logger) *Pipeline {
	return &Pipeline{matches: matches, book: book, log: log}
}

// MatchArchived stores a. A match already in the database is overwritten but
// not folded into encounters a second time.
func (p *Pipeline) MatchArchived(ctx context.Context, a tracker.Archived) error {
	id := a.Match.MatchID
	seen, err := p.matches.MatchExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check match %s: %w", id, err)
	}
	if err := p.matches.SaveMatch(ctx, a.Match, a.Sessions); err != nil {
		return fmt.Errorf("save match %s: %w", id, err)
	}
	p.log.Info().Str("match_id", id).Int("rounds", len(a.Match.Rounds)).
		Int("sessions", len(a.Sessions)).Msg("match stored")

	if p.book == nil {
		return nil
	}
	if seen {
		p.log.Debug().Str("match_id", id).Msg("encounters already recorded")
		return nil
	}
	if err := p.book.Record(ctx, a.Match, a.Sessions, encounterElo(a.Rating)); err != nil {
		return fmt.Errorf("record encounters for %s: %w", id, err)
	}
	return nil
}

func encounterElo(r *tracker.RatingObservation) *encounters.Elo {
	if r == nil {
		return nil
	}
	mode := r.Mode
	if m, ok := rating.NormalizeMode(r.Mode); ok {
		mode = string(m)
	}
	return &encounters.Elo{Mode: mode, Value: r.Elo}
}
