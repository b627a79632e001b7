// Package tracker owns the live engine state and carries out the effects the
// engine asks for: logging, rating writes, archiving and the retention clear.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/engine"
	"github.com/pable/go-match-telemetry/internal/feed"
	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/retention"
)

// RatingRecorder receives the local player's ELO once per match.
type RatingRecorder interface {
	Record(ctx context.Context, elo float64, gameMode, matchID string, ts int64) (bool, error)
}

// RatingObservation is the local player's rating seen during a match.
type RatingObservation struct {
	Elo  float64
	Mode string
}

// Archived is a finished match handed to the Sink.
type Archived struct {
	Match    model.MatchHistoryEntry
	Sessions []model.CompletedSession
	Rating   *RatingObservation
}

// Sink persists finished matches.
type Sink interface {
	MatchArchived(ctx context.Context, a Archived) error
}

// Options configures a Tracker. Ratings and Sink may be nil.
type Options struct {
	Engine    engine.Config
	Scheduler retention.Scheduler
	Ratings   RatingRecorder
	Sink      Sink
	Logger    zerolog.Logger
}

// Tracker serializes every transition over one engine.State.
type Tracker struct {
	mu      sync.Mutex
	engine  engine.Engine
	state   engine.State
	sched   retention.Scheduler
	pending retention.Task
	gen     uint64
	ratings RatingRecorder
	sink    Sink
	log     zerolog.Logger
}

// New returns an idle Tracker.
func New(opts Options) *Tracker {
	sched := opts.Scheduler
	if sched == nil {
		sched = retention.TimerScheduler{}
	}
	return &Tracker{
		engine:  engine.New(opts.Engine),
		state:   engine.NewState(),
		sched:   sched,
		ratings: opts.Ratings,
		sink:    opts.Sink,
		log:     opts.Logger,
	}
}

// Ingest normalizes one raw payload received at ts (epoch millis) and applies it.
// The returned error reports collaborator failures; the state update itself
// never fails.
func (t *Tracker) Ingest(ctx context.Context, payload []byte, ts int64) error {
	return t.Apply(ctx, feed.Normalize(payload, ts))
}

// Apply applies an already normalized payload.
func (t *Tracker) Apply(ctx context.Context, b feed.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, effects := t.engine.Batch(t.state, b)
	t.state = next
	return t.run(ctx, effects)
}

// Reset discards the current match immediately.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, effects := t.engine.Reset(t.state)
	t.state = next
	return t.run(ctx, effects)
}

// expire is the retention callback for the clear scheduled as generation gen.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil || t.gen != gen {
		t.log.Debug().Uint64("generation", gen).Msg("stale retention clear ignored")
		return
	}
	t.pending = nil
	next, effects := t.engine.Expire(t.state)
	t.state = next
	if err := t.run(context.Background(), effects); err != nil {
		t.log.Error().Err(err).Msg("retention clear")
	}
}

// run carries out effects in order. It must be called with mu held.
func (t *Tracker) run(ctx context.Context, effects []engine.Effect) error {
	var errs []error
	for _, eff := range effects {
		switch e := eff.(type) {
		case engine.LogEffect:
			ev := t.log.WithLevel(e.Level)
			if len(e.Fields) > 0 {
				ev = ev.Fields(map[string]any(e.Fields))
			}
			ev.Msg(e.Message)

		case engine.RatingEffect:
			if t.ratings == nil {
				continue
			}
			if _, err := t.ratings.Record(ctx, e.Elo, e.Mode, e.MatchID, e.Timestamp); err != nil {
				t.log.Error().Err(err).Str("match_id", e.MatchID).Msg("record elo")
				errs = append(errs, fmt.Errorf("record elo: %w", err))
			}

		case engine.ArchiveEffect:
			a := Archived{Match: e.Match, Sessions: e.Sessions}
			if e.Rating != nil {
				a.Rating = &RatingObservation{Elo: e.Rating.Elo, Mode: e.Rating.Mode}
			}
			if a.Match.MatchID == "" {
				a.Match.MatchID = uuid.NewString()
				t.log.Warn().Str("match_id", a.Match.MatchID).Msg("match ended without an id, assigned one")
			}
			if t.sink == nil {
				continue
			}
			if err := t.sink.MatchArchived(ctx, a); err != nil {
				t.log.Error().Err(err).Str("match_id", a.Match.MatchID).Msg("archive match")
				errs = append(errs, fmt.Errorf("archive match %s: %w", a.Match.MatchID, err))
			}

		case engine.ScheduleClearEffect:
			t.cancelPending()
			t.gen++
			gen := t.gen
			t.pending = t.sched.Schedule(e.Delay, func() { t.expire(gen) })
			t.log.Debug().Str("task", t.pending.ID()).Dur("delay", e.Delay).Msg("retention clear scheduled")

		case engine.CancelClearEffect:
			t.cancelPending()
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) cancelPending() {
	if t.pending == nil {
		return
	}
	t.pending.Cancel()
	t.log.Debug().Str("task", t.pending.ID()).Msg("retention clear cancelled")
	t.pending = nil
}

// Current returns a copy of the current match.
func (t *Tracker) Current() model.CurrentMatch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Current.Clone()
}

// History returns copies of every match finished since the tracker started.
func (t *Tracker) History() []model.MatchHistoryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.MatchHistoryEntry, len(t.state.History))
	for i, m := range t.state.History {
		out[i] = m.Clone()
	}
	return out
}

// CompletedSessions returns the character sessions closed in the current match.
func (t *Tracker) CompletedSessions() []model.CompletedSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.CompletedSession(nil), t.state.CompletedSessions...)
}

// Phase returns the lifecycle phase of the current match.
func (t *Tracker) Phase() engine.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Phase
}
