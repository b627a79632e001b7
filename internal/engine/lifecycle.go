package engine

import (
	"github.com/pable/go-match-telemetry/internal/feed"
	"github.com/pable/go-match-telemetry/internal/model"
)

// Event applies one discrete game event. now is the payload receive time and
// is used when the event carries no timestamp of its own.
func (e Engine) Event(s State, ev feed.Event, now int64) (State, []Effect) {
	t := e.begin(s)
	at := ev.Timestamp
	if at == 0 {
		at = now
	}
	switch ev.Name {
	case feed.EventKillFeed:
		t.applyKill(ev, at)
	case feed.EventMatchStart:
		t.matchStart(at)
	case feed.EventRoundStart:
		t.roundStart(at)
	case feed.EventRoundEnd:
		t.emit(debug("round end", Fields{"rounds": len(t.s.Current.Rounds), "timestamp": at}))
	case feed.EventMatchEnd:
		t.matchEnd(at)
	default:
		t.emit(debug("unrecognised event", Fields{"event": ev.Name, "data": ev.Data}))
	}
	return t.done()
}

// Reset discards the current match immediately. History and the completed
// session log are kept.
func (e Engine) Reset(s State) (State, []Effect) {
	t := e.begin(s)
	t.clearCurrent()
	t.emit(CancelClearEffect{})
	t.emit(info("current match reset", nil))
	return t.done()
}

// Expire is the retention clear. It only acts on an ended match, so a clear
// that fires after a new match started is a no-op.
func (e Engine) Expire(s State) (State, []Effect) {
	if s.Phase != PhaseEnded {
		return s, []Effect{debug("retention clear skipped", Fields{"phase": s.Phase.String()})}
	}
	t := e.begin(s)
	t.clearCurrent()
	t.emit(info("retention clear", nil))
	return t.done()
}

func (t *step) clearCurrent() {
	t.s.Current = model.NewCurrentMatch()
	t.s.OpenSessions = make(map[string]model.CharacterSession)
	t.s.recentKills = nil
	t.s.matchElo = nil
	t.s.Phase = PhaseIdle
}

func (t *step) matchStart(now int64) {
	prev := t.s.Current
	// identity can arrive slightly before the start event
	next := model.NewCurrentMatch()
	next.MatchID = prev.MatchID
	next.Map = prev.Map
	next.GameType = prev.GameType
	next.GameMode = prev.GameMode
	start := now
	next.Timestamps.MatchStart = &start
	t.s.Current = next

	t.s.OpenSessions = make(map[string]model.CharacterSession)
	t.s.CompletedSessions = nil
	t.s.recentKills = nil
	t.s.matchElo = nil
	t.s.Phase = PhaseLive

	t.emit(CancelClearEffect{})
	t.emit(info("match start", Fields{
		"match_id": next.MatchID, "map": next.Map,
		"game_mode": next.GameMode, "game_type": next.GameType, "timestamp": now,
	}))
}

func (t *step) roundStart(now int64) {
	m := &t.s.Current
	if m.Timestamps.MatchStart == nil {
		// a round starting is proof the match is live
		start := now
		m.Timestamps.MatchStart = &start
		m.Timestamps.MatchEnd = nil
		t.s.Phase = PhaseLive
		t.emit(info("match start inferred from round start", Fields{"timestamp": now}))
	}
	if hasActivity(m.Players) {
		t.captureRound()
	}
	t.emit(info("round start", Fields{"match_id": m.MatchID, "rounds": len(m.Rounds), "timestamp": now}))
}

func (t *step) matchEnd(now int64) {
	m := &t.s.Current
	switch {
	case t.s.Phase == PhaseEnded:
		t.emit(warn("duplicate match end ignored", Fields{"match_id": m.MatchID}))
		return
	case t.s.Phase == PhaseIdle && m.Timestamps.MatchStart == nil && !model.HasAnyData(m):
		t.emit(warn("match end without a match ignored", nil))
		return
	}

	if hasActivity(m.Players) {
		t.captureRound()
	}
	end := now
	m.Timestamps.MatchEnd = &end
	t.closeAllSessions(now)
	ApplyTeamStats(&m.MatchSnapshot)

	entry := m.Clone()
	t.s.History = append(t.s.History, entry)
	t.s.Phase = PhaseEnded

	var rating *RatingEffect
	if t.s.matchElo != nil {
		r := *t.s.matchElo
		rating = &r
	}
	t.emit(ArchiveEffect{
		Match:    entry.Clone(),
		Sessions: append([]model.CompletedSession(nil), t.s.CompletedSessions...),
		Rating:   rating,
	})
	t.emit(ScheduleClearEffect{Delay: t.cfg.RetentionDelay})
	t.emit(info("match end", Fields{
		"match_id": m.MatchID, "map": m.Map, "game_mode": m.GameMode, "game_type": m.GameType,
		"outcome": string(m.Outcome), "duration_ms": m.DurationMs(), "rounds": len(m.Rounds),
		"players": len(m.Players), "timestamp": now,
	}))
}

// captureRound appends a round snapshot. A failure while building it is
// logged and never aborts the boundary event.
func (t *step) captureRound() {
	defer func() {
		if r := recover(); r != nil {
			t.emit(fail("round snapshot failed", Fields{"panic": r}))
		}
	}()
	snap := BuildSnapshot(t.s.Current.MatchSnapshot)
	t.s.Current.Rounds = append(t.s.Current.Rounds, snap)
	t.emit(info("round snapshot", Fields{
		"match_id": snap.MatchID, "round": len(t.s.Current.Rounds), "players": len(snap.Players),
	}))
}

func hasActivity(players map[string]model.PlayerRecord) bool {
	for _, p := range players {
		if p.HasActivity() {
			return true
		}
	}
	return false
}
