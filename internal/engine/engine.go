// Package engine is the match telemetry aggregation core. Every transition is
// a pure function from (State, input) to (State, []Effect): the input state is
// never mutated, and logging or rating writes are returned as effects for the
// caller to apply.
package engine

import (
	"time"

	"github.com/pable/go-match-telemetry/internal/feed"
	"github.com/pable/go-match-telemetry/internal/model"
)

// Phase is the lifecycle position of the current match.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLive:
		return "live"
	case PhaseEnded:
		return "ended"
	default:
		return "?"
	}
}

// Config holds the engine's tunables.
type Config struct {
	KillDedupWindow time.Duration
	RecentKillCap   int
	SessionFloor    time.Duration
	RetentionDelay  time.Duration
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		KillDedupWindow: 100 * time.Millisecond,
		RecentKillCap:   10,
		SessionFloor:    time.Second,
		RetentionDelay:  30 * time.Second,
	}
}

type recentKill struct {
	attacker, victim string
	timestamp        int64
}

// State is the whole engine model. Callers treat it as a value: transitions
// return a new State and leave the old one untouched.
type State struct {
	Phase             Phase
	Current           model.CurrentMatch
	History           []model.MatchHistoryEntry
	OpenSessions      map[string]model.CharacterSession
	CompletedSessions []model.CompletedSession

	recentKills []recentKill
	// matchElo is the rating observed for the current match, nil until one is.
	matchElo *RatingEffect
}

// NewState returns an idle engine state.
func NewState() State {
	return State{
		Phase:        PhaseIdle,
		Current:      model.NewCurrentMatch(),
		OpenSessions: make(map[string]model.CharacterSession),
	}
}

// clone copies everything a transition may mutate. Archived history entries,
// captured rounds and completed sessions are immutable once appended, so they
// are shared behind capacity-capped slices.
func (s State) clone() State {
	out := s
	out.Current = model.CurrentMatch{
		MatchSnapshot: s.Current.MatchSnapshot.Clone(),
		Rounds:        s.Current.Rounds[:len(s.Current.Rounds):len(s.Current.Rounds)],
	}
	out.History = s.History[:len(s.History):len(s.History)]
	out.CompletedSessions = s.CompletedSessions[:len(s.CompletedSessions):len(s.CompletedSessions)]
	out.OpenSessions = make(map[string]model.CharacterSession, len(s.OpenSessions))
	for uid, sess := range s.OpenSessions {
		out.OpenSessions[uid] = sess
	}
	out.recentKills = append([]recentKill(nil), s.recentKills...)
	return out
}

// Engine applies telemetry to a State.
type Engine struct {
	cfg Config
}

// New returns an Engine. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config) Engine {
	def := DefaultConfig()
	if cfg.KillDedupWindow <= 0 {
		cfg.KillDedupWindow = def.KillDedupWindow
	}
	if cfg.RecentKillCap <= 0 {
		cfg.RecentKillCap = def.RecentKillCap
	}
	if cfg.SessionFloor <= 0 {
		cfg.SessionFloor = def.SessionFloor
	}
	if cfg.RetentionDelay <= 0 {
		cfg.RetentionDelay = def.RetentionDelay
	}
	return Engine{cfg: cfg}
}

// Config returns the engine's effective configuration.
func (e Engine) Config() Config { return e.cfg }

// step is one in-flight transition over a private copy of the state.
type step struct {
	cfg     Config
	s       State
	effects []Effect
}

func (e Engine) begin(s State) *step {
	return &step{cfg: e.cfg, s: s.clone()}
}

func (t *step) done() (State, []Effect) {
	return t.s, t.effects
}

func (t *step) emit(eff Effect) {
	t.effects = append(t.effects, eff)
}

// Info applies one normalized info update received at now.
func (e Engine) Info(s State, u feed.InfoUpdate, now int64) (State, []Effect) {
	t := e.begin(s)
	t.applyMatchInfo(u)
	for _, frag := range u.Roster {
		t.mergeRoster(frag, now)
	}
	if u.PlayerStats != nil {
		t.applyPlayerStats(*u.PlayerStats)
	}
	return t.done()
}

// Batch applies a whole normalized payload: skipped fragments are logged,
// then the info update, then each event in order.
func (e Engine) Batch(s State, b feed.Batch) (State, []Effect) {
	var effects []Effect
	for _, p := range b.Problems {
		effects = append(effects, warn("skipped malformed fragment", Fields{"key": p.Key, "error": p.Err.Error()}))
	}
	if b.Info != nil {
		var effs []Effect
		s, effs = e.Info(s, *b.Info, b.Timestamp)
		effects = append(effects, effs...)
	}
	for _, ev := range b.Events {
		var effs []Effect
		s, effs = e.Event(s, ev, b.Timestamp)
		effects = append(effects, effs...)
	}
	return s, effects
}

func (t *step) applyMatchInfo(u feed.InfoUpdate) {
	m := &t.s.Current
	if u.MatchID != "" {
		m.MatchID = u.MatchID
	}
	if u.Map != "" {
		m.Map = u.Map
	}
	if u.GameMode != "" {
		m.GameMode = u.GameMode
	}
	if u.GameType != "" {
		m.GameType = u.GameType
	}
	if u.Outcome != "" {
		m.Outcome = model.ParseOutcome(u.Outcome)
	}
}
