package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/pable/go-match-telemetry/internal/model"
)

// Effect is a side effect requested by a transition.
type Effect interface {
	isEffect()
}

// Fields are structured log attributes.
type Fields map[string]any

// LogEffect asks the shell to write one structured log record.
type LogEffect struct {
	Level   zerolog.Level
	Message string
	Fields  Fields
}

// RatingEffect reports the local player's ELO, once per match.
type RatingEffect struct {
	Elo       float64
	Mode      string
	MatchID   string
	Timestamp int64
}

// ArchiveEffect carries a match that was just appended to history, together
// with the character sessions completed during it and the rating observed in
// it, if any.
type ArchiveEffect struct {
	Match    model.MatchHistoryEntry
	Sessions []model.CompletedSession
	Rating   *RatingEffect
}

// ScheduleClearEffect asks the shell to clear the current match after Delay.
type ScheduleClearEffect struct {
	Delay time.Duration
}

// CancelClearEffect asks the shell to cancel any pending retention clear.
type CancelClearEffect struct{}

func (LogEffect) isEffect()           {}
func (RatingEffect) isEffect()        {}
func (ArchiveEffect) isEffect()       {}
func (ScheduleClearEffect) isEffect() {}
func (CancelClearEffect) isEffect()   {}

func logAt(level zerolog.Level, msg string, f Fields) LogEffect {
	return LogEffect{Level: level, Message: msg, Fields: f}
}

func debug(msg string, f Fields) LogEffect { return logAt(zerolog.DebugLevel, msg, f) }
func info(msg string, f Fields) LogEffect  { return logAt(zerolog.InfoLevel, msg, f) }
func warn(msg string, f Fields) LogEffect  { return logAt(zerolog.WarnLevel, msg, f) }
func fail(msg string, f Fields) LogEffect  { return logAt(zerolog.ErrorLevel, msg, f) }
