package cmd

import (
	"github.com/pable/go-match-telemetry/internal/archive"
	"github.com/pable/go-match-telemetry/internal/encounters"
	"github.com/pable/go-match-telemetry/internal/rating"
	"github.com/pable/go-match-telemetry/internal/retention"
	"github.com/pable/go-match-telemetry/internal/storage"
	"github.com/pable/go-match-telemetry/internal/tracker"
)

// newTracker wires a tracker that persists finished matches, ratings and
// encounters to db. A nil db gives an in-memory tracker.
func newTracker(db *storage.DB, sched retention.Scheduler) *tracker.Tracker {
	opts := tracker.Options{
		Engine:    cfg.Engine(),
		Scheduler: sched,
		Logger:    log,
	}
	if db != nil {
		opts.Ratings = rating.NewService(db, cfg.MaxRecentElo, log)
		opts.Sink = archive.New(db, encounters.NewBook(db, log), log)
	}
	return tracker.New(opts)
}
