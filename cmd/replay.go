package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/report"
	"github.com/pable/go-match-telemetry/internal/retention"
	"github.com/pable/go-match-telemetry/internal/source"
	"github.com/pable/go-match-telemetry/internal/storage"
)

var (
	replaySpeed     float64
	replayKillsOnly bool
	replayDryRun    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.log>",
	Short: "Replay a captured telemetry log and store the matches it contains",
	Long: `Replay a client capture log (plain, .gz or .zst). Each line may start with a
"YYYY-MM-DD HH:MM:SS,mmm" timestamp and carries one JSON payload. Entries are
applied in timestamp order; finished matches are stored unless --dry-run is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "pace replay at this multiple of real time (0 = as fast as possible)")
	replayCmd.Flags().BoolVar(&replayKillsOnly, "kills-only", false, "apply only kill-feed events (info updates are always applied)")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "do not write to the database")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rc, err := source.OpenLog(args[0])
	if err != nil {
		return err
	}
	entries, stats, err := source.ParseLog(rc, time.Now().UnixMilli())
	rc.Close()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Parsed %s: %d lines, %d skipped, %d info, %d events (%d kills)\n",
		args[0], stats.Lines, stats.Skipped, stats.Infos, stats.Events, stats.Kills)
	if len(entries) == 0 {
		return nil
	}

	var db *storage.DB
	if !replayDryRun {
		db, err = openDB(true)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	// retention runs on the capture's clock, not the wall clock
	clock := &retention.Manual{}
	tr := newTracker(db, clock)
	last := entries[0].Timestamp
	apply := func(ctx context.Context, payload []byte, ts int64) error {
		if ts > last {
			clock.Advance(time.Duration(ts-last) * time.Millisecond)
			last = ts
		}
		if err := tr.Ingest(ctx, payload, ts); err != nil {
			log.Error().Err(err).Int64("timestamp", ts).Msg("replay entry")
		}
		return nil
	}

	r := source.Replayer{Speed: replaySpeed, KillsOnly: replayKillsOnly}
	n, err := r.Replay(ctx, entries, apply)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	history := tr.History()
	fmt.Fprintf(os.Stdout, "Applied %d entries, %d match(es) finished.\n", n, len(history))
	for i := range history {
		printMatch(&history[i])
	}
	if cur := tr.Current(); model.IsLive(&cur) {
		fmt.Fprintln(os.Stdout, "\nMatch still in progress at end of log:")
		report.PrintScoreboard(os.Stdout, &cur, false)
	}
	return nil
}

// printMatch prints the full report for one finished or stored match.
func printMatch(m *model.MatchHistoryEntry) {
	report.PrintMatchSummary(os.Stdout, &m.MatchSnapshot)
	report.PrintPlayerTable(os.Stdout, &m.MatchSnapshot)
	fmt.Fprintln(os.Stdout)
	report.PrintTeamTable(os.Stdout, &m.MatchSnapshot)
	fmt.Fprintln(os.Stdout)
	report.PrintKillMatrix(os.Stdout, &m.MatchSnapshot)
	fmt.Fprintln(os.Stdout)
	report.PrintSwapTable(os.Stdout, &m.MatchSnapshot)
}
