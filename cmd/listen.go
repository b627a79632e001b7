package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
	"github.com/pable/go-match-telemetry/internal/retention"
	"github.com/pable/go-match-telemetry/internal/source"
)

var (
	listenURL     string
	listenSubject string
	listenWatch   bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Ingest live telemetry from NATS and store finished matches",
	Long: `Subscribe to a NATS subject whose messages are raw telemetry payloads. Each
message is applied with its receive time. Finished matches are stored as they
complete. Press Ctrl-C to stop.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenURL, "url", "", "NATS server URL (env MATCHTEL_NATS_URL)")
	listenCmd.Flags().StringVar(&listenSubject, "subject", "", "subject to subscribe to (env MATCHTEL_NATS_SUBJECT)")
	listenCmd.Flags().BoolVarP(&listenWatch, "watch", "w", false, "redraw a live scoreboard after each payload")
}

func runListen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url, subject := cfg.NATSURL, cfg.NATSSubject
	if listenURL != "" {
		url = listenURL
	}
	if listenSubject != "" {
		subject = listenSubject
	}

	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	tr := newTracker(db, retention.TimerScheduler{})
	apply := func(ctx context.Context, payload []byte, ts int64) error {
		err := tr.Ingest(ctx, payload, ts)
		if listenWatch {
			cur := tr.Current()
			report.PrintScoreboard(os.Stdout, &cur, true)
		}
		return err
	}

	l := &source.Listener{URL: url, Subject: subject, Log: log}
	if err := l.Run(ctx, apply); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Stopped. %d match(es) finished this session.\n", len(tr.History()))
	return nil
}
