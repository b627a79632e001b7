package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id-prefix>",
	Short: "Show a stored match by id prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	m, ok, err := loadByPrefix(cmd.Context(), db, args[0])
	if err != nil || !ok {
		return err
	}
	printMatch(&m)
	return nil
}

// loadByPrefix resolves a match id prefix. A miss is reported on stderr and
// returns ok=false with no error.
func loadByPrefix(ctx context.Context, db *storage.DB, prefix string) (model.MatchHistoryEntry, bool, error) {
	s, err := db.GetMatchByPrefix(ctx, prefix)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No match found with id prefix %q\n", prefix)
		return model.MatchHistoryEntry{}, false, nil
	}
	if err != nil {
		return model.MatchHistoryEntry{}, false, fmt.Errorf("query match: %w", err)
	}
	m, err := db.LoadMatch(ctx, s.MatchID)
	if err != nil {
		return model.MatchHistoryEntry{}, false, fmt.Errorf("load match: %w", err)
	}
	return m, true, nil
}
