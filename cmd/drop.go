package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dropForce bool
	dropMatch string
)

// dropCmd deletes the telemetry database file, or a single match from it.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the telemetry database or one stored match",
	Long: `Permanently delete the SQLite telemetry database. All stored matches, rating
history and encountered players will be lost. With --match only that match and
its rounds and sessions are removed.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().StringVar(&dropMatch, "match", "", "delete only the match with this id prefix")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropMatch != "" {
		return dropOneMatch(cmd)
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	// WAL side files
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropOneMatch(cmd *cobra.Command) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	m, ok, err := loadByPrefix(cmd.Context(), db, dropMatch)
	if err != nil || !ok {
		return err
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete match %s (%s, %s).\n", m.MatchID, m.Map, m.Outcome)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := db.DeleteMatch(cmd.Context(), m.MatchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted match: %s\n", m.MatchID)
	return nil
}
