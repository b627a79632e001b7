package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
)

// roundsCmd is the per-round drill-down for one player in one match.
var roundsCmd = &cobra.Command{
	Use:   "rounds <match-id-prefix> [uid]",
	Short: "Per-round snapshots for one player in one match",
	Long: `Print one player's cumulative stats as captured at each round boundary.
Without a uid the local player is shown.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRounds,
}

func runRounds(cmd *cobra.Command, args []string) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	m, ok, err := loadByPrefix(cmd.Context(), db, args[0])
	if err != nil || !ok {
		return err
	}

	var uid string
	if len(args) == 2 {
		uid = args[1]
	} else if p, ok := m.LocalPlayer(); ok {
		uid = p.UID
	} else {
		return fmt.Errorf("match %s has no local player; pass a uid", m.MatchID)
	}
	p, ok := m.Players[uid]
	if !ok {
		fmt.Fprintf(os.Stderr, "uid %q did not play in match %s\n", uid, m.MatchID)
		return nil
	}
	if len(m.Rounds) == 0 {
		fmt.Fprintln(os.Stdout, "No round snapshots were captured for this match.")
		return nil
	}

	report.PrintMatchSummary(os.Stdout, &m.MatchSnapshot)
	fmt.Fprintf(os.Stdout, "Player: %s (%s)\n\n", p.Name, p.UID)
	report.PrintRoundTable(os.Stdout, m.Rounds, uid)
	return nil
}
