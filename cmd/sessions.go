package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <match-id-prefix>",
	Short: "Show the character sessions of a stored match",
	Long: `List every completed character session: who played which hero, for how
long, and the kills, deaths and assists earned while on it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	m, ok, err := loadByPrefix(cmd.Context(), db, args[0])
	if err != nil || !ok {
		return err
	}
	sessions, err := db.GetSessions(cmd.Context(), m.MatchID)
	if err != nil {
		return fmt.Errorf("get sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stdout, "No character sessions recorded for this match.")
		return nil
	}
	names := make(map[string]string, len(m.Players))
	for uid, p := range m.Players {
		names[uid] = p.Name
	}
	report.PrintMatchSummary(os.Stdout, &m.MatchSnapshot)
	report.PrintSessionTable(os.Stdout, sessions, names)
	return nil
}
