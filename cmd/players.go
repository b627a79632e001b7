package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
)

var (
	playersLimit int
	playersName  string
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Show players you have played with or against",
	Long: `List encountered players, most recently seen first, with win/loss records
alongside and against them. --name prints one player's character history.`,
	Args: cobra.NoArgs,
	RunE: runPlayers,
}

func init() {
	playersCmd.Flags().IntVarP(&playersLimit, "limit", "n", 50, "maximum players to list")
	playersCmd.Flags().StringVar(&playersName, "name", "", "show the character history of players whose name or uid matches")
}

func runPlayers(cmd *cobra.Command, _ []string) error {
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	limit := playersLimit
	if playersName != "" {
		limit = 0
	}
	players, err := db.ListEncounters(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list encounters: %w", err)
	}
	if len(players) == 0 {
		fmt.Fprintln(os.Stdout, "No players encountered yet.")
		return nil
	}
	if playersName == "" {
		report.PrintEncounterTable(os.Stdout, players)
		return nil
	}

	needle := strings.ToLower(playersName)
	found := 0
	for _, p := range players {
		if p.UID != playersName && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		found++
		fmt.Fprintf(os.Stdout, "\n--- %s (%s) ---\n\n", p.Name, p.UID)
		report.PrintCharacterHistory(os.Stdout, p)
	}
	if found == 0 {
		fmt.Fprintf(os.Stderr, "No encountered player matches %q\n", playersName)
	}
	return nil
}
