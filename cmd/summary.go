package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about everything stored in the database:
match count, date range, per-map results, game mode distribution and how many
rounds, sessions, players and rating points were recorded.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetDBOverview(ctx)
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalMatches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'matchtel replay <capture.log>' or 'matchtel listen' to add some.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Matches stored : %d\n", ov.TotalMatches)
	fmt.Fprintf(os.Stdout, "  Date range     : %s → %s\n", report.FormatTime(ov.EarliestMatch), report.FormatTime(ov.LatestMatch))
	fmt.Fprintf(os.Stdout, "  Unique maps    : %d\n", ov.UniqueMaps)
	fmt.Fprintf(os.Stdout, "  Players seen   : %d\n", ov.UniquePlayers)
	fmt.Fprintf(os.Stdout, "  Round snapshots: %d\n", ov.TotalRounds)
	fmt.Fprintf(os.Stdout, "  Hero sessions  : %d\n", ov.TotalSessions)
	fmt.Fprintf(os.Stdout, "  Rating points  : %d\n", ov.RatingPoints)

	maps, err := db.GetMapStats(ctx)
	if err != nil {
		return fmt.Errorf("get map stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Maps ---\n\n")
	mt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	mt.Header("MAP", "MATCHES", "WINS", "LOSSES", "WIN%")
	for _, m := range maps {
		decided := m.Wins + m.Losses
		winPct := 0.0
		if decided > 0 {
			winPct = 100.0 * float64(m.Wins) / float64(decided)
		}
		mt.Append(
			m.Map,
			fmt.Sprintf("%d", m.Matches),
			fmt.Sprintf("%d", m.Wins),
			fmt.Sprintf("%d", m.Losses),
			fmt.Sprintf("%.0f%%", winPct),
		)
	}
	mt.Render()

	// only worth a table when more than one mode was played
	modes, err := db.GetModeCounts(ctx)
	if err != nil {
		return fmt.Errorf("get mode counts: %w", err)
	}
	if len(modes) > 1 {
		fmt.Fprintf(os.Stdout, "\n--- Game Modes ---\n\n")
		tt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
			Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
			Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
		}))
		tt.Header("MODE", "MATCHES")
		for _, m := range modes {
			tt.Append(m.GameMode, fmt.Sprintf("%d", m.Matches))
		}
		tt.Render()
	}
	return nil
}
