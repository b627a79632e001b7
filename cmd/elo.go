package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/rating"
	"github.com/pable/go-match-telemetry/internal/report"
)

var (
	eloMode   string
	eloRecent bool
	eloClear  bool
)

var eloCmd = &cobra.Command{
	Use:   "elo",
	Short: "Show the local player's rating history",
	Long: `Print the stored rating history per mode. The newest points are kept
individually; older points are compressed to the last one of each UTC day.`,
	Args: cobra.NoArgs,
	RunE: runElo,
}

func init() {
	eloCmd.Flags().StringVar(&eloMode, "mode", "", "comp or quick (default: both)")
	eloCmd.Flags().BoolVar(&eloRecent, "recent", false, "only the uncompressed recent points")
	eloCmd.Flags().BoolVar(&eloClear, "clear", false, "delete all rating history")
}

func runElo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := openDB(eloClear)
	if err != nil {
		return err
	}
	defer db.Close()
	svc := rating.NewService(db, cfg.MaxRecentElo, log)

	if eloClear {
		if err := svc.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Rating history cleared.")
		return nil
	}

	modes := rating.Modes
	if eloMode != "" {
		m, err := rating.ParseMode(eloMode)
		if err != nil {
			return err
		}
		modes = []rating.Mode{m}
	}

	for _, mode := range modes {
		points, err := svc.History(ctx, mode)
		if eloRecent {
			points, err = svc.Recent(ctx, mode)
		}
		if err != nil {
			return fmt.Errorf("%s history: %w", mode, err)
		}
		fmt.Fprintf(os.Stdout, "\n--- %s ---\n\n", mode)
		if len(points) == 0 {
			fmt.Fprintln(os.Stdout, "No rating points recorded.")
			continue
		}
		latest, _, err := svc.Latest(ctx, mode)
		if err != nil {
			return fmt.Errorf("%s latest: %w", mode, err)
		}
		fmt.Fprintf(os.Stdout, "  Current : %.0f\n  Points  : %d\n\n", latest, len(points))
		report.PrintRatingTable(os.Stdout, points)
	}
	return nil
}
