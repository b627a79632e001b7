package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/model"
)

var exportOut string

// matchExport is the JSON document written by the export command.
type matchExport struct {
	Match    model.MatchHistoryEntry  `json:"match"`
	Sessions []model.CompletedSession `json:"characterSessions"`
}

var exportCmd = &cobra.Command{
	Use:   "export <match-id-prefix>",
	Short: "Export a stored match as JSON",
	Long: `Write a stored match as a JSON document: the final match state with players,
team aggregates and round snapshots, plus its completed character sessions.

Example:
  matchtel export 3f2a --out match.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	m, ok, err := loadByPrefix(ctx, db, args[0])
	if err != nil || !ok {
		return err
	}
	sessions, err := db.GetSessions(ctx, m.MatchID)
	if err != nil {
		return fmt.Errorf("get sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.CompletedSession{}
	}

	data, err := json.MarshalIndent(matchExport{Match: m, Sessions: sessions}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	if exportOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Written: %s\n", exportOut)
	return nil
}
