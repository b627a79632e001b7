package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-match-telemetry/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the telemetry database",
	Long: `Run an arbitrary SQL query against the telemetry database and print results as a table.

Schema overview:
  matches(match_id, map, game_type, game_mode, outcome, match_start, match_end,
    player_count, round_count)
  match_players(match_id, round, uid, name, character_name, team, is_teammate,
    is_local, kills, deaths, assists, final_hits, damage_dealt, damage_blocked,
    total_heal, pct_team_damage, ult_charge, killed_players JSON, killed_by JSON, ...)
  team_stats(match_id, round, team, final_hits, total_damage, total_blocked, total_healing)
  character_sessions(match_id, uid, character_name, time_spent_ms, kills, deaths,
    assists, started_at, is_ally)
  rating_points(mode, tier, seq, elo, ts, match_id)
  encounters(uid, name, last_seen, with_count, with_wins, against_count, ...)

Note: round 0 in match_players/team_stats is the final match state; rounds 1..n
are the per-round snapshots. Timestamps are epoch milliseconds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

var sqlJSON bool

func init() {
	sqlCmd.Flags().BoolVar(&sqlJSON, "json", false, "print rows as a JSON array of objects")
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(cmd.Context(), query)
	if err != nil {
		return err
	}
	if sqlJSON {
		objs := make([]map[string]string, len(rows))
		for i, row := range rows {
			objs[i] = make(map[string]string, len(cols))
			for j, c := range cols {
				objs[i][c] = row[j]
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(objs)
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	fmt.Printf("\n(%d rows)\n", len(rows))
	return nil
}
