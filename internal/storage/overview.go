package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DBOverview is the headline numbers shown by the summary command.
type DBOverview struct {
	TotalMatches  int
	EarliestMatch int64
	LatestMatch   int64
	UniqueMaps    int
	UniquePlayers int
	TotalRounds   int
	TotalSessions int
	RatingPoints  int
}

// MapStat is the local player's record on one map.
type MapStat struct {
	Map     string
	Matches int
	Wins    int
	Losses  int
}

// ModeCount is the number of stored matches per game mode.
type ModeCount struct {
	GameMode string
	Matches  int
}

// GetDBOverview returns aggregate counts across the whole store.
func (db *DB) GetDBOverview(ctx context.Context) (DBOverview, error) {
	var ov DBOverview
	var earliest, latest sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(NULLIF(match_start, 0)), MAX(match_start),
		       COUNT(DISTINCT map), COALESCE(SUM(round_count), 0)
		FROM matches`).Scan(&ov.TotalMatches, &earliest, &latest, &ov.UniqueMaps, &ov.TotalRounds)
	if err != nil {
		return DBOverview{}, fmt.Errorf("count matches: %w", err)
	}
	ov.EarliestMatch, ov.LatestMatch = earliest.Int64, latest.Int64

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(DISTINCT uid) FROM match_players WHERE round = 0`, &ov.UniquePlayers},
		{`SELECT COUNT(*) FROM character_sessions`, &ov.TotalSessions},
		{`SELECT COUNT(*) FROM rating_points`, &ov.RatingPoints},
	}
	for _, c := range counts {
		if err := db.conn.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return DBOverview{}, fmt.Errorf("overview: %w", err)
		}
	}
	return ov, nil
}

// GetMapStats returns per-map match counts and the local result, busiest first.
func (db *DB) GetMapStats(ctx context.Context) ([]MapStat, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT map, COUNT(*),
		       SUM(CASE WHEN outcome = 'Victory' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN outcome = 'Defeat' THEN 1 ELSE 0 END)
		FROM matches GROUP BY map ORDER BY COUNT(*) DESC, map`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MapStat
	for rows.Next() {
		var m MapStat
		if err := rows.Scan(&m.Map, &m.Matches, &m.Wins, &m.Losses); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetModeCounts returns how many matches were stored per game mode.
func (db *DB) GetModeCounts(ctx context.Context) ([]ModeCount, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT game_mode, COUNT(*) FROM matches GROUP BY game_mode ORDER BY COUNT(*) DESC, game_mode`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModeCount
	for rows.Next() {
		var m ModeCount
		if err := rows.Scan(&m.GameMode, &m.Matches); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns the column names and every row
// rendered as strings. NULL renders as "NULL".
func (db *DB) QueryRaw(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch v := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(v)
			default:
				row[i] = fmt.Sprint(v)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}
