package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-match-telemetry/internal/model"
)

// finalRound is the round number under which the end-of-match state is stored.
const finalRound = 0

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(ctx context.Context, matchID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM matches WHERE match_id = ?", matchID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveMatch stores an archived match with its round snapshots and character
// sessions. Saving the same match id again replaces the previous copy.
func (db *DB) SaveMatch(ctx context.Context, m model.MatchHistoryEntry, sessions []model.CompletedSession) error {
	if m.MatchID == "" {
		return errors.New("save match: empty match id")
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return saveMatch(ctx, tx, m, sessions)
	})
}

func saveMatch(ctx context.Context, tx *sql.Tx, m model.MatchHistoryEntry, sessions []model.CompletedSession) error {
	// the parent row is replaced below, so only child rows need clearing
	if err := clearMatch(ctx, tx, m.MatchID, matchTables[:len(matchTables)-1]); err != nil {
		return err
	}

	var start, end int64
	if m.Timestamps.MatchStart != nil {
		start = *m.Timestamps.MatchStart
	}
	if m.Timestamps.MatchEnd != nil {
		end = *m.Timestamps.MatchEnd
	}
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO matches(match_id, map, game_type, game_mode, outcome,
			match_start, match_end, player_count, round_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID, m.Map, m.GameType, m.GameMode, string(m.Outcome),
		start, end, len(m.Players), len(m.Rounds),
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	if err := insertSnapshot(ctx, tx, m.MatchID, finalRound, m.MatchSnapshot); err != nil {
		return err
	}
	for i, r := range m.Rounds {
		if err := insertSnapshot(ctx, tx, m.MatchID, i+1, r); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO character_sessions(match_id, uid, character_name, time_spent_ms,
			kills, deaths, assists, started_at, is_ally)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range sessions {
		_, err := stmt.ExecContext(ctx, m.MatchID, s.UID, s.CharacterName, s.TimeSpentMs,
			s.Kills, s.Deaths, s.Assists, s.Timestamp, boolInt(s.IsAlly))
		if err != nil {
			return fmt.Errorf("insert character session for %s/%s: %w", s.UID, s.CharacterName, err)
		}
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, matchID string, round int, snap model.MatchSnapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_players(
			match_id, round, uid, name, character_name, character_id, team,
			is_teammate, is_local, is_alive,
			kills, deaths, assists, final_hits,
			damage_dealt, damage_blocked, total_heal,
			pct_team_damage, pct_team_blocked, pct_team_healing,
			ult_charge, killed_players, killed_by, character_swaps, last_updated
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, uid := range sortedUIDs(snap.Players) {
		p := snap.Players[uid]
		killed, err := json.Marshal(nonNilCounts(p.KilledPlayers))
		if err != nil {
			return err
		}
		killedBy, err := json.Marshal(nonNilCounts(p.KilledBy))
		if err != nil {
			return err
		}
		swaps, err := json.Marshal(nonNilSwaps(p.CharacterSwaps))
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			matchID, round, p.UID, p.Name, p.CharacterName, p.CharacterID, p.Team,
			boolInt(p.IsTeammate), boolInt(p.IsLocal), boolInt(p.IsAlive),
			p.Kills, p.Deaths, p.Assists, p.FinalHits,
			p.DamageDealt, p.DamageBlocked, p.TotalHeal,
			p.PctTeamDamage, p.PctTeamBlocked, p.PctTeamHealing,
			nullFloat(p.UltCharge), string(killed), string(killedBy), string(swaps), nullInt(p.LastUpdated),
		)
		if err != nil {
			return fmt.Errorf("insert match_players for %s round %d: %w", p.UID, round, err)
		}
	}

	for team, agg := range snap.TeamStats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO team_stats(match_id, round, team, final_hits, total_damage, total_blocked, total_healing)
			VALUES (?,?,?,?,?,?,?)`,
			matchID, round, team, agg.FinalHits, agg.TotalDamage, agg.TotalBlocked, agg.TotalHealing)
		if err != nil {
			return fmt.Errorf("insert team_stats for team %d round %d: %w", team, round, err)
		}
	}
	return nil
}

const summaryColumns = `match_id, map, game_type, game_mode, outcome, match_start, match_end, player_count, round_count`

func scanSummary(row interface{ Scan(...any) error }) (model.MatchSummary, error) {
	var s model.MatchSummary
	var outcome string
	err := row.Scan(&s.MatchID, &s.Map, &s.GameType, &s.GameMode, &outcome,
		&s.MatchStart, &s.MatchEnd, &s.Players, &s.Rounds)
	s.Outcome = model.Outcome(outcome)
	return s, err
}

// ListMatches returns all stored match summaries, newest first.
func (db *DB) ListMatches(ctx context.Context) ([]model.MatchSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+summaryColumns+` FROM matches ORDER BY match_start DESC, match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the newest match whose id starts with prefix.
func (db *DB) GetMatchByPrefix(ctx context.Context, prefix string) (model.MatchSummary, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM matches
		WHERE match_id LIKE ? ESCAPE '\' ORDER BY match_start DESC LIMIT 1`, escapeLike(prefix)+"%")
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchSummary{}, fmt.Errorf("match %q: %w", prefix, ErrNotFound)
	}
	return s, err
}

// LoadMatch rebuilds a stored match, including its round snapshots.
func (db *DB) LoadMatch(ctx context.Context, matchID string) (model.MatchHistoryEntry, error) {
	s, err := scanSummary(db.conn.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM matches WHERE match_id = ?`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchHistoryEntry{}, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return model.MatchHistoryEntry{}, err
	}

	snaps := make(map[int]*model.MatchSnapshot)
	snapshot := func(round int) *model.MatchSnapshot {
		if sn, ok := snaps[round]; ok {
			return sn
		}
		sn := model.NewMatchSnapshot()
		sn.MatchID, sn.Map, sn.GameType, sn.GameMode, sn.Outcome = s.MatchID, s.Map, s.GameType, s.GameMode, s.Outcome
		if s.MatchStart != 0 {
			v := s.MatchStart
			sn.Timestamps.MatchStart = &v
		}
		snaps[round] = &sn
		return &sn
	}
	snapshot(finalRound)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT round, uid, name, character_name, character_id, team,
		       is_teammate, is_local, is_alive,
		       kills, deaths, assists, final_hits,
		       damage_dealt, damage_blocked, total_heal,
		       pct_team_damage, pct_team_blocked, pct_team_healing,
		       ult_charge, killed_players, killed_by, character_swaps, last_updated
		FROM match_players WHERE match_id = ? ORDER BY round, uid`, matchID)
	if err != nil {
		return model.MatchHistoryEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			round                           int
			p                               model.PlayerRecord
			teammate, local, alive          int
			ult                             sql.NullFloat64
			lastUpdated                     sql.NullInt64
			killedJSON, killedByJSON, swaps string
		)
		if err := rows.Scan(&round, &p.UID, &p.Name, &p.CharacterName, &p.CharacterID, &p.Team,
			&teammate, &local, &alive,
			&p.Kills, &p.Deaths, &p.Assists, &p.FinalHits,
			&p.DamageDealt, &p.DamageBlocked, &p.TotalHeal,
			&p.PctTeamDamage, &p.PctTeamBlocked, &p.PctTeamHealing,
			&ult, &killedJSON, &killedByJSON, &swaps, &lastUpdated,
		); err != nil {
			return model.MatchHistoryEntry{}, err
		}
		p.IsTeammate, p.IsLocal, p.IsAlive = teammate != 0, local != 0, alive != 0
		if ult.Valid {
			v := ult.Float64
			p.UltCharge = &v
		}
		if lastUpdated.Valid {
			v := lastUpdated.Int64
			p.LastUpdated = &v
		}
		if err := json.Unmarshal([]byte(killedJSON), &p.KilledPlayers); err != nil {
			return model.MatchHistoryEntry{}, fmt.Errorf("decode killed_players for %s: %w", p.UID, err)
		}
		if err := json.Unmarshal([]byte(killedByJSON), &p.KilledBy); err != nil {
			return model.MatchHistoryEntry{}, fmt.Errorf("decode killed_by for %s: %w", p.UID, err)
		}
		if err := json.Unmarshal([]byte(swaps), &p.CharacterSwaps); err != nil {
			return model.MatchHistoryEntry{}, fmt.Errorf("decode character_swaps for %s: %w", p.UID, err)
		}
		if len(p.CharacterSwaps) == 0 {
			p.CharacterSwaps = nil
		}
		snapshot(round).Players[p.UID] = p
	}
	if err := rows.Err(); err != nil {
		return model.MatchHistoryEntry{}, err
	}

	trows, err := db.conn.QueryContext(ctx, `
		SELECT round, team, final_hits, total_damage, total_blocked, total_healing
		FROM team_stats WHERE match_id = ?`, matchID)
	if err != nil {
		return model.MatchHistoryEntry{}, err
	}
	defer trows.Close()
	for trows.Next() {
		var round, team int
		var agg model.TeamAggregate
		if err := trows.Scan(&round, &team, &agg.FinalHits, &agg.TotalDamage, &agg.TotalBlocked, &agg.TotalHealing); err != nil {
			return model.MatchHistoryEntry{}, err
		}
		snapshot(round).TeamStats[team] = agg
	}
	if err := trows.Err(); err != nil {
		return model.MatchHistoryEntry{}, err
	}

	out := model.CurrentMatch{MatchSnapshot: *snaps[finalRound]}
	if s.MatchEnd != 0 {
		v := s.MatchEnd
		out.Timestamps.MatchEnd = &v
	}
	for r := 1; r <= s.Rounds; r++ {
		out.Rounds = append(out.Rounds, *snapshot(r))
	}
	return out, nil
}

// GetSessions returns the character sessions of a match in start order.
func (db *DB) GetSessions(ctx context.Context, matchID string) ([]model.CompletedSession, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT uid, character_name, time_spent_ms, kills, deaths, assists, started_at, is_ally
		FROM character_sessions WHERE match_id = ? ORDER BY started_at, id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CompletedSession
	for rows.Next() {
		var s model.CompletedSession
		var ally int
		if err := rows.Scan(&s.UID, &s.CharacterName, &s.TimeSpentMs, &s.Kills, &s.Deaths, &s.Assists, &s.Timestamp, &ally); err != nil {
			return nil, err
		}
		s.IsAlly = ally != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteMatch removes a match and everything stored for it.
func (db *DB) DeleteMatch(ctx context.Context, matchID string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return clearMatch(ctx, tx, matchID, matchTables)
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nonNilCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilSwaps(s []model.CharacterSwap) []model.CharacterSwap {
	if s == nil {
		return []model.CharacterSwap{}
	}
	return s
}

func sortedUIDs(players map[string]model.PlayerRecord) []string {
	uids := make([]string, 0, len(players))
	for uid := range players {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
