package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pable/go-match-telemetry/internal/encounters"
)

const encounterColumns = `uid, name, last_seen, is_local,
	with_count, with_wins, with_losses, against_count, against_wins, against_losses,
	ally_characters, opponent_characters, character_history, elo_by_mode`

// LoadEncounters returns the stored records for the given uids. Unknown uids
// are simply absent from the result.
func (db *DB) LoadEncounters(ctx context.Context, uids []string) (map[string]encounters.Player, error) {
	out := make(map[string]encounters.Player, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	args := make([]any, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+encounterColumns+` FROM encounters WHERE uid IN (`+placeholders(len(uids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		out[p.UID] = p
	}
	return out, rows.Err()
}

// ListEncounters returns encountered players, most recently seen first. The
// local player is excluded. limit <= 0 means no limit.
func (db *DB) ListEncounters(ctx context.Context, limit int) ([]encounters.Player, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT `+encounterColumns+` FROM encounters
		WHERE is_local = 0 ORDER BY last_seen DESC, uid LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []encounters.Player
	for rows.Next() {
		p, err := scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveEncounters upserts encounter records.
func (db *DB) SaveEncounters(ctx context.Context, players []encounters.Player) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO encounters(`+encounterColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range players {
			if err := upsertEncounter(ctx, stmt, p); err != nil {
				return fmt.Errorf("upsert encounter %s: %w", p.UID, err)
			}
		}
		return nil
	})
}

func upsertEncounter(ctx context.Context, stmt *sql.Stmt, p encounters.Player) error {
	ally, err := json.Marshal(p.AllyCharacters)
	if err != nil {
		return err
	}
	opp, err := json.Marshal(p.OpponentCharacters)
	if err != nil {
		return err
	}
	hist := p.CharacterHistory
	if hist == nil {
		hist = []encounters.HistoryEntry{}
	}
	histJSON, err := json.Marshal(hist)
	if err != nil {
		return err
	}
	elo := p.EloByMode
	if elo == nil {
		elo = map[string]float64{}
	}
	eloJSON, err := json.Marshal(elo)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, p.UID, p.Name, p.LastSeen, boolInt(p.IsLocal),
		p.WithCount, p.WithWins, p.WithLosses, p.AgainstCount, p.AgainstWins, p.AgainstLosses,
		string(ally), string(opp), string(histJSON), string(eloJSON))
	return err
}

func scanEncounter(row interface{ Scan(...any) error }) (encounters.Player, error) {
	var (
		p                          encounters.Player
		local                      int
		ally, opp, hist, eloByMode string
	)
	if err := row.Scan(&p.UID, &p.Name, &p.LastSeen, &local,
		&p.WithCount, &p.WithWins, &p.WithLosses, &p.AgainstCount, &p.AgainstWins, &p.AgainstLosses,
		&ally, &opp, &hist, &eloByMode); err != nil {
		return encounters.Player{}, err
	}
	p.IsLocal = local != 0
	for _, f := range []struct {
		raw string
		dst any
	}{
		{ally, &p.AllyCharacters},
		{opp, &p.OpponentCharacters},
		{hist, &p.CharacterHistory},
		{eloByMode, &p.EloByMode},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return encounters.Player{}, fmt.Errorf("decode encounter %s: %w", p.UID, err)
		}
	}
	if len(p.EloByMode) == 0 {
		p.EloByMode = nil
	}
	return p, nil
}
