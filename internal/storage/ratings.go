package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pable/go-match-telemetry/internal/model"
	"github.com/pable/go-match-telemetry/internal/rating"
)

const (
	tierRecent = "recent"
	tierLong   = "long"
)

// LoadRatings returns both tiers of one rating ladder in stored order.
func (db *DB) LoadRatings(ctx context.Context, mode rating.Mode) (rating.Tiers, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tier, elo, ts, match_id FROM rating_points
		WHERE mode = ? ORDER BY tier, seq`, string(mode))
	if err != nil {
		return rating.Tiers{}, err
	}
	defer rows.Close()

	var t rating.Tiers
	for rows.Next() {
		var tier string
		var p model.RatingPoint
		if err := rows.Scan(&tier, &p.Elo, &p.Timestamp, &p.MatchID); err != nil {
			return rating.Tiers{}, err
		}
		switch tier {
		case tierRecent:
			t.Recent = append(t.Recent, p)
		case tierLong:
			t.LongTerm = append(t.LongTerm, p)
		}
	}
	return t, rows.Err()
}

// SaveRatings replaces both tiers of one rating ladder.
func (db *DB) SaveRatings(ctx context.Context, mode rating.Mode, t rating.Tiers) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rating_points WHERE mode = ?", string(mode)); err != nil {
			return fmt.Errorf("clear rating_points: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rating_points(mode, tier, seq, elo, ts, match_id) VALUES (?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for tier, points := range map[string][]model.RatingPoint{tierRecent: t.Recent, tierLong: t.LongTerm} {
			for i, p := range points {
				if _, err := stmt.ExecContext(ctx, string(mode), tier, i, p.Elo, p.Timestamp, p.MatchID); err != nil {
					return fmt.Errorf("insert rating point %s/%s/%d: %w", mode, tier, i, err)
				}
			}
		}
		return nil
	})
}

// ClearRatings deletes every rating point.
func (db *DB) ClearRatings(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM rating_points")
	return err
}
