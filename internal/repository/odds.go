package repository

import (
	"context"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// OddsRepository handles bookmaker odds database operations
type OddsRepository struct {
	db *Database
}

// ReplaceForMatch swaps the stored odds of a match for the given markets.
// Callers should run it inside WithTx so a failure leaves the previous odds in place.
func (r *OddsRepository) ReplaceForMatch(ctx context.Context, matchID int, bookmakers []*models.OddsBookmaker) (int, error) {
	if _, err := r.db.conn.Exec(ctx, `DELETE FROM odds_bookmakers WHERE match_id = $1`, matchID); err != nil {
		return 0, fmt.Errorf("failed to clear odds: %w", err)
	}

	values := 0
	for _, bm := range bookmakers {
		bm.MatchID = matchID
		err := r.db.conn.QueryRow(ctx, `
			INSERT INTO odds_bookmakers (match_id, bookmaker_id, bookmaker_name, bet_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (match_id, bookmaker_id, bet_type) DO UPDATE SET
				bookmaker_name = EXCLUDED.bookmaker_name,
				updated_at = NOW()
			RETURNING id, created_at, updated_at
		`, bm.MatchID, bm.BookmakerID, bm.BookmakerName, bm.BetType).Scan(&bm.ID, &bm.CreatedAt, &bm.UpdatedAt)
		if err != nil {
			return values, fmt.Errorf("failed to insert odds bookmaker: %w", err)
		}

		for _, v := range bm.Values {
			v.BookmakerID = bm.ID
			err := r.db.conn.QueryRow(ctx, `
				INSERT INTO odds_values (bookmaker_id, outcome, odd)
				VALUES ($1, $2, $3)
				RETURNING id, created_at
			`, v.BookmakerID, v.Outcome, v.Odd).Scan(&v.ID, &v.CreatedAt)
			if err != nil {
				return values, fmt.Errorf("failed to insert odds value: %w", err)
			}
			values++
		}
	}

	log.Debug().
		Int("match_id", matchID).
		Int("markets", len(bookmakers)).
		Int("values", values).
		Msg("Odds replaced")

	return values, nil
}

// ListForMatch retrieves every stored market of a match with its priced outcomes
func (r *OddsRepository) ListForMatch(ctx context.Context, matchID int) ([]*models.OddsBookmaker, error) {
	query := `
		SELECT b.id, b.match_id, b.bookmaker_id, b.bookmaker_name, b.bet_type, b.created_at, b.updated_at,
		       v.id, v.outcome, v.odd, v.created_at
		FROM odds_bookmakers b
		LEFT JOIN odds_values v ON v.bookmaker_id = b.id
		WHERE b.match_id = $1
		ORDER BY b.bookmaker_id, b.bet_type, v.id
	`

	rows, err := r.db.conn.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list odds: %w", err)
	}
	defer rows.Close()

	var out []*models.OddsBookmaker
	byID := make(map[int]*models.OddsBookmaker)
	for rows.Next() {
		var bm models.OddsBookmaker
		var valueID *int
		var outcome *string
		var odd *float64
		var valueCreated *time.Time
		if err := rows.Scan(
			&bm.ID, &bm.MatchID, &bm.BookmakerID, &bm.BookmakerName, &bm.BetType, &bm.CreatedAt, &bm.UpdatedAt,
			&valueID, &outcome, &odd, &valueCreated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan odds row: %w", err)
		}

		cur, ok := byID[bm.ID]
		if !ok {
			cur = &bm
			byID[bm.ID] = cur
			out = append(out, cur)
		}
		if valueID != nil {
			cur.Values = append(cur.Values, &models.OddsValue{
				ID:          *valueID,
				BookmakerID: cur.ID,
				Outcome:     *outcome,
				Odd:         *odd,
				CreatedAt:   *valueCreated,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating odds rows: %w", err)
	}

	return out, nil
}
