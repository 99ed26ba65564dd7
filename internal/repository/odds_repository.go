package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/models"
)

// PostgresOddsRepository implements OddsRepository for PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new odds repository
func NewPostgresOddsRepository(db *database.DB) OddsRepository {
	return &PostgresOddsRepository{db: db}
}

// SaveQuotes inserts quotes in one batch, replacing identical captures
func (r *PostgresOddsRepository) SaveQuotes(ctx context.Context, quotes []models.OddsQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	query := `
		INSERT INTO odds_quotes (match_id, bookmaker, market, outcome, odds, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, bookmaker, market, outcome, captured_at) DO UPDATE SET odds = EXCLUDED.odds
	`

	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(query, q.MatchID, q.Bookmaker, string(q.Market), string(q.Outcome), q.Odds, q.CapturedAt)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for i := range quotes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert quote %d: %w", i, err)
		}
	}
	return nil
}

// GetOdds retrieves every quote for one market of a match
func (r *PostgresOddsRepository) GetOdds(ctx context.Context, matchID string, market models.MarketKind) ([]models.OddsQuote, error) {
	query := `
		SELECT match_id, bookmaker, market, outcome, odds, captured_at
		FROM odds_quotes
		WHERE match_id = $1 AND market = $2
		ORDER BY captured_at, bookmaker, outcome
	`

	rows, err := r.db.GetPool().Query(ctx, query, matchID, string(market))
	if err != nil {
		return nil, fmt.Errorf("failed to query odds: %w", err)
	}
	defer rows.Close()

	var quotes []models.OddsQuote
	for rows.Next() {
		var q models.OddsQuote
		var marketName, outcome string
		if err := rows.Scan(&q.MatchID, &q.Bookmaker, &marketName, &outcome, &q.Odds, &q.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan odds: %w", err)
		}
		q.Market = models.MarketKind(marketName)
		q.Outcome = models.Outcome(outcome)
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating odds: %w", err)
	}
	return quotes, nil
}
