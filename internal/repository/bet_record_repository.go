package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/models"
)

const uniqueViolation = "23505"

// PostgresBetRecordRepository implements BetRecordRepository for PostgreSQL.
// The sequence column preserves insertion order.
type PostgresBetRecordRepository struct {
	db *database.DB
}

// NewPostgresBetRecordRepository creates a new bet record repository
func NewPostgresBetRecordRepository(db *database.DB) BetRecordRepository {
	return &PostgresBetRecordRepository{db: db}
}

// AppendBetRecord inserts a settled bet record
func (r *PostgresBetRecordRepository) AppendBetRecord(ctx context.Context, record *models.BetRecord) error {
	query := `
		INSERT INTO bet_records (id, placed_at, match_id, market, outcome, stake_amount, stake_fraction,
		                         odds, model_probability, expected_value, result, profit,
		                         capital_before, capital_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		record.ID, record.PlacedAt, record.MatchID, string(record.Market), string(record.Outcome),
		record.StakeAmount, record.StakeFraction, record.Odds, record.ModelProbability, record.ExpectedValue,
		string(record.Result), record.Profit, record.CapitalBefore, record.CapitalAfter,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to append bet record: %w", err)
	}
	return nil
}

// ListBetRecords retrieves every record in insertion order
func (r *PostgresBetRecordRepository) ListBetRecords(ctx context.Context) ([]models.BetRecord, error) {
	query := `
		SELECT sequence, id, placed_at, match_id, market, outcome, stake_amount, stake_fraction,
		       odds, model_probability, expected_value, result, profit, capital_before, capital_after
		FROM bet_records
		ORDER BY sequence
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bet records: %w", err)
	}
	defer rows.Close()

	var records []models.BetRecord
	for rows.Next() {
		var rec models.BetRecord
		var market, outcome, result string
		err := rows.Scan(
			&rec.Sequence, &rec.ID, &rec.PlacedAt, &rec.MatchID, &market, &outcome, &rec.StakeAmount,
			&rec.StakeFraction, &rec.Odds, &rec.ModelProbability, &rec.ExpectedValue, &result,
			&rec.Profit, &rec.CapitalBefore, &rec.CapitalAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet record: %w", err)
		}
		rec.Market = models.MarketKind(market)
		rec.Outcome = models.Outcome(outcome)
		rec.Result = models.BetResult(result)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet records: %w", err)
	}

	// the ledger numbers records from 1
	for i := range records {
		records[i].Sequence = int64(i + 1)
	}
	return records, nil
}

// DeleteBetRecords removes every record
func (r *PostgresBetRecordRepository) DeleteBetRecords(ctx context.Context) error {
	if _, err := r.db.GetPool().Exec(ctx, "DELETE FROM bet_records"); err != nil {
		return fmt.Errorf("failed to delete bet records: %w", err)
	}
	return nil
}
