package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/models"
)

// PostgresModelFitRepository implements ModelFitRepository for PostgreSQL
type PostgresModelFitRepository struct {
	db *database.DB
}

// NewPostgresModelFitRepository creates a new model fit repository
func NewPostgresModelFitRepository(db *database.DB) ModelFitRepository {
	return &PostgresModelFitRepository{db: db}
}

// SaveFit stores a fit report as JSON next to its indexed columns
func (r *PostgresModelFitRepository) SaveFit(ctx context.Context, report *models.ModelFitReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal fit report: %w", err)
	}

	query := `
		INSERT INTO model_fits (id, fitted_at, training_cutoff, training_samples, strategy, report)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.GetPool().Exec(ctx, query,
		report.ID, report.FittedAt, report.TrainingCutoff, report.TrainingSamples, string(report.Strategy), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save fit report: %w", err)
	}
	return nil
}

// LatestFit retrieves the most recent fit report
func (r *PostgresModelFitRepository) LatestFit(ctx context.Context) (*models.ModelFitReport, error) {
	var payload []byte
	err := r.db.GetPool().QueryRow(ctx, `SELECT report FROM model_fits ORDER BY fitted_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest fit: %w", err)
	}

	var report models.ModelFitReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode fit report: %w", err)
	}
	return &report, nil
}

// ListFits retrieves fit reports newest first
func (r *PostgresModelFitRepository) ListFits(ctx context.Context, limit int) ([]models.ModelFitReport, error) {
	query := `SELECT report FROM model_fits ORDER BY fitted_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fit reports: %w", err)
	}
	defer rows.Close()

	var reports []models.ModelFitReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan fit report: %w", err)
		}
		var report models.ModelFitReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("failed to decode fit report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fit reports: %w", err)
	}
	return reports, nil
}
