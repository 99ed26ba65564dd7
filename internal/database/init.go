package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/config"
)

// schema is applied idempotently on startup. bet_records.sequence preserves insertion order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id            TEXT PRIMARY KEY,
		kickoff       TIMESTAMPTZ NOT NULL,
		league_id     TEXT NOT NULL,
		season        TEXT NOT NULL DEFAULT '',
		home_team_id  TEXT NOT NULL,
		away_team_id  TEXT NOT NULL,
		home_goals    INTEGER,
		away_goals    INTEGER,
		auxiliary     JSONB NOT NULL DEFAULT '{}'::jsonb,
		CHECK (home_team_id <> away_team_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches (kickoff)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_home_team ON matches (home_team_id, kickoff)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_away_team ON matches (away_team_id, kickoff)`,
	`CREATE TABLE IF NOT EXISTS odds_quotes (
		match_id    TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		bookmaker   TEXT NOT NULL,
		market      TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		odds        DOUBLE PRECISION NOT NULL CHECK (odds >= 1),
		captured_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (match_id, bookmaker, market, outcome, captured_at)
	)`,
	`CREATE TABLE IF NOT EXISTS bet_records (
		sequence          BIGSERIAL PRIMARY KEY,
		id                UUID NOT NULL UNIQUE,
		placed_at         TIMESTAMPTZ NOT NULL,
		match_id          TEXT NOT NULL,
		market            TEXT NOT NULL,
		outcome           TEXT NOT NULL,
		stake_amount      NUMERIC(20, 8) NOT NULL,
		stake_fraction    DOUBLE PRECISION NOT NULL,
		odds              DOUBLE PRECISION NOT NULL,
		model_probability DOUBLE PRECISION NOT NULL,
		expected_value    DOUBLE PRECISION NOT NULL,
		result            TEXT NOT NULL,
		profit            NUMERIC(20, 8) NOT NULL,
		capital_before    NUMERIC(20, 8) NOT NULL,
		capital_after     NUMERIC(20, 8) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_fits (
		id               UUID PRIMARY KEY,
		fitted_at        TIMESTAMPTZ NOT NULL,
		training_cutoff  TIMESTAMPTZ NOT NULL,
		training_samples INTEGER NOT NULL,
		strategy         TEXT NOT NULL,
		report           JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_model_fits_fitted_at ON model_fits (fitted_at DESC)`,
}

// Initialize creates a connection pool and applies the schema
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.ApplySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"component": "database",
		"host":      cfg.Database.Host,
		"database":  cfg.Database.Name,
	}).Info("Database initialised")

	return db, nil
}

// ApplySchema creates any missing tables and indexes
func (db *DB) ApplySchema(ctx context.Context) error {
	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
