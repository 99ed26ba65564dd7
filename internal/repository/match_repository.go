package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/models"
)

const matchColumns = `id, kickoff, league_id, season, home_team_id, away_team_id, home_goals, away_goals, auxiliary`

// PostgresMatchRepository implements MatchRepository for PostgreSQL
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) MatchRepository {
	return &PostgresMatchRepository{db: db}
}

// SaveMatch inserts a match or updates its score and auxiliary signals
func (r *PostgresMatchRepository) SaveMatch(ctx context.Context, match *models.Match) error {
	if err := match.Validate(); err != nil {
		return err
	}
	aux := match.Auxiliary
	if aux == nil {
		aux = map[string]string{}
	}

	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			kickoff = EXCLUDED.kickoff,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			auxiliary = EXCLUDED.auxiliary
	`
	_, err := r.db.GetPool().Exec(ctx, query,
		match.ID, match.Kickoff, match.LeagueID, match.Season, match.HomeTeamID, match.AwayTeamID,
		match.HomeGoals, match.AwayGoals, aux,
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// GetMatch retrieves a match by ID
func (r *PostgresMatchRepository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// ListMatches retrieves matches passing the filter ordered by kickoff
func (r *PostgresMatchRepository) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.LeagueID != "" {
		add("league_id = $%d", filter.LeagueID)
	}
	if filter.Season != "" {
		add("season = $%d", filter.Season)
	}
	if !filter.From.IsZero() {
		add("kickoff >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("kickoff < $%d", filter.To)
	}
	if filter.CompletedOnly {
		conditions = append(conditions, "home_goals IS NOT NULL AND away_goals IS NOT NULL")
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY kickoff, id"

	return r.queryMatches(ctx, query, args...)
}

// ListPriorMatches retrieves the team's matches before the given time, oldest first
func (r *PostgresMatchRepository) ListPriorMatches(ctx context.Context, teamID string, before time.Time) ([]models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (home_team_id = $1 OR away_team_id = $1) AND kickoff < $2
		ORDER BY kickoff, id
	`
	return r.queryMatches(ctx, query, teamID, before)
}

func (r *PostgresMatchRepository) queryMatches(ctx context.Context, query string, args ...any) ([]models.Match, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.Kickoff, &m.LeagueID, &m.Season, &m.HomeTeamID, &m.AwayTeamID,
		&m.HomeGoals, &m.AwayGoals, &m.Auxiliary,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
