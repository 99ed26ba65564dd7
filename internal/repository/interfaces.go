package repository

import (
	"context"
	"time"

	"github.com/yourusername/bet-advisor/internal/models"
)

// MatchRepository stores fixtures and results. Time bounds are half-open: From inclusive, To exclusive.
type MatchRepository interface {
	SaveMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
	// ListPriorMatches returns the team's matches with kickoff strictly before the given time, oldest first
	ListPriorMatches(ctx context.Context, teamID string, before time.Time) ([]models.Match, error)
}

// OddsRepository stores bookmaker quotes
type OddsRepository interface {
	SaveQuotes(ctx context.Context, quotes []models.OddsQuote) error
	GetOdds(ctx context.Context, matchID string, market models.MarketKind) ([]models.OddsQuote, error)
}

// BetRecordRepository retains settled bet records in insertion order
type BetRecordRepository interface {
	AppendBetRecord(ctx context.Context, record *models.BetRecord) error
	ListBetRecords(ctx context.Context) ([]models.BetRecord, error)
	DeleteBetRecords(ctx context.Context) error
}

// ModelFitRepository persists fit reports alongside each fitted artifact
type ModelFitRepository interface {
	SaveFit(ctx context.Context, report *models.ModelFitReport) error
	LatestFit(ctx context.Context) (*models.ModelFitReport, error)
	ListFits(ctx context.Context, limit int) ([]models.ModelFitReport, error)
}
