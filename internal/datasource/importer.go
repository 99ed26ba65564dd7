package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Store receives imported fixtures
type Store interface {
	SaveMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	SaveQuotes(ctx context.Context, quotes []models.OddsQuote) error
}

// ImportResult counts what an import wrote and rejected
type ImportResult struct {
	Source          string   `json:"source"`
	MatchesImported int      `json:"matches_imported"`
	QuotesImported  int      `json:"quotes_imported"`
	Rejected        int      `json:"rejected"`
	Errors          []string `json:"errors,omitempty"`
}

// Importer validates fixtures and writes them to the store. Invalid records are
// rejected individually and the rest of the batch still imports.
type Importer struct {
	store    Store
	validate *validator.Validate
	logger   *logrus.Entry
}

// NewImporter creates an importer
func NewImporter(store Store, logger *logrus.Logger) (*Importer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{
		store:    store,
		validate: validator.New(),
		logger:   logger.WithField("component", "importer"),
	}, nil
}

// Import fetches from the source and stores matches before their quotes
func (i *Importer) Import(ctx context.Context, source Source) (*ImportResult, error) {
	fx, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures from %s: %w", source.Name(), err)
	}

	result := &ImportResult{Source: source.Name()}
	known := make(map[string]bool, len(fx.Matches))
	for idx := range fx.Matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		m := &fx.Matches[idx]
		if err := i.validateMatch(m); err != nil {
			i.reject(result, err)
			continue
		}
		if err := i.store.SaveMatch(ctx, m); err != nil {
			return result, fmt.Errorf("failed to save match %s: %w", m.ID, err)
		}
		known[m.ID] = true
		result.MatchesImported++
	}

	quotes := make([]models.OddsQuote, 0, len(fx.Quotes))
	for _, q := range fx.Quotes {
		if err := i.validateQuote(ctx, q, known); err != nil {
			i.reject(result, err)
			continue
		}
		quotes = append(quotes, q)
	}
	if len(quotes) > 0 {
		if err := i.store.SaveQuotes(ctx, quotes); err != nil {
			return result, fmt.Errorf("failed to save quotes: %w", err)
		}
	}
	result.QuotesImported = len(quotes)

	i.logger.WithFields(logrus.Fields{
		"source":   result.Source,
		"matches":  result.MatchesImported,
		"quotes":   result.QuotesImported,
		"rejected": result.Rejected,
	}).Info("Fixture import completed")
	return result, nil
}

func (i *Importer) validateMatch(m *models.Match) error {
	if err := i.validate.Struct(m); err != nil {
		return fmt.Errorf("%w: match %s: %v", models.ErrInvalidInputs, m.ID, err)
	}
	return m.Validate()
}

// validateQuote requires a known match and an outcome of the quoted market
func (i *Importer) validateQuote(ctx context.Context, q models.OddsQuote, known map[string]bool) error {
	if err := i.validate.Struct(q); err != nil {
		return fmt.Errorf("%w: quote for %s: %v", models.ErrInvalidInputs, q.MatchID, err)
	}
	if !q.Market.Contains(q.Outcome) {
		return fmt.Errorf("%w: outcome %s is not in market %s", models.ErrInvalidInputs, q.Outcome, q.Market)
	}
	if q.Odds <= 1 {
		return fmt.Errorf("%w: odds %.2f for %s must exceed 1", models.ErrInvalidInputs, q.Odds, q.MatchID)
	}
	if q.CapturedAt.IsZero() {
		return fmt.Errorf("%w: quote for %s has no capture time", models.ErrInvalidInputs, q.MatchID)
	}
	if known[q.MatchID] {
		return nil
	}
	if _, err := i.store.GetMatch(ctx, q.MatchID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: quote for unknown match %s", models.ErrInvalidInputs, q.MatchID)
		}
		return err
	}
	known[q.MatchID] = true
	return nil
}

func (i *Importer) reject(result *ImportResult, err error) {
	result.Rejected++
	result.Errors = append(result.Errors, err.Error())
	i.logger.WithError(err).Warn("Rejected imported record")
}
