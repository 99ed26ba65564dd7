package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/models"
)

// RefitCadence controls how often models are refit while replaying matches
type RefitCadence string

const (
	RefitNever    RefitCadence = "never"
	RefitPerMatch RefitCadence = "per_match"
	RefitPerMonth RefitCadence = "per_month"
)

// IsValid checks the cadence is recognised
func (c RefitCadence) IsValid() bool {
	switch c {
	case RefitNever, RefitPerMatch, RefitPerMonth:
		return true
	}
	return false
}

// DefaultDrawdownEpsilon floors the drawdown in the risk-adjusted score
const DefaultDrawdownEpsilon = 0.01

// Config holds the settings of one backtest run
type Config struct {
	From                 time.Time
	To                   time.Time
	LeagueID             string
	InitialCapital       decimal.Decimal
	RiskLevel            models.RiskLevel
	RefitCadence         RefitCadence
	SweepRiskLevels      bool
	MonteCarloIterations int
	MonteCarloSeed       int64
	DrawdownEpsilon      float64
}

// FromConfig converts app config to backtest config. The match range is left open.
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backtest config is required")
	}
	bt := Config{
		InitialCapital:       decimal.NewFromFloat(cfg.InitialCapital),
		RiskLevel:            cfg.Level(),
		RefitCadence:         RefitCadence(cfg.RefitCadence),
		SweepRiskLevels:      cfg.SweepRiskLevels,
		MonteCarloIterations: cfg.MonteCarloIterations,
		DrawdownEpsilon:      cfg.DrawdownEpsilon,
	}
	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if !c.From.IsZero() && !c.To.IsZero() && !c.From.Before(c.To) {
		return fmt.Errorf("%w: start date must be before end date", models.ErrInvalidInputs)
	}
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial capital must be positive", models.ErrInvalidInputs)
	}
	if !c.RiskLevel.IsValid() {
		return fmt.Errorf("%w: unknown risk level %q", models.ErrInvalidInputs, c.RiskLevel)
	}
	if !c.RefitCadence.IsValid() {
		return fmt.Errorf("%w: unknown refit cadence %q", models.ErrInvalidInputs, c.RefitCadence)
	}
	if c.MonteCarloIterations < 0 {
		return fmt.Errorf("%w: monte carlo iterations cannot be negative", models.ErrInvalidInputs)
	}
	if c.DrawdownEpsilon < 0 {
		return fmt.Errorf("%w: drawdown epsilon cannot be negative", models.ErrInvalidInputs)
	}
	return nil
}

func (c Config) epsilon() float64 {
	if c.DrawdownEpsilon <= 0 {
		return DefaultDrawdownEpsilon
	}
	return c.DrawdownEpsilon
}
