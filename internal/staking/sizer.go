// Package staking sizes bets with fractional Kelly and annotates their risk.
package staking

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Risk annotation thresholds
const (
	ConcentrationStake = 0.05
	LowEV              = 0.05
	LowProbability     = 0.30
	HighProbability    = 0.70
	ShortOdds          = 1.5
	LongOdds           = 5.0
)

// Config holds the sizing limits
type Config struct {
	RiskLevel        models.RiskLevel
	MaxStakeFraction float64
	MinStakeFraction float64
}

// ConfigFromBankroll derives sizing limits from bankroll configuration
func ConfigFromBankroll(cfg *config.BankrollConfig) Config {
	return Config{
		RiskLevel:        cfg.Level(),
		MaxStakeFraction: cfg.MaxStakeFraction,
		MinStakeFraction: cfg.MinStakeFraction,
	}
}

// Sizer handles fractional-Kelly stake sizing
type Sizer struct {
	cfg    Config
	mu     sync.RWMutex
	logger *logrus.Entry
}

// NewSizer creates a new stake sizer
func NewSizer(cfg Config, logger *logrus.Logger) (*Sizer, error) {
	if !cfg.RiskLevel.IsValid() {
		return nil, fmt.Errorf("%w: unknown risk level %q", models.ErrInvalidInputs, cfg.RiskLevel)
	}
	if cfg.MaxStakeFraction <= 0 || cfg.MinStakeFraction < 0 || cfg.MinStakeFraction > cfg.MaxStakeFraction {
		return nil, fmt.Errorf("%w: stake limits min=%.4f max=%.4f", models.ErrInvalidInputs, cfg.MinStakeFraction, cfg.MaxStakeFraction)
	}
	return &Sizer{cfg: cfg, logger: logger.WithField("component", "staking")}, nil
}

// RiskLevel returns the active risk level
func (s *Sizer) RiskLevel() models.RiskLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.RiskLevel
}

// SetRiskLevel switches the fraction-of-Kelly multiplier
func (s *Sizer) SetRiskLevel(level models.RiskLevel) error {
	if !level.IsValid() {
		return fmt.Errorf("%w: unknown risk level %q", models.ErrInvalidInputs, level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.RiskLevel = level
	return nil
}

// KellyRaw returns (f/4)·((p·O − 1)/(O − 1)) before clipping
func KellyRaw(p, odds, kellyFraction float64) float64 {
	return (kellyFraction / 4) * ((p*odds - 1) / (odds - 1))
}

// StakeFraction returns the clipped, floored fraction of bankroll to stake and the raw Kelly value
func (s *Sizer) StakeFraction(p, odds float64) (fraction, raw float64, err error) {
	if p <= 0 || p >= 1 || odds <= 1 {
		return 0, 0, fmt.Errorf("%w: p=%.4f odds=%.4f", models.ErrInvalidInputs, p, odds)
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	raw = KellyRaw(p, odds, cfg.RiskLevel.KellyFraction())
	ev := p*odds - 1
	if ev <= 0 || raw <= 0 {
		return 0, raw, nil
	}

	fraction = raw
	if fraction > cfg.MaxStakeFraction {
		fraction = cfg.MaxStakeFraction
	}
	if fraction < cfg.MinStakeFraction {
		fraction = cfg.MinStakeFraction
	}
	return fraction, raw, nil
}

// Size turns a value assessment into a stake recommendation against the current capital
func (s *Sizer) Size(matchID string, a models.ValueAssessment, capital decimal.Decimal) (models.StakeRecommendation, error) {
	fraction, raw, err := s.StakeFraction(a.ModelProbability, a.BestOdds)
	if err != nil {
		return models.StakeRecommendation{}, err
	}

	amount := decimal.Zero
	if capital.IsPositive() {
		amount = capital.Mul(decimal.NewFromFloat(fraction)).Round(2)
	}

	label := a.Label
	if fraction == 0 || !amount.IsPositive() {
		label = models.LabelAvoid
	}

	flags, summary := Annotate(fraction, a.ExpectedValue, a.ModelProbability, a.BestOdds)
	rec := models.StakeRecommendation{
		MatchID:          matchID,
		Market:           a.Market,
		Outcome:          a.Outcome,
		Odds:             a.BestOdds,
		ModelProbability: a.ModelProbability,
		ExpectedValue:    a.ExpectedValue,
		KellyRaw:         raw,
		StakeFraction:    fraction,
		StakeAmount:      amount,
		Label:            label,
		RiskFlags:        flags,
		Risk:             summary,
	}

	s.logger.WithFields(logrus.Fields{
		"match_id":       matchID,
		"market":         a.Market,
		"outcome":        a.Outcome,
		"odds":           a.BestOdds,
		"probability":    a.ModelProbability,
		"kelly_raw":      raw,
		"stake_fraction": fraction,
		"stake":          amount.String(),
		"risk":           summary,
	}).Debug("Stake sized")

	return rec, nil
}

// Annotate tags a sized bet with advisory risk flags and an overall rating
func Annotate(fraction, ev, p, odds float64) ([]models.RiskFlag, models.RiskSummary) {
	var flags []models.RiskFlag
	if fraction > ConcentrationStake {
		flags = append(flags, models.RiskConcentration)
	}
	if ev < LowEV {
		flags = append(flags, models.RiskEV)
	}
	if p < LowProbability || p > HighProbability {
		flags = append(flags, models.RiskProbability)
	}
	if odds < ShortOdds || odds > LongOdds {
		flags = append(flags, models.RiskOdds)
	}

	switch {
	case len(flags) >= 3:
		return flags, models.RiskHigh
	case len(flags) >= 1:
		return flags, models.RiskMedium
	default:
		return flags, models.RiskLow
	}
}
