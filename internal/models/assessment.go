package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Label is the advisory decision attached to an outcome
type Label string

const (
	LabelAvoid     Label = "avoid"
	LabelConsider  Label = "consider"
	LabelBet       Label = "bet"
	LabelStrongBet Label = "strong_bet"
)

// ValueAssessment compares the model probability of one outcome with the best market price
type ValueAssessment struct {
	Market             MarketKind `json:"market"`
	Outcome            Outcome    `json:"outcome"`
	ModelProbability   float64    `json:"model_probability"`
	BestOdds           float64    `json:"best_odds"`
	Bookmaker          string     `json:"bookmaker"`
	ImpliedProbability float64    `json:"implied_probability"`
	MarketProbability  float64    `json:"market_probability"`
	Overround          float64    `json:"overround"`
	ExpectedValue      float64    `json:"expected_value"`
	FairOdds           float64    `json:"fair_odds"`
	Label              Label      `json:"label"`
}

// IsValue reports whether the outcome carries positive expected value
func (a *ValueAssessment) IsValue() bool {
	return a.ExpectedValue > 0
}

// RiskFlag is an advisory tag raised by the stake sizer
type RiskFlag string

const (
	RiskConcentration RiskFlag = "concentration_risk"
	RiskEV            RiskFlag = "ev_risk"
	RiskProbability   RiskFlag = "probability_risk"
	RiskOdds          RiskFlag = "odds_risk"
)

// RiskSummary is the overall rating derived from the raised flags
type RiskSummary string

const (
	RiskLow    RiskSummary = "low"
	RiskMedium RiskSummary = "medium"
	RiskHigh   RiskSummary = "high"
)

// StakeRecommendation is a sized bet on a single outcome
type StakeRecommendation struct {
	MatchID          string          `json:"match_id"`
	Market           MarketKind      `json:"market"`
	Outcome          Outcome         `json:"outcome"`
	Odds             float64         `json:"odds"`
	ModelProbability float64         `json:"model_probability"`
	ExpectedValue    float64         `json:"expected_value"`
	KellyRaw         float64         `json:"kelly_raw"`
	StakeFraction    float64         `json:"stake_fraction"`
	StakeAmount      decimal.Decimal `json:"stake_amount"`
	Label            Label           `json:"label"`
	RiskFlags        []RiskFlag      `json:"risk_flags"`
	Risk             RiskSummary     `json:"risk"`
}

// HasStake reports whether the recommendation commits any capital
func (s *StakeRecommendation) HasStake() bool {
	return s.StakeFraction > 0 && s.StakeAmount.IsPositive()
}

// Recommendation is the full advisory output for one match
type Recommendation struct {
	ID            uuid.UUID              `json:"id"`
	MatchID       string                 `json:"match_id"`
	Kickoff       time.Time              `json:"kickoff"`
	GeneratedAt   time.Time              `json:"generated_at"`
	ModelFittedAt time.Time              `json:"model_fitted_at"`
	Prediction    MatchPrediction        `json:"prediction"`
	Assessments   []ValueAssessment      `json:"assessments"`
	Stakes        []StakeRecommendation  `json:"stakes"`
	Top           *StakeRecommendation   `json:"top,omitempty"`
	Overrounds    map[MarketKind]float64 `json:"overrounds"`
	Bankroll      BankrollState          `json:"bankroll"`
	RiskFlags     []RiskFlag             `json:"risk_flags"`
	Warnings      []string               `json:"warnings"`
}

// Settlement is the realised result of a match in every encoding the markets need.
// A nil field means that market cannot be settled.
type Settlement struct {
	Result          Outcome `json:"result,omitempty"`
	TotalGoals      *int    `json:"total_goals,omitempty"`
	BothTeamsScored *bool   `json:"both_teams_scored,omitempty"`
}

// Validate rejects settlements no real match can produce
func (s Settlement) Validate() error {
	if s.TotalGoals != nil && *s.TotalGoals < 0 {
		return fmt.Errorf("%w: negative total goals %d", ErrInvalidInputs, *s.TotalGoals)
	}
	return nil
}

// Winner returns the winning outcome of the market, false when the settlement does not cover it
func (s Settlement) Winner(market MarketKind) (Outcome, bool) {
	switch market {
	case MarketMatchResult:
		if MarketMatchResult.Contains(s.Result) {
			return s.Result, true
		}
	case MarketOverUnder25:
		if s.TotalGoals != nil {
			if float64(*s.TotalGoals) > OverUnderLine {
				return OutcomeOver, true
			}
			return OutcomeUnder, true
		}
	case MarketBTTS:
		if s.BothTeamsScored != nil {
			if *s.BothTeamsScored {
				return OutcomeYes, true
			}
			return OutcomeNo, true
		}
	}
	return "", false
}
