package models

import (
	"time"
)

// MarketKind identifies a betting market
type MarketKind string

const (
	MarketMatchResult MarketKind = "1X2"
	MarketOverUnder25 MarketKind = "OU25"
	MarketBTTS        MarketKind = "BTTS"
)

// Outcome labels a single outcome inside a market
type Outcome string

const (
	OutcomeHome  Outcome = "home"
	OutcomeDraw  Outcome = "draw"
	OutcomeAway  Outcome = "away"
	OutcomeOver  Outcome = "over"
	OutcomeUnder Outcome = "under"
	OutcomeYes   Outcome = "yes"
	OutcomeNo    Outcome = "no"
)

// OverUnderLine is the goal line of the over/under market
const OverUnderLine = 2.5

// Outcomes returns the closed outcome space of the market in canonical order
func (k MarketKind) Outcomes() []Outcome {
	switch k {
	case MarketMatchResult:
		return []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}
	case MarketOverUnder25:
		return []Outcome{OutcomeOver, OutcomeUnder}
	case MarketBTTS:
		return []Outcome{OutcomeYes, OutcomeNo}
	}
	return nil
}

// IsValid checks the market kind is one the engine understands
func (k MarketKind) IsValid() bool {
	return len(k.Outcomes()) > 0
}

// Contains checks whether the outcome belongs to the market
func (k MarketKind) Contains(o Outcome) bool {
	for _, candidate := range k.Outcomes() {
		if candidate == o {
			return true
		}
	}
	return false
}

// OddsQuote represents one bookmaker price for one outcome
type OddsQuote struct {
	MatchID    string     `db:"match_id" json:"match_id" validate:"required"`
	Bookmaker  string     `db:"bookmaker" json:"bookmaker" validate:"required"`
	Market     MarketKind `db:"market" json:"market" validate:"required,oneof=1X2 OU25 BTTS"`
	Outcome    Outcome    `db:"outcome" json:"outcome" validate:"required"`
	Odds       float64    `db:"odds" json:"odds" validate:"gte=1"`
	CapturedAt time.Time  `db:"captured_at" json:"captured_at"`
}

// ImpliedProbability returns 1/O, before any overround adjustment
func (q *OddsQuote) ImpliedProbability() float64 {
	if q.Odds <= 0 {
		return 0
	}
	return 1.0 / q.Odds
}
