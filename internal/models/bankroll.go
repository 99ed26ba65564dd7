package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel selects the fraction-of-Kelly multiplier
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
	RiskMaximum      RiskLevel = "maximum"
)

// RiskLevels lists every risk level in increasing order of aggression
var RiskLevels = []RiskLevel{RiskConservative, RiskModerate, RiskAggressive, RiskMaximum}

// KellyFraction returns the fraction-of-Kelly multiplier for the level
func (r RiskLevel) KellyFraction() float64 {
	switch r {
	case RiskConservative:
		return 0.25
	case RiskModerate:
		return 0.50
	case RiskAggressive:
		return 0.75
	case RiskMaximum:
		return 1.00
	}
	return 0
}

// IsValid checks the risk level is recognised
func (r RiskLevel) IsValid() bool {
	return r.KellyFraction() > 0
}

// AlertType identifies a bankroll risk-limit predicate
type AlertType string

const (
	AlertMaxDrawdownExceeded AlertType = "MAX_DRAWDOWN_EXCEEDED"
	AlertStopLossTriggered   AlertType = "STOP_LOSS_TRIGGERED"
	AlertTakeProfitTriggered AlertType = "TAKE_PROFIT_TRIGGERED"
	AlertLowWinRate          AlertType = "LOW_WIN_RATE"
)

// AlertSeverity grades an alert
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Alert is a risk-limit predicate currently holding on the bankroll
type Alert struct {
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
	RaisedAt  time.Time     `json:"raised_at"`
}

// IsCritical checks if the alert blocks new advice
func (a Alert) IsCritical() bool {
	return a.Severity == SeverityCritical
}

// BankrollState is a consistent snapshot of the ledger and its derived statistics
type BankrollState struct {
	InitialCapital    decimal.Decimal `json:"initial_capital"`
	CurrentCapital    decimal.Decimal `json:"current_capital"`
	PeakCapital       decimal.Decimal `json:"peak_capital"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	Profit            decimal.Decimal `json:"profit"`
	ProfitPct         float64         `json:"profit_pct"`
	CurrentDrawdown   float64         `json:"current_drawdown"`
	MaxDrawdown       float64         `json:"max_drawdown"`
	TotalBets         int             `json:"total_bets"`
	Wins              int             `json:"wins"`
	Losses            int             `json:"losses"`
	WinRate           float64         `json:"win_rate"`
	TotalStaked       decimal.Decimal `json:"total_staked"`
	MeanStake         decimal.Decimal `json:"mean_stake"`
	ROI               float64         `json:"roi"`
	LongestWinStreak  int             `json:"longest_win_streak"`
	LongestLossStreak int             `json:"longest_loss_streak"`
	Alerts            []Alert         `json:"alerts"`
}

// CriticalAlerts returns the alerts that halt the bankroll
func (s BankrollState) CriticalAlerts() []Alert {
	var out []Alert
	for _, a := range s.Alerts {
		if a.IsCritical() {
			out = append(out, a)
		}
	}
	return out
}

// IsHalted reports whether any critical alert is active
func (s BankrollState) IsHalted() bool {
	return len(s.CriticalAlerts()) > 0
}
