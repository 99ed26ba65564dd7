package bankroll

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Limits defines the risk-limit thresholds evaluated after every bet
type Limits struct {
	MaxDrawdown         float64 `json:"max_drawdown"`
	StopLoss            float64 `json:"stop_loss"`
	TakeProfit          float64 `json:"take_profit"`
	LowWinRate          float64 `json:"low_win_rate"`
	LowWinRateMinSample int     `json:"low_win_rate_min_sample"`
}

// DefaultLimits returns the standard thresholds
func DefaultLimits() Limits {
	return Limits{
		MaxDrawdown:         0.20,
		StopLoss:            0.15,
		TakeProfit:          0.30,
		LowWinRate:          0.40,
		LowWinRateMinSample: 10,
	}
}

// LimitsFromConfig derives thresholds from bankroll configuration
func LimitsFromConfig(cfg *config.BankrollConfig) Limits {
	return Limits{
		MaxDrawdown:         cfg.MaxDrawdownFraction,
		StopLoss:            cfg.StopLossFraction,
		TakeProfit:          cfg.TakeProfitFraction,
		LowWinRate:          cfg.LowWinRate,
		LowWinRateMinSample: cfg.LowWinRateMinSample,
	}
}

// Evaluate returns the alerts whose predicates hold for the given state
func (lim Limits) Evaluate(state models.BankrollState) []models.Alert {
	var alerts []models.Alert

	if state.CurrentDrawdown > lim.MaxDrawdown {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertMaxDrawdownExceeded,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Drawdown %.2f%% exceeds maximum %.2f%%", state.CurrentDrawdown*100, lim.MaxDrawdown*100),
			Value:     state.CurrentDrawdown,
			Threshold: lim.MaxDrawdown,
		})
	}

	if state.ProfitPct < -lim.StopLoss {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertStopLossTriggered,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Loss %.2f%% beyond stop-loss %.2f%%", -state.ProfitPct*100, lim.StopLoss*100),
			Value:     state.ProfitPct,
			Threshold: -lim.StopLoss,
		})
	}

	if state.ProfitPct > lim.TakeProfit {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertTakeProfitTriggered,
			Severity:  models.SeverityInfo,
			Message:   fmt.Sprintf("Profit %.2f%% above take-profit %.2f%%", state.ProfitPct*100, lim.TakeProfit*100),
			Value:     state.ProfitPct,
			Threshold: lim.TakeProfit,
		})
	}

	if state.TotalBets >= lim.LowWinRateMinSample && state.WinRate < lim.LowWinRate {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertLowWinRate,
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("Win rate %.2f%% below %.2f%% over %d bets", state.WinRate*100, lim.LowWinRate*100, state.TotalBets),
			Value:     state.WinRate,
			Threshold: lim.LowWinRate,
		})
	}

	return alerts
}

// evaluateAlertsLocked replaces the active alert set and returns alerts that were not active before.
// Alerts that keep holding retain their original raise time.
func (l *Ledger) evaluateAlertsLocked() []models.Alert {
	state := l.snapshotLocked()
	next := l.limits.Evaluate(state)

	previous := make(map[models.AlertType]models.Alert, len(l.alerts))
	for _, a := range l.alerts {
		previous[a.Type] = a
	}

	var raised []models.Alert
	now := l.now().UTC()
	for i := range next {
		if prior, ok := previous[next[i].Type]; ok {
			next[i].RaisedAt = prior.RaisedAt
			delete(previous, next[i].Type)
			continue
		}
		next[i].RaisedAt = now
		raised = append(raised, next[i])
		l.audit.LogAlertRaised(string(next[i].Type), string(next[i].Severity), next[i].Message,
			next[i].Value, next[i].Threshold, now)
	}
	for alertType := range previous {
		l.audit.LogAlertCleared(string(alertType))
	}

	l.alerts = next
	return raised
}

func (l *Ledger) notify(raised []models.Alert) {
	if len(raised) == 0 {
		return
	}

	l.mu.RLock()
	handlers := append([]AlertHandler(nil), l.handlers...)
	l.mu.RUnlock()

	for _, alert := range raised {
		if alert.IsCritical() {
			l.logger.WithFields(logrus.Fields{
				"alert_type": alert.Type,
				"value":      alert.Value,
				"threshold":  alert.Threshold,
			}).Error("Bankroll halted")
		}
		for _, handler := range handlers {
			handler(alert)
		}
	}
}
