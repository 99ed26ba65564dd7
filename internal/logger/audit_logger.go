package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for the bankroll ledger.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBetSettled logs one appended bet record.
func (al *AuditLogger) LogBetSettled(betID, matchID, market, outcome, result string, sequence int64, odds float64, stake, profit, capitalBefore, capitalAfter string) {
	al.WithFields(logrus.Fields{
		"bet_id":         betID,
		"sequence":       sequence,
		"match_id":       matchID,
		"market":         market,
		"outcome":        outcome,
		"result":         result,
		"stake":          stake,
		"odds":           odds,
		"profit":         profit,
		"capital_before": capitalBefore,
		"capital_after":  capitalAfter,
	}).Info("Bet record appended")
}

// LogAlertRaised logs a risk-limit predicate that started holding.
func (al *AuditLogger) LogAlertRaised(alertType, severity, message string, value, threshold float64, raisedAt time.Time) {
	entry := al.WithFields(logrus.Fields{
		"alert_type": alertType,
		"severity":   severity,
		"value":      value,
		"threshold":  threshold,
		"raised_at":  raisedAt.Unix(),
	})
	if severity == "critical" {
		entry.Error(message)
		return
	}
	entry.Warn(message)
}

// LogAlertCleared logs a risk-limit predicate that stopped holding.
func (al *AuditLogger) LogAlertCleared(alertType string) {
	al.WithField("alert_type", alertType).Info("Bankroll alert cleared")
}

// LogLedgerReset logs an administrative reset of the ledger.
func (al *AuditLogger) LogLedgerReset(previousCapital, newCapital string, discardedRecords int) {
	al.WithFields(logrus.Fields{
		"previous_capital":  previousCapital,
		"new_capital":       newCapital,
		"discarded_records": discardedRecords,
	}).Warn("Bankroll ledger reset")
}

// LogLedgerReplayed logs reconstruction of the ledger from stored records.
func (al *AuditLogger) LogLedgerReplayed(records int, initialCapital, currentCapital string) {
	al.WithFields(logrus.Fields{
		"records":         records,
		"initial_capital": initialCapital,
		"current_capital": currentCapital,
	}).Info("Bankroll ledger replayed from store")
}
