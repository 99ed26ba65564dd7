package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AdvisoryLogger provides dedicated logging for the advisory pipeline.
type AdvisoryLogger struct {
	*logrus.Entry
}

// NewAdvisoryLogger creates a new advisory logger.
func NewAdvisoryLogger(baseLogger *logrus.Logger) *AdvisoryLogger {
	return &AdvisoryLogger{
		Entry: baseLogger.WithField("component", "advisor"),
	}
}

// LogRecommendation logs the outcome of one advise call.
func (al *AdvisoryLogger) LogRecommendation(matchID, recommendationID string, assessments, sized int, topOutcome string, topEV, topStake float64, warnings int) {
	al.WithFields(logrus.Fields{
		"match_id":          matchID,
		"recommendation_id": recommendationID,
		"assessments":       assessments,
		"sized":             sized,
		"top_outcome":       topOutcome,
		"top_ev":            topEV,
		"top_stake":         topStake,
		"warnings":          warnings,
	}).Info("Recommendation produced")
}

// LogOutcomeSkipped logs a recoverable per-outcome failure.
func (al *AdvisoryLogger) LogOutcomeSkipped(matchID, market, outcome, reason string) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"market":   market,
		"outcome":  outcome,
		"reason":   reason,
	}).Warn("Outcome skipped")
}

// LogAdviceRefused logs a refusal caused by a halted bankroll.
func (al *AdvisoryLogger) LogAdviceRefused(matchID string, alerts []string) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"alerts":   alerts,
	}).Warn("Advice refused: bankroll halted")
}

// LogSettlement logs the settlement of a match.
func (al *AdvisoryLogger) LogSettlement(matchID string, placed bool, profit string) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"placed":   placed,
		"profit":   profit,
	}).Info("Match settled")
}

// LogPendingExpired logs a recommendation dropped unsettled long after kickoff.
func (al *AdvisoryLogger) LogPendingExpired(matchID string, kickoff time.Time) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"kickoff":  kickoff.Format(time.RFC3339),
	}).Warn("Unsettled recommendation expired")
}
