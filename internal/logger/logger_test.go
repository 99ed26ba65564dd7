package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	log := NewLogger("debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestAuditLoggerBetSettled(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogBetSettled("bet-1", "m-1", "1X2", "home", "won", 3, 2.2, "10", "12", "1000", "1012")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "1012", entry["capital_after"])
	assert.Equal(t, float64(3), entry["sequence"])
	assert.Equal(t, "info", entry["level"])
}

func TestAuditLoggerAlertSeverity(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogAlertRaised("MAX_DRAWDOWN_EXCEEDED", "critical", "drawdown exceeded", 0.27, 0.2, time.Now())
	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "MAX_DRAWDOWN_EXCEEDED", entry["alert_type"])

	buf.Reset()
	audit.LogAlertRaised("LOW_WIN_RATE", "warning", "win rate low", 0.3, 0.4, time.Now())
	entry = parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "warning", entry["level"])
}

func TestModelLoggerFit(t *testing.T) {
	log, buf := setupTestLogger()
	ml := NewModelLogger(log)

	ml.LogModelFit("fit-1", "stacked", 200, 12, 30, 0.51, 0.98, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1500*time.Millisecond)

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "models", entry["component"])
	assert.Equal(t, "stacked", entry["strategy"])
	assert.Equal(t, float64(1500), entry["duration_ms"])
	assert.Equal(t, "2024-01-01T00:00:00Z", entry["training_cutoff"])
}

func TestAdvisoryLoggerOutcomeSkipped(t *testing.T) {
	log, buf := setupTestLogger()
	adv := NewAdvisoryLogger(log)

	adv.LogOutcomeSkipped("m-9", "BTTS", "yes", "no odds for market")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "advisor", entry["component"])
	assert.Equal(t, "BTTS", entry["market"])
	assert.Equal(t, "warning", entry["level"])
}

func TestAdvisoryLoggerPendingExpired(t *testing.T) {
	log, buf := setupTestLogger()
	adv := NewAdvisoryLogger(log)

	adv.LogPendingExpired("m-3", time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC))

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "m-3", entry["match_id"])
	assert.Equal(t, "2024-03-09T15:00:00Z", entry["kickoff"])
	assert.Equal(t, "warning", entry["level"])
}
