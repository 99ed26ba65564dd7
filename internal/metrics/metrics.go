// Package metrics provides the centralized Prometheus registry for the advisory engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/bet-advisor/internal/models"
)

const namespace = "bet_advisor"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BetsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_settled_total",
		Help:      "Total number of bets settled by result",
	}, []string{"result"})
	AlertsRaisedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_raised_total",
		Help:      "Total number of bankroll alerts raised",
	}, []string{"type", "severity"})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_bankroll",
		Help:      "Current bankroll in currency units",
	})
	PeakBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "peak_bankroll",
		Help:      "Running maximum of the bankroll",
	})
	CurrentDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_drawdown_ratio",
		Help:      "Current drawdown from peak as a fraction",
	})
	WinRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "win_rate",
		Help:      "Fraction of settled bets won",
	})
	BankrollHalted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bankroll_halted",
		Help:      "1 while a critical alert blocks new advice",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register bankroll metrics
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(AlertsRaisedTotal)
		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(PeakBankroll)
		registry.MustRegister(CurrentDrawdown)
		registry.MustRegister(WinRate)
		registry.MustRegister(BankrollHalted)

		// Register advisory metrics
		registry.MustRegister(AdvicesTotal)
		registry.MustRegister(AdviceDuration)
		registry.MustRegister(AssessmentsTotal)
		registry.MustRegister(StakeFraction)
		registry.MustRegister(OutcomesSkippedTotal)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(BacktestROI)
		registry.MustRegister(BacktestRiskScore)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler. The default registry carries the Go runtime
// collectors and the promauto model metrics, so it is gathered alongside.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// RecordBetSettled records a settled bet.
func RecordBetSettled(result models.BetResult) {
	BetsSettledTotal.WithLabelValues(string(result)).Inc()
}

// RecordAlert records a newly raised bankroll alert.
func RecordAlert(alert models.Alert) {
	AlertsRaisedTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()
}

// UpdateBankroll mirrors a bankroll snapshot into the gauges.
func UpdateBankroll(state models.BankrollState) {
	current, _ := state.CurrentCapital.Float64()
	peak, _ := state.PeakCapital.Float64()
	CurrentBankroll.Set(current)
	PeakBankroll.Set(peak)
	CurrentDrawdown.Set(state.CurrentDrawdown)
	WinRate.Set(state.WinRate)
	if state.IsHalted() {
		BankrollHalted.Set(1)
	} else {
		BankrollHalted.Set(0)
	}
}
