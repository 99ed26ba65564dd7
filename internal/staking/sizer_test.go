package staking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/odds"
)

func newTestSizer(t *testing.T, level models.RiskLevel) *Sizer {
	t.Helper()
	s, err := NewSizer(Config{RiskLevel: level, MaxStakeFraction: 0.10, MinStakeFraction: 0.01}, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func assessment(p, o float64) models.ValueAssessment {
	ev := odds.ExpectedValue(p, o)
	return models.ValueAssessment{
		Market:           models.MarketMatchResult,
		Outcome:          models.OutcomeHome,
		ModelProbability: p,
		BestOdds:         o,
		ExpectedValue:    ev,
		FairOdds:         odds.FairOdds(p),
		Label:            odds.Classify(p, o, ev),
	}
}

func TestStakeScenarios(t *testing.T) {
	capital := decimal.NewFromInt(1000)
	tests := []struct {
		name         string
		p, odds      float64
		wantFraction float64
		wantStake    string
		wantLabel    models.Label
	}{
		{"negative kelly clipped to zero", 0.45, 2.20, 0, "0", models.LabelAvoid},
		{"below floor raised to minimum", 0.50, 2.20, 0.01, "10", models.LabelStrongBet},
		{"plain quarter kelly", 0.60, 2.00, 0.0125, "12.5", models.LabelStrongBet},
	}

	s := newTestSizer(t, models.RiskConservative)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.Size("m1", assessment(tt.p, tt.odds), capital)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantFraction, rec.StakeFraction, 1e-9)
			assert.True(t, decimal.RequireFromString(tt.wantStake).Equal(rec.StakeAmount), "stake %s", rec.StakeAmount)
			assert.Equal(t, tt.wantLabel, rec.Label)
		})
	}
}

func TestKellyRawValues(t *testing.T) {
	assert.InDelta(t, -5.2e-4, KellyRaw(0.45, 2.20, 0.25), 1e-5)
	assert.InDelta(t, 0.00521, KellyRaw(0.50, 2.20, 0.25), 1e-5)
	assert.InDelta(t, 0.0125, KellyRaw(0.60, 2.00, 0.25), 1e-9)
}

func TestStakeFractionCappedAtMaximum(t *testing.T) {
	s := newTestSizer(t, models.RiskMaximum)
	fraction, raw, err := s.StakeFraction(0.9, 3.0)
	require.NoError(t, err)
	assert.Greater(t, raw, 0.10)
	assert.Equal(t, 0.10, fraction)
}

func TestStakeFractionInvalidInputs(t *testing.T) {
	s := newTestSizer(t, models.RiskModerate)
	for _, in := range [][2]float64{{0, 2}, {1, 2}, {-0.1, 2}, {0.5, 1}, {0.5, 0.8}} {
		_, _, err := s.StakeFraction(in[0], in[1])
		assert.ErrorIs(t, err, models.ErrInvalidInputs, "p=%v odds=%v", in[0], in[1])
	}
}

func TestKellyZeroForNonValue(t *testing.T) {
	for _, level := range models.RiskLevels {
		s := newTestSizer(t, level)
		for _, o := range []float64{1.2, 1.8, 2.5, 4.0, 9.0} {
			for p := 0.01; p*o <= 1 && p < 1; p += 0.01 {
				fraction, _, err := s.StakeFraction(p, o)
				require.NoError(t, err)
				assert.Zero(t, fraction, "level=%s p=%.2f odds=%.2f", level, p, o)
			}
		}
	}
}

func TestKellyMonotoneInProbability(t *testing.T) {
	for _, level := range models.RiskLevels {
		s := newTestSizer(t, level)
		for _, o := range []float64{1.4, 2.0, 3.3, 6.5} {
			prev := -1.0
			for p := 1 / o; p < 0.999; p += 0.005 {
				fraction, _, err := s.StakeFraction(p, o)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, fraction, prev, "level=%s odds=%.2f p=%.3f", level, o, p)
				prev = fraction
			}
		}
	}
}

func TestRiskLevelScalesKelly(t *testing.T) {
	s := newTestSizer(t, models.RiskConservative)
	low, _, err := s.StakeFraction(0.55, 2.5)
	require.NoError(t, err)

	require.NoError(t, s.SetRiskLevel(models.RiskMaximum))
	high, _, err := s.StakeFraction(0.55, 2.5)
	require.NoError(t, err)

	assert.InDelta(t, 4*low, high, 1e-9)
	assert.Error(t, s.SetRiskLevel("reckless"))
}

func TestAnnotate(t *testing.T) {
	flags, summary := Annotate(0.01, 0.20, 0.50, 2.40)
	assert.Empty(t, flags)
	assert.Equal(t, models.RiskLow, summary)

	flags, summary = Annotate(0.08, 0.02, 0.75, 1.36)
	assert.ElementsMatch(t, []models.RiskFlag{models.RiskConcentration, models.RiskEV, models.RiskProbability, models.RiskOdds}, flags)
	assert.Equal(t, models.RiskHigh, summary)

	flags, summary = Annotate(0.02, 0.30, 0.25, 5.20)
	assert.ElementsMatch(t, []models.RiskFlag{models.RiskProbability, models.RiskOdds}, flags)
	assert.Equal(t, models.RiskMedium, summary)
}

func TestNewSizerRejectsBadLimits(t *testing.T) {
	_, err := NewSizer(Config{RiskLevel: models.RiskModerate, MaxStakeFraction: 0.01, MinStakeFraction: 0.05}, logger.NewNopLogger())
	assert.ErrorIs(t, err, models.ErrInvalidInputs)
}
