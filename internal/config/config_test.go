package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/models"
)

const (
	validConfigPath       = "testdata/valid_config.yaml"
	invalidConfigPath     = "testdata/invalid_config.yaml"
	nonexistentConfigPath = "testdata/nonexistent_config.yaml"
)

func TestLoadConfigSuccess(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "expanded_secret_value")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "bet-advisor", cfg.App.Name)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "expanded_secret_value", cfg.Database.Password)
	assert.Equal(t, models.RiskModerate, cfg.Bankroll.Level())
	assert.Equal(t, models.EnsembleStacked, cfg.Models.Strategy())
	assert.Equal(t, []models.MarketKind{models.MarketMatchResult, models.MarketOverUnder25}, cfg.Advisor.MarketKinds())
	assert.Equal(t, "per_month", cfg.Backtest.RefitCadence)

	// unset keys fall back to defaults
	assert.Equal(t, 10, cfg.Models.Poisson.MaxGoals)
	assert.Equal(t, 10, cfg.Bankroll.LowWinRateMinSample)

	require.NoError(t, Validate(cfg))
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	require.Error(t, err)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("BETADVISOR_APP_NAME", "test-app")
	t.Setenv("BETADVISOR_BANKROLL_RISK_LEVEL", "aggressive")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, models.RiskAggressive, cfg.Bankroll.Level())
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, []int{5, 10}, cfg.Features.WindowSizes)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 1000.0, cfg.Bankroll.InitialCapital)
	assert.Equal(t, models.RiskConservative, cfg.Bankroll.Level())
	assert.Equal(t, 0.10, cfg.Bankroll.MaxStakeFraction)
	assert.Equal(t, 0.01, cfg.Bankroll.MinStakeFraction)
	assert.Equal(t, 0.20, cfg.Bankroll.MaxDrawdownFraction)
	assert.Equal(t, 0.15, cfg.Bankroll.StopLossFraction)
	assert.Equal(t, 0.30, cfg.Bankroll.TakeProfitFraction)
	assert.Equal(t, 5, cfg.Features.H2HWindow)
	assert.Equal(t, models.EnsembleWeightedVote, cfg.Models.Strategy())
}

func TestValidateRejectsInvalidConfig(t *testing.T) {
	cfg, err := Load(invalidConfigPath)
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	for _, field := range []string{"Environment", "RiskLevel", "EnsembleStrategy", "Markets"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidateCrossField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name: "min stake above max stake",
			mutate: func(c *Config) {
				c.Bankroll.MinStakeFraction = 0.2
				c.Bankroll.MaxStakeFraction = 0.1
			},
			errMsg: "min_stake_fraction",
		},
		{
			name: "production without ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.Enabled = true
				c.Database.Host = "db"
				c.Database.Name = "advisor"
				c.Database.User = "advisor"
				c.Database.SSLMode = "disable"
			},
			errMsg: "SSL",
		},
		{
			name: "bad cron expression",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.RefitCron = "every tuesday"
			},
			errMsg: "refit_cron",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

type fakeSecretsClient struct {
	output *secretsmanager.GetSecretValueOutput
	err    error
}

func (f *fakeSecretsClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return f.output, f.err
}

func TestFetchSecretsOverlay(t *testing.T) {
	client := &fakeSecretsClient{output: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"s3cret","redis_password":"r3dis"}`),
	}}

	secrets, err := FetchSecrets(context.Background(), client, "advisor/prod")
	require.NoError(t, err)

	cfg := Default()
	OverlaySecrets(cfg, secrets)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "r3dis", cfg.Redis.Password)
}

func TestFetchSecretsErrors(t *testing.T) {
	_, err := FetchSecrets(context.Background(), &fakeSecretsClient{err: errors.New("denied")}, "x")
	require.Error(t, err)

	_, err = FetchSecrets(context.Background(), &fakeSecretsClient{output: &secretsmanager.GetSecretValueOutput{}}, "x")
	require.Error(t, err)
}
