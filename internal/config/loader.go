package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "BETADVISOR"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration, falling back to defaults and environment
// variables when the file does not exist
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// Default returns the configuration built from defaults alone
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bet-advisor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl_seconds", 6*60*60)
	v.SetDefault("redis.key_prefix", "advisor")

	v.SetDefault("aws.region", "eu-west-1")

	v.SetDefault("bankroll.initial_capital", 1000.0)
	v.SetDefault("bankroll.risk_level", "conservative")
	v.SetDefault("bankroll.max_stake_fraction", 0.10)
	v.SetDefault("bankroll.min_stake_fraction", 0.01)
	v.SetDefault("bankroll.max_drawdown_fraction", 0.20)
	v.SetDefault("bankroll.stop_loss_fraction", 0.15)
	v.SetDefault("bankroll.take_profit_fraction", 0.30)
	v.SetDefault("bankroll.low_win_rate", 0.40)
	v.SetDefault("bankroll.low_win_rate_min_sample", 10)

	v.SetDefault("features.feature_window_sizes", []int{5, 10})
	v.SetDefault("features.h2h_window", 5)
	v.SetDefault("features.min_history", 5)

	v.SetDefault("models.ensemble_strategy", "weighted_vote")
	v.SetDefault("models.weighting", "accuracy")
	v.SetDefault("models.cv_folds", 4)
	v.SetDefault("models.stack_holdout_fraction", 0.25)
	v.SetDefault("models.min_training_matches", 30)
	v.SetDefault("models.cache_ttl_seconds", 3600)
	v.SetDefault("models.poisson.max_goals", 10)
	v.SetDefault("models.poisson.smoothing", 1.0)
	v.SetDefault("models.softmax.learning_rate", 0.1)
	v.SetDefault("models.softmax.epochs", 300)
	v.SetDefault("models.softmax.l2", 0.001)
	v.SetDefault("models.boosting.rounds", 60)
	v.SetDefault("models.boosting.learning_rate", 0.1)
	v.SetDefault("models.boosting.min_leaf", 5)
	v.SetDefault("models.boosting.bins", 16)

	v.SetDefault("advisor.markets", []string{"1X2", "OU25", "BTTS"})

	v.SetDefault("backtest.initial_capital", 1000.0)
	v.SetDefault("backtest.risk_level", "conservative")
	v.SetDefault("backtest.backtest_refit_cadence", "per_month")
	v.SetDefault("backtest.sweep_risk_levels", true)
	v.SetDefault("backtest.monte_carlo_iterations", 0)
	v.SetDefault("backtest.drawdown_epsilon", 0.01)
	v.SetDefault("backtest.format", "console")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.grpc_port", 9090)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limit_per_second", 20.0)
	v.SetDefault("api.rate_limit_burst", 40)
	v.SetDefault("api.request_timeout_seconds", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9100)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.refit_cron", "0 4 * * *")

	v.SetDefault("datasource.timeout_seconds", 30)
	v.SetDefault("datasource.max_retries", 5)
	v.SetDefault("datasource.rate_limit", 10.0)
	v.SetDefault("datasource.circuit_breaker_max", 5)
}
