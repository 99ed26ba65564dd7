// Package config provides configuration management for the bet advisory engine.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/bet-advisor/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Bankroll   BankrollConfig   `mapstructure:"bankroll" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Models     ModelsConfig     `mapstructure:"models" validate:"required"`
	Advisor    AdvisorConfig    `mapstructure:"advisor" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	API        APIConfig        `mapstructure:"api"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration.
// When disabled the engine runs against the in-memory store.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"omitempty,gte=0"`
}

// RedisConfig represents the recommendation cache configuration
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"gte=0"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"omitempty,gt=0"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// AWSConfig represents AWS integration settings
type AWSConfig struct {
	Region                string `mapstructure:"region"`
	SecretsManagerEnabled bool   `mapstructure:"secrets_manager_enabled"`
	SecretName            string `mapstructure:"secret_name" validate:"required_if=SecretsManagerEnabled true"`
}

// BankrollConfig represents capital, staking and risk-limit configuration
type BankrollConfig struct {
	InitialCapital      float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	RiskLevel           string  `mapstructure:"risk_level" validate:"required,risklevel"`
	MaxStakeFraction    float64 `mapstructure:"max_stake_fraction" validate:"gt=0,lte=1"`
	MinStakeFraction    float64 `mapstructure:"min_stake_fraction" validate:"gte=0,lte=1"`
	MaxDrawdownFraction float64 `mapstructure:"max_drawdown_fraction" validate:"gt=0,lt=1"`
	StopLossFraction    float64 `mapstructure:"stop_loss_fraction" validate:"gt=0,lt=1"`
	TakeProfitFraction  float64 `mapstructure:"take_profit_fraction" validate:"gt=0"`
	LowWinRate          float64 `mapstructure:"low_win_rate" validate:"gte=0,lte=1"`
	LowWinRateMinSample int     `mapstructure:"low_win_rate_min_sample" validate:"gt=0"`
}

// FeaturesConfig represents feature builder configuration
type FeaturesConfig struct {
	WindowSizes []int `mapstructure:"feature_window_sizes" validate:"required,min=1,dive,gt=0"`
	H2HWindow   int   `mapstructure:"h2h_window" validate:"gt=0"`
	MinHistory  int   `mapstructure:"min_history" validate:"gt=0"`
}

// ModelsConfig represents probability model configuration
type ModelsConfig struct {
	EnsembleStrategy     string         `mapstructure:"ensemble_strategy" validate:"required,ensemble"`
	Weighting            string         `mapstructure:"weighting" validate:"required,oneof=uniform accuracy"`
	CVFolds              int            `mapstructure:"cv_folds" validate:"gte=2"`
	StackHoldoutFraction float64        `mapstructure:"stack_holdout_fraction" validate:"gt=0,lt=1"`
	MinTrainingMatches   int            `mapstructure:"min_training_matches" validate:"gt=0"`
	CacheTTLSeconds      int            `mapstructure:"cache_ttl_seconds" validate:"gt=0"`
	Poisson              PoissonConfig  `mapstructure:"poisson"`
	Softmax              SoftmaxConfig  `mapstructure:"softmax"`
	Boosting             BoostingConfig `mapstructure:"boosting"`
}

// PoissonConfig represents the goal model settings
type PoissonConfig struct {
	MaxGoals  int     `mapstructure:"max_goals" validate:"gt=0"`
	Smoothing float64 `mapstructure:"smoothing" validate:"gte=0"`
}

// SoftmaxConfig represents the multinomial logistic regression settings
type SoftmaxConfig struct {
	LearningRate float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Epochs       int     `mapstructure:"epochs" validate:"gt=0"`
	L2           float64 `mapstructure:"l2" validate:"gte=0"`
}

// BoostingConfig represents the gradient-boosted stump settings
type BoostingConfig struct {
	Rounds       int     `mapstructure:"rounds" validate:"gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"gt=0,lte=1"`
	MinLeaf      int     `mapstructure:"min_leaf" validate:"gt=0"`
	Bins         int     `mapstructure:"bins" validate:"gte=2"`
}

// AdvisorConfig represents the advisory orchestrator configuration
type AdvisorConfig struct {
	Markets []string `mapstructure:"markets" validate:"required,min=1,markets"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	InitialCapital       float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	RiskLevel            string  `mapstructure:"risk_level" validate:"required,risklevel"`
	RefitCadence         string  `mapstructure:"backtest_refit_cadence" validate:"required,refitcadence"`
	SweepRiskLevels      bool    `mapstructure:"sweep_risk_levels"`
	MonteCarloIterations int     `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	DrawdownEpsilon      float64 `mapstructure:"drawdown_epsilon" validate:"gt=0"`
	OutputPath           string  `mapstructure:"output_path"`
	Format               string  `mapstructure:"format" validate:"omitempty,oneof=console json csv"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	Port               int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	GRPCPort           int      `mapstructure:"grpc_port" validate:"omitempty,min=1,max=65535"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" validate:"gte=0"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst" validate:"gte=0"`
	RequestTimeoutSecs int      `mapstructure:"request_timeout_seconds" validate:"omitempty,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig represents scheduled model refits
type SchedulerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	RefitCron string `mapstructure:"refit_cron" validate:"required_if=Enabled true"`
}

// DataSourceConfig represents the fixture importer's HTTP client settings
type DataSourceConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gt=0"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Level returns the configured live risk level
func (c *BankrollConfig) Level() models.RiskLevel {
	return models.RiskLevel(c.RiskLevel)
}

// Level returns the backtest risk level
func (c *BacktestConfig) Level() models.RiskLevel {
	return models.RiskLevel(c.RiskLevel)
}

// Strategy returns the typed ensemble strategy
func (c *ModelsConfig) Strategy() models.EnsembleStrategy {
	return models.EnsembleStrategy(c.EnsembleStrategy)
}

// CacheTTL returns the prediction cache lifetime
func (c *ModelsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// MarketKinds returns the configured markets in typed form
func (c *AdvisorConfig) MarketKinds() []models.MarketKind {
	out := make([]models.MarketKind, 0, len(c.Markets))
	for _, m := range c.Markets {
		out = append(out, models.MarketKind(m))
	}
	return out
}

// RecommendationTTL returns how long cached recommendations live in Redis
func (c *RedisConfig) RecommendationTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
