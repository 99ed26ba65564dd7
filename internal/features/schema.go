package features

import (
	"fmt"
	"sort"

	"github.com/yourusername/bet-advisor/internal/config"
)

// Config controls the shape of the feature schema
type Config struct {
	WindowSizes []int
	H2HWindow   int
	MinHistory  int
}

// DefaultConfig returns the standard windows: last 5 and 10 matches, last 5 meetings
func DefaultConfig() Config {
	return Config{
		WindowSizes: []int{5, 10},
		H2HWindow:   5,
		MinHistory:  5,
	}
}

// ConfigFromFeatures converts loaded configuration
func ConfigFromFeatures(cfg *config.FeaturesConfig) Config {
	return Config{
		WindowSizes: append([]int(nil), cfg.WindowSizes...),
		H2HWindow:   cfg.H2HWindow,
		MinHistory:  cfg.MinHistory,
	}
}

func (c Config) validate() error {
	if len(c.WindowSizes) == 0 {
		return fmt.Errorf("at least one feature window is required")
	}
	seen := make(map[int]bool, len(c.WindowSizes))
	for _, n := range c.WindowSizes {
		if n <= 0 {
			return fmt.Errorf("feature window must be positive, got %d", n)
		}
		if seen[n] {
			return fmt.Errorf("duplicate feature window %d", n)
		}
		seen[n] = true
	}
	if c.H2HWindow <= 0 {
		return fmt.Errorf("h2h window must be positive, got %d", c.H2HWindow)
	}
	if c.MinHistory <= 0 {
		return fmt.Errorf("min history must be positive, got %d", c.MinHistory)
	}
	return nil
}

func (c Config) windows() []int {
	out := append([]int(nil), c.WindowSizes...)
	sort.Ints(out)
	return out
}

// Feature names independent of configuration
const (
	HomeAdvantage      = "home_advantage"
	H2HMeetings        = "h2h_meetings"
	H2HHomeWinRate     = "h2h_home_win_rate"
	H2HDrawRate        = "h2h_draw_rate"
	H2HAwayWinRate     = "h2h_away_win_rate"
	H2HGoalDiffAvg     = "h2h_goal_diff_avg"
	LeagueHomeGoalRate = "league_home_goal_rate"
	LeagueAwayGoalRate = "league_away_goal_rate"
	LeagueGoalRate     = "league_goal_rate"
	HomeXGProxy        = "home_xg_proxy"
	AwayXGProxy        = "away_xg_proxy"
	XGDiff             = "xg_diff"
	MarketHomeProb     = "market_home_prob"
	MarketDrawProb     = "market_draw_prob"
	MarketAwayProb     = "market_away_prob"
	MarketOverround    = "market_overround"
	MarketOverProb     = "market_over_prob"
	DayOfWeek          = "day_of_week"
	Month              = "month"
)

var sides = []string{"home", "away"}

func scoredAvg(side string, n int) string { return fmt.Sprintf("%s_scored_avg_%d", side, n) }
func concededAvg(side string, n int) string { return fmt.Sprintf("%s_conceded_avg_%d", side, n) }
func pointsAvg(side string, n int) string { return fmt.Sprintf("%s_points_avg_%d", side, n) }
func attackStrength(side string) string { return side + "_attack_strength" }
func defenceStrength(side string) string { return side + "_defence_strength" }
func restDays(side string) string { return side + "_rest_days" }

// Schema returns the ordered feature names produced under the config
func (c Config) Schema() []string {
	schema := []string{HomeAdvantage}
	for _, side := range sides {
		for _, n := range c.windows() {
			schema = append(schema, scoredAvg(side, n), concededAvg(side, n), pointsAvg(side, n))
		}
		schema = append(schema, attackStrength(side), defenceStrength(side), restDays(side))
	}
	schema = append(schema,
		H2HMeetings, H2HHomeWinRate, H2HDrawRate, H2HAwayWinRate, H2HGoalDiffAvg,
		LeagueHomeGoalRate, LeagueAwayGoalRate, LeagueGoalRate,
		HomeXGProxy, AwayXGProxy, XGDiff,
		MarketHomeProb, MarketDrawProb, MarketAwayProb, MarketOverround, MarketOverProb,
		DayOfWeek, Month,
	)
	return schema
}
