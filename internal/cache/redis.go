// Package cache keeps the latest recommendation per match in Redis so a settling process
// can find advice produced by another process, and publishes bankroll alerts.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/models"
)

// DefaultTTL applies when the config leaves the TTL unset
const DefaultTTL = 7 * 24 * time.Hour

// Client is the subset of go-redis the cache uses
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewClient opens a go-redis client from config
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RecommendationCache stores recommendations as JSON under <prefix>recommendation:<match_id>
type RecommendationCache struct {
	client Client
	ttl    time.Duration
	prefix string
	logger *logrus.Entry
}

// NewRecommendationCache wraps a Redis client
func NewRecommendationCache(client Client, cfg *config.RedisConfig, logger *logrus.Logger) (*RecommendationCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	c := &RecommendationCache{
		client: client,
		ttl:    DefaultTTL,
		prefix: "betadvisor:",
		logger: logger.WithField("component", "recommendation_cache"),
	}
	if cfg != nil {
		if cfg.TTLSeconds > 0 {
			c.ttl = cfg.RecommendationTTL()
		}
		if cfg.KeyPrefix != "" {
			c.prefix = cfg.KeyPrefix
		}
	}
	return c, nil
}

// Ping checks the connection
func (c *RecommendationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SaveRecommendation replaces the cached recommendation for the match
func (c *RecommendationCache) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec == nil || rec.MatchID == "" {
		return fmt.Errorf("%w: recommendation without match", models.ErrInvalidInputs)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}
	if err := c.client.Set(ctx, c.recommendationKey(rec.MatchID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache recommendation: %w", err)
	}
	return nil
}

// GetRecommendation returns models.ErrNotFound when nothing is cached for the match
func (c *RecommendationCache) GetRecommendation(ctx context.Context, matchID string) (*models.Recommendation, error) {
	return decodeRecommendation(c.client.Get(ctx, c.recommendationKey(matchID)))
}

// TakeRecommendation reads and deletes the cached recommendation in one GETDEL, so only one
// caller across processes receives it. Later callers get models.ErrNotFound.
func (c *RecommendationCache) TakeRecommendation(ctx context.Context, matchID string) (*models.Recommendation, error) {
	return decodeRecommendation(c.client.GetDel(ctx, c.recommendationKey(matchID)))
}

// AlertChannel is the pub/sub channel alerts are published on
func (c *RecommendationCache) AlertChannel() string {
	return c.prefix + "alerts"
}

// PublishAlert fans a bankroll alert out to other processes
func (c *RecommendationCache) PublishAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := c.client.Publish(ctx, c.AlertChannel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"type":     alert.Type,
		"severity": alert.Severity,
	}).Debug("Alert published")
	return nil
}

func decodeRecommendation(cmd *redis.StringCmd) (*models.Recommendation, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached recommendation: %w", err)
	}

	var rec models.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendation: %w", err)
	}
	return &rec, nil
}

func (c *RecommendationCache) recommendationKey(matchID string) string {
	return c.prefix + "recommendation:" + matchID
}
