package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
)

// fakeClient keeps values in a map and records TTLs and publishes
type fakeClient struct {
	values    map[string]string
	ttls      map[string]time.Duration
	published map[string][]string
	err       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values:    map[string]string{},
		ttls:      map[string]time.Duration{},
		published: map[string][]string{},
	}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := f.Get(ctx, key)
	if cmd.Err() == nil {
		delete(f.values, key)
	}
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, f.err)
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func newTestCache(t *testing.T, client Client) *RecommendationCache {
	t.Helper()
	c, err := NewRecommendationCache(client, &config.RedisConfig{TTLSeconds: 60, KeyPrefix: "test:"}, logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestRecommendationCacheRoundTrip(t *testing.T) {
	client := newFakeClient()
	c := newTestCache(t, client)
	ctx := context.Background()

	rec := &models.Recommendation{MatchID: "m-1", Warnings: []string{"no quotes for btts"}}
	require.NoError(t, c.SaveRecommendation(ctx, rec))
	assert.Equal(t, time.Minute, client.ttls["test:recommendation:m-1"])

	got, err := c.GetRecommendation(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.MatchID)
	assert.Equal(t, rec.Warnings, got.Warnings)

	_, err = c.GetRecommendation(ctx, "m-404")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTakeRecommendationReturnsItOnce(t *testing.T) {
	client := newFakeClient()
	c := newTestCache(t, client)
	ctx := context.Background()

	require.NoError(t, c.SaveRecommendation(ctx, &models.Recommendation{MatchID: "m-1"}))

	got, err := c.TakeRecommendation(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.MatchID)
	assert.NotContains(t, client.values, "test:recommendation:m-1")

	_, err = c.TakeRecommendation(ctx, "m-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRecommendationCacheDefaults(t *testing.T) {
	client := newFakeClient()
	c, err := NewRecommendationCache(client, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.SaveRecommendation(context.Background(), &models.Recommendation{MatchID: "m-2"}))
	assert.Equal(t, DefaultTTL, client.ttls["betadvisor:recommendation:m-2"])
}

func TestRecommendationCacheErrors(t *testing.T) {
	client := newFakeClient()
	c := newTestCache(t, client)
	ctx := context.Background()

	assert.ErrorIs(t, c.SaveRecommendation(ctx, &models.Recommendation{}), models.ErrInvalidInputs)

	client.err = errors.New("connection refused")
	_, err := c.GetRecommendation(ctx, "m-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	assert.Error(t, c.Ping(ctx))

	_, err = NewRecommendationCache(nil, nil, nil)
	assert.Error(t, err)
}

func TestPublishAlert(t *testing.T) {
	client := newFakeClient()
	c := newTestCache(t, client)

	alert := models.Alert{Type: models.AlertStopLossTriggered, Severity: models.SeverityCritical, Value: 0.19, Threshold: 0.15}
	require.NoError(t, c.PublishAlert(context.Background(), alert))

	msgs := client.published["test:alerts"]
	require.Len(t, msgs, 1)
	var decoded models.Alert
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &decoded))
	assert.Equal(t, alert.Type, decoded.Type)
}
