package ml

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/models"
)

func prediction(matchID string) *models.MatchPrediction {
	return &models.MatchPrediction{
		MatchID: matchID,
		Markets: map[models.MarketKind]models.OutcomeProbability{
			models.MarketMatchResult: models.NewOutcomeProbability(models.MarketMatchResult, 0.5, 0.3, 0.2),
		},
	}
}

// TestCacheKeyString tests cache key string representation
func TestCacheKeyString(t *testing.T) {
	key := CacheKey{MatchID: "EPL-2024-ars-che", FitID: uuid.MustParse("12345678-1234-5678-1234-567812345678")}

	keyStr := key.String()
	assert.Contains(t, keyStr, "12345678-1234")
	assert.Contains(t, keyStr, "EPL-2024-ars-che")
}

func TestPredictionCacheGetSet(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	key := CacheKey{MatchID: "m1", FitID: uuid.New()}
	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, prediction("m1"))
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "m1", got.MatchID)

	// same match under another fit is a different entry
	_, ok = cache.Get(CacheKey{MatchID: "m1", FitID: uuid.New()})
	assert.False(t, ok)
}

// TestPredictionCacheExpiration tests cache TTL expiration
func TestPredictionCacheExpiration(t *testing.T) {
	cache := NewPredictionCache(50*time.Millisecond, 100)
	key := CacheKey{MatchID: "m1", FitID: uuid.New()}
	cache.Set(key, prediction("m1"))

	_, ok := cache.Get(key)
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

func TestPredictionCacheInvalidate(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	oldFit, newFit := uuid.New(), uuid.New()

	for _, id := range []string{"m1", "m2", "m3"} {
		cache.Set(CacheKey{MatchID: id, FitID: oldFit}, prediction(id))
	}
	cache.Set(CacheKey{MatchID: "m1", FitID: newFit}, prediction("m1"))

	assert.Equal(t, 3, cache.Invalidate(oldFit))
	assert.Equal(t, 1, cache.ItemCount())
	_, ok := cache.Get(CacheKey{MatchID: "m1", FitID: newFit})
	assert.True(t, ok)
}

func TestPredictionCacheSizeLimit(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 2)
	fit := uuid.New()
	cache.Set(CacheKey{MatchID: "m1", FitID: fit}, prediction("m1"))
	cache.Set(CacheKey{MatchID: "m2", FitID: fit}, prediction("m2"))
	cache.Set(CacheKey{MatchID: "m3", FitID: fit}, prediction("m3"))

	assert.Equal(t, 2, cache.ItemCount())
}

// TestPredictionCacheStats tests hit/miss statistics
func TestPredictionCacheStats(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	key := CacheKey{MatchID: "m1", FitID: uuid.New()}

	cache.Get(key)
	cache.Set(key, prediction("m1"))
	cache.Get(key)
	cache.Get(key)

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 2.0/3.0, ratio, 0.001)

	cache.Clear()
	hits, misses, _ = cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
