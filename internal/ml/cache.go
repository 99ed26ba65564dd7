package ml

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/bet-advisor/internal/models"
)

// CacheKey identifies a prediction frozen for one match under one fitted artifact
type CacheKey struct {
	MatchID string
	FitID   uuid.UUID
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s", k.FitID, k.MatchID)
}

// PredictionCache provides in-memory caching for match predictions
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction
func (pc *PredictionCache) Get(key CacheKey) (*models.MatchPrediction, bool) {
	if result, found := pc.cache.Get(key.String()); found {
		if pred, ok := result.(*models.MatchPrediction); ok {
			pc.hitCount.Add(1)
			pc.updateMetrics()
			return pred, true
		}
	}
	pc.missCount.Add(1)
	pc.updateMetrics()
	return nil, false
}

// Set stores a prediction in cache
func (pc *PredictionCache) Set(key CacheKey, prediction *models.MatchPrediction) {
	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return
		}
	}
	pc.cache.Set(key.String(), prediction, pc.ttl)
}

// Invalidate removes all entries produced by one fitted artifact
func (pc *PredictionCache) Invalidate(fitID uuid.UUID) int {
	prefix := fitID.String() + "|"
	removed := 0
	for k := range pc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			pc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.cache.Flush()
	pc.hitCount.Store(0)
	pc.missCount.Store(0)
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount.Load()
	misses = pc.missCount.Load()
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.Stats()
	PredictionCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
