package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Pending returns the last recommendation produced for the match, looking in the external
// cache when this process has none. Recommendations expire a TTL after kickoff.
func (a *Advisor) Pending(ctx context.Context, matchID string) (*models.Recommendation, error) {
	now := a.now()
	a.mu.RLock()
	entry, ok := a.pending[matchID]
	if ok && a.expiredLocked(entry, now) {
		ok = false
	}
	a.mu.RUnlock()
	if ok {
		return entry.rec, nil
	}
	if a.deps.Cache == nil {
		return nil, models.ErrNotFound
	}
	return a.deps.Cache.GetRecommendation(ctx, matchID)
}

// Settle records the top bet of the match's last recommendation against the realised result.
// It returns nil without error when no bet was placed, the recommendation was already settled
// or the settlement does not cover the bet's market. Each recommendation is settled at most
// once, also under concurrent calls.
func (a *Advisor) Settle(ctx context.Context, matchID string, settlement models.Settlement) (*models.BetRecord, error) {
	if err := settlement.Validate(); err != nil {
		return nil, err
	}
	entry, err := a.claim(ctx, matchID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			a.log.LogSettlement(matchID, false, "0")
			return nil, nil
		}
		return nil, err
	}
	rec := entry.rec
	if rec.Top == nil {
		a.log.LogSettlement(matchID, false, "0")
		return nil, nil
	}

	winner, ok := settlement.Winner(rec.Top.Market)
	if !ok {
		// a later settlement may carry the missing field
		a.restore(ctx, entry)
		a.log.LogOutcomeSkipped(matchID, string(rec.Top.Market), string(rec.Top.Outcome), "settlement does not cover market")
		return nil, nil
	}

	record, err := a.deps.Bankroll.RecordBet(ctx, *rec.Top, winner)
	if err != nil {
		a.restore(ctx, entry)
		return nil, fmt.Errorf("failed to record bet for %s: %w", matchID, err)
	}

	metrics.RecordBetSettled(record.Result)
	metrics.UpdateBankroll(a.deps.Bankroll.Status())
	a.log.LogSettlement(matchID, true, record.Profit.String())
	return record, nil
}

// SettleMatch settles using the final score stored with the match
func (a *Advisor) SettleMatch(ctx context.Context, matchID string) (*models.BetRecord, error) {
	match, err := a.deps.Matches.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrMatchNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	settlement, ok := match.Settlement()
	if !ok {
		return nil, fmt.Errorf("%w: match %s has no final score", models.ErrInvalidInputs, matchID)
	}
	return a.Settle(ctx, matchID, settlement)
}

// claim removes the match's pending recommendation from this process and the external cache.
// A cached entry the cache no longer holds was taken by another process.
func (a *Advisor) claim(ctx context.Context, matchID string) (*pendingEntry, error) {
	now := a.now()
	a.mu.Lock()
	a.evictLocked(now)
	local, ok := a.pending[matchID]
	delete(a.pending, matchID)
	a.mu.Unlock()

	if a.deps.Cache == nil {
		if !ok {
			return nil, models.ErrNotFound
		}
		return local, nil
	}

	cached, err := a.deps.Cache.TakeRecommendation(ctx, matchID)
	switch {
	case err == nil:
		if ok {
			return local, nil
		}
		return &pendingEntry{rec: cached, cached: true}, nil
	case errors.Is(err, models.ErrNotFound):
		if !ok || local.cached {
			return nil, models.ErrNotFound
		}
		return local, nil
	case ok:
		a.log.WithError(err).WithField("match_id", matchID).Warn("Failed to take cached recommendation")
		return local, nil
	default:
		return nil, fmt.Errorf("failed to load recommendation for %s: %w", matchID, err)
	}
}

// restore puts back a claimed recommendation that could not be settled, unless a newer one
// was produced meanwhile.
func (a *Advisor) restore(ctx context.Context, entry *pendingEntry) {
	matchID := entry.rec.MatchID
	a.mu.RLock()
	_, newer := a.pending[matchID]
	a.mu.RUnlock()
	if newer {
		return
	}

	restored := &pendingEntry{rec: entry.rec}
	if a.deps.Cache != nil {
		if err := a.deps.Cache.SaveRecommendation(ctx, entry.rec); err != nil {
			a.log.WithError(err).WithField("match_id", matchID).Warn("Failed to re-cache recommendation")
		} else {
			restored.cached = true
		}
	}

	a.mu.Lock()
	if _, newer := a.pending[matchID]; !newer {
		a.pending[matchID] = restored
	}
	a.mu.Unlock()
}
