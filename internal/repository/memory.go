package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/bet-advisor/internal/models"
)

// MemoryStore implements every repository in process memory. Used by backtests, the CLI
// without a database, and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]models.Match
	quotes  map[string][]models.OddsQuote
	records []models.BetRecord
	fits    []models.ModelFitReport
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[string]models.Match),
		quotes:  make(map[string][]models.OddsQuote),
	}
}

// SaveMatch inserts or replaces a match
func (s *MemoryStore) SaveMatch(ctx context.Context, match *models.Match) error {
	if err := match.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = cloneMatch(*match)
	return nil
}

// GetMatch retrieves a match by ID
func (s *MemoryStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := cloneMatch(m)
	return &out, nil
}

// ListMatches returns matches passing the filter, ordered by kickoff
func (s *MemoryStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Match
	for _, m := range s.matches {
		if matchesFilter(&m, filter) {
			out = append(out, cloneMatch(m))
		}
	}
	sortByKickoff(out)
	return out, nil
}

// ListPriorMatches returns the team's matches with kickoff strictly before the given time
func (s *MemoryStore) ListPriorMatches(ctx context.Context, teamID string, before time.Time) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Match
	for _, m := range s.matches {
		if m.Involves(teamID) && m.Kickoff.Before(before) {
			out = append(out, cloneMatch(m))
		}
	}
	sortByKickoff(out)
	return out, nil
}

// SaveQuotes appends quotes. A quote repeating (bookmaker, market, outcome, captured_at) replaces the old price.
func (s *MemoryStore) SaveQuotes(ctx context.Context, quotes []models.OddsQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range quotes {
		if q.MatchID == "" || q.Bookmaker == "" || !q.Market.IsValid() {
			return fmt.Errorf("%w: malformed quote %+v", models.ErrInvalidInputs, q)
		}
		existing := s.quotes[q.MatchID]
		replaced := false
		for i := range existing {
			e := &existing[i]
			if e.Bookmaker == q.Bookmaker && e.Market == q.Market && e.Outcome == q.Outcome && e.CapturedAt.Equal(q.CapturedAt) {
				*e = q
				replaced = true
				break
			}
		}
		if !replaced {
			s.quotes[q.MatchID] = append(existing, q)
		}
	}
	return nil
}

// GetOdds returns every quote for one market of a match
func (s *MemoryStore) GetOdds(ctx context.Context, matchID string, market models.MarketKind) ([]models.OddsQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.OddsQuote
	for _, q := range s.quotes[matchID] {
		if q.Market == market {
			out = append(out, q)
		}
	}
	return out, nil
}

// AppendBetRecord appends a record, rejecting duplicate IDs
func (s *MemoryStore) AppendBetRecord(ctx context.Context, record *models.BetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == record.ID {
			return models.ErrDuplicateKey
		}
	}
	s.records = append(s.records, *record)
	return nil
}

// ListBetRecords returns records in insertion order
func (s *MemoryStore) ListBetRecords(ctx context.Context) ([]models.BetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.BetRecord(nil), s.records...), nil
}

// DeleteBetRecords removes every record
func (s *MemoryStore) DeleteBetRecords(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// SaveFit stores a fit report
func (s *MemoryStore) SaveFit(ctx context.Context, report *models.ModelFitReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fits = append(s.fits, *report)
	return nil
}

// LatestFit returns the most recently fitted report
func (s *MemoryStore) LatestFit(ctx context.Context) (*models.ModelFitReport, error) {
	fits, _ := s.ListFits(ctx, 1)
	if len(fits) == 0 {
		return nil, models.ErrNotFound
	}
	return &fits[0], nil
}

// ListFits returns reports newest first. limit <= 0 returns all.
func (s *MemoryStore) ListFits(ctx context.Context, limit int) ([]models.ModelFitReport, error) {
	s.mu.RLock()
	out := append([]models.ModelFitReport(nil), s.fits...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FittedAt.After(out[j].FittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilter(m *models.Match, f models.MatchFilter) bool {
	if f.LeagueID != "" && m.LeagueID != f.LeagueID {
		return false
	}
	if f.Season != "" && m.Season != f.Season {
		return false
	}
	if !f.From.IsZero() && m.Kickoff.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !m.Kickoff.Before(f.To) {
		return false
	}
	if f.CompletedOnly && !m.IsCompleted() {
		return false
	}
	return true
}

func sortByKickoff(matches []models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Kickoff.Equal(matches[j].Kickoff) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Kickoff.Before(matches[j].Kickoff)
	})
}

// cloneMatch copies the score pointers and auxiliary map so callers cannot mutate stored state
func cloneMatch(m models.Match) models.Match {
	if m.HomeGoals != nil {
		h := *m.HomeGoals
		m.HomeGoals = &h
	}
	if m.AwayGoals != nil {
		a := *m.AwayGoals
		m.AwayGoals = &a
	}
	if m.Auxiliary != nil {
		aux := make(map[string]string, len(m.Auxiliary))
		for k, v := range m.Auxiliary {
			aux[k] = v
		}
		m.Auxiliary = aux
	}
	return m
}
