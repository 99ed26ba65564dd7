// Package repository implements the stores the engine reads from and the ledger writes to.
package repository

import (
	"fmt"

	"github.com/yourusername/bet-advisor/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Matches    MatchRepository
	Odds       OddsRepository
	BetRecords BetRecordRepository
	ModelFits  ModelFitRepository
}

// NewRepositories creates the PostgreSQL-backed repositories
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Matches:    NewPostgresMatchRepository(db),
		Odds:       NewPostgresOddsRepository(db),
		BetRecords: NewPostgresBetRecordRepository(db),
		ModelFits:  NewPostgresModelFitRepository(db),
	}, nil
}

// NewMemoryRepositories creates repositories sharing one in-memory store
func NewMemoryRepositories() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		Matches:    store,
		Odds:       store,
		BetRecords: store,
		ModelFits:  store,
	}
}

// Store joins match and odds access for components that read both
type Store struct {
	MatchRepository
	OddsRepository
}

// Store returns the match and odds repositories as one value
func (r *Repositories) Store() Store {
	return Store{MatchRepository: r.Matches, OddsRepository: r.Odds}
}
