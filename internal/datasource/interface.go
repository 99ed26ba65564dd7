// Package datasource imports already-normalised fixtures and pre-match quotes from a JSON
// file or an HTTP endpoint into the match store.
package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/bet-advisor/internal/models"
)

// Source fetches one batch of fixtures
type Source interface {
	Fetch(ctx context.Context) (*Fixtures, error)
	Name() string
}

// Fixtures is the import wire format
type Fixtures struct {
	Matches []models.Match     `json:"matches"`
	Quotes  []models.OddsQuote `json:"quotes"`
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrInvalidData       = errors.New("invalid data format")
	ErrServerError       = errors.New("server error")
	ErrCircuitOpen       = errors.New("circuit breaker open")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
