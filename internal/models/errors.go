package models

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrNoModel             = errors.New("no fitted model available")
	ErrBankrollHalted      = errors.New("bankroll halted by critical alert")
	ErrSchemaMismatch      = errors.New("feature schema mismatch")
	ErrInsufficientHistory = errors.New("insufficient match history")
	ErrNoMarket            = errors.New("no odds for market")
	ErrInvalidInputs       = errors.New("invalid inputs")
	ErrDuplicateKey        = errors.New("duplicate key violation")
)

// BankrollHaltedError carries the critical alerts that blocked advice
type BankrollHaltedError struct {
	Alerts []Alert
}

func (e *BankrollHaltedError) Error() string {
	types := make([]string, 0, len(e.Alerts))
	for _, a := range e.Alerts {
		types = append(types, string(a.Type))
	}
	return fmt.Sprintf("%s: %s", ErrBankrollHalted, strings.Join(types, ", "))
}

func (e *BankrollHaltedError) Unwrap() error {
	return ErrBankrollHalted
}

// SchemaMismatchError describes a feature vector whose columns differ from the fitted schema
type SchemaMismatchError struct {
	Expected []string
	Actual   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d columns, got %d", ErrSchemaMismatch, len(e.Expected), len(e.Actual))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// InsufficientHistoryError names the team lacking prior matches
type InsufficientHistoryError struct {
	TeamID   string
	Have     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: team %s has %d prior matches, need %d", ErrInsufficientHistory, e.TeamID, e.Have, e.Required)
}

func (e *InsufficientHistoryError) Unwrap() error {
	return ErrInsufficientHistory
}
