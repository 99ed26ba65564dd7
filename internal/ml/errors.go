package ml

import "errors"

var (
	// ErrNoFitStore indicates a trainer was built without somewhere to persist reports
	ErrNoFitStore = errors.New("no model fit store configured")

	// ErrFitInProgress indicates a refit was requested while another one is running
	ErrFitInProgress = errors.New("model fit already in progress")
)
