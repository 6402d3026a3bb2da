package app

import "errors"

// Service errors.
var (
	// ErrCycleRunning is returned when a manual trigger arrives while an
	// update cycle is already in flight.
	ErrCycleRunning = errors.New("update cycle already running")

	// ErrNotStarted is returned when an operation requires a started
	// service.
	ErrNotStarted = errors.New("service not started")
)
