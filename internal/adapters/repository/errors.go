package repository

import "errors"

// Sentinel kinds for gateway errors.
var (
	ErrNotFound          = errors.New("user not found")
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
)
