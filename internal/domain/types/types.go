// Package types contains common types used across the application
package types

import "time"

// Entry represents a leaderboard entry
type Entry struct {
	Rank         int       `json:"rank"`
	Username     string    `json:"username"`
	Score        float64   `json:"score"`
	Achievements []string  `json:"achievements"`
	LastUpdated  time.Time `json:"last_updated"`
}

// CycleStatus is the externally visible state of the update scheduler.
type CycleStatus struct {
	State       string         `json:"state"`
	CycleID     string         `json:"cycle_id,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Outcomes    map[string]int `json:"outcomes,omitempty"`
}

// Stats is the aggregate service state reported by the stats endpoint.
type Stats struct {
	RegisteredUsers int         `json:"registered_users"`
	UpdateInterval  string      `json:"update_interval"`
	WorkerCount     int         `json:"worker_count"`
	BudgetRemaining int64       `json:"budget_remaining"`
	LastCycle       CycleStatus `json:"last_cycle"`
}
