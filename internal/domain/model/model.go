// Package model contains domain models passed between layers.
package model

import "time"

// ActivityRecord is a normalized snapshot of a user's countable actions on
// GitHub. All counts are non-negative; a missing upstream value stays zero.
type ActivityRecord struct {
	PRsOpened        int64 // pull requests opened
	PRsMerged        int64 // pull requests merged
	IssuesCreated    int64 // issues created
	IssuesClosed     int64 // issues closed
	ReposContributed int64 // repositories contributed to
	StarsGiven       int64 // repositories starred
	Commits          int64 // commits attributed to the user
}

// Merge returns the field-wise maximum of r and other. Lifetime counts are
// kept as high-water marks so an upstream pagination undercount can never
// shrink a previously observed value.
func (r ActivityRecord) Merge(other ActivityRecord) ActivityRecord {
	return ActivityRecord{
		PRsOpened:        maxInt64(r.PRsOpened, other.PRsOpened),
		PRsMerged:        maxInt64(r.PRsMerged, other.PRsMerged),
		IssuesCreated:    maxInt64(r.IssuesCreated, other.IssuesCreated),
		IssuesClosed:     maxInt64(r.IssuesClosed, other.IssuesClosed),
		ReposContributed: maxInt64(r.ReposContributed, other.ReposContributed),
		StarsGiven:       maxInt64(r.StarsGiven, other.StarsGiven),
		Commits:          maxInt64(r.Commits, other.Commits),
	}
}

// Clamped returns a copy with every negative count raised to zero.
func (r ActivityRecord) Clamped() ActivityRecord {
	return ActivityRecord{
		PRsOpened:        maxInt64(r.PRsOpened, 0),
		PRsMerged:        maxInt64(r.PRsMerged, 0),
		IssuesCreated:    maxInt64(r.IssuesCreated, 0),
		IssuesClosed:     maxInt64(r.IssuesClosed, 0),
		ReposContributed: maxInt64(r.ReposContributed, 0),
		StarsGiven:       maxInt64(r.StarsGiven, 0),
		Commits:          maxInt64(r.Commits, 0),
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// ScoreBreakdown is the immutable result of applying weights to an
// ActivityRecord. Total is the weighted sum of the per-field contributions.
type ScoreBreakdown struct {
	PRsOpened        float64
	PRsMerged        float64
	IssuesCreated    float64
	IssuesClosed     float64
	ReposContributed float64
	StarsGiven       float64
	Commits          float64
	Total            float64
}

// UserProfile is the persisted state of a registered user.
type UserProfile struct {
	Username     string
	ProfileURL   string
	RegisteredAt time.Time
	Score        float64
	Achievements []string
	LastUpdated  time.Time
}

// Outcome classifies how one user fared within an update cycle.
type Outcome string

// Per-user cycle outcomes.
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)
