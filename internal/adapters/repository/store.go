// Package repository is the persistence gateway: the sole writer of computed
// scores and achievements on behalf of the update orchestrator.
package repository

import (
	"context"

	"github.com/okian/gitrank/internal/domain/model"
	"github.com/okian/gitrank/internal/domain/types"
)

// Entry represents a leaderboard row exposed to readers.
type Entry = types.Entry

// Store provides read/write access to registered users and their computed
// state. The per-user write of counts, score and achievements is atomic so a
// leaderboard reader never observes a score without its achievement set from
// the same cycle.
type Store interface {
	// RegisterUser inserts a new tracked user.
	// Returns ErrAlreadyRegistered if the username exists.
	RegisterUser(ctx context.Context, username, profileURL string) error

	// ListUsernames returns every registered username.
	ListUsernames(ctx context.Context) ([]string, error)

	// LifetimeCounts returns the stored lifetime counts for a user.
	// A registered user with no computed state yet yields a zero record.
	LifetimeCounts(ctx context.Context, username string) (model.ActivityRecord, error)

	// Achievements returns the current earned achievement set for a user.
	// A registered user with no computed state yet yields an empty set.
	Achievements(ctx context.Context, username string) ([]string, error)

	// UpsertResult atomically writes lifetime counts, score and the
	// achievement set for one user.
	UpsertResult(ctx context.Context, username string, counts model.ActivityRecord, score model.ScoreBreakdown, achievements []string) error

	// Leaderboard returns the top-N entries ordered by score desc.
	Leaderboard(ctx context.Context, n int) ([]Entry, error)

	// Rank returns the current rank and score for a user.
	// Returns ErrNotFound if the user is unknown.
	Rank(ctx context.Context, username string) (Entry, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)
}
