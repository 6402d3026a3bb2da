package repository_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/okian/gitrank/internal/adapters/repository"
	"github.com/okian/gitrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RegisterUser(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := openStore(t)
		ctx := context.Background()

		Convey("When registering a new user", func() {
			err := store.RegisterUser(ctx, "octo", "https://github.com/octo")

			Convey("Then the user should be listed", func() {
				So(err, ShouldBeNil)
				names, err := store.ListUsernames(ctx)
				So(err, ShouldBeNil)
				So(names, ShouldResemble, []string{"octo"})
			})

			Convey("And the count should reflect it", func() {
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When registering the same username twice", func() {
			So(store.RegisterUser(ctx, "octo", "https://github.com/octo"), ShouldBeNil)
			err := store.RegisterUser(ctx, "octo", "https://github.com/octo")

			Convey("Then the second attempt should report a conflict", func() {
				So(errors.Is(err, repository.ErrAlreadyRegistered), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore_UpsertResult(t *testing.T) {
	Convey("Given a store with one registered user", t, func() {
		store := openStore(t)
		ctx := context.Background()
		So(store.RegisterUser(ctx, "octo", "https://github.com/octo"), ShouldBeNil)

		counts := model.ActivityRecord{PRsMerged: 10, Commits: 500}
		score := model.ScoreBreakdown{Total: 100.0}

		Convey("When writing the first result", func() {
			err := store.UpsertResult(ctx, "octo", counts, score, []string{"PR Master"})

			Convey("Then lifetime counts and achievements should read back", func() {
				So(err, ShouldBeNil)

				got, err := store.LifetimeCounts(ctx, "octo")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, counts)

				earned, err := store.Achievements(ctx, "octo")
				So(err, ShouldBeNil)
				So(earned, ShouldResemble, []string{"PR Master"})
			})
		})

		Convey("When a later write carries lower counts", func() {
			So(store.UpsertResult(ctx, "octo", counts, score, nil), ShouldBeNil)

			lower := model.ActivityRecord{PRsMerged: 4, Commits: 600}
			So(store.UpsertResult(ctx, "octo", lower, model.ScoreBreakdown{Total: 80.0}, nil), ShouldBeNil)

			Convey("Then stored counts should keep their high-water marks", func() {
				got, err := store.LifetimeCounts(ctx, "octo")
				So(err, ShouldBeNil)
				So(got.PRsMerged, ShouldEqual, 10)
				So(got.Commits, ShouldEqual, 600)
			})

			Convey("And the score should follow the latest write", func() {
				entry, err := store.Rank(ctx, "octo")
				So(err, ShouldBeNil)
				So(entry.Score, ShouldEqual, 80.0)
			})
		})

		Convey("When reading counts for a user with no computed state", func() {
			So(store.RegisterUser(ctx, "fresh", "https://github.com/fresh"), ShouldBeNil)
			got, err := store.LifetimeCounts(ctx, "fresh")

			Convey("Then it should yield a zero record without error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.ActivityRecord{})
			})
		})
	})
}

func TestSQLiteStore_Leaderboard(t *testing.T) {
	Convey("Given a store with scored and unscored users", t, func() {
		store := openStore(t)
		ctx := context.Background()

		for _, u := range []string{"alice", "bob", "carol"} {
			So(store.RegisterUser(ctx, u, "https://github.com/"+u), ShouldBeNil)
		}
		So(store.UpsertResult(ctx, "alice", model.ActivityRecord{}, model.ScoreBreakdown{Total: 50}, []string{"Star Gazer"}), ShouldBeNil)
		So(store.UpsertResult(ctx, "bob", model.ActivityRecord{}, model.ScoreBreakdown{Total: 75}, nil), ShouldBeNil)

		Convey("When reading the top three", func() {
			entries, err := store.Leaderboard(ctx, 3)

			Convey("Then ranks should follow score descending", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0].Username, ShouldEqual, "bob")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Username, ShouldEqual, "alice")
				So(entries[1].Achievements, ShouldResemble, []string{"Star Gazer"})
				So(entries[2].Username, ShouldEqual, "carol")
				So(entries[2].Score, ShouldEqual, 0.0)
			})
		})

		Convey("When reading fewer entries than users", func() {
			entries, err := store.Leaderboard(ctx, 1)

			Convey("Then only the top entry should return", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Username, ShouldEqual, "bob")
			})
		})

		Convey("When asking for a non-positive limit", func() {
			_, err := store.Leaderboard(ctx, 0)

			Convey("Then it should reject the request", func() {
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When asking for the rank of one user", func() {
			entry, err := store.Rank(ctx, "alice")

			Convey("Then it should carry the correct rank and score", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.Score, ShouldEqual, 50.0)
			})
		})

		Convey("When asking for the rank of an unknown user", func() {
			_, err := store.Rank(ctx, "ghost")

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
