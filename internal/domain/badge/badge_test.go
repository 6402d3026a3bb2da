package badge_test

import (
	"testing"

	badge "github.com/okian/gitrank/internal/domain/badge"
	"github.com/okian/gitrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluator_Evaluate(t *testing.T) {
	Convey("Given an evaluator with default thresholds", t, func() {
		eval := badge.NewEvaluator()

		Convey("When lifetime counts cross exactly one threshold", func() {
			lifetime := model.ActivityRecord{
				PRsMerged:        50,
				IssuesClosed:     10,
				Commits:          500,
				StarsGiven:       50,
				ReposContributed: 5,
			}

			Convey("Then only that badge should be earned", func() {
				earned := eval.Evaluate(lifetime, nil)
				So(earned, ShouldResemble, []string{badge.PRMaster})
			})
		})

		Convey("When counts sit just below a threshold", func() {
			lifetime := model.ActivityRecord{PRsMerged: 49}

			Convey("Then no badge should be earned", func() {
				So(eval.Evaluate(lifetime, nil), ShouldBeEmpty)
			})
		})

		Convey("When every threshold is crossed", func() {
			lifetime := model.ActivityRecord{
				PRsMerged:        50,
				IssuesClosed:     25,
				Commits:          1000,
				StarsGiven:       100,
				ReposContributed: 20,
			}

			Convey("Then all badges should be earned, sorted by name", func() {
				earned := eval.Evaluate(lifetime, nil)
				So(earned, ShouldResemble, []string{
					badge.BugHunter,
					badge.CodeWarrior,
					badge.OpenSourceHero,
					badge.PRMaster,
					badge.StarGazer,
				})
			})
		})

		Convey("When a badge was earned before and counts dropped", func() {
			previous := []string{badge.CodeWarrior}
			lifetime := model.ActivityRecord{Commits: 100}

			Convey("Then the badge should stay earned", func() {
				earned := eval.Evaluate(lifetime, previous)
				So(earned, ShouldContain, badge.CodeWarrior)
			})

			Convey("And the input slice should not be mutated", func() {
				lifetime.PRsMerged = 60
				_ = eval.Evaluate(lifetime, previous)
				So(previous, ShouldResemble, []string{badge.CodeWarrior})
			})
		})

		Convey("When evaluation runs twice on the same input", func() {
			lifetime := model.ActivityRecord{PRsMerged: 80, StarsGiven: 120}
			first := eval.Evaluate(lifetime, nil)

			Convey("Then the second pass should be idempotent", func() {
				So(eval.Evaluate(lifetime, first), ShouldResemble, first)
			})
		})
	})

	Convey("Given an evaluator with configured thresholds", t, func() {
		eval := badge.NewEvaluator(
			badge.WithThresholdsFromConfig(map[string]int64{
				badge.KeyPRMaster:  10,
				badge.KeyBugHunter: 0,   // ignored, keeps default
				"unknown_key":      5,   // ignored
			}),
		)

		Convey("When counts cross the lowered threshold", func() {
			lifetime := model.ActivityRecord{PRsMerged: 10, IssuesClosed: 24}

			Convey("Then the lowered threshold should apply", func() {
				earned := eval.Evaluate(lifetime, nil)
				So(earned, ShouldContain, badge.PRMaster)
			})

			Convey("And the ignored override should keep the default", func() {
				earned := eval.Evaluate(lifetime, nil)
				So(earned, ShouldNotContain, badge.BugHunter)
			})
		})
	})
}
