package scoring_test

import (
	"testing"

	"github.com/okian/gitrank/internal/domain/model"
	scoring "github.com/okian/gitrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalculator_Score(t *testing.T) {
	Convey("Given a calculator with default weights", t, func() {
		calc := scoring.NewCalculator()

		Convey("When scoring a typical activity record", func() {
			rec := model.ActivityRecord{
				PRsOpened:        10,
				PRsMerged:        5,
				IssuesCreated:    4,
				IssuesClosed:     2,
				ReposContributed: 3,
				StarsGiven:       20,
				Commits:          100,
			}

			Convey("Then it should apply the published formula", func() {
				b := calc.Score(rec)
				So(b.PRsOpened, ShouldEqual, 20.0)
				So(b.PRsMerged, ShouldEqual, 25.0)
				So(b.IssuesCreated, ShouldEqual, 4.0)
				So(b.IssuesClosed, ShouldEqual, 6.0)
				So(b.ReposContributed, ShouldEqual, 6.0)
				So(b.StarsGiven, ShouldEqual, 10.0)
				So(b.Commits, ShouldAlmostEqual, 10.0)
				So(b.Total, ShouldAlmostEqual, 81.0)
			})

			Convey("And it should be deterministic across calls", func() {
				first := calc.Score(rec)
				second := calc.Score(rec)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When scoring a zero record", func() {
			b := calc.Score(model.ActivityRecord{})

			Convey("Then every contribution should be zero", func() {
				So(b.Total, ShouldEqual, 0.0)
			})
		})

		Convey("When scoring a record with negative counts", func() {
			rec := model.ActivityRecord{
				PRsOpened: -10,
				PRsMerged: 2,
				Commits:   -500,
			}

			Convey("Then negatives should be clamped to zero", func() {
				b := calc.Score(rec)
				So(b.PRsOpened, ShouldEqual, 0.0)
				So(b.Commits, ShouldEqual, 0.0)
				So(b.Total, ShouldEqual, 10.0)
			})
		})

		Convey("When one count grows", func() {
			base := model.ActivityRecord{PRsMerged: 5, Commits: 100}
			grown := base
			grown.Commits = 200

			Convey("Then the total should never decrease", func() {
				So(calc.Score(grown).Total, ShouldBeGreaterThanOrEqualTo, calc.Score(base).Total)
			})
		})
	})

	Convey("Given a calculator with configured weights", t, func() {
		calc := scoring.NewCalculator(
			scoring.WithWeightsFromConfig(map[string]float64{
				scoring.KeyPRsMerged: 10.0,
				scoring.KeyCommits:   0.0,
				"unknown_key":        99.0,
				scoring.KeyPRsOpened: -3.0, // rejected, keeps default
			}),
		)

		Convey("When scoring a record", func() {
			rec := model.ActivityRecord{PRsOpened: 1, PRsMerged: 2, Commits: 1000}
			b := calc.Score(rec)

			Convey("Then overridden weights should apply", func() {
				So(b.PRsMerged, ShouldEqual, 20.0)
				So(b.Commits, ShouldEqual, 0.0)
			})

			Convey("And negative overrides should keep the default", func() {
				So(b.PRsOpened, ShouldEqual, 2.0)
			})
		})
	})
}
