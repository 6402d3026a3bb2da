package model_test

import (
	"testing"

	"github.com/okian/gitrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestActivityRecord_Merge(t *testing.T) {
	Convey("Given two activity records", t, func() {
		stored := model.ActivityRecord{
			PRsOpened:  10,
			PRsMerged:  5,
			Commits:    1000,
			StarsGiven: 40,
		}
		fetched := model.ActivityRecord{
			PRsOpened:  12,
			PRsMerged:  3, // upstream undercount
			Commits:    900,
			StarsGiven: 41,
		}

		Convey("When merging the fetched snapshot into the stored counts", func() {
			merged := stored.Merge(fetched)

			Convey("Then each field should keep its high-water mark", func() {
				So(merged.PRsOpened, ShouldEqual, 12)
				So(merged.PRsMerged, ShouldEqual, 5)
				So(merged.Commits, ShouldEqual, 1000)
				So(merged.StarsGiven, ShouldEqual, 41)
			})

			Convey("And merging should be commutative", func() {
				So(fetched.Merge(stored), ShouldResemble, merged)
			})

			Convey("And the inputs should be unchanged", func() {
				So(stored.PRsMerged, ShouldEqual, 5)
				So(fetched.PRsMerged, ShouldEqual, 3)
			})
		})
	})
}

func TestActivityRecord_Clamped(t *testing.T) {
	Convey("Given a record with mixed signs", t, func() {
		rec := model.ActivityRecord{
			PRsOpened:     -1,
			IssuesCreated: 7,
			Commits:       -100,
		}

		Convey("When clamping", func() {
			clamped := rec.Clamped()

			Convey("Then negatives should become zero and positives survive", func() {
				So(clamped.PRsOpened, ShouldEqual, 0)
				So(clamped.Commits, ShouldEqual, 0)
				So(clamped.IssuesCreated, ShouldEqual, 7)
			})
		})
	})
}
