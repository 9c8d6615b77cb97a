package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/ballotboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestBallotValidate(t *testing.T) {
	convey.Convey("Given a roster of three players", t, func() {
		roster := []model.Player{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}

		convey.Convey("When the ballot is a full ordering", func() {
			b := model.Ballot{VoterID: "v1", WeekID: "w1", RankOrder: []string{"b", "a", "c"}}

			convey.Convey("Then it should validate", func() {
				convey.So(b.Validate(roster), convey.ShouldBeNil)
				convey.So(b.HasData(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the ballot is partial", func() {
			b := model.Ballot{VoterID: "v1", WeekID: "w1", RankOrder: []string{"c"}}

			convey.Convey("Then it should still validate", func() {
				convey.So(b.Validate(roster), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the ballot breaks an invariant", func() {
			cases := map[string]model.Ballot{
				"missing voter":  {WeekID: "w1", RankOrder: []string{"a"}},
				"missing week":   {VoterID: "v1", RankOrder: []string{"a"}},
				"empty order":    {VoterID: "v1", WeekID: "w1"},
				"repeated id":    {VoterID: "v1", WeekID: "w1", RankOrder: []string{"a", "b", "a"}},
				"unknown player": {VoterID: "v1", WeekID: "w1", RankOrder: []string{"a", "z"}},
			}
			for name, b := range cases {
				convey.Convey("Then "+name+" is rejected with ErrInvalidBallot", func() {
					err := b.Validate(roster)
					convey.So(errors.Is(err, model.ErrInvalidBallot), convey.ShouldBeTrue)
				})
			}
		})
	})
}

func TestWeek(t *testing.T) {
	convey.Convey("Given a week on 2024-03-04", t, func() {
		d, err := model.ParseDate("2024-03-04")
		convey.So(err, convey.ShouldBeNil)
		w := model.Week{ID: "w1", Date: d}

		convey.So(w.Label(), convey.ShouldEqual, "2024-03-04")
	})

	convey.Convey("Given a malformed date", t, func() {
		_, err := model.ParseDate("03/04/2024")
		convey.So(errors.Is(err, model.ErrInvalidDate), convey.ShouldBeTrue)
	})

	convey.Convey("Given a local evening timestamp", t, func() {
		chicago := time.FixedZone("CST", -6*3600)
		ts := time.Date(2024, 3, 4, 22, 30, 0, 0, chicago)

		convey.So(model.Day(ts).Format(model.DateLayout), convey.ShouldEqual, "2024-03-04")
		convey.So(model.Day(ts).Location(), convey.ShouldEqual, time.UTC)
	})
}
