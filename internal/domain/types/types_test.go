package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/ballotboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandingsJSON(t *testing.T) {
	Convey("Given a standings table with a tie", t, func() {
		s := types.Standings{
			Week:        types.Week{ID: "w1", Date: "2024-03-04"},
			BallotCount: 2,
			Rule:        "ballot_length",
			Rows: []types.StandingRow{
				{Rank: 1, Label: "T-1", PlayerID: "a", Name: "Ann", Points: 3, Tied: true},
			},
		}

		Convey("When it is encoded", func() {
			b, err := json.Marshal(s)
			So(err, ShouldBeNil)

			Convey("Then it uses snake_case field names", func() {
				So(string(b), ShouldContainSubstring, `"ballot_count":2`)
				So(string(b), ShouldContainSubstring, `"label":"T-1"`)
				So(string(b), ShouldContainSubstring, `"player_id":"a"`)
			})
		})
	})
}

func TestSeriesJSON(t *testing.T) {
	Convey("Given a series row with a reserved null rank", t, func() {
		one := 1
		row := types.SeriesRow{Week: "2024-03-04", Ranks: map[string]*int{"Bo": nil, "Ann": &one}}

		Convey("When it is encoded twice", func() {
			a, err := json.Marshal(row)
			So(err, ShouldBeNil)
			b, err := json.Marshal(row)
			So(err, ShouldBeNil)

			Convey("Then keys are sorted, null is kept and output is stable", func() {
				So(string(a), ShouldEqual, `{"week":"2024-03-04","ranks":{"Ann":1,"Bo":null}}`)
				So(string(b), ShouldEqual, string(a))
			})
		})
	})
}
