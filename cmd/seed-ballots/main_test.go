package main

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestWeekDates(t *testing.T) {
	convey.Convey("Given week date flags", t, func() {
		convey.Convey("When a list is given", func() {
			got := weekDates(" 2024-01-01, ,2024-01-08 ", time.Now())

			convey.Convey("Then it is split and trimmed", func() {
				convey.So(got, convey.ShouldResemble, []string{"2024-01-01", "2024-01-08"})
			})
		})

		convey.Convey("When no list is given on a Thursday", func() {
			got := weekDates("", time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC))

			convey.Convey("Then the last four Mondays are used in order", func() {
				convey.So(got, convey.ShouldResemble, []string{"2024-02-12", "2024-02-19", "2024-02-26", "2024-03-04"})
			})
		})

		convey.Convey("When no list is given on a Monday", func() {
			got := weekDates("", time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC))

			convey.Convey("Then today is the last week", func() {
				convey.So(got[len(got)-1], convey.ShouldEqual, "2024-03-04")
			})
		})
	})
}
