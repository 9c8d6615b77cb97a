package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ballotboard/internal/config"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("And the voting window defaults to Monday in Chicago", func() {
			day, err := cfg.Weekday()
			convey.So(err, convey.ShouldBeNil)
			convey.So(day, convey.ShouldEqual, time.Monday)
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "America/Chicago")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = " " },
			"zero queue":       func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":     func(c *config.Config) { c.WorkerCount = 0 },
			"unknown store":    func(c *config.Config) { c.Store = "redis" },
			"sqlite no path":   func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" },
			"bad weekday":      func(c *config.Config) { c.VotingWeekday = "funday" },
			"bad timezone":     func(c *config.Config) { c.VotingTimezone = "Mars/Olympus" },
			"bad scoring rule": func(c *config.Config) { c.ScoringRule = "plurality" },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New()
				mutate(cfg)

				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_Rule(t *testing.T) {
	convey.Convey("Given every scoring rule name", t, func() {
		for _, want := range []tally.Rule{tally.BallotLength, tally.RosterLength} {
			convey.Convey("When the rule is "+want.String(), func() {
				cfg := config.New()
				cfg.ScoringRule = want.String()

				convey.Convey("Then it validates and parses back", func() {
					convey.So(cfg.Validate(), convey.ShouldBeNil)
					got, err := cfg.Rule()
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, want)
				})
			})
		}
	})

	convey.Convey("Given an unknown scoring rule", t, func() {
		cfg := config.New()
		cfg.ScoringRule = "approval"

		convey.Convey("Then the error is both a config and a rule error", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, tally.ErrUnknownRule), convey.ShouldBeTrue)
		})
	})
}
