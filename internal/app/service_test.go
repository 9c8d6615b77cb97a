package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/ballotboard/internal/app"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/okian/ballotboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var chicago = time.FixedZone("CST", -6*60*60)

// monday is 2024-03-04 10:00 in Chicago.
var monday = time.Date(2024, 3, 4, 10, 0, 0, 0, chicago)

func clockAt(t time.Time) service.Option {
	return service.WithClock(func() time.Time { return t })
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["scoringRule"], ShouldEqual, "ballot_length")
			So(stats["onlyWeeksWithBallots"], ShouldEqual, true)
			So(stats["votingDay"], ShouldEqual, "Monday")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithRule(tally.RosterLength),
			service.WithOnlyWeeksWithBallots(false),
			service.WithVotingWindow(time.Sunday, chicago),
		)

		Convey("Then the options are reflected in its stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
			So(stats["scoringRule"], ShouldEqual, "roster_length")
			So(stats["onlyWeeksWithBallots"], ShouldEqual, false)
			So(stats["votingDay"], ShouldEqual, "Sunday")
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["players"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})

		Convey("When submitting before start", func() {
			_, err := svc.SubmitBallot(ctx, model.Ballot{VoterID: "v", WeekID: "w", RankOrder: []string{"p"}}, "")

			Convey("Then it fails with ErrNotStarted", func() {
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

// stalledStore blocks ballot writes until release is closed.
type stalledStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
}

func (s *stalledStore) UpsertBallot(ctx context.Context, b model.Ballot) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return s.Store.UpsertBallot(ctx, b)
}

func TestService_StopWhileDraining(t *testing.T) {
	Convey("Given a started service whose store write is stalled", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store := &stalledStore{
			Store:   repository.NewMemoryStore(),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		svc := service.New(service.WithStore(store), service.WithWorkerCount(1), clockAt(monday))
		p, err := svc.RegisterPlayer(ctx, "v-amy", "Amy")
		So(err, ShouldBeNil)
		w, err := svc.CreateWeek(ctx, "2024-03-04")
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		ballot := model.Ballot{VoterID: "v-amy", WeekID: w.ID, RankOrder: []string{p.ID}}
		_, err = svc.SubmitBallot(ctx, ballot, "")
		So(err, ShouldBeNil)
		select {
		case <-store.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("ballot write never started")
		}

		Convey("When Stop is draining the pool", func() {
			stopped := make(chan struct{})
			go func() {
				svc.Stop()
				close(stopped)
			}()

			statsWithin := func() (map[string]any, bool) {
				ch := make(chan map[string]any, 1)
				go func() { ch <- svc.GetStats() }()
				select {
				case st := <-ch:
					return st, true
				case <-time.After(time.Second):
					return nil, false
				}
			}
			var (
				stats      map[string]any
				responsive bool
			)
			for deadline := time.Now().Add(3 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
				if stats, responsive = statsWithin(); !responsive || stats["started"] == false {
					break
				}
			}

			Convey("Then stats stay readable and report the service as stopped", func() {
				So(responsive, ShouldBeTrue)
				So(stats["started"], ShouldEqual, false)

				_, err := svc.SubmitBallot(ctx, ballot, "")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				select {
				case <-stopped:
					t.Fatal("Stop returned before the stalled write finished")
				default:
				}

				close(store.release)
				select {
				case <-stopped:
				case <-time.After(5 * time.Second):
					t.Fatal("Stop did not finish after the write was released")
				}
				stored, err := store.GetBallot(ctx, "v-amy", w.ID)
				So(err, ShouldBeNil)
				So(stored.RankOrder, ShouldResemble, []string{p.ID})
			})
		})
	})
}

func TestService_Roster(t *testing.T) {
	Convey("Given a service on an empty store", t, func() {
		ctx := context.Background()
		svc := service.New(clockAt(monday))

		Convey("When registering a player", func() {
			p, err := svc.RegisterPlayer(ctx, "voter-1", "  Zoe  ")

			Convey("Then the name is trimmed and an id assigned", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldNotBeEmpty)
				So(p.Name, ShouldEqual, "Zoe")
			})

			Convey("And the same voter cannot register twice", func() {
				_, err := svc.RegisterPlayer(ctx, "voter-1", "Zed")
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})
		})

		Convey("When registering decomposed unicode", func() {
			p, err := svc.RegisterPlayer(ctx, "voter-2", "Jose\u0301")

			Convey("Then the name is stored composed", func() {
				So(err, ShouldBeNil)
				So(p.Name, ShouldEqual, "Jos\u00e9")
			})
		})

		Convey("When registering with a blank name or voter", func() {
			_, errName := svc.RegisterPlayer(ctx, "voter-3", "   ")
			_, errVoter := svc.RegisterPlayer(ctx, " ", "Amy")

			Convey("Then both are rejected", func() {
				So(errors.Is(errName, service.ErrInvalidName), ShouldBeTrue)
				So(errors.Is(errVoter, service.ErrInvalidName), ShouldBeTrue)
			})
		})

		Convey("When listing players", func() {
			_, _ = svc.RegisterPlayer(ctx, "v-b", "Bob")
			_, _ = svc.RegisterPlayer(ctx, "v-a", "Amy")
			players, err := svc.Players(ctx)

			Convey("Then they come back ordered by name", func() {
				So(err, ShouldBeNil)
				So(len(players), ShouldEqual, 2)
				So(players[0].Name, ShouldEqual, "Amy")
				So(players[1].Name, ShouldEqual, "Bob")
			})
		})
	})
}

func TestService_WeeksAndSeasons(t *testing.T) {
	Convey("Given weeks across two seasons", t, func() {
		ctx := context.Background()
		svc := service.New(clockAt(monday))
		for _, d := range []string{"2024-01-01", "2024-02-26", "2024-03-04", "2024-03-11"} {
			_, err := svc.CreateWeek(ctx, d)
			So(err, ShouldBeNil)
		}

		Convey("When no season exists", func() {
			weeks, err := svc.Weeks(ctx, true)

			Convey("Then every week is returned", func() {
				So(err, ShouldBeNil)
				So(len(weeks), ShouldEqual, 4)
				So(weeks[0].Date, ShouldEqual, "2024-01-01")
			})
		})

		Convey("When a later season exists", func() {
			_, err := svc.CreateSeason(ctx, "2023-09-01", "2024-01-31")
			So(err, ShouldBeNil)
			season, err := svc.CreateSeason(ctx, "2024-02-01", "2024-05-31")
			So(err, ShouldBeNil)
			So(season.StartDate, ShouldEqual, "2024-02-01")

			weeks, err := svc.Weeks(ctx, true)

			Convey("Then only its weeks are returned", func() {
				So(err, ShouldBeNil)
				So(len(weeks), ShouldEqual, 3)
				So(weeks[0].Date, ShouldEqual, "2024-02-26")
			})

			Convey("And the unfiltered list still has them all", func() {
				all, err := svc.Weeks(ctx, false)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 4)
			})
		})

		Convey("When creating invalid weeks or seasons", func() {
			_, errDup := svc.CreateWeek(ctx, "2024-03-04")
			_, errDate := svc.CreateWeek(ctx, "03/04/2024")
			_, errOrder := svc.CreateSeason(ctx, "2024-05-01", "2024-04-01")

			Convey("Then each is rejected", func() {
				So(errors.Is(errDup, repository.ErrAlreadyExists), ShouldBeTrue)
				So(errors.Is(errDate, model.ErrInvalidDate), ShouldBeTrue)
				So(errors.Is(errOrder, service.ErrInvalidSeason), ShouldBeTrue)
			})
		})

		Convey("When asking for the current week on a Monday", func() {
			cur, err := svc.CurrentWeek(ctx, "")

			Convey("Then it is today's week and voting is open", func() {
				So(err, ShouldBeNil)
				So(cur.Week, ShouldNotBeNil)
				So(cur.Week.Date, ShouldEqual, "2024-03-04")
				So(cur.VotingOpen, ShouldBeTrue)
			})
		})

		Convey("When asking for the current week mid-week", func() {
			later := service.New(
				service.WithStore(repository.NewMemoryStore()),
				clockAt(monday.Add(3*24*time.Hour)),
				service.WithAdmins("v-admin"),
			)
			_, _ = later.CreateWeek(ctx, "2024-03-04")
			_, _ = later.CreateWeek(ctx, "2024-03-11")
			cur, err := later.CurrentWeek(ctx, "v-amy")

			Convey("Then the latest past week is returned and voting is closed", func() {
				So(err, ShouldBeNil)
				So(cur.Week.Date, ShouldEqual, "2024-03-04")
				So(cur.VotingOpen, ShouldBeFalse)
				So(cur.AdminOverride, ShouldBeFalse)
			})

			Convey("Then an admin sees the override and may vote", func() {
				admin, err := later.CurrentWeek(ctx, "v-admin")
				So(err, ShouldBeNil)
				So(admin.Week.Date, ShouldEqual, "2024-03-04")
				So(admin.VotingOpen, ShouldBeTrue)
				So(admin.AdminOverride, ShouldBeTrue)
			})
		})

		Convey("When no week has started yet", func() {
			early := service.New(clockAt(time.Date(2023, 1, 2, 9, 0, 0, 0, chicago)))
			_, _ = early.CreateWeek(ctx, "2024-03-04")
			cur, err := early.CurrentWeek(ctx, "")

			Convey("Then there is no current week", func() {
				So(err, ShouldBeNil)
				So(cur.Week, ShouldBeNil)
			})
		})
	})
}

func TestService_VotingOpen(t *testing.T) {
	Convey("Given a Monday window in Chicago", t, func() {
		Convey("When it is Monday evening in Chicago but Tuesday in UTC", func() {
			evening := time.Date(2024, 3, 4, 21, 0, 0, 0, chicago)
			svc := service.New(clockAt(evening), service.WithVotingWindow(time.Monday, chicago))

			Convey("Then the window is open", func() {
				So(evening.UTC().Weekday(), ShouldEqual, time.Tuesday)
				So(svc.VotingOpen("anyone"), ShouldBeTrue)
			})
		})

		Convey("When it is Wednesday", func() {
			svc := service.New(
				clockAt(monday.Add(48*time.Hour)),
				service.WithVotingWindow(time.Monday, chicago),
				service.WithAdmins("admin"),
			)

			Convey("Then only admins may vote", func() {
				So(svc.VotingOpen("anyone"), ShouldBeFalse)
				So(svc.VotingOpen("admin"), ShouldBeTrue)
			})
		})
	})
}
