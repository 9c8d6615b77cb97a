package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/ballotboard/internal/app"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with four players and three weeks", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(100),
			service.WithAdmins("v-dan"),
			clockAt(monday),
		)

		ids := map[string]string{}
		for voter, name := range map[string]string{"v-amy": "Amy", "v-bob": "Bob", "v-cat": "Cat", "v-dan": "Dan"} {
			p, err := svc.RegisterPlayer(ctx, voter, name)
			So(err, ShouldBeNil)
			ids[name] = p.ID
		}
		weeks := map[string]types.Week{}
		for _, d := range []string{"2024-02-26", "2024-03-04", "2024-03-11"} {
			w, err := svc.CreateWeek(ctx, d)
			So(err, ShouldBeNil)
			weeks[d] = w
		}
		past, today, future := weeks["2024-02-26"].ID, weeks["2024-03-04"].ID, weeks["2024-03-11"].ID

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		submit := func(voter, weekID, key string, names ...string) (bool, error) {
			order := make([]string, len(names))
			for i, n := range names {
				order[i] = ids[n]
			}
			return svc.SubmitBallot(ctx, model.Ballot{VoterID: voter, WeekID: weekID, RankOrder: order}, key)
		}

		Convey("When ballots are submitted and the pipeline drains", func() {
			_, err := submit("v-amy", today, "", "Bob", "Amy", "Cat")
			So(err, ShouldBeNil)
			_, err = submit("v-bob", today, "", "Amy", "Bob")
			So(err, ShouldBeNil)
			_, err = submit("v-dan", past, "", "Cat")
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the ballots are stored", func() {
				stored, err := store.ListBallots(ctx)
				So(err, ShouldBeNil)
				So(len(stored), ShouldEqual, 3)
			})

			Convey("Then today's standings use per-ballot length with dense ranks", func() {
				st, err := svc.Standings(ctx, "")
				So(err, ShouldBeNil)
				So(st.Week.ID, ShouldEqual, today)
				So(st.BallotCount, ShouldEqual, 2)
				So(st.Rule, ShouldEqual, "ballot_length")
				So(len(st.Rows), ShouldEqual, 4)

				So(st.Rows[0].Name, ShouldEqual, "Amy")
				So(st.Rows[0].Points, ShouldEqual, 4)
				So(st.Rows[0].Label, ShouldEqual, "T-1")
				So(st.Rows[1].Name, ShouldEqual, "Bob")
				So(st.Rows[1].Rank, ShouldEqual, 1)
				So(st.Rows[2].Name, ShouldEqual, "Cat")
				So(st.Rows[2].Rank, ShouldEqual, 2)
				So(st.Rows[2].Tied, ShouldBeFalse)
				So(st.Rows[3].Name, ShouldEqual, "Dan")
				So(st.Rows[3].Points, ShouldEqual, 0)
				So(st.Rows[3].Label, ShouldEqual, "3")
			})

			Convey("Then an empty future week is all tied at rank 1", func() {
				st, err := svc.Standings(ctx, future)
				So(err, ShouldBeNil)
				So(st.BallotCount, ShouldEqual, 0)
				for _, r := range st.Rows {
					So(r.Rank, ShouldEqual, 1)
					So(r.Tied, ShouldBeTrue)
				}
			})

			Convey("Then the series keeps only weeks with ballots by default", func() {
				s, err := svc.Series(ctx, nil)
				So(err, ShouldBeNil)
				So(s.WeekCount, ShouldEqual, 2)
				So(len(s.Lines), ShouldEqual, 4)
				So(s.Rows[0].Week, ShouldEqual, "2024-02-26")
				So(s.Rows[0].Ranks["Cat"], ShouldResemble, intPtr(1))
				So(s.Rows[0].Ranks["Amy"], ShouldResemble, intPtr(2))
				So(s.Rows[1].Week, ShouldEqual, "2024-03-04")
				So(s.Rows[1].Ranks["Amy"], ShouldResemble, intPtr(1))
				So(s.Rows[1].Ranks["Dan"], ShouldResemble, intPtr(3))
			})

			Convey("Then the unfiltered series includes the empty week", func() {
				s, err := svc.Series(ctx, boolPtr(false))
				So(err, ShouldBeNil)
				So(s.WeekCount, ShouldEqual, 3)
				So(s.Rows[2].Week, ShouldEqual, "2024-03-11")
				for _, rank := range s.Rows[2].Ranks {
					So(rank, ShouldResemble, intPtr(1))
				}
			})

			Convey("Then a voter's stored ballot prefills with missing players appended", func() {
				b, err := svc.Ballot(ctx, "v-amy", today)
				So(err, ShouldBeNil)
				So(b.Saved, ShouldBeTrue)
				So(b.RankOrder, ShouldResemble, []string{ids["Bob"], ids["Amy"], ids["Cat"], ids["Dan"]})
			})

			Convey("Then a voter without a ballot gets the roster order", func() {
				b, err := svc.Ballot(ctx, "v-cat", today)
				So(err, ShouldBeNil)
				So(b.Saved, ShouldBeFalse)
				So(b.RankOrder, ShouldResemble, []string{ids["Amy"], ids["Bob"], ids["Cat"], ids["Dan"]})
			})
		})

		Convey("When the same idempotency key is replayed for the same ballot", func() {
			first, err := submit("v-amy", today, "key-1", "Cat", "Bob")
			So(err, ShouldBeNil)
			second, err := submit("v-amy", today, "key-1", "Cat", "Bob")
			So(err, ShouldBeNil)
			other, err := submit("v-bob", today, "key-1", "Amy")
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then only the first ballot per voter is queued", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(other, ShouldBeFalse)

				b, err := store.GetBallot(ctx, "v-amy", today)
				So(err, ShouldBeNil)
				So(b.RankOrder, ShouldResemble, []string{ids["Cat"], ids["Bob"]})
			})
		})

		Convey("When an idempotency key is reused for a different ballot", func() {
			_, err := submit("v-dan", today, "key-1", "Amy")
			So(err, ShouldBeNil)
			otherWeek, errWeek := submit("v-dan", future, "key-1", "Amy")
			otherOrder, errOrder := submit("v-dan", today, "key-1", "Bob")
			_, err = submit("v-dan", future, "key-2", "Amy")
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the reuse is rejected instead of acknowledged", func() {
				So(otherWeek, ShouldBeFalse)
				So(errors.Is(errWeek, service.ErrKeyReused), ShouldBeTrue)
				So(otherOrder, ShouldBeFalse)
				So(errors.Is(errOrder, service.ErrKeyReused), ShouldBeTrue)
			})

			Convey("Then nothing is lost: the first ballot stands and a fresh key stores the other week", func() {
				b, err := store.GetBallot(ctx, "v-dan", today)
				So(err, ShouldBeNil)
				So(b.RankOrder, ShouldResemble, []string{ids["Amy"]})

				b, err = store.GetBallot(ctx, "v-dan", future)
				So(err, ShouldBeNil)
				So(b.RankOrder, ShouldResemble, []string{ids["Amy"]})
			})
		})

		Convey("When a voter resubmits for the same week", func() {
			_, err := submit("v-amy", today, "", "Cat")
			So(err, ShouldBeNil)
			svc.Stop()
			So(svc.Start(ctx), ShouldBeNil)
			_, err = submit("v-amy", today, "", "Dan", "Cat")
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the stored order is replaced", func() {
				b, err := store.GetBallot(ctx, "v-amy", today)
				So(err, ShouldBeNil)
				So(b.RankOrder, ShouldResemble, []string{ids["Dan"], ids["Cat"]})
			})
		})

		Convey("When submissions break the ingestion rules", func() {
			_, errRepeat := submit("v-amy", today, "", "Bob", "Bob")
			_, errEmpty := submit("v-amy", today, "")
			_, errUnknown := svc.SubmitBallot(ctx, model.Ballot{VoterID: "v-amy", WeekID: today, RankOrder: []string{"nobody"}}, "")
			_, errGhost := submit("v-ghost", today, "", "Amy")
			_, errWeek := submit("v-amy", "no-such-week", "", "Amy")
			_, errPast := submit("v-amy", past, "", "Amy")

			Convey("Then each is rejected with its kind", func() {
				So(errors.Is(errRepeat, model.ErrInvalidBallot), ShouldBeTrue)
				So(errors.Is(errEmpty, model.ErrInvalidBallot), ShouldBeTrue)
				So(errors.Is(errUnknown, model.ErrInvalidBallot), ShouldBeTrue)
				So(errors.Is(errGhost, service.ErrNotRegistered), ShouldBeTrue)
				So(errors.Is(errWeek, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errPast, service.ErrVotingClosed), ShouldBeTrue)
			})
		})

		Convey("When asking for an unknown week", func() {
			_, errStandings := svc.Standings(ctx, "no-such-week")
			_, errBallot := svc.Ballot(ctx, "v-amy", "no-such-week")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(errStandings, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errBallot, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceVotingWindow(t *testing.T) {
	Convey("Given a service whose clock reads Tuesday", t, func() {
		ctx := context.Background()
		svc := service.New(clockAt(monday.Add(24*time.Hour)), service.WithAdmins("v-admin"))
		amy, err := svc.RegisterPlayer(ctx, "v-amy", "Amy")
		So(err, ShouldBeNil)
		_, err = svc.RegisterPlayer(ctx, "v-admin", "Root")
		So(err, ShouldBeNil)
		week, err := svc.CreateWeek(ctx, "2024-03-04")
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a regular voter submits", func() {
			_, err := svc.SubmitBallot(ctx, model.Ballot{VoterID: "v-amy", WeekID: week.ID, RankOrder: []string{amy.ID}}, "")

			Convey("Then the window is closed", func() {
				So(errors.Is(err, service.ErrVotingClosed), ShouldBeTrue)
			})
		})

		Convey("When an admin submits", func() {
			_, err := svc.SubmitBallot(ctx, model.Ballot{VoterID: "v-admin", WeekID: week.ID, RankOrder: []string{amy.ID}}, "")

			Convey("Then the ballot is accepted", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
