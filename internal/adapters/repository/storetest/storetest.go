// Package storetest holds the behavioral suite every repository.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/model"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.Store

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Run exercises open against the Store contract.
func Run(t *testing.T, open Factory) {
	t.Run("players", func(t *testing.T) { testPlayers(t, open(t)) })
	t.Run("seasons", func(t *testing.T) { testSeasons(t, open(t)) })
	t.Run("weeks", func(t *testing.T) { testWeeks(t, open(t)) })
	t.Run("ballots", func(t *testing.T) { testBallots(t, open(t)) })
}

func testPlayers(t *testing.T, s repository.Store) {
	ctx := context.Background()

	for _, p := range []model.Player{
		{ID: "p3", Name: "bob", VoterID: "v3"},
		{ID: "p1", Name: "Bob", VoterID: "v1"},
		{ID: "p2", Name: "Amy"},
		{ID: "p0", Name: "Bob"},
	} {
		if err := s.CreatePlayer(ctx, p); err != nil {
			t.Fatalf("create player %s: %v", p.ID, err)
		}
	}

	if err := s.CreatePlayer(ctx, model.Player{ID: "p1", Name: "Dup"}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate id: got %v, want ErrAlreadyExists", err)
	}
	if err := s.CreatePlayer(ctx, model.Player{ID: "p9", Name: "Other", VoterID: "v1"}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate voter: got %v, want ErrAlreadyExists", err)
	}

	players, err := s.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	var ids []string
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	want := []string{"p2", "p0", "p1", "p3"}
	if len(ids) != len(want) {
		t.Fatalf("players = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("players = %v, want %v", ids, want)
		}
	}

	p, err := s.PlayerByVoter(ctx, "v3")
	if err != nil {
		t.Fatalf("player by voter: %v", err)
	}
	if p.ID != "p3" || p.Name != "bob" {
		t.Fatalf("player by voter = %+v", p)
	}
	if _, err := s.PlayerByVoter(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown voter: got %v, want ErrNotFound", err)
	}
}

func testSeasons(t *testing.T, s repository.Store) {
	ctx := context.Background()

	if _, err := s.LatestSeason(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("empty latest season: got %v, want ErrNotFound", err)
	}
	for _, season := range []model.Season{
		{ID: "s1", StartDate: day("2024-01-01"), EndDate: day("2024-03-31")},
		{ID: "s2", StartDate: day("2024-04-01"), EndDate: day("2024-06-30")},
	} {
		if err := s.CreateSeason(ctx, season); err != nil {
			t.Fatalf("create season %s: %v", season.ID, err)
		}
	}
	if err := s.CreateSeason(ctx, model.Season{ID: "s1", StartDate: day("2025-01-01"), EndDate: day("2025-02-01")}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate season: got %v, want ErrAlreadyExists", err)
	}

	latest, err := s.LatestSeason(ctx)
	if err != nil {
		t.Fatalf("latest season: %v", err)
	}
	if latest.ID != "s2" || !latest.EndDate.Equal(day("2024-06-30")) {
		t.Fatalf("latest season = %+v", latest)
	}
}

func testWeeks(t *testing.T, s repository.Store) {
	ctx := context.Background()

	for _, w := range []model.Week{
		{ID: "w3", Date: day("2024-01-15")},
		{ID: "w1", Date: day("2024-01-01")},
		{ID: "w2", Date: day("2024-01-08")},
	} {
		if err := s.CreateWeek(ctx, w); err != nil {
			t.Fatalf("create week %s: %v", w.ID, err)
		}
	}
	if err := s.CreateWeek(ctx, model.Week{ID: "w9", Date: day("2024-01-08")}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate date: got %v, want ErrAlreadyExists", err)
	}

	all, err := s.ListWeeks(ctx, nil, nil)
	if err != nil {
		t.Fatalf("list weeks: %v", err)
	}
	if len(all) != 3 || all[0].ID != "w1" || all[2].ID != "w3" {
		t.Fatalf("weeks = %+v", all)
	}
	if all[1].Label() != "2024-01-08" {
		t.Fatalf("week label = %s", all[1].Label())
	}

	from, to := day("2024-01-08"), day("2024-01-15")
	bounded, err := s.ListWeeks(ctx, &from, &to)
	if err != nil {
		t.Fatalf("list bounded weeks: %v", err)
	}
	if len(bounded) != 2 || bounded[0].ID != "w2" {
		t.Fatalf("bounded weeks = %+v", bounded)
	}

	got, err := s.GetWeek(ctx, "w2")
	if err != nil || got.ID != "w2" {
		t.Fatalf("get week = %+v, %v", got, err)
	}
	if _, err := s.GetWeek(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown week: got %v, want ErrNotFound", err)
	}

	byDate, err := s.WeekByDate(ctx, day("2024-01-15"))
	if err != nil || byDate.ID != "w3" {
		t.Fatalf("week by date = %+v, %v", byDate, err)
	}
	if _, err := s.WeekByDate(ctx, day("2024-01-16")); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing date: got %v, want ErrNotFound", err)
	}

	latest, err := s.LatestWeekOnOrBefore(ctx, day("2024-01-12"))
	if err != nil || latest.ID != "w2" {
		t.Fatalf("latest week = %+v, %v", latest, err)
	}
	if _, err := s.LatestWeekOnOrBefore(ctx, day("2023-12-31")); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("before first week: got %v, want ErrNotFound", err)
	}
}

func testBallots(t *testing.T, s repository.Store) {
	ctx := context.Background()

	for _, w := range []model.Week{{ID: "w1", Date: day("2024-01-01")}, {ID: "w2", Date: day("2024-01-08")}} {
		if err := s.CreateWeek(ctx, w); err != nil {
			t.Fatalf("create week: %v", err)
		}
	}

	ballots := []model.Ballot{
		{VoterID: "v2", WeekID: "w1", RankOrder: []string{"a", "b"}},
		{VoterID: "v1", WeekID: "w1", RankOrder: []string{"b", "a"}},
		{VoterID: "v1", WeekID: "w2", RankOrder: []string{"c"}},
	}
	for _, b := range ballots {
		if err := s.UpsertBallot(ctx, b); err != nil {
			t.Fatalf("upsert ballot: %v", err)
		}
	}

	if err := s.UpsertBallot(ctx, model.Ballot{VoterID: "v1", WeekID: "w1", RankOrder: []string{"c", "a", "b"}}); err != nil {
		t.Fatalf("replace ballot: %v", err)
	}

	got, err := s.GetBallot(ctx, "v1", "w1")
	if err != nil {
		t.Fatalf("get ballot: %v", err)
	}
	if len(got.RankOrder) != 3 || got.RankOrder[0] != "c" {
		t.Fatalf("replaced ballot = %+v", got)
	}
	if _, err := s.GetBallot(ctx, "v9", "w1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown ballot: got %v, want ErrNotFound", err)
	}

	week1, err := s.ListBallots(ctx, "w1")
	if err != nil {
		t.Fatalf("list ballots: %v", err)
	}
	if len(week1) != 2 || week1[0].VoterID != "v1" || week1[1].VoterID != "v2" {
		t.Fatalf("week 1 ballots = %+v", week1)
	}

	all, err := s.ListBallots(ctx)
	if err != nil {
		t.Fatalf("list all ballots: %v", err)
	}
	if len(all) != 3 || all[2].WeekID != "w2" {
		t.Fatalf("all ballots = %+v", all)
	}

	none, err := s.ListBallots(ctx, "w404")
	if err != nil || len(none) != 0 {
		t.Fatalf("ballots for unknown week = %+v, %v", none, err)
	}
}
