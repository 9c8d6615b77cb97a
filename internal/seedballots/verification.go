package seedballots

import (
	"context"
	"fmt"
	"net/url"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/ranking"
	"github.com/okian/ballotboard/internal/domain/series"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/okian/ballotboard/internal/domain/types"
)

// snapshot is what the server reports, read back over HTTP.
type snapshot struct {
	roster  []model.Player
	weeks   []model.Week // latest season, as the series uses
	ballots []model.Ballot
}

// readBack fetches the roster, the season's weeks and every seed voter's
// stored ballot for weeks.
func readBack(ctx context.Context, cfg *Config, client *Client, weeks []types.Week) (snapshot, error) {
	var snap snapshot

	var players []types.Player
	if err := client.Get(ctx, "/players", &players); err != nil {
		return snap, err
	}
	for _, p := range players {
		snap.roster = append(snap.roster, model.Player{ID: p.ID, Name: p.Name})
	}

	var season []types.Week
	if err := client.Get(ctx, "/weeks?season=latest", &season); err != nil {
		return snap, err
	}
	for _, w := range season {
		d, err := model.ParseDate(w.Date)
		if err != nil {
			return snap, err
		}
		snap.weeks = append(snap.weeks, model.Week{ID: w.ID, Date: d})
	}

	for _, w := range weeks {
		for n := 0; n < cfg.Players; n++ {
			var b types.Ballot
			path := "/ballots/" + url.PathEscape(w.ID) + "/" + url.PathEscape(cfg.VoterID(n))
			if err := client.Get(ctx, path, &b); err != nil {
				return snap, err
			}
			if b.Saved {
				snap.ballots = append(snap.ballots, model.Ballot{VoterID: b.VoterID, WeekID: b.WeekID, RankOrder: b.RankOrder})
			}
		}
	}
	return snap, nil
}

// verifyStandings recomputes each week's table from snap and compares it
// with GET /standings. It assumes the seed voters are the only voters and
// returns the scoring rule the server reports.
func verifyStandings(ctx context.Context, client *Client, snap snapshot, weeks []types.Week) (tally.Rule, error) {
	rule := tally.BallotLength
	for _, w := range weeks {
		var got types.Standings
		if err := client.Get(ctx, "/standings?week_id="+url.QueryEscape(w.ID), &got); err != nil {
			return rule, err
		}
		var err error
		if rule, err = tally.ParseRule(got.Rule); err != nil {
			return rule, fmt.Errorf("%w: standings rule: %w", ErrVerification, err)
		}

		count := 0
		for _, b := range snap.ballots {
			if b.WeekID == w.ID {
				count++
			}
		}
		if got.BallotCount != count {
			return rule, fmt.Errorf("%w: week %s: server counts %d ballots, read back %d", ErrVerification, w.Date, got.BallotCount, count)
		}

		want := ranking.Rank(tally.Tally(snap.roster, w.ID, snap.ballots, tally.WithRule(rule)))
		if err := compareStandings(got.Rows, want); err != nil {
			return rule, fmt.Errorf("week %s: %w", w.Date, err)
		}
	}
	return rule, nil
}

func compareStandings(got []types.StandingRow, want []ranking.Row) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d rows, want %d", ErrVerification, len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.PlayerID != w.PlayerID || g.Rank != w.Rank || g.Points != w.Points || g.Tied != w.Tied {
			return fmt.Errorf("%w: row %d is %s rank %d points %d tied %t, want %s rank %d points %d tied %t",
				ErrVerification, i, g.PlayerID, g.Rank, g.Points, g.Tied, w.PlayerID, w.Rank, w.Points, w.Tied)
		}
		if g.Label != ranking.Label(w) {
			return fmt.Errorf("%w: row %d label %q, want %q", ErrVerification, i, g.Label, ranking.Label(w))
		}
	}
	return nil
}

// verifySeries rebuilds the series both with and without the week filter
// and compares it with GET /series.
func verifySeries(ctx context.Context, client *Client, snap snapshot, rule tally.Rule) error {
	for _, only := range []bool{true, false} {
		var got types.Series
		if err := client.Get(ctx, fmt.Sprintf("/series?only_weeks_with_ballots=%t", only), &got); err != nil {
			return err
		}
		want := series.Build(snap.roster, snap.weeks, snap.ballots, series.Options{OnlyWeeksWithBallots: only, Rule: rule})
		if err := compareSeries(got, want); err != nil {
			return fmt.Errorf("series only_weeks_with_ballots=%t: %w", only, err)
		}
	}
	return nil
}

func compareSeries(got types.Series, want series.Result) error {
	if got.WeekCount != len(want.WeeksUsed) || len(got.Rows) != len(want.Rows) {
		return fmt.Errorf("%w: %d weeks, want %d", ErrVerification, got.WeekCount, len(want.WeeksUsed))
	}
	if len(got.Lines) != len(want.Lines) {
		return fmt.Errorf("%w: %d lines, want %d", ErrVerification, len(got.Lines), len(want.Lines))
	}
	for i, l := range want.Lines {
		if got.Lines[i].Key != l.Key || got.Lines[i].PlayerID != l.PlayerID {
			return fmt.Errorf("%w: line %d is %q, want %q", ErrVerification, i, got.Lines[i].Key, l.Key)
		}
	}
	for i, row := range want.Rows {
		g := got.Rows[i]
		if g.Week != row.Label {
			return fmt.Errorf("%w: row %d week %s, want %s", ErrVerification, i, g.Week, row.Label)
		}
		for key, rank := range row.Ranks {
			if !sameRank(g.Ranks[key], rank) {
				return fmt.Errorf("%w: week %s %q rank %s, want %s", ErrVerification, row.Label, key, showRank(g.Ranks[key]), showRank(rank))
			}
		}
	}
	return nil
}

func sameRank(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func showRank(r *int) string {
	if r == nil {
		return "null"
	}
	return fmt.Sprint(*r)
}
