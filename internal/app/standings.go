package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/ranking"
	"github.com/okian/ballotboard/internal/domain/series"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/okian/ballotboard/internal/domain/types"
	"github.com/okian/ballotboard/pkg/logger"
	"github.com/okian/ballotboard/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Standings tallies and ranks one week. An empty weekID selects the current
// week.
func (s *Service) Standings(ctx context.Context, weekID string) (out types.Standings, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Standings")
	defer endSpan(span, &err)
	start := time.Now()

	var week model.Week
	if weekID == "" {
		week, err = s.currentWeek(ctx)
	} else {
		week, err = s.store.GetWeek(ctx, weekID)
	}
	if err != nil {
		return types.Standings{}, fmt.Errorf("standings week: %w", err)
	}
	span.SetAttributes(attribute.String("week.id", week.ID), attribute.String("week.date", week.Label()))

	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return types.Standings{}, fmt.Errorf("list players: %w", err)
	}
	ballots, err := s.store.ListBallots(ctx, week.ID)
	if err != nil {
		return types.Standings{}, fmt.Errorf("list ballots: %w", err)
	}

	rows := ranking.Rank(tally.Tally(players, week.ID, ballots, tally.WithRule(s.rule)))
	metrics.RecordTallyComputed()
	metrics.UpdateRosterSize(len(players))
	metrics.UpdateStandingsTiedRows(ranking.TiedCount(rows))
	metrics.RecordStandingsLatency(msSince(start))
	span.SetAttributes(attribute.Int("standings.ballots", len(ballots)), attribute.Int("standings.rows", len(rows)))

	s.logger.Debug(ctx, "standings computed",
		logger.String("week_id", week.ID),
		logger.Int("ballots", len(ballots)),
		logger.Int("players", len(players)),
	)
	return types.Standings{
		Week:        toWeek(week),
		BallotCount: len(ballots),
		Rule:        s.rule.String(),
		Rows:        toStandingRows(rows),
	}, nil
}

// Series builds the rank time series over the latest season's weeks, or all
// weeks when there is no season. A nil only uses the configured default.
func (s *Service) Series(ctx context.Context, only *bool) (out types.Series, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Series")
	defer endSpan(span, &err)
	start := time.Now()

	onlyWithBallots := s.onlyWeeksWithBallots
	if only != nil {
		onlyWithBallots = *only
	}

	weeks, err := s.seasonWeeks(ctx)
	if err != nil {
		return types.Series{}, fmt.Errorf("series weeks: %w", err)
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return types.Series{}, fmt.Errorf("list players: %w", err)
	}

	var ballots []model.Ballot
	if len(weeks) > 0 {
		ids := make([]string, len(weeks))
		for i, w := range weeks {
			ids[i] = w.ID
		}
		if ballots, err = s.store.ListBallots(ctx, ids...); err != nil {
			return types.Series{}, fmt.Errorf("list ballots: %w", err)
		}
	}

	res := series.Build(players, weeks, ballots, series.Options{
		OnlyWeeksWithBallots: onlyWithBallots,
		Rule:                 s.rule,
	})
	metrics.RecordSeriesBuilt(len(res.WeeksUsed))
	metrics.RecordSeriesLatency(msSince(start))
	span.SetAttributes(
		attribute.Bool("series.only_weeks_with_ballots", onlyWithBallots),
		attribute.Int("series.weeks", len(weeks)),
		attribute.Int("series.weeks_used", len(res.WeeksUsed)),
	)
	return toSeries(res), nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
