// Package repository defines the persistence contract for players, seasons,
// weeks and ballots, plus an in-memory implementation. SQL backends live in
// the sqlite and postgres subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/metrics"
)

// Store provides read/write access to voting state.
type Store interface {
	// CreatePlayer adds a roster entry. A non-empty VoterID may own at most
	// one player. Returns ErrAlreadyExists on either conflict.
	CreatePlayer(ctx context.Context, p model.Player) error
	// ListPlayers returns the roster ordered by name, then id.
	ListPlayers(ctx context.Context) ([]model.Player, error)
	// PlayerByVoter returns the player registered by voterID or ErrNotFound.
	PlayerByVoter(ctx context.Context, voterID string) (model.Player, error)

	CreateSeason(ctx context.Context, s model.Season) error
	// LatestSeason returns the season with the latest start date or ErrNotFound.
	LatestSeason(ctx context.Context) (model.Season, error)

	// CreateWeek adds a week. Ids and dates are unique.
	CreateWeek(ctx context.Context, w model.Week) error
	GetWeek(ctx context.Context, id string) (model.Week, error)
	// ListWeeks returns weeks ordered by date, optionally bounded (inclusive).
	ListWeeks(ctx context.Context, from, to *time.Time) ([]model.Week, error)
	WeekByDate(ctx context.Context, date time.Time) (model.Week, error)
	// LatestWeekOnOrBefore returns the most recent week dated on or before date.
	LatestWeekOnOrBefore(ctx context.Context, date time.Time) (model.Week, error)

	// UpsertBallot stores b, replacing any ballot for the same voter and week.
	UpsertBallot(ctx context.Context, b model.Ballot) error
	GetBallot(ctx context.Context, voterID, weekID string) (model.Ballot, error)
	// ListBallots returns ballots for the given weeks, or every ballot when
	// none are given, ordered by week id then voter id.
	ListBallots(ctx context.Context, weekIDs ...string) ([]model.Ballot, error)

	Close() error
}

// Observe records latency for one store call and counts unexpected failures.
// ErrNotFound and ErrAlreadyExists are outcomes, not failures.
func Observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyExists) {
		metrics.RecordStoreError(backend, op)
		metrics.RecordErrorByComponent("repository", op)
	}
}
