package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/ballotboard/internal/adapters/mq/queue"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/dedupe"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/types"
	"github.com/okian/ballotboard/pkg/logger"
	"github.com/okian/ballotboard/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// SubmitBallot validates b and queues it for storage. A repeated non-empty
// idemKey from the same voter is acknowledged without queuing and reported
// as a duplicate.
func (s *Service) SubmitBallot(ctx context.Context, b model.Ballot, idemKey string) (duplicate bool, err error) {
	ctx, span := s.tracer.Start(ctx, "service.SubmitBallot")
	defer endSpan(span, &err)
	span.SetAttributes(
		attribute.String("ballot.voter_id", b.VoterID),
		attribute.String("ballot.week_id", b.WeekID),
		attribute.Int("ballot.length", len(b.RankOrder)),
	)

	deduper, q, ok := s.pipeline()
	if !ok {
		return false, ErrNotStarted
	}
	metrics.RecordBallotSubmitted(len(b.RankOrder))

	if err := s.admit(ctx, b); err != nil {
		metrics.RecordBallotRejected(rejectReason(err))
		return false, err
	}

	key := ""
	if idemKey = strings.TrimSpace(idemKey); idemKey != "" {
		key = dedupe.Key(b.VoterID, idemKey)
		seen, err := deduper.SeenAndRecord(ctx, key, dedupe.Fingerprint(b.WeekID, b.RankOrder))
		switch {
		case errors.Is(err, dedupe.ErrKeyReused):
			metrics.RecordBallotRejected("key_reused")
			return false, fmt.Errorf("%w: %q", ErrKeyReused, idemKey)
		case seen:
			metrics.RecordBallotDuplicate()
			span.SetAttributes(attribute.Bool("ballot.duplicate", true))
			return true, nil
		}
	}

	sub := queue.Submission{
		Ballot:     cloneBallot(b),
		DedupeKey:  key,
		AcceptedAt: s.now(),
	}
	if !q.Enqueue(ctx, sub) {
		if key != "" {
			deduper.Unrecord(ctx, key)
		}
		if q.IsClosed() {
			metrics.RecordBallotRejected("stopped")
			return false, ErrNotStarted
		}
		metrics.RecordBallotRejected("queue_full")
		s.logger.Warn(ctx, "ballot queue full",
			logger.String("voter_id", b.VoterID),
			logger.String("week_id", b.WeekID),
		)
		return false, ErrQueueFull
	}
	return false, nil
}

// admit runs the ingestion checks: shape and roster, registration, week and
// voting window.
func (s *Service) admit(ctx context.Context, b model.Ballot) error {
	roster, err := s.store.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	if err := b.Validate(roster); err != nil {
		return err
	}

	if _, err := s.store.PlayerByVoter(ctx, b.VoterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotRegistered, b.VoterID)
		}
		return fmt.Errorf("lookup voter: %w", err)
	}

	week, err := s.store.GetWeek(ctx, b.WeekID)
	if err != nil {
		return fmt.Errorf("week %s: %w", b.WeekID, err)
	}

	if s.isAdmin(b.VoterID) {
		return nil
	}
	if !s.windowOpen() {
		return fmt.Errorf("%w: ballots are accepted on %s (%s)", ErrVotingClosed, s.votingDay, s.loc)
	}
	if !week.Date.Equal(s.today()) {
		return fmt.Errorf("%w: week %s is not open", ErrVotingClosed, week.Label())
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidBallot):
		return "invalid_ballot"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, repository.ErrNotFound):
		return "unknown_week"
	case errors.Is(err, ErrVotingClosed):
		return "window_closed"
	default:
		return "store_error"
	}
}

// Ballot returns voterID's stored ballot for weekID, or a prefill in roster
// order when none is stored. Stored orders drop players no longer on the
// roster and append new ones.
func (s *Service) Ballot(ctx context.Context, voterID, weekID string) (types.Ballot, error) {
	if _, err := s.store.GetWeek(ctx, weekID); err != nil {
		return types.Ballot{}, fmt.Errorf("week %s: %w", weekID, err)
	}
	roster, err := s.store.ListPlayers(ctx)
	if err != nil {
		return types.Ballot{}, fmt.Errorf("list players: %w", err)
	}

	out := types.Ballot{VoterID: voterID, WeekID: weekID}
	stored, err := s.store.GetBallot(ctx, voterID, weekID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		out.RankOrder = make([]string, len(roster))
		for i, p := range roster {
			out.RankOrder[i] = p.ID
		}
		return out, nil
	case err != nil:
		return types.Ballot{}, fmt.Errorf("get ballot: %w", err)
	}

	out.Saved = true
	out.RankOrder = prefill(stored.RankOrder, roster)
	return out, nil
}

func prefill(order []string, roster []model.Player) []string {
	onRoster := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		onRoster[p.ID] = struct{}{}
	}
	out := make([]string, 0, len(roster))
	used := make(map[string]struct{}, len(roster))
	for _, id := range order {
		if _, ok := onRoster[id]; !ok {
			continue
		}
		if _, dup := used[id]; dup {
			continue
		}
		used[id] = struct{}{}
		out = append(out, id)
	}
	for _, p := range roster {
		if _, ok := used[p.ID]; !ok {
			out = append(out, p.ID)
		}
	}
	return out
}

func cloneBallot(b model.Ballot) model.Ballot {
	b.RankOrder = append([]string(nil), b.RankOrder...)
	return b
}
