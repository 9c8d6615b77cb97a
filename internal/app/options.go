package service

import (
	"time"

	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/okian/ballotboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRule sets the scoring rule used for standings and series.
func WithRule(rule tally.Rule) Option {
	return func(s *Service) {
		s.rule = rule
	}
}

// WithOnlyWeeksWithBallots sets the default series week filter.
func WithOnlyWeeksWithBallots(only bool) Option {
	return func(s *Service) {
		s.onlyWeeksWithBallots = only
	}
}

// WithVotingWindow sets the weekday ballots may be saved on and the zone it is
// evaluated in.
func WithVotingWindow(day time.Weekday, loc *time.Location) Option {
	return func(s *Service) {
		s.votingDay = day
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAdmins lists voters allowed to save ballots outside the window.
func WithAdmins(voterIDs ...string) Option {
	return func(s *Service) {
		for _, id := range voterIDs {
			if id != "" {
				s.admins[id] = struct{}{}
			}
		}
	}
}

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
