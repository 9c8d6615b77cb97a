// Package service wires the store, ingestion pipeline and aggregation engine
// into the operations served by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/ballotboard/internal/adapters/mq/queue"
	"github.com/okian/ballotboard/internal/adapters/mq/worker"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/dedupe"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/tally"
	"github.com/okian/ballotboard/pkg/logger"
	"github.com/okian/ballotboard/pkg/metrics"
	"github.com/okian/ballotboard/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for the ballot board.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	rule                 tally.Rule
	onlyWeeksWithBallots bool
	votingDay            time.Weekday
	loc                  *time.Location
	admins               map[string]struct{}

	workerCount int
	queueSize   int
	dedupeSize  int

	now     func() time.Time
	tracer  trace.Tracer
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Call Start before submitting ballots.
func New(opts ...Option) *Service {
	s := &Service{
		rule:                 tally.BallotLength,
		onlyWeeksWithBallots: true,
		votingDay:            time.Monday,
		loc:                  time.UTC,
		admins:               make(map[string]struct{}),
		workerCount:          runtime.NumCPU(),
		queueSize:            10_000,
		dedupeSize:           50_000,
		now:                  time.Now,
		tracer:               telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the idempotency cache, the queue and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// Workers outlive the request that started them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store,
		worker.WithRetries(2, 100*time.Millisecond),
		worker.WithFailureHandler(releaseKey(s.deduper)),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "ballot service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("rule", s.rule.String()),
		logger.String("voting_day", s.votingDay.String()),
		logger.String("voting_tz", s.loc.String()),
	)
	return nil
}

// releaseKey forgets the idempotency key of a ballot that could not be
// stored so the client may retry it.
func releaseKey(d dedupe.Deduper) worker.FailureHandler {
	return func(ctx context.Context, sub queue.Submission, _ error) {
		if sub.DedupeKey != "" {
			d.Unrecord(ctx, sub.DedupeKey)
		}
	}
}

// Stop rejects new ballots, then drains the queue and stops the workers.
// The store is left open. Only the caller that flips the service to stopped
// waits for the drain.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	pool, stopWorkers := s.pool, s.cancel
	s.started = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping ballot service")
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	stopWorkers()
	s.logger.Info(ctx, "ballot service stopped", logger.Int("stored", int(pool.Processed())))
}

// pipeline returns the ingestion components of the running service.
func (s *Service) pipeline() (dedupe.Deduper, queue.Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper, s.queue, s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":              s.started,
		"workerCount":          s.workerCount,
		"queueSize":            s.queueSize,
		"dedupeSize":           s.dedupeSize,
		"scoringRule":          s.rule.String(),
		"onlyWeeksWithBallots": s.onlyWeeksWithBallots,
		"votingDay":            s.votingDay.String(),
		"votingTimezone":       s.loc.String(),
	}
	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["idempotencyKeys"] = s.deduper.Size()
		stats["ballotsStored"] = s.pool.Processed()
		if players, err := s.store.ListPlayers(ctx); err == nil {
			stats["players"] = len(players)
			metrics.UpdateRosterSize(len(players))
		}
		if weeks, err := s.store.ListWeeks(ctx, nil, nil); err == nil {
			stats["weeks"] = len(weeks)
			metrics.UpdateWeeksTotal(len(weeks))
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

// today returns the current calendar date in the voting timezone.
func (s *Service) today() time.Time {
	return model.Day(s.now().In(s.loc))
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
