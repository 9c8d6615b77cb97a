// Package worker drains the ingestion queue and persists ballots.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/ballotboard/internal/adapters/mq/queue"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/logger"
	"github.com/okian/ballotboard/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
	defaultRetryDelay     = 50 * time.Millisecond
)

// BallotWriter persists a ballot, replacing any earlier one for the same
// voter and week.
type BallotWriter interface {
	UpsertBallot(ctx context.Context, b model.Ballot) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// FailureHandler is called once a submission is dropped after all retries.
type FailureHandler func(ctx context.Context, s queue.Submission, err error)

// Worker processes submissions until its queue channel closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker stores submissions read from a Queue.
type InMemoryWorker struct {
	queue     Queue
	writer    BallotWriter
	name      string
	retries   int
	delay     time.Duration
	onFailure FailureHandler
	processed *atomic.Int64

	stop chan struct{}
	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, writer BallotWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		writer:    writer,
		name:      "worker",
		delay:     defaultRetryDelay,
		processed: new(atomic.Int64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run reads until the queue is closed and drained, ctx is done or Shutdown
// forces a stop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "dropping ballot", logger.Error(err),
					logger.String("voter_id", s.Ballot.VoterID),
					logger.String("week_id", s.Ballot.WeekID),
				)
				if w.onFailure != nil {
					w.onFailure(ctx, s, err)
				}
			}
		}
	}
}

// Shutdown waits for Run to finish. If ctx expires first the worker is
// stopped without draining.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.forceStop()
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) forceStop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s queue.Submission) error { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(w.delay * time.Duration(attempt)):
			}
		}
		if err = w.writer.UpsertBallot(ctx, s.Ballot); err == nil {
			break
		}
		w.logger.Warn(ctx, "store write failed", logger.Int("attempt", attempt+1), logger.Error(err))
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("store ballot %s/%s: %w", s.Ballot.WeekID, s.Ballot.VoterID, err)
	}

	metrics.RecordBallotStored()
	w.processed.Add(1)
	if !s.AcceptedAt.IsZero() {
		w.logger.Debug(ctx, "ballot stored",
			logger.String("voter_id", s.Ballot.VoterID),
			logger.String("week_id", s.Ballot.WeekID),
			logger.Float64("queued_ms", float64(time.Since(s.AcceptedAt).Microseconds())/1000),
		)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stop      chan struct{}
	processed atomic.Int64
	lastTick  time.Time

	logger logger.Logger
}

// NewPool creates workerCount workers. opts apply to every worker; names are
// assigned per worker.
func NewPool(workerCount int, q Queue, writer BallotWriter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		stop:     make(chan struct{}),
		lastTick: time.Now(),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)), withCounter(&p.processed))
		p.workers[i] = NewInMemoryWorker(q, writer, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many ballots the pool has stored.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.runMetrics(ctx)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

func (p *Pool) runMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case now := <-ticker.C:
			total := p.processed.Load()
			if secs := now.Sub(p.lastTick).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(total-last) / secs)
			}
			last, p.lastTick = total, now
		}
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.stop)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}
