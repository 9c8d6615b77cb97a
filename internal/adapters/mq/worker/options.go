package worker

import (
	"sync/atomic"
	"time"

	"github.com/okian/ballotboard/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetries sets how many times a failed store write is retried, with a
// linear backoff of delay per attempt.
func WithRetries(retries int, delay time.Duration) Option {
	return func(w *InMemoryWorker) {
		if retries >= 0 {
			w.retries = retries
		}
		if delay > 0 {
			w.delay = delay
		}
	}
}

// WithFailureHandler registers a callback for dropped submissions.
func WithFailureHandler(h FailureHandler) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = h
	}
}

func withCounter(c *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		w.processed = c
	}
}
