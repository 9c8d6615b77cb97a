package seedballots

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/ballotboard/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultRejected
	resultFailed
)

// submitBallots posts ballots through cfg.Workers concurrent submitters.
// Every ReplayEvery-th ballot is sent twice with the same key.
func submitBallots(ctx context.Context, cfg *Config, client *Client, ballots []Submission, stats *Stats) {
	log := logger.Get().Named("seed")
	log.Info(ctx, "submitting ballots", logger.Int("ballots", len(ballots)), logger.Int("workers", cfg.Workers))

	var accepted, duplicate, rejected, failed atomic.Int64
	count := func(r submitResult) {
		switch r {
		case resultAccepted:
			accepted.Add(1)
		case resultDuplicate:
			duplicate.Add(1)
		case resultRejected:
			rejected.Add(1)
		default:
			failed.Add(1)
		}
	}

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				count(submitOne(ctx, client, ballots[i]))
				if cfg.ReplayEvery > 0 && i%cfg.ReplayEvery == cfg.ReplayEvery-1 {
					count(submitOne(ctx, client, ballots[i]))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range ballots {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.BallotsAccepted = int(accepted.Load())
	stats.BallotsDuplicate = int(duplicate.Load())
	stats.BallotsRejected = int(rejected.Load())
	stats.BallotsFailed = int(failed.Load())
	log.Info(ctx, "ballot submission completed",
		logger.Int("accepted", stats.BallotsAccepted),
		logger.Int("duplicate", stats.BallotsDuplicate),
		logger.Int("rejected", stats.BallotsRejected),
		logger.Int("failed", stats.BallotsFailed),
	)
}

func submitOne(ctx context.Context, client *Client, s Submission) submitResult {
	status, body, err := client.Post(ctx, "/ballots", s, map[string]string{idempotencyHeader: s.IdempotencyKey})
	if err != nil {
		logger.Get().Debug(ctx, "ballot submission failed", logger.String("voter_id", s.VoterID), logger.Error(err))
		return resultFailed
	}

	switch {
	case status == http.StatusAccepted:
		return resultAccepted
	case status == http.StatusOK:
		var ack AckResponse
		if json.Unmarshal(body, &ack) == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultAccepted
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests:
		logger.Get().Debug(ctx, "ballot rejected",
			logger.String("voter_id", s.VoterID),
			logger.String("week_id", s.WeekID),
			logger.Int("status", status),
			logger.String("body", string(body)),
		)
		return resultRejected
	default:
		return resultFailed
	}
}
