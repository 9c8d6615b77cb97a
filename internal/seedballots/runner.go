package seedballots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/ballotboard/internal/domain/types"
	"github.com/okian/ballotboard/pkg/logger"
)

const (
	directoryPermission = 0o750
	verifyInterval      = 250 * time.Millisecond
	percentMultiplier   = 100
)

// Run executes a complete seeding run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("seed")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting ballotboard seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Strings("weeks", cfg.Weeks),
		logger.Int("workers", cfg.Workers),
		logger.Bool("partial", cfg.Partial),
		logger.Any("seed", cfg.Seed),
	)

	if err := client.Get(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	roster, err := registerPlayers(ctx, cfg, client, stats)
	if err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}
	weeks, err := scheduleWeeks(ctx, cfg, client, stats)
	if err != nil {
		return stats, fmt.Errorf("week scheduling failed: %w", err)
	}

	ballots := Generate(cfg, roster, weeks)
	stats.BallotsGenerated = len(ballots)
	submitBallots(ctx, cfg, client, ballots, stats)

	if err := settleAndVerify(ctx, cfg, client, weeks, stats); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" {
		if err := saveBallots(cfg.OutputFile, ballots); err != nil {
			log.Warn(ctx, "failed to save ballots to file", logger.Error(err))
		} else {
			log.Info(ctx, "ballots saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// registerPlayers registers one player per seed voter. Voters that already
// own a player are skipped. It returns the full roster.
func registerPlayers(ctx context.Context, cfg *Config, client *Client, stats *Stats) ([]types.Player, error) {
	for n := 0; n < cfg.Players; n++ {
		req := map[string]string{"voter_id": cfg.VoterID(n), "name": fmt.Sprintf("Player %03d", n)}
		status, body, err := client.Post(ctx, "/players", req, nil)
		switch {
		case err != nil:
			return nil, err
		case status == http.StatusCreated:
			stats.PlayersRegistered++
		case status == http.StatusConflict:
		default:
			return nil, fmt.Errorf("%w: POST /players: %d %s", ErrUnexpectedStatus, status, body)
		}
	}
	var roster []types.Player
	if err := client.Get(ctx, "/players", &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// scheduleWeeks creates cfg.Weeks, tolerating existing dates, and returns
// them with their ids in date order.
func scheduleWeeks(ctx context.Context, cfg *Config, client *Client, stats *Stats) ([]types.Week, error) {
	for _, d := range cfg.Weeks {
		status, body, err := client.Post(ctx, "/weeks", map[string]string{"date": d}, nil)
		switch {
		case err != nil:
			return nil, err
		case status == http.StatusCreated:
			stats.WeeksScheduled++
		case status == http.StatusConflict:
		default:
			return nil, fmt.Errorf("%w: POST /weeks %s: %d %s", ErrUnexpectedStatus, d, status, body)
		}
	}

	var all []types.Week
	if err := client.Get(ctx, "/weeks", &all); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(cfg.Weeks))
	for _, d := range cfg.Weeks {
		wanted[d] = true
	}
	weeks := make([]types.Week, 0, len(cfg.Weeks))
	for _, w := range all {
		if wanted[w.Date] {
			weeks = append(weeks, w)
		}
	}
	return weeks, nil
}

// settleAndVerify retries verification until it passes or cfg.Settle runs
// out; ballots are stored asynchronously.
func settleAndVerify(ctx context.Context, cfg *Config, client *Client, weeks []types.Week, stats *Stats) error {
	log := logger.Get().Named("seed")
	deadline := time.Now().Add(cfg.Settle)

	for {
		snap, err := readBack(ctx, cfg, client, weeks)
		if err == nil {
			stats.BallotsStored = len(snap.ballots)
			err = verify(ctx, client, snap, weeks)
		}
		if err == nil {
			stats.WeeksVerified = len(weeks)
			log.Info(ctx, "standings and series verified",
				logger.Int("weeks", len(weeks)),
				logger.Int("stored", stats.BallotsStored),
			)
			return nil
		}
		if !errors.Is(err, ErrVerification) || time.Now().After(deadline) {
			return fmt.Errorf("result verification failed: %w", err)
		}
		log.Debug(ctx, "verification pending", logger.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(verifyInterval):
		}
	}
}

func verify(ctx context.Context, client *Client, snap snapshot, weeks []types.Week) error {
	rule, err := verifyStandings(ctx, client, snap, weeks)
	if err != nil {
		return err
	}
	return verifySeries(ctx, client, snap, rule)
}

// saveBallots writes ballots as a JSON array.
func saveBallots(filename string, ballots []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(ballots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ballots: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, ballotsPerSecond float64
	if stats.BallotsGenerated > 0 {
		acceptRate = float64(stats.BallotsAccepted) / float64(stats.BallotsGenerated) * percentMultiplier
	}
	if stats.Duration > 0 {
		ballotsPerSecond = float64(stats.BallotsGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("weeksScheduled", stats.WeeksScheduled),
		logger.Int("ballotsGenerated", stats.BallotsGenerated),
		logger.Int("ballotsAccepted", stats.BallotsAccepted),
		logger.Int("ballotsDuplicate", stats.BallotsDuplicate),
		logger.Int("ballotsRejected", stats.BallotsRejected),
		logger.Int("ballotsFailed", stats.BallotsFailed),
		logger.Int("ballotsStored", stats.BallotsStored),
		logger.Int("weeksVerified", stats.WeeksVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("ballotsPerSecond", ballotsPerSecond),
	)
}
