package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/seedballots"
	"github.com/okian/ballotboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 12
	defaultWeeks       = 4
	defaultReplayEvery = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultSettle      = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players    = flag.Int("players", defaultPlayers, "Number of voters/players")
		weeks      = flag.String("weeks", "", "Comma-separated week dates (default: the last 4 Mondays)")
		prefix     = flag.String("prefix", "seed", "Voter id prefix")
		partial    = flag.Bool("partial", false, "Submit ballots of random length")
		replay     = flag.Int("replay", defaultReplayEvery, "Resend every nth ballot with the same Idempotency-Key")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Time allowed for ballots to be stored")
		outputFile = flag.String("output", "", "Write submitted ballots as JSON to this file")
		logFile    = flag.String("log", "", "Also log to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedballots.ShowHelp()
		return
	}

	closeLog, err := seedballots.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &seedballots.Config{
		BaseURL:     *baseURL,
		Players:     *players,
		Weeks:       weekDates(*weeks, time.Now()),
		VoterPrefix: *prefix,
		Partial:     *partial,
		ReplayEvery: *replay,
		Workers:     *workers,
		Seed:        *seed,
		Timeout:     *timeout,
		Settle:      *settle,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if _, err := seedballots.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}

// weekDates splits a comma list, or returns the last defaultWeeks Mondays
// up to now in ascending order.
func weekDates(list string, now time.Time) []string {
	if strings.TrimSpace(list) != "" {
		var out []string
		for _, d := range strings.Split(list, ",") {
			if d = strings.TrimSpace(d); d != "" {
				out = append(out, d)
			}
		}
		return out
	}

	day := model.Day(now)
	back := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	monday := day.AddDate(0, 0, -back)
	out := make([]string, defaultWeeks)
	for i := range out {
		out[defaultWeeks-1-i] = monday.AddDate(0, 0, -7*i).Format(model.DateLayout)
	}
	return out
}
