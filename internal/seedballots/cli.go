package seedballots

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/ballotboard/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the global logger on stdout, teeing into logFile
// when it is set. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var w io.Writer = os.Stdout
	closer := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}

	if err := logger.InitWithWriter(w); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`ballotboard seed tool
=====================

Registers a roster, schedules weeks and submits random ballots concurrently,
then checks /standings and /series against a local tally of the stored ballots.

Ballots outside the voting window are rejected unless the voters are admins.
Start the server with the seed voters listed, e.g.
  BALLOTBOARD_ADMIN_VOTERS=seed-000,seed-001,... go run ./cmd

Usage:
  go run ./cmd/seed-ballots [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -players int       Number of voters/players (default 12)
  -weeks string      Comma-separated week dates (default: the last 4 Mondays)
  -prefix string     Voter id prefix (default "seed")
  -partial           Submit ballots of random length
  -replay int        Resend every nth ballot with the same Idempotency-Key (default 5)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -seed uint         Random seed (default: current time)
  -timeout duration  HTTP request timeout (default 10s)
  -settle duration   Time allowed for ballots to be stored (default 10s)
  -output string     Write submitted ballots as JSON to this file
  -log string        Also log to this file
  -verbose           Enable debug logging
  -help              Show this help message
`)
}
