// Package seedballots drives a running ballotboard over HTTP: it registers a
// roster, schedules weeks, submits random ballots concurrently and checks the
// served standings and series against a local tally.
package seedballots

import (
	"fmt"
	"time"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Number of voters, each registering one player
	Weeks       []string      // Week dates (yyyy-mm-dd) to schedule and vote in
	VoterPrefix string        // Voter ids are <prefix>-<n>
	Partial     bool          // Submit ballots of random length instead of full ones
	ReplayEvery int           // Resend every nth ballot with the same Idempotency-Key; 0 disables
	Workers     int           // Number of concurrent submitters
	Seed        uint64        // Random seed for ballot generation
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // How long to wait for ballots to be stored before verification fails
	OutputFile  string        // Output file for submitted ballots; empty skips saving
	LogFile     string        // Log file for run output; empty logs to stdout only
	Verbose     bool          // Enable debug logging
}

// Validate checks the run configuration.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrConfig)
	case c.Players < 1:
		return fmt.Errorf("%w: at least one player is required", ErrConfig)
	case len(c.Weeks) == 0:
		return fmt.Errorf("%w: at least one week is required", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	case c.VoterPrefix == "":
		return fmt.Errorf("%w: voter prefix is required", ErrConfig)
	}
	return nil
}

// VoterID returns the voter id for player n.
func (c *Config) VoterID(n int) string {
	return fmt.Sprintf("%s-%03d", c.VoterPrefix, n)
}

// Submission is one ballot to post.
type Submission struct {
	VoterID        string   `json:"voter_id"`
	WeekID         string   `json:"week_id"`
	RankOrder      []string `json:"rank_order"`
	IdempotencyKey string   `json:"-"`
}

// AckResponse represents the response from ballot submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered int
	WeeksScheduled    int
	BallotsGenerated  int
	BallotsAccepted   int
	BallotsDuplicate  int
	BallotsRejected   int
	BallotsFailed     int
	BallotsStored     int
	WeeksVerified     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
