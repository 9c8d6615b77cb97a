// Package config defines service configuration and its loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top (see loader.go).
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/ballotboard/internal/domain/tally"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, sqlite or postgres.
	Store string `koanf:"store"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`

	// ScoringRule picks the Borda weighting: ballot_length or roster_length.
	ScoringRule string `koanf:"scoring_rule"`

	// OnlyWeeksWithBallots is the default week filter for GET /series.
	OnlyWeeksWithBallots bool `koanf:"only_weeks_with_ballots"`

	// VotingWeekday is the weekday ballots may be saved on (e.g. "monday").
	VotingWeekday string `koanf:"voting_weekday"`

	// VotingTimezone is the IANA zone the voting weekday is evaluated in.
	VotingTimezone string `koanf:"voting_timezone"`

	// AdminVoters may save ballots outside the voting window.
	AdminVoters []string `koanf:"admin_voters"`

	// QueueSize bounds the in-memory ballot ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// IdempotencySize bounds the idempotency-key cache.
	IdempotencySize int `koanf:"idempotency_size"`

	// OTelEndpoint enables OTLP/HTTP trace export when non-empty.
	OTelEndpoint string `koanf:"otel_endpoint"`

	// ServiceName is reported to the tracing backend.
	ServiceName string `koanf:"service_name"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		Store:                StoreMemory,
		SQLitePath:           "ballotboard.db",
		ScoringRule:          tally.BallotLength.String(),
		OnlyWeeksWithBallots: true,
		VotingWeekday:        "monday",
		VotingTimezone:       "America/Chicago",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		IdempotencySize:      50_000,
		ServiceName:          "ballotboard",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if _, err := c.Rule(); err != nil {
		return err
	}

	if _, err := c.Weekday(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Weekday parses VotingWeekday.
func (c *Config) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.VotingWeekday))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown voting_weekday %q", ErrInvalidConfig, c.VotingWeekday)
}

// Rule parses ScoringRule.
func (c *Config) Rule() (tally.Rule, error) {
	r, err := tally.ParseRule(c.ScoringRule)
	if err != nil {
		return 0, fmt.Errorf("%w: scoring_rule: %w", ErrInvalidConfig, err)
	}
	return r, nil
}

// Location loads VotingTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.VotingTimezone))
	if err != nil {
		return nil, fmt.Errorf("%w: voting_timezone: %v", ErrInvalidConfig, err)
	}
	return loc, nil
}
