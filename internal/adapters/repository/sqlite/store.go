// Package sqlite provides a SQLite-backed repository.Store on the pure-Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/ballotboard/internal/adapters/repository/sqlmigrate"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/logger"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const backend = "sqlite"

// Store persists voting state in SQLite.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens path, applies embedded migrations and returns the store.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	applied, err := sqlmigrate.Apply(ctx, db, migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, log: logger.Get().Named("sqlite")}
	if len(applied) > 0 {
		s.log.Info(ctx, "applied migrations", logger.Strings("files", applied), logger.String("path", path))
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreatePlayer(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_player", start, err) }(time.Now())

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, voter_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, nullable(p.VoterID), time.Now().UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("player %q: %w", p.ID, repository.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (s *Store) ListPlayers(ctx context.Context) (_ []model.Player, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_players", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(voter_id, '') FROM players ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Player, 0)
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.VoterID); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PlayerByVoter(ctx context.Context, voterID string) (_ model.Player, err error) {
	defer func(start time.Time) { repository.Observe(backend, "player_by_voter", start, err) }(time.Now())

	var p model.Player
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, voter_id FROM players WHERE voter_id = ?`, voterID,
	).Scan(&p.ID, &p.Name, &p.VoterID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("player by voter: %w", err)
	}
	return p, nil
}

func (s *Store) CreateSeason(ctx context.Context, season model.Season) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_season", start, err) }(time.Now())

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO seasons (id, start_date, end_date) VALUES (?, ?, ?)`,
		season.ID, formatDate(season.StartDate), formatDate(season.EndDate),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("season %q: %w", season.ID, repository.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create season: %w", err)
	}
	return nil
}

func (s *Store) LatestSeason(ctx context.Context) (_ model.Season, err error) {
	defer func(start time.Time) { repository.Observe(backend, "latest_season", start, err) }(time.Now())

	var id, startDate, endDate string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, start_date, end_date FROM seasons ORDER BY start_date DESC, id DESC LIMIT 1`,
	).Scan(&id, &startDate, &endDate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Season{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Season{}, fmt.Errorf("latest season: %w", err)
	}
	season := model.Season{ID: id}
	if season.StartDate, err = model.ParseDate(startDate); err != nil {
		return model.Season{}, err
	}
	if season.EndDate, err = model.ParseDate(endDate); err != nil {
		return model.Season{}, err
	}
	return season, nil
}

func (s *Store) CreateWeek(ctx context.Context, w model.Week) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_week", start, err) }(time.Now())

	_, err = s.db.ExecContext(ctx, `INSERT INTO weeks (id, week_date) VALUES (?, ?)`, w.ID, formatDate(w.Date))
	if isUniqueViolation(err) {
		return fmt.Errorf("week %q dated %s: %w", w.ID, formatDate(w.Date), repository.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create week: %w", err)
	}
	return nil
}

func (s *Store) GetWeek(ctx context.Context, id string) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "get_week", start, err) }(time.Now())
	return s.queryWeek(ctx, `SELECT id, week_date FROM weeks WHERE id = ?`, id)
}

func (s *Store) WeekByDate(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "week_by_date", start, err) }(time.Now())
	return s.queryWeek(ctx, `SELECT id, week_date FROM weeks WHERE week_date = ?`, formatDate(date))
}

func (s *Store) LatestWeekOnOrBefore(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "latest_week", start, err) }(time.Now())
	return s.queryWeek(ctx,
		`SELECT id, week_date FROM weeks WHERE week_date <= ? ORDER BY week_date DESC LIMIT 1`, formatDate(date))
}

func (s *Store) queryWeek(ctx context.Context, query string, args ...any) (model.Week, error) {
	var id, date string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Week{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Week{}, fmt.Errorf("query week: %w", err)
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Week{}, err
	}
	return model.Week{ID: id, Date: d}, nil
}

func (s *Store) ListWeeks(ctx context.Context, from, to *time.Time) (_ []model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_weeks", start, err) }(time.Now())

	query := `SELECT id, week_date FROM weeks WHERE 1=1`
	var args []any
	if from != nil {
		query += ` AND week_date >= ?`
		args = append(args, formatDate(*from))
	}
	if to != nil {
		query += ` AND week_date <= ?`
		args = append(args, formatDate(*to))
	}
	query += ` ORDER BY week_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Week, 0)
	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		d, err := model.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Week{ID: id, Date: d})
	}
	return out, rows.Err()
}

func (s *Store) UpsertBallot(ctx context.Context, b model.Ballot) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "upsert_ballot", start, err) }(time.Now())

	order, err := json.Marshal(orEmpty(b.RankOrder))
	if err != nil {
		return fmt.Errorf("encode rank order: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ballots (voter_id, week_id, rank_order, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (voter_id, week_id) DO UPDATE SET rank_order = excluded.rank_order, updated_at = excluded.updated_at`,
		b.VoterID, b.WeekID, string(order), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert ballot: %w", err)
	}
	return nil
}

func (s *Store) GetBallot(ctx context.Context, voterID, weekID string) (_ model.Ballot, err error) {
	defer func(start time.Time) { repository.Observe(backend, "get_ballot", start, err) }(time.Now())

	var raw string
	err = s.db.QueryRowContext(ctx,
		`SELECT rank_order FROM ballots WHERE voter_id = ? AND week_id = ?`, voterID, weekID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ballot{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Ballot{}, fmt.Errorf("get ballot: %w", err)
	}
	b := model.Ballot{VoterID: voterID, WeekID: weekID}
	if err := json.Unmarshal([]byte(raw), &b.RankOrder); err != nil {
		return model.Ballot{}, fmt.Errorf("decode rank order: %w", err)
	}
	return b, nil
}

func (s *Store) ListBallots(ctx context.Context, weekIDs ...string) (_ []model.Ballot, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_ballots", start, err) }(time.Now())

	query := `SELECT voter_id, week_id, rank_order FROM ballots`
	args := make([]any, 0, len(weekIDs))
	if len(weekIDs) > 0 {
		query += ` WHERE week_id IN (?` + strings.Repeat(", ?", len(weekIDs)-1) + `)`
		for _, id := range weekIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY week_id, voter_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ballots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Ballot, 0)
	for rows.Next() {
		var (
			b   model.Ballot
			raw string
		)
		if err := rows.Scan(&b.VoterID, &b.WeekID, &raw); err != nil {
			return nil, fmt.Errorf("scan ballot: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &b.RankOrder); err != nil {
			return nil, fmt.Errorf("decode rank order: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func formatDate(t time.Time) string { return model.Day(t).Format(model.DateLayout) }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ repository.Store = (*Store)(nil)
