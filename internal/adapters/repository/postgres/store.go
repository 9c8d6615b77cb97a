// Package postgres provides a gorm-backed repository.Store for PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const backend = "postgres"

// Store persists voting state in PostgreSQL.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle without migrating.
func New(db *gorm.DB) *Store {
	return &Store{db: db, log: logger.Get().Named("postgres")}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&playerModel{}, &seasonModel{}, &weekModel{}, &ballotModel{}); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreatePlayer(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_player", start, err) }(time.Now())

	row := playerModelFromEntity(p)
	row.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("player %q: %w", p.ID, repository.ErrAlreadyExists)
		}
		return s.logError(ctx, "create player", err, logger.String("player_id", p.ID))
	}
	return nil
}

func (s *Store) ListPlayers(ctx context.Context) (_ []model.Player, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_players", start, err) }(time.Now())

	var rows []playerModel
	if err := s.db.WithContext(ctx).Order(`name COLLATE "C"`).Order("id").Find(&rows).Error; err != nil {
		return nil, s.logError(ctx, "list players", err)
	}
	out := make([]model.Player, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (s *Store) PlayerByVoter(ctx context.Context, voterID string) (_ model.Player, err error) {
	defer func(start time.Time) { repository.Observe(backend, "player_by_voter", start, err) }(time.Now())

	var row playerModel
	err = s.db.WithContext(ctx).Where("voter_id = ?", voterID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Player{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Player{}, s.logError(ctx, "player by voter", err, logger.String("voter_id", voterID))
	}
	return row.toEntity(), nil
}

func (s *Store) CreateSeason(ctx context.Context, season model.Season) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_season", start, err) }(time.Now())

	row := seasonModel{ID: season.ID, StartDate: model.Day(season.StartDate), EndDate: model.Day(season.EndDate)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("season %q: %w", season.ID, repository.ErrAlreadyExists)
		}
		return s.logError(ctx, "create season", err, logger.String("season_id", season.ID))
	}
	return nil
}

func (s *Store) LatestSeason(ctx context.Context) (_ model.Season, err error) {
	defer func(start time.Time) { repository.Observe(backend, "latest_season", start, err) }(time.Now())

	var row seasonModel
	err = s.db.WithContext(ctx).Order("start_date DESC").Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Season{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Season{}, s.logError(ctx, "latest season", err)
	}
	return row.toEntity(), nil
}

func (s *Store) CreateWeek(ctx context.Context, w model.Week) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "create_week", start, err) }(time.Now())

	row := weekModel{ID: w.ID, WeekDate: model.Day(w.Date)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("week %q: %w", w.ID, repository.ErrAlreadyExists)
		}
		return s.logError(ctx, "create week", err, logger.String("week_id", w.ID))
	}
	return nil
}

func (s *Store) GetWeek(ctx context.Context, id string) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "get_week", start, err) }(time.Now())
	return s.firstWeek(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) WeekByDate(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "week_by_date", start, err) }(time.Now())
	return s.firstWeek(s.db.WithContext(ctx).Where("week_date = ?", model.Day(date)))
}

func (s *Store) LatestWeekOnOrBefore(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "latest_week", start, err) }(time.Now())
	return s.firstWeek(s.db.WithContext(ctx).Where("week_date <= ?", model.Day(date)).Order("week_date DESC"))
}

func (s *Store) firstWeek(q *gorm.DB) (model.Week, error) {
	var row weekModel
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Week{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Week{}, fmt.Errorf("query week: %w", err)
	}
	return row.toEntity(), nil
}

func (s *Store) ListWeeks(ctx context.Context, from, to *time.Time) (_ []model.Week, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_weeks", start, err) }(time.Now())

	q := s.db.WithContext(ctx).Model(&weekModel{})
	if from != nil {
		q = q.Where("week_date >= ?", model.Day(*from))
	}
	if to != nil {
		q = q.Where("week_date <= ?", model.Day(*to))
	}
	var rows []weekModel
	if err := q.Order("week_date").Find(&rows).Error; err != nil {
		return nil, s.logError(ctx, "list weeks", err)
	}
	out := make([]model.Week, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (s *Store) UpsertBallot(ctx context.Context, b model.Ballot) (err error) {
	defer func(start time.Time) { repository.Observe(backend, "upsert_ballot", start, err) }(time.Now())

	row, err := ballotModelFromEntity(b, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("encode rank order: %w", err)
	}
	create := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "voter_id"}, {Name: "week_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"rank_order": row.RankOrder,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return s.logError(ctx, "upsert ballot", create.Error,
			logger.String("voter_id", b.VoterID), logger.String("week_id", b.WeekID))
	}
	return nil
}

func (s *Store) GetBallot(ctx context.Context, voterID, weekID string) (_ model.Ballot, err error) {
	defer func(start time.Time) { repository.Observe(backend, "get_ballot", start, err) }(time.Now())

	var row ballotModel
	err = s.db.WithContext(ctx).Where("voter_id = ? AND week_id = ?", voterID, weekID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Ballot{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Ballot{}, s.logError(ctx, "get ballot", err)
	}
	return row.toEntity()
}

func (s *Store) ListBallots(ctx context.Context, weekIDs ...string) (_ []model.Ballot, err error) {
	defer func(start time.Time) { repository.Observe(backend, "list_ballots", start, err) }(time.Now())

	q := s.db.WithContext(ctx).Model(&ballotModel{})
	if len(weekIDs) > 0 {
		q = q.Where("week_id IN ?", weekIDs)
	}
	var rows []ballotModel
	if err := q.Order("week_id").Order("voter_id").Find(&rows).Error; err != nil {
		return nil, s.logError(ctx, "list ballots", err)
	}
	out := make([]model.Ballot, 0, len(rows))
	for _, r := range rows {
		b, err := r.toEntity()
		if err != nil {
			return nil, fmt.Errorf("decode ballot %s/%s: %w", r.WeekID, r.VoterID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) logError(ctx context.Context, op string, err error, fields ...logger.Field) error {
	s.log.Error(ctx, "postgres store operation failed", append(fields, logger.String("op", op), logger.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ repository.Store = (*Store)(nil)
