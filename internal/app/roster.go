package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/ballotboard/internal/adapters/repository"
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/types"
	"github.com/okian/ballotboard/pkg/logger"
	"golang.org/x/text/unicode/norm"
)

const maxNameLength = 64

// RegisterPlayer creates the player profile owned by voterID.
// A voter owns at most one player.
func (s *Service) RegisterPlayer(ctx context.Context, voterID, name string) (types.Player, error) {
	voterID = strings.TrimSpace(voterID)
	name = norm.NFC.String(strings.TrimSpace(name))
	if voterID == "" {
		return types.Player{}, fmt.Errorf("%w: voter id is required", ErrInvalidName)
	}
	if name == "" || len([]rune(name)) > maxNameLength {
		return types.Player{}, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidName, maxNameLength)
	}

	p := model.Player{ID: uuid.NewString(), Name: name, VoterID: voterID}
	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return types.Player{}, fmt.Errorf("register player: %w", err)
	}
	s.logger.Info(ctx, "player registered",
		logger.String("player_id", p.ID),
		logger.String("voter_id", voterID),
	)
	return toPlayer(p), nil
}

// Players returns the roster ordered by name.
func (s *Service) Players(ctx context.Context) ([]types.Player, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]types.Player, len(players))
	for i, p := range players {
		out[i] = toPlayer(p)
	}
	return out, nil
}

// CreateSeason stores a season spanning start to end inclusive.
func (s *Service) CreateSeason(ctx context.Context, start, end string) (types.Season, error) {
	startDate, err := model.ParseDate(start)
	if err != nil {
		return types.Season{}, fmt.Errorf("%w: start: %w", ErrInvalidSeason, err)
	}
	endDate, err := model.ParseDate(end)
	if err != nil {
		return types.Season{}, fmt.Errorf("%w: end: %w", ErrInvalidSeason, err)
	}
	if endDate.Before(startDate) {
		return types.Season{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidSeason, end, start)
	}

	season := model.Season{ID: uuid.NewString(), StartDate: startDate, EndDate: endDate}
	if err := s.store.CreateSeason(ctx, season); err != nil {
		return types.Season{}, fmt.Errorf("create season: %w", err)
	}
	return toSeason(season), nil
}

// CreateWeek schedules a voting week on date. Dates are unique.
func (s *Service) CreateWeek(ctx context.Context, date string) (types.Week, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return types.Week{}, err
	}
	w := model.Week{ID: uuid.NewString(), Date: d}
	if err := s.store.CreateWeek(ctx, w); err != nil {
		return types.Week{}, fmt.Errorf("create week %s: %w", date, err)
	}
	return toWeek(w), nil
}

// Weeks lists weeks by date. With seasonOnly the list is limited to the
// latest season, or every week when no season exists.
func (s *Service) Weeks(ctx context.Context, seasonOnly bool) ([]types.Week, error) {
	var weeks []model.Week
	var err error
	if seasonOnly {
		weeks, err = s.seasonWeeks(ctx)
	} else {
		weeks, err = s.store.ListWeeks(ctx, nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return toWeeks(weeks), nil
}

func (s *Service) seasonWeeks(ctx context.Context) ([]model.Week, error) {
	season, err := s.store.LatestSeason(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return s.store.ListWeeks(ctx, nil, nil)
	case err != nil:
		return nil, err
	}
	return s.store.ListWeeks(ctx, &season.StartDate, &season.EndDate)
}

// CurrentWeek returns the week dated today, else the latest week before
// today, and whether voterID may vote in it now. Week is nil when none exists
// yet. An empty voterID reports the window for ordinary voters.
func (s *Service) CurrentWeek(ctx context.Context, voterID string) (types.CurrentWeek, error) {
	w, err := s.currentWeek(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return types.CurrentWeek{}, nil
	case err != nil:
		return types.CurrentWeek{}, fmt.Errorf("current week: %w", err)
	}
	out := toWeek(w)
	admin := s.isAdmin(voterID)
	return types.CurrentWeek{
		Week:          &out,
		VotingOpen:    s.VotingOpen(voterID) && (admin || w.Date.Equal(s.today())),
		AdminOverride: admin,
	}, nil
}

func (s *Service) currentWeek(ctx context.Context) (model.Week, error) {
	today := s.today()
	w, err := s.store.WeekByDate(ctx, today)
	if errors.Is(err, repository.ErrNotFound) {
		return s.store.LatestWeekOnOrBefore(ctx, today)
	}
	return w, err
}

// windowOpen reports whether today is the voting weekday in the voting zone.
func (s *Service) windowOpen() bool {
	return s.now().In(s.loc).Weekday() == s.votingDay
}

func (s *Service) isAdmin(voterID string) bool {
	_, ok := s.admins[voterID]
	return ok
}

// VotingOpen reports whether voterID may save a ballot right now.
func (s *Service) VotingOpen(voterID string) bool {
	return s.isAdmin(voterID) || s.windowOpen()
}
