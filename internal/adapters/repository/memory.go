package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/ballotboard/internal/domain/model"
)

const memoryBackend = "memory"

type ballotKey struct {
	voterID string
	weekID  string
}

// MemoryStore is a map-backed Store guarded by a single RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	closed     bool
	players    map[string]model.Player
	byVoter    map[string]string // voter id -> player id
	seasons    map[string]model.Season
	weeks      map[string]model.Week
	weekByDate map[string]string // yyyy-mm-dd -> week id
	ballots    map[ballotKey][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		players:    make(map[string]model.Player),
		byVoter:    make(map[string]string),
		seasons:    make(map[string]model.Season),
		weeks:      make(map[string]model.Week),
		weekByDate: make(map[string]string),
		ballots:    make(map[ballotKey][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreatePlayer(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { Observe(memoryBackend, "create_player", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.players[p.ID]; ok {
		return fmt.Errorf("player %q: %w", p.ID, ErrAlreadyExists)
	}
	if p.VoterID != "" {
		if _, ok := s.byVoter[p.VoterID]; ok {
			return fmt.Errorf("voter %q already has a player: %w", p.VoterID, ErrAlreadyExists)
		}
		s.byVoter[p.VoterID] = p.ID
	}
	s.players[p.ID] = p
	return nil
}

func (s *MemoryStore) ListPlayers(ctx context.Context) (_ []model.Player, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "list_players", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) PlayerByVoter(ctx context.Context, voterID string) (_ model.Player, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "player_by_voter", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byVoter[voterID]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return s.players[id], nil
}

func (s *MemoryStore) CreateSeason(ctx context.Context, season model.Season) (err error) {
	defer func(start time.Time) { Observe(memoryBackend, "create_season", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.seasons[season.ID]; ok {
		return fmt.Errorf("season %q: %w", season.ID, ErrAlreadyExists)
	}
	season.StartDate = model.Day(season.StartDate)
	season.EndDate = model.Day(season.EndDate)
	s.seasons[season.ID] = season
	return nil
}

func (s *MemoryStore) LatestSeason(ctx context.Context) (_ model.Season, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "latest_season", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Season{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest model.Season
		found  bool
	)
	for _, season := range s.seasons {
		if !found || season.StartDate.After(latest.StartDate) ||
			(season.StartDate.Equal(latest.StartDate) && season.ID > latest.ID) {
			latest, found = season, true
		}
	}
	if !found {
		return model.Season{}, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) CreateWeek(ctx context.Context, w model.Week) (err error) {
	defer func(start time.Time) { Observe(memoryBackend, "create_week", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	w.Date = model.Day(w.Date)
	label := w.Label()
	if _, ok := s.weeks[w.ID]; ok {
		return fmt.Errorf("week %q: %w", w.ID, ErrAlreadyExists)
	}
	if _, ok := s.weekByDate[label]; ok {
		return fmt.Errorf("week dated %s: %w", label, ErrAlreadyExists)
	}
	s.weeks[w.ID] = w
	s.weekByDate[label] = w.ID
	return nil
}

func (s *MemoryStore) GetWeek(ctx context.Context, id string) (_ model.Week, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "get_week", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Week{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.weeks[id]
	if !ok {
		return model.Week{}, ErrNotFound
	}
	return w, nil
}

func (s *MemoryStore) ListWeeks(ctx context.Context, from, to *time.Time) (_ []model.Week, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "list_weeks", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Week, 0, len(s.weeks))
	for _, w := range s.weeks {
		if from != nil && w.Date.Before(model.Day(*from)) {
			continue
		}
		if to != nil && w.Date.After(model.Day(*to)) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) WeekByDate(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "week_by_date", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Week{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.weekByDate[model.Day(date).Format(model.DateLayout)]
	if !ok {
		return model.Week{}, ErrNotFound
	}
	return s.weeks[id], nil
}

func (s *MemoryStore) LatestWeekOnOrBefore(ctx context.Context, date time.Time) (_ model.Week, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "latest_week", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Week{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := model.Day(date)
	var (
		latest model.Week
		found  bool
	)
	for _, w := range s.weeks {
		if w.Date.After(day) {
			continue
		}
		if !found || w.Date.After(latest.Date) {
			latest, found = w, true
		}
	}
	if !found {
		return model.Week{}, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) UpsertBallot(ctx context.Context, b model.Ballot) (err error) {
	defer func(start time.Time) { Observe(memoryBackend, "upsert_ballot", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if strings.TrimSpace(b.VoterID) == "" || strings.TrimSpace(b.WeekID) == "" {
		return fmt.Errorf("ballot requires voter and week ids")
	}

	s.ballots[ballotKey{voterID: b.VoterID, weekID: b.WeekID}] = slices.Clone(b.RankOrder)
	return nil
}

func (s *MemoryStore) GetBallot(ctx context.Context, voterID, weekID string) (_ model.Ballot, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "get_ballot", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Ballot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ballots[ballotKey{voterID: voterID, weekID: weekID}]
	if !ok {
		return model.Ballot{}, ErrNotFound
	}
	return model.Ballot{VoterID: voterID, WeekID: weekID, RankOrder: slices.Clone(order)}, nil
}

func (s *MemoryStore) ListBallots(ctx context.Context, weekIDs ...string) (_ []model.Ballot, err error) {
	defer func(start time.Time) { Observe(memoryBackend, "list_ballots", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var want map[string]struct{}
	if len(weekIDs) > 0 {
		want = make(map[string]struct{}, len(weekIDs))
		for _, id := range weekIDs {
			want[id] = struct{}{}
		}
	}

	out := make([]model.Ballot, 0, len(s.ballots))
	for k, order := range s.ballots {
		if want != nil {
			if _, ok := want[k.weekID]; !ok {
				continue
			}
		}
		out = append(out, model.Ballot{VoterID: k.voterID, WeekID: k.weekID, RankOrder: slices.Clone(order)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekID != out[j].WeekID {
			return out[i].WeekID < out[j].WeekID
		}
		return out[i].VoterID < out[j].VoterID
	})
	return out, nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
