package repository

import "github.com/okian/ballotboard/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithPlayers seeds the roster.
func WithPlayers(players ...model.Player) Option {
	return func(s *MemoryStore) {
		for _, p := range players {
			s.players[p.ID] = p
			if p.VoterID != "" {
				s.byVoter[p.VoterID] = p.ID
			}
		}
	}
}

// WithWeeks seeds weeks.
func WithWeeks(weeks ...model.Week) Option {
	return func(s *MemoryStore) {
		for _, w := range weeks {
			w.Date = model.Day(w.Date)
			s.weeks[w.ID] = w
			s.weekByDate[w.Date.Format(model.DateLayout)] = w.ID
		}
	}
}
