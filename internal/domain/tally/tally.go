// Package tally converts one week's ballots into positional (Borda-style) points.
//
// Every roster player is scored, starting at zero. A player at 0-based
// position idx of a ballot earns M-idx points, where M depends on the Rule.
// Ballots are sanitized rather than rejected: ids missing from the roster are
// skipped and a repeated id only scores at its first position. M and idx are
// always taken from the raw ballot.
package tally

import (
	"fmt"

	"github.com/okian/ballotboard/internal/domain/model"
)

// Rule selects the M in the M-idx weighting.
type Rule int

const (
	// BallotLength uses the length of each ballot, so a partial ballot's top
	// pick is worth exactly its own length.
	BallotLength Rule = iota
	// RosterLength uses the roster size. Positions past the roster floor at 0.
	RosterLength
)

// String returns the configuration name of the rule.
func (r Rule) String() string {
	switch r {
	case BallotLength:
		return "ballot_length"
	case RosterLength:
		return "roster_length"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// ParseRule maps a configuration name to a Rule.
func ParseRule(s string) (Rule, error) {
	switch s {
	case "", "ballot_length":
		return BallotLength, nil
	case "roster_length":
		return RosterLength, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

// Score is one player's points for a week.
type Score struct {
	PlayerID string
	Name     string
	Points   int
}

// ScoreMap maps player id to score. It is built fresh on every call.
type ScoreMap map[string]Score

// Option configures a tally run.
type Option func(*settings)

type settings struct {
	rule Rule
}

// WithRule sets the scoring rule. Unknown values are ignored.
func WithRule(r Rule) Option {
	return func(s *settings) {
		if r == BallotLength || r == RosterLength {
			s.rule = r
		}
	}
}

// Tally scores the ballots of weekID against players. Ballots for other weeks
// are skipped.
func Tally(players []model.Player, weekID string, ballots []model.Ballot, opts ...Option) ScoreMap {
	cfg := settings{rule: BallotLength}
	for _, opt := range opts {
		opt(&cfg)
	}

	scores := make(ScoreMap, len(players))
	for _, p := range players {
		scores[p.ID] = Score{PlayerID: p.ID, Name: p.Name}
	}

	for _, b := range ballots {
		if b.WeekID != weekID {
			continue
		}
		m := len(b.RankOrder)
		if cfg.rule == RosterLength {
			m = len(players)
		}
		counted := make(map[string]struct{}, len(b.RankOrder))
		for idx, id := range b.RankOrder {
			s, ok := scores[id]
			if !ok {
				continue
			}
			if _, dup := counted[id]; dup {
				continue
			}
			counted[id] = struct{}{}
			if pts := m - idx; pts > 0 {
				s.Points += pts
				scores[id] = s
			}
		}
	}
	return scores
}

// HasData reports whether any ballot for weekID ranks at least one player.
func HasData(weekID string, ballots []model.Ballot) bool {
	for _, b := range ballots {
		if b.WeekID == weekID && b.HasData() {
			return true
		}
	}
	return false
}
