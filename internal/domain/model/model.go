// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for week labels and wire dates.
const DateLayout = "2006-01-02"

// Player is a roster entry. VoterID is the account that registered the player.
type Player struct {
	ID      string
	Name    string
	VoterID string
}

// Week is one voting period, identified by its calendar date.
type Week struct {
	ID   string
	Date time.Time // UTC midnight
}

// Label renders the week date for display and series rows.
func (w Week) Label() string { return w.Date.Format(DateLayout) }

// Season scopes which weeks belong to the current trend view.
type Season struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
}

// Ballot is one voter's ordered preference list for one week.
// RankOrder holds player ids, most preferred first.
type Ballot struct {
	VoterID   string
	WeekID    string
	RankOrder []string
}

// HasData reports whether the ballot ranks anybody.
func (b Ballot) HasData() bool { return len(b.RankOrder) > 0 }

// Validate rejects ballots that break the ingestion invariants: an empty
// order, repeated ids or ids missing from roster. The aggregation packages
// never call it; they sanitize instead.
func (b Ballot) Validate(roster []Player) error {
	if b.VoterID == "" {
		return fmt.Errorf("%w: voter id is required", ErrInvalidBallot)
	}
	if b.WeekID == "" {
		return fmt.Errorf("%w: week id is required", ErrInvalidBallot)
	}
	if len(b.RankOrder) == 0 {
		return fmt.Errorf("%w: rank order is empty", ErrInvalidBallot)
	}

	known := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		known[p.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(b.RankOrder))
	for i, id := range b.RankOrder {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: player %q repeated at position %d", ErrInvalidBallot, id, i+1)
		}
		seen[id] = struct{}{}
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: player %q is not on the roster", ErrInvalidBallot, id)
		}
	}
	return nil
}

// ParseDate parses a calendar date and normalizes it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t.UTC(), nil
}

// Day truncates t to its calendar date in t's location and returns it as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
