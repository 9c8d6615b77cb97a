// Package types contains the JSON shapes returned by the HTTP API.
package types

// Player is a roster entry.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Week is a voting week.
type Week struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// Season is a date window of weeks.
type Season struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// StandingRow is one line of the weekly standings table.
type StandingRow struct {
	Rank     int    `json:"rank"`
	Label    string `json:"label"` // "T-2" when tied
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Tied     bool   `json:"tied"`
}

// Standings is the single-week table.
type Standings struct {
	Week        Week          `json:"week"`
	BallotCount int           `json:"ballot_count"`
	Rule        string        `json:"rule"`
	Rows        []StandingRow `json:"rows"`
}

// SeriesLine is per-player chart metadata.
type SeriesLine struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Key      string `json:"key"`
	Color    string `json:"color"`
}

// SeriesRow carries one week's rank per line key; null means unranked.
type SeriesRow struct {
	Week  string          `json:"week"`
	Ranks map[string]*int `json:"ranks"`
}

// Series is the movement chart payload.
type Series struct {
	Weeks     []Week       `json:"weeks"`
	WeekCount int          `json:"week_count"`
	Lines     []SeriesLine `json:"lines"`
	Rows      []SeriesRow  `json:"rows"`
}

// Ballot is a voter's ballot, or the prefill when none is stored.
type Ballot struct {
	VoterID   string   `json:"voter_id"`
	WeekID    string   `json:"week_id"`
	RankOrder []string `json:"rank_order"`
	Saved     bool     `json:"saved"`
}

// CurrentWeek describes the week the voting form targets.
type CurrentWeek struct {
	Week          *Week `json:"week"`
	VotingOpen    bool  `json:"voting_open"`
	AdminOverride bool  `json:"admin_override"` // voter may save outside the window
}
