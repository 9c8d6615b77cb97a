// Package series composes tally and ranking across weeks into the per-player
// rank time series behind the movement chart.
package series

import (
	"fmt"
	"math"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/ranking"
	"github.com/okian/ballotboard/internal/domain/tally"
)

// Options controls week selection and scoring.
type Options struct {
	// OnlyWeeksWithBallots keeps only weeks with at least one non-empty
	// ballot, provided any week has one.
	OnlyWeeksWithBallots bool
	Rule                 tally.Rule
}

// Line describes one player's chart series.
type Line struct {
	PlayerID string
	Name     string
	Key      string // unique per roster, used as the row map key
	Color    string
}

// Row holds one week's rank per line key. A nil rank means no rank could be
// assigned; every roster player is currently ranked, so it stays reserved.
type Row struct {
	WeekID string
	Label  string
	Ranks  map[string]*int
}

// Result is the built series.
type Result struct {
	Lines     []Line
	Rows      []Row
	WeeksUsed []model.Week
}

// Build tallies and ranks every week in order and emits one row per selected
// week. weeks must already be in ascending date order; it is not re-sorted.
func Build(players []model.Player, weeks []model.Week, ballots []model.Ballot, opts Options) Result {
	lines := Lines(players)

	byWeek := make(map[string][]model.Ballot, len(weeks))
	for _, b := range ballots {
		byWeek[b.WeekID] = append(byWeek[b.WeekID], b)
	}

	hasData := make([]bool, len(weeks))
	anyData := false
	for i, w := range weeks {
		hasData[i] = tally.HasData(w.ID, byWeek[w.ID])
		anyData = anyData || hasData[i]
	}
	filter := opts.OnlyWeeksWithBallots && anyData

	res := Result{
		Lines:     lines,
		Rows:      make([]Row, 0, len(weeks)),
		WeeksUsed: make([]model.Week, 0, len(weeks)),
	}
	for i, w := range weeks {
		if filter && !hasData[i] {
			continue
		}
		scores := tally.Tally(players, w.ID, byWeek[w.ID], tally.WithRule(opts.Rule))
		ranked := ranking.ByPlayer(ranking.Rank(scores))

		row := Row{WeekID: w.ID, Label: w.Label(), Ranks: make(map[string]*int, len(lines))}
		for _, l := range lines {
			if r, ok := ranked[l.PlayerID]; ok {
				rank := r.Rank
				row.Ranks[l.Key] = &rank
			} else {
				row.Ranks[l.Key] = nil
			}
		}
		res.Rows = append(res.Rows, row)
		res.WeeksUsed = append(res.WeeksUsed, w)
	}
	return res
}

// Lines assigns each player a unique key and an evenly spaced color, in roster
// order. Repeated names get a " (n)" suffix starting at 2.
func Lines(players []model.Player) []Line {
	out := make([]Line, 0, len(players))
	taken := make(map[string]struct{}, len(players))
	for _, p := range players {
		taken[p.Name] = struct{}{}
	}
	used := make(map[string]struct{}, len(players))
	for i, p := range players {
		key := p.Name
		if _, dup := used[key]; dup {
			for n := 2; ; n++ {
				key = fmt.Sprintf("%s (%d)", p.Name, n)
				_, clash := taken[key]
				_, seen := used[key]
				if !clash && !seen {
					break
				}
			}
		}
		used[key] = struct{}{}
		out = append(out, Line{PlayerID: p.ID, Name: p.Name, Key: key, Color: Color(i, len(players))})
	}
	return out
}

// Color returns the i-th of total evenly spaced hues.
func Color(i, total int) string {
	if total < 1 {
		total = 1
	}
	hue := int(math.Round(360 / float64(total) * float64(i)))
	return fmt.Sprintf("hsl(%d 70%% 55%%)", hue)
}
