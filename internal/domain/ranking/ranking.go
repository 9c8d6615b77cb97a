// Package ranking turns a score map into dense ranks with tie detection.
package ranking

import (
	"sort"
	"strconv"

	"github.com/okian/ballotboard/internal/domain/tally"
)

// Row is one ranked player.
type Row struct {
	PlayerID string
	Name     string
	Points   int
	Rank     int
	Tied     bool
}

// Rank orders scores by points desc, name asc, id asc and assigns dense ranks:
// equal points share a rank and the next distinct value advances by one.
// Tied is set on every row whose point value occurs more than once.
func Rank(scores tally.ScoreMap) []Row {
	rows := make([]Row, 0, len(scores))
	counts := make(map[int]int, len(scores))
	for _, s := range scores {
		rows = append(rows, Row{PlayerID: s.PlayerID, Name: s.Name, Points: s.Points})
		counts[s.Points]++
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})

	for i := range rows {
		switch {
		case i == 0:
			rows[i].Rank = 1
		case rows[i].Points == rows[i-1].Points:
			rows[i].Rank = rows[i-1].Rank
		default:
			rows[i].Rank = rows[i-1].Rank + 1
		}
		rows[i].Tied = counts[rows[i].Points] > 1
	}
	return rows
}

// Label renders the rank for display, prefixing tied ranks with "T-".
func Label(r Row) string {
	if r.Tied {
		return "T-" + strconv.Itoa(r.Rank)
	}
	return strconv.Itoa(r.Rank)
}

// ByPlayer indexes rows by player id.
func ByPlayer(rows []Row) map[string]Row {
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[r.PlayerID] = r
	}
	return out
}

// TiedCount returns how many rows share their point value with another row.
func TiedCount(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Tied {
			n++
		}
	}
	return n
}
