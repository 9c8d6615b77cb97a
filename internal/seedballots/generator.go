package seedballots

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/okian/ballotboard/internal/domain/types"
)

// Generate builds one ballot per voter per week. Orders are random
// permutations of the roster; with partial set they are cut to a random
// length of at least one. The same seed yields the same orders.
func Generate(cfg *Config, roster []types.Player, weeks []types.Week) []Submission {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}

	out := make([]Submission, 0, cfg.Players*len(weeks))
	if len(ids) == 0 {
		return out
	}
	for _, w := range weeks {
		for n := 0; n < cfg.Players; n++ {
			order := append([]string(nil), ids...)
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			if cfg.Partial {
				order = order[:1+rng.IntN(len(order))]
			}
			out = append(out, Submission{
				VoterID:        cfg.VoterID(n),
				WeekID:         w.ID,
				RankOrder:      order,
				IdempotencyKey: uuid.NewString(),
			})
		}
	}
	return out
}
