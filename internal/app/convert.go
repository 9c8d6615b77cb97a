package service

import (
	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/ranking"
	"github.com/okian/ballotboard/internal/domain/series"
	"github.com/okian/ballotboard/internal/domain/types"
)

func toPlayer(p model.Player) types.Player {
	return types.Player{ID: p.ID, Name: p.Name}
}

func toWeek(w model.Week) types.Week {
	return types.Week{ID: w.ID, Date: w.Label()}
}

func toWeeks(weeks []model.Week) []types.Week {
	out := make([]types.Week, len(weeks))
	for i, w := range weeks {
		out[i] = toWeek(w)
	}
	return out
}

func toSeason(s model.Season) types.Season {
	return types.Season{
		ID:        s.ID,
		StartDate: s.StartDate.Format(model.DateLayout),
		EndDate:   s.EndDate.Format(model.DateLayout),
	}
}

func toStandingRows(rows []ranking.Row) []types.StandingRow {
	out := make([]types.StandingRow, len(rows))
	for i, r := range rows {
		out[i] = types.StandingRow{
			Rank:     r.Rank,
			Label:    ranking.Label(r),
			PlayerID: r.PlayerID,
			Name:     r.Name,
			Points:   r.Points,
			Tied:     r.Tied,
		}
	}
	return out
}

func toSeries(res series.Result) types.Series {
	out := types.Series{
		Weeks:     toWeeks(res.WeeksUsed),
		WeekCount: len(res.WeeksUsed),
		Lines:     make([]types.SeriesLine, len(res.Lines)),
		Rows:      make([]types.SeriesRow, len(res.Rows)),
	}
	for i, l := range res.Lines {
		out.Lines[i] = types.SeriesLine{PlayerID: l.PlayerID, Name: l.Name, Key: l.Key, Color: l.Color}
	}
	for i, r := range res.Rows {
		out.Rows[i] = types.SeriesRow{Week: r.Label, Ranks: r.Ranks}
	}
	return out
}
