package postgres

import (
	"encoding/json"
	"time"

	"github.com/okian/ballotboard/internal/domain/model"
)

type playerModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null;index:idx_players_name,priority:1"`
	VoterID   *string   `gorm:"column:voter_id;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (playerModel) TableName() string { return "players" }

func playerModelFromEntity(p model.Player) playerModel {
	row := playerModel{ID: p.ID, Name: p.Name}
	if p.VoterID != "" {
		voter := p.VoterID
		row.VoterID = &voter
	}
	return row
}

func (m playerModel) toEntity() model.Player {
	p := model.Player{ID: m.ID, Name: m.Name}
	if m.VoterID != nil {
		p.VoterID = *m.VoterID
	}
	return p
}

type seasonModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	StartDate time.Time `gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null"`
}

func (seasonModel) TableName() string { return "seasons" }

func (m seasonModel) toEntity() model.Season {
	return model.Season{ID: m.ID, StartDate: model.Day(m.StartDate), EndDate: model.Day(m.EndDate)}
}

type weekModel struct {
	ID       string    `gorm:"column:id;primaryKey"`
	WeekDate time.Time `gorm:"column:week_date;type:date;not null;uniqueIndex"`
}

func (weekModel) TableName() string { return "weeks" }

func (m weekModel) toEntity() model.Week {
	return model.Week{ID: m.ID, Date: model.Day(m.WeekDate)}
}

type ballotModel struct {
	VoterID   string    `gorm:"column:voter_id;primaryKey"`
	WeekID    string    `gorm:"column:week_id;primaryKey;index"`
	RankOrder string    `gorm:"column:rank_order;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string { return "ballots" }

func ballotModelFromEntity(b model.Ballot, now time.Time) (ballotModel, error) {
	order := b.RankOrder
	if order == nil {
		order = []string{}
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return ballotModel{}, err
	}
	return ballotModel{VoterID: b.VoterID, WeekID: b.WeekID, RankOrder: string(raw), UpdatedAt: now}, nil
}

func (m ballotModel) toEntity() (model.Ballot, error) {
	b := model.Ballot{VoterID: m.VoterID, WeekID: m.WeekID}
	if err := json.Unmarshal([]byte(m.RankOrder), &b.RankOrder); err != nil {
		return model.Ballot{}, err
	}
	return b, nil
}
