package model

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyActivity is the commit rollup of one repository for one calendar day.
type DailyActivity struct {
	ID        uint                        `json:"-" gorm:"primaryKey"`
	Owner     string                      `json:"owner" gorm:"column:owner;type:varchar(255);not null;uniqueIndex:idx_activity_owner_repo_date,priority:1"`
	Repo      string                      `json:"repo" gorm:"column:repo;type:varchar(255);not null;uniqueIndex:idx_activity_owner_repo_date,priority:2"`
	Date      time.Time                   `json:"date" gorm:"column:date;type:date;not null;uniqueIndex:idx_activity_owner_repo_date,priority:3"`
	Commits   int                         `json:"commits" gorm:"column:commits;default:0"`
	Authors   datatypes.JSONSlice[string] `json:"authors" gorm:"column:authors"`
	CreatedAt time.Time                   `json:"-"`
	UpdatedAt time.Time                   `json:"-"`
}

func (DailyActivity) TableName() string {
	return "repo_activity"
}

// UpsertActivity writes entries keyed by (owner, repo, date). An existing day
// has its commits and authors replaced, not added to.
func (s *RankingStore) UpsertActivity(ctx context.Context, entries []DailyActivity) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]DailyActivity, 0, len(entries))
	for _, e := range entries {
		e.ID = 0
		e.Owner = TruncateString(e.Owner, 255)
		e.Repo = TruncateString(e.Repo, 255)
		e.CreatedAt = now
		e.UpdatedAt = now
		if e.Authors == nil {
			e.Authors = datatypes.JSONSlice[string]{}
		}
		rows = append(rows, e)
	}

	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Table(s.activityTable).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "repo"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"commits", "authors", "updated_at"}),
		}).CreateInBatches(&rows, 100).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to upsert %d activity rows: %v", len(rows), err)
		return storageErr("upsert activity", err)
	}
	return nil
}

// GetActivity returns the rows of owner/repo whose date lies in [since, until].
func (s *RankingStore) GetActivity(ctx context.Context, owner, repo string, since, until time.Time) ([]DailyActivity, error) {
	var rows []DailyActivity
	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Table(s.activityTable).
			Where("owner = ? AND repo = ? AND date BETWEEN ? AND ?", owner, repo, truncateDay(since), truncateDay(until)).
			Order("date ASC").
			Find(&rows).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to read activity of %s/%s: %v", owner, repo, err)
		return nil, storageErr("get activity", err)
	}
	return rows, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
