package model

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositorySummary is the state of one repository as read from the source.
type RepositorySummary struct {
	ID         int64   `json:"id"`
	Owner      string  `json:"owner"`
	Name       string  `json:"repo"`
	Stars      int     `json:"stars"`
	Watchers   int     `json:"watchers"`
	Forks      int     `json:"forks"`
	OpenIssues int     `json:"open_issues"`
	Language   *string `json:"language"`
}

// RankEntry is one row of the ranking table.
type RankEntry struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Owner        string    `json:"owner" gorm:"column:owner;type:varchar(255);not null;uniqueIndex:idx_rank_owner_repo,priority:1"`
	Repo         string    `json:"repo" gorm:"column:repo;type:varchar(255);not null;uniqueIndex:idx_rank_owner_repo,priority:2"`
	RepoID       int64     `json:"repo_id" gorm:"column:repo_id"`
	PositionCur  int       `json:"position_cur" gorm:"column:position_cur;not null"`
	PositionPrev int       `json:"position_prev" gorm:"column:position_prev;not null"`
	Stars        int       `json:"stars" gorm:"column:stars;default:0"`
	Watchers     int       `json:"watchers" gorm:"column:watchers;default:0"`
	Forks        int       `json:"forks" gorm:"column:forks;default:0"`
	OpenIssues   int       `json:"open_issues" gorm:"column:open_issues;default:0"`
	Language     *string   `json:"language" gorm:"column:language;type:varchar(255)"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (RankEntry) TableName() string {
	return "top_repos"
}

// forks is insert-only: an existing row keeps the value it was created with.
var rankUpdateColumns = []string{
	"position_cur", "position_prev", "stars", "watchers", "open_issues", "language", "updated_at",
}

// sortColumns maps the public sort fields to columns.
var sortColumns = map[string]string{
	"repo":        "repo",
	"owner":       "owner",
	"position":    "position_cur",
	"stars":       "stars",
	"watchers":    "watchers",
	"forks":       "forks",
	"open_issues": "open_issues",
	"language":    "language",
}

// UpsertRanking merges batch into the ranking table and renumbers it in one
// transaction:
//
//  1. batch is sorted by stars, descending and stable
//  2. each element gets position_cur = rank and position_prev = rank + 1
//  3. rows are upserted by (owner, repo)
//  4. every row is renumbered by stars; position_prev takes the position_cur
//     the row had before renumbering
//  5. rows ranked past the top size are deleted
func (s *RankingStore) UpsertRanking(ctx context.Context, batch []RepositorySummary) error {
	if len(batch) == 0 {
		return nil
	}

	entries := s.rankEntries(batch)

	err := s.Database.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Table(s.topTable).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "repo"}},
			DoUpdates: clause.AssignmentColumns(rankUpdateColumns),
		}).CreateInBatches(&entries, 100).Error; err != nil {
			return err
		}

		var rows []RankEntry
		if err := tx.Table(s.topTable).
			Select("id", "owner", "repo", "position_cur").
			Order("stars DESC").Order("owner ASC").Order("repo ASC").
			Find(&rows).Error; err != nil {
			return err
		}

		for i, row := range rows {
			if err := tx.Table(s.topTable).
				Where("id = ?", row.ID).
				Updates(map[string]interface{}{
					"position_cur":  i + 1,
					"position_prev": row.PositionCur,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Table(s.topTable).
			Where("position_cur > ?", s.topSize).
			Delete(&RankEntry{}).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to refresh ranking with %d repositories: %v", len(entries), err)
		return storageErr("upsert ranking", err)
	}

	s.Logger.Info(ctx, "Ranking refreshed with %d repositories", len(entries))
	return nil
}

// rankEntries dedupes batch by (owner, name), the last occurrence wins but
// keeps the slot of the first, then applies steps 1 and 2 of the refresh.
func (s *RankingStore) rankEntries(batch []RepositorySummary) []RankEntry {
	type key struct{ owner, name string }
	index := make(map[key]int, len(batch))
	unique := make([]RepositorySummary, 0, len(batch))
	for _, r := range batch {
		r.Owner = TruncateString(r.Owner, 255)
		r.Name = TruncateString(r.Name, 255)
		k := key{r.Owner, r.Name}
		if i, ok := index[k]; ok {
			unique[i] = r
			continue
		}
		index[k] = len(unique)
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Stars > unique[j].Stars
	})

	now := time.Now()
	entries := make([]RankEntry, 0, len(unique))
	for i, r := range unique {
		entries = append(entries, RankEntry{
			Owner:        r.Owner,
			Repo:         r.Name,
			RepoID:       r.ID,
			PositionCur:  i + 1,
			PositionPrev: i + 2,
			Stars:        r.Stars,
			Watchers:     r.Watchers,
			Forks:        r.Forks,
			OpenIssues:   r.OpenIssues,
			Language:     r.Language,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return entries
}

// TopN returns at most top size rows ordered by sortField. Empty values
// default to stars, descending.
func (s *RankingStore) TopN(ctx context.Context, sortField, order string) ([]RankEntry, error) {
	if sortField == "" {
		sortField = "stars"
	}
	column, ok := sortColumns[sortField]
	if !ok {
		return nil, ErrInvalidSort
	}

	var desc bool
	switch order {
	case "", "desc":
		desc = true
	case "asc":
	default:
		return nil, ErrInvalidSort
	}

	var entries []RankEntry
	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Table(s.topTable).
			Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
			Order("position_cur ASC").
			Limit(s.topSize).
			Find(&entries).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to read top repositories: %v", err)
		return nil, storageErr("top n", err)
	}
	return entries, nil
}

// Count returns the number of rows in the ranking table.
func (s *RankingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Table(s.topTable).Count(&n).Error
	})
	if err != nil {
		return 0, storageErr("count ranking", err)
	}
	return n, nil
}
