package model

import (
	"context"

	"gorm.io/gorm"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/pkg/db"
	"github.com/thep200/github-top100/pkg/log"
)

// RankingStore owns the ranking table, the daily activity table and the sync
// cursor. Every method acquires a connection per query or transaction.
type RankingStore struct {
	Model
	topTable      string
	activityTable string
	topSize       int
	scope         string
}

func NewRankingStore(config *cfg.Config, logger log.Logger, database *db.Database) *RankingStore {
	store := &RankingStore{
		Model: Model{
			Config:   config,
			Logger:   logger,
			Database: database,
		},
		topTable:      config.Database.TopTable,
		activityTable: config.Database.ActivityTable,
		topSize:       config.Sync.TopSize,
		scope:         config.Sync.Scope,
	}
	if store.topTable == "" {
		store.topTable = RankEntry{}.TableName()
	}
	if store.activityTable == "" {
		store.activityTable = DailyActivity{}.TableName()
	}
	if store.topSize <= 0 {
		store.topSize = 100
	}
	if store.scope == "" {
		store.scope = "repositories"
	}
	return store
}

// Migrate creates or updates the three tables.
func (s *RankingStore) Migrate(ctx context.Context) error {
	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		if err := db.Table(s.topTable).AutoMigrate(&RankEntry{}); err != nil {
			return err
		}
		if err := db.Table(s.activityTable).AutoMigrate(&DailyActivity{}); err != nil {
			return err
		}
		return db.AutoMigrate(&SyncState{})
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to migrate tables: %v", err)
		return storageErr("migrate", err)
	}
	return nil
}
