package model

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncState holds the cursor of one sync scope between passes.
type SyncState struct {
	Scope         string     `json:"scope" gorm:"primaryKey;type:varchar(64)"`
	Cursor        int64      `json:"cursor" gorm:"not null"`
	LastSuccessAt *time.Time `json:"last_success_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	LastError     *string    `json:"last_error" gorm:"type:text"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_state"
}

// Cursor returns the stored cursor, or the configured initial value when the
// scope has never been saved.
func (s *RankingStore) Cursor(ctx context.Context) (int64, error) {
	state, err := s.SyncState(ctx)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return s.Config.Sync.InitialCursor, nil
	}
	return state.Cursor, nil
}

// SyncState returns the stored state of the configured scope, nil if absent.
func (s *RankingStore) SyncState(ctx context.Context) (*SyncState, error) {
	var state SyncState
	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Where("scope = ?", s.scope).Take(&state).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.Logger.Error(ctx, "Failed to read sync state %s: %v", s.scope, err)
		return nil, storageErr("read cursor", err)
	}
	return &state, nil
}

// SaveCursor persists the cursor and marks the pass as successful.
func (s *RankingStore) SaveCursor(ctx context.Context, cursor int64) error {
	now := time.Now()
	state := SyncState{
		Scope:         s.scope,
		Cursor:        cursor,
		LastSuccessAt: &now,
		LastAttemptAt: &now,
		UpdatedAt:     now,
	}

	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{"cursor", "last_success_at", "last_attempt_at", "last_error", "updated_at"}),
		}).Create(&state).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to save cursor %d: %v", cursor, err)
		return storageErr("save cursor", err)
	}
	return nil
}

// RecordAttempt stamps the scope with the time of a pass that did not move
// the cursor. passErr may be nil. The cursor itself is left untouched.
func (s *RankingStore) RecordAttempt(ctx context.Context, passErr error) error {
	now := time.Now()
	var msg *string
	if passErr != nil {
		m := TruncateString(passErr.Error(), 1024)
		msg = &m
	}

	err := s.Database.Query(ctx, func(db *gorm.DB) error {
		res := db.Model(&SyncState{}).Where("scope = ?", s.scope).Updates(map[string]interface{}{
			"last_attempt_at": now,
			"last_error":      msg,
			"updated_at":      now,
		})
		if res.Error != nil || res.RowsAffected > 0 {
			return res.Error
		}
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&SyncState{
			Scope:         s.scope,
			Cursor:        s.Config.Sync.InitialCursor,
			LastAttemptAt: &now,
			LastError:     msg,
			UpdatedAt:     now,
		}).Error
	})
	if err != nil {
		s.Logger.Error(ctx, "Failed to record sync attempt: %v", err)
		return storageErr("record attempt", err)
	}
	return nil
}
