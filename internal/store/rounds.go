package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Round is the gorm model for one settled round.
type Round struct {
	ID        uint64 `gorm:"primaryKey"`
	Number    uint64 `gorm:"uniqueIndex"`
	RequestID string `gorm:"type:varchar(64)"`
	Winner    string `gorm:"index"`
	Pot       uint64
	Entries   int
	StartedAt time.Time
	SettledAt time.Time `gorm:"index"`
}

// RoundStore archives settled rounds in sqlite.
type RoundStore struct {
	db *gorm.DB
}

func NewRoundStore(path string) (*RoundStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Round{}); err != nil {
		return nil, fmt.Errorf("migrate rounds table: %w", err)
	}
	return &RoundStore{db: db}, nil
}

// Archive writes one settled round. Wrapped in a transaction so a partial
// write can never leave a half-recorded round behind.
func (s *RoundStore) Archive(ctx context.Context, r *Round) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("insert round %d: %w", r.Number, err)
		}
		return nil
	})
}

// Recent returns up to limit settled rounds, newest first.
func (s *RoundStore) Recent(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 10
	}
	var rounds []Round
	err := s.db.WithContext(ctx).
		Order("settled_at desc").
		Limit(limit).
		Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	return rounds, nil
}

// Count returns the number of archived rounds.
func (s *RoundStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Round{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count rounds: %w", err)
	}
	return count, nil
}

func (s *RoundStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
