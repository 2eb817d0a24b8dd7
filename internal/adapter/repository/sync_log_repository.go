package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
)

// syncLogRepository implements the SyncLogRepository interface using GORM
type syncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *gorm.DB) repositories.SyncLogRepository {
	return &syncLogRepository{db: db}
}

// Create appends a sync log entry
func (r *syncLogRepository) Create(ctx context.Context, log *entities.SyncLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// FindLatestByUser returns the most recent entry for a user, or nil
func (r *syncLogRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*entities.SyncLog, error) {
	var log entities.SyncLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		First(&log).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest sync log: %w", err)
	}
	return &log, nil
}

// ListRecentByUser returns the newest entries for a user, newest first
func (r *syncLogRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.SyncLog, error) {
	var logs []*entities.SyncLog
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}

// PruneOlderThan removes entries older than the cutoff
func (r *syncLogRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&entities.SyncLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune sync logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
