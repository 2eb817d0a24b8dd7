package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
)

// watchRepository implements the WatchRepository interface using GORM
type watchRepository struct {
	db *gorm.DB
}

// NewWatchRepository creates a new watch subscription repository
func NewWatchRepository(db *gorm.DB) repositories.WatchRepository {
	return &watchRepository{db: db}
}

// Upsert inserts or replaces the subscription for (user, calendar). The
// conflict target is the unique index, not a lock, so concurrent Setup calls
// converge on a single active row.
func (r *watchRepository) Upsert(ctx context.Context, sub *entities.WatchSubscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "calendar_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_id", "resource_id", "expiration", "sync_token", "is_active", "updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert watch subscription: %w", err)
	}
	return nil
}

// FindByUser finds the subscription row for a user and calendar
func (r *watchRepository) FindByUser(ctx context.Context, userID uuid.UUID, calendarID string) (*entities.WatchSubscription, error) {
	var sub entities.WatchSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrWatchNotFound
		}
		return nil, fmt.Errorf("failed to find watch subscription: %w", err)
	}
	return &sub, nil
}

// FindByResourceID resolves a provider resource id to its subscription
func (r *watchRepository) FindByResourceID(ctx context.Context, resourceID string) (*entities.WatchSubscription, error) {
	var sub entities.WatchSubscription
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND is_active = ?", resourceID, true).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrWatchNotFound
		}
		return nil, fmt.Errorf("failed to find watch by resource: %w", err)
	}
	return &sub, nil
}

// UpdateSyncToken stores the latest incremental cursor for a user
func (r *watchRepository) UpdateSyncToken(ctx context.Context, userID uuid.UUID, calendarID, syncToken string) error {
	result := r.db.WithContext(ctx).
		Model(&entities.WatchSubscription{}).
		Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		Updates(map[string]interface{}{
			"sync_token": syncToken,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update sync token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrWatchNotFound
	}
	return nil
}

// Deactivate marks the subscription inactive regardless of provider state
func (r *watchRepository) Deactivate(ctx context.Context, userID uuid.UUID, calendarID string) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.WatchSubscription{}).
		Where("user_id = ? AND calendar_id = ?", userID, calendarID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to deactivate watch: %w", err)
	}
	return nil
}

// ListExpiring returns active subscriptions expiring within the threshold
func (r *watchRepository) ListExpiring(ctx context.Context, within time.Duration) ([]*entities.WatchSubscription, error) {
	var subs []*entities.WatchSubscription
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND expiration < ?", true, time.Now().Add(within)).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring watches: %w", err)
	}
	return subs, nil
}
