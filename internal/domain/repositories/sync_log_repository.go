package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meetsync-team/meetsync/internal/domain/entities"
)

// SyncLogRepository defines the interface for sync audit log access
type SyncLogRepository interface {
	// Create appends a sync log entry
	Create(ctx context.Context, log *entities.SyncLog) error

	// FindLatestByUser returns the most recent entry for a user, or nil
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*entities.SyncLog, error)

	// ListRecentByUser returns the newest entries for a user, newest first
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.SyncLog, error)

	// PruneOlderThan removes entries older than the cutoff, keeping the
	// audit table bounded
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
