package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meetsync-team/meetsync/internal/domain/entities"
)

// WatchRepository defines the interface for watch subscription data access
type WatchRepository interface {
	// Upsert inserts or replaces the subscription for (user, calendar).
	// The unique index on that pair makes re-setup idempotent.
	Upsert(ctx context.Context, sub *entities.WatchSubscription) error

	// FindByUser finds the subscription row for a user and calendar
	FindByUser(ctx context.Context, userID uuid.UUID, calendarID string) (*entities.WatchSubscription, error)

	// FindByResourceID resolves a provider resource id to its subscription,
	// used by the webhook receiver to find the owning user
	FindByResourceID(ctx context.Context, resourceID string) (*entities.WatchSubscription, error)

	// UpdateSyncToken stores the latest incremental cursor for a user
	UpdateSyncToken(ctx context.Context, userID uuid.UUID, calendarID, syncToken string) error

	// Deactivate marks the subscription inactive regardless of provider state
	Deactivate(ctx context.Context, userID uuid.UUID, calendarID string) error

	// ListExpiring returns active subscriptions expiring within the threshold
	ListExpiring(ctx context.Context, within time.Duration) ([]*entities.WatchSubscription, error)
}
