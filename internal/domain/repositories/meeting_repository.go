package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meetsync-team/meetsync/internal/domain/entities"
)

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// Create creates a new meeting
	Create(ctx context.Context, meeting *entities.Meeting) error

	// FindByID finds a meeting by ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)

	// FindByRemoteEventID finds a meeting by its reconciliation natural key
	FindByRemoteEventID(ctx context.Context, userID uuid.UUID, remoteEventID string) (*entities.Meeting, error)

	// Update updates an existing meeting
	Update(ctx context.Context, meeting *entities.Meeting) error

	// UpdateRemoteFields writes only reconciler-owned columns, leaving
	// bot_status, bot_id and bot_configuration untouched
	UpdateRemoteFields(ctx context.Context, meeting *entities.Meeting) error

	// UpdateBotState writes only bot-owned columns
	UpdateBotState(ctx context.Context, meetingID uuid.UUID, status entities.BotStatus, botID *string) error

	// Delete hard-deletes a meeting
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser returns a user's meetings inside a time window
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Meeting, error)

	// ListSyncedByUser returns all of a user's meetings that carry a
	// remote_event_id, for the orphan sweep
	ListSyncedByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Meeting, error)
}
