package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meetsync-team/meetsync/internal/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*entities.User, error)

	// FindByOAuth finds a user by OAuth provider and ID
	FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error)

	// Update updates a user
	Update(ctx context.Context, user *entities.User) error

	// UpdateOAuthTokens persists a rotated token set after a refresh
	UpdateOAuthTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiry time.Time) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error

	// ListConnected returns active users with calendar credentials or an ICS feed
	ListConnected(ctx context.Context) ([]*entities.User, error)
}
