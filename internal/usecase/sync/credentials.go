package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
)

// TokenRefresher exchanges a refresh token for a fresh access token
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// CredentialProvider supplies a valid bearer token for calendar API calls,
// refreshing expired tokens proactively and persisting rotated token sets.
type CredentialProvider struct {
	userRepo repositories.UserRepository
	google   TokenRefresher
	logger   *zap.Logger
}

// NewCredentialProvider creates a credential provider
func NewCredentialProvider(userRepo repositories.UserRepository, google TokenRefresher, logger *zap.Logger) *CredentialProvider {
	return &CredentialProvider{
		userRepo: userRepo,
		google:   google,
		logger:   logger,
	}
}

// GetValidToken returns a usable access token for the user, refreshing first
// when the stored one has expired. Mutates the passed user's token fields on
// refresh so callers see the fresh state.
func (p *CredentialProvider) GetValidToken(ctx context.Context, user *entities.User) (*oauth2.Token, error) {
	if !user.HasCalendarCredentials() {
		return nil, entities.ErrConfigurationMissing
	}

	if !user.TokenExpired() {
		return &oauth2.Token{
			AccessToken:  *user.OAuthAccessToken,
			RefreshToken: *user.OAuthRefreshToken,
			Expiry:       *user.OAuthTokenExpiry,
		}, nil
	}

	return p.ForceRefresh(ctx, user)
}

// ForceRefresh exchanges the stored refresh token for a new access token and
// persists the rotated set. Used proactively on expiry and reactively after
// a provider 401.
func (p *CredentialProvider) ForceRefresh(ctx context.Context, user *entities.User) (*oauth2.Token, error) {
	if !user.HasCalendarCredentials() {
		return nil, entities.ErrConfigurationMissing
	}

	token, err := p.google.RefreshToken(ctx, *user.OAuthRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrAuthExpired, err)
	}

	if err := p.userRepo.UpdateOAuthTokens(ctx, user.ID, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		p.logger.Warn("failed to persist refreshed oauth tokens",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	user.OAuthAccessToken = &token.AccessToken
	user.OAuthTokenExpiry = &token.Expiry
	if token.RefreshToken != "" {
		user.OAuthRefreshToken = &token.RefreshToken
	}

	return token, nil
}
