package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/oauth"
	"github.com/meetsync-team/meetsync/pkg/jwt"
)

// OAuthService handles the Google connect flow. The OAuth grant doubles as
// sign-in and calendar authorization: the stored token set is what the sync
// engine later refreshes against.
type OAuthService struct {
	userRepo     repositories.UserRepository
	google       *oauth.GoogleProvider
	stateManager *oauth.StateManager
	jwtManager   *jwt.Manager
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	userRepo repositories.UserRepository,
	google *oauth.GoogleProvider,
	stateManager *oauth.StateManager,
	jwtManager *jwt.Manager,
) *OAuthService {
	return &OAuthService{
		userRepo:     userRepo,
		google:       google,
		stateManager: stateManager,
		jwtManager:   jwtManager,
	}
}

// GoogleAuthURLResponse represents the response for auth URL request
type GoogleAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// GetGoogleAuthURL generates Google OAuth URL
func (s *OAuthService) GetGoogleAuthURL(ctx context.Context) (*GoogleAuthURLResponse, error) {
	state, err := s.stateManager.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &GoogleAuthURLResponse{
		URL:   s.google.GetAuthURL(state),
		State: state,
	}, nil
}

// GoogleCallbackRequest represents the callback request
type GoogleCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User        *entities.User `json:"user"`
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
}

// HandleGoogleCallback completes the OAuth flow: validates state, exchanges
// the code, finds or creates the user and stores the calendar token set.
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, req *GoogleCallbackRequest) (*AuthResponse, error) {
	if !s.stateManager.ValidateState(req.State) {
		return nil, entities.ErrOAuthStateMismatch
	}

	token, err := s.google.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	googleUser, err := s.google.GetUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	user, err := s.userRepo.FindByOAuth(ctx, "google", googleUser.ID)
	if err != nil {
		if !errors.Is(err, entities.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		user, err = s.linkOrCreateUser(ctx, googleUser)
		if err != nil {
			return nil, err
		}
	}

	user.UpdateLastLogin()
	applyTokenSet(user, token.AccessToken, token.RefreshToken, token.Expiry)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.GetAccessExpiry().Seconds()),
	}, nil
}

// ValidateSession validates a JWT access token and loads the user
func (s *OAuthService) ValidateSession(ctx context.Context, token string) (*entities.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, entities.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, entities.ErrUnauthorized
	}

	return user, nil
}

// linkOrCreateUser attaches the Google identity to an existing account with
// the same email, or creates a fresh user
func (s *OAuthService) linkOrCreateUser(ctx context.Context, googleUser *oauth.GoogleUserInfo) (*entities.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, googleUser.Email)
	if err == nil {
		provider := "google"
		existing.OAuthProvider = &provider
		existing.OAuthID = &googleUser.ID
		return existing, nil
	}
	if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	user := entities.NewOAuthUser(googleUser.Email, googleUser.Name, "google", googleUser.ID)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// applyTokenSet stores the granted calendar tokens on the user. Google only
// returns a refresh token on the first consent, so an empty one never
// overwrites a stored one.
func applyTokenSet(user *entities.User, accessToken, refreshToken string, expiry time.Time) {
	user.OAuthAccessToken = &accessToken
	if !expiry.IsZero() {
		user.OAuthTokenExpiry = &expiry
	}
	if refreshToken != "" {
		user.OAuthRefreshToken = &refreshToken
	}
}
