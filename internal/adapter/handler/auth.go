package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/meetsync-team/meetsync/errors"
	"github.com/meetsync-team/meetsync/internal/usecase/auth"
)

// Auth handles authentication HTTP requests
type Auth struct {
	oauthService *auth.OAuthService
	logger       *zap.Logger
}

// NewAuth creates a new auth handler
func NewAuth(oauthService *auth.OAuthService, logger *zap.Logger) *Auth {
	return &Auth{
		oauthService: oauthService,
		logger:       logger,
	}
}

// GoogleLogin handles the initial Google OAuth login request
// @Summary Start Google OAuth flow
// @Router /v1/auth/google/login [get]
func (h *Auth) GoogleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	authURL, err := h.oauthService.GetGoogleAuthURL(ctx)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	return c.Redirect(http.StatusTemporaryRedirect, authURL.URL)
}

// GoogleCallback handles the OAuth callback from Google
// @Summary Complete Google OAuth flow
// @Router /v1/auth/google/callback [get]
func (h *Auth) GoogleCallback(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("missing code or state parameter"))
	}

	response, err := h.oauthService.HandleGoogleCallback(ctx, &auth.GoogleCallbackRequest{
		Code:  code,
		State: state,
	})
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrOAuthFailed("google", err))
	}

	return HandleSuccess(h.logger, c, response)
}

// Me returns the current user information
// @Summary Current user
// @Router /v1/auth/me [get]
func (h *Auth) Me(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}
	return HandleSuccess(h.logger, c, user)
}
