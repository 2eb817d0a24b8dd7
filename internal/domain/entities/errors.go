package entities

import "errors"

// Domain errors
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEmail = errors.New("invalid email")

	// OAuth errors
	ErrOAuthStateMismatch = errors.New("oauth state mismatch")
	ErrInvalidToken       = errors.New("invalid token")

	// Sync errors
	ErrAuthExpired          = errors.New("calendar credentials expired")
	ErrCursorInvalid        = errors.New("sync cursor invalid or expired")
	ErrProviderUnavailable  = errors.New("calendar provider unavailable")
	ErrConfigurationMissing = errors.New("calendar not connected")
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrSyncPersistence      = errors.New("failed to persist sync results")

	// Watch errors
	ErrWatchNotFound     = errors.New("watch subscription not found")
	ErrWatchNotSupported = errors.New("provider does not support push notifications")

	// Meeting errors
	ErrMeetingNotFound = errors.New("meeting not found")

	// Generic errors
	ErrUnauthorized = errors.New("unauthorized")
)
