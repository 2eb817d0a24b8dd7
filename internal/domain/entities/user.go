package entities

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user whose calendar is being synchronized
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email    string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name     string    `json:"name" gorm:"type:varchar(255);not null"`
	IsActive bool      `json:"is_active" gorm:"default:true;not null"`

	// OAuth fields
	OAuthProvider     *string    `json:"oauth_provider,omitempty" gorm:"column:oauth_provider;type:varchar(50);index:idx_oauth"`
	OAuthID           *string    `json:"oauth_id,omitempty" gorm:"column:oauth_id;type:varchar(255);index:idx_oauth"`
	OAuthRefreshToken *string    `json:"-" gorm:"column:oauth_refresh_token;type:text"` // Never expose in JSON
	OAuthAccessToken  *string    `json:"-" gorm:"column:oauth_access_token;type:text"`  // Never expose in JSON
	OAuthTokenExpiry  *time.Time `json:"-" gorm:"column:oauth_token_expiry"`

	// Legacy calendar feed for users without an OAuth-connected provider.
	// When set and no OAuth refresh token exists, sync falls back to the
	// read-only ICS client.
	ICSFeedURL *string `json:"ics_feed_url,omitempty" gorm:"column:ics_feed_url;type:varchar(1000)"`

	// When true, new synced meetings get a transcription bot scheduled
	AutoRecord bool `json:"auto_record" gorm:"default:false;not null"`

	Timezone string `json:"timezone" gorm:"type:varchar(50);default:'UTC';not null"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty" gorm:"type:timestamp"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewUser creates a new user with default values
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		IsActive:  true,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewOAuthUser creates a new user from OAuth provider
func NewOAuthUser(email, name, provider, oauthID string) *User {
	user := NewUser(email, name)
	user.OAuthProvider = &provider
	user.OAuthID = &oauthID
	return user
}

// UpdateLastLogin updates the last login timestamp
func (u *User) UpdateLastLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// HasCalendarCredentials reports whether the user can use the OAuth provider
func (u *User) HasCalendarCredentials() bool {
	return u.OAuthRefreshToken != nil && *u.OAuthRefreshToken != ""
}

// HasICSFeed reports whether the user has a legacy feed configured
func (u *User) HasICSFeed() bool {
	return u.ICSFeedURL != nil && *u.ICSFeedURL != ""
}

// TokenExpired reports whether the stored access token needs a refresh
func (u *User) TokenExpired() bool {
	if u.OAuthAccessToken == nil || *u.OAuthAccessToken == "" {
		return true
	}
	if u.OAuthTokenExpiry == nil {
		return true
	}
	// Refresh a little early so in-flight calls don't race the expiry
	return time.Now().After(u.OAuthTokenExpiry.Add(-time.Minute))
}
