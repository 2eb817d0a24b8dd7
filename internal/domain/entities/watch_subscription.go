package entities

import (
	"time"

	"github.com/google/uuid"
)

// WatchSubscription is a push-notification channel registered with the
// calendar provider. At most one active subscription exists per
// (user, calendar); writes go through an upsert on that key.
type WatchSubscription struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_calendar,priority:1"`
	CalendarID string    `json:"calendar_id" gorm:"type:varchar(255);not null;default:'primary';uniqueIndex:idx_user_calendar,priority:2"`

	SubscriptionID string    `json:"subscription_id" gorm:"type:varchar(255);not null"`
	ResourceID     string    `json:"resource_id" gorm:"type:varchar(255);not null;index"`
	Expiration     time.Time `json:"expiration" gorm:"not null"`

	// Opaque incremental cursor from the provider, stored alongside the watch
	// so webhook-triggered pulls can resume where the last sync stopped.
	SyncToken string `json:"-" gorm:"type:text"`

	IsActive bool `json:"is_active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for WatchSubscription
func (WatchSubscription) TableName() string {
	return "watch_subscriptions"
}

// IsExpired reports whether the provider-side channel has lapsed
func (w *WatchSubscription) IsExpired() bool {
	return time.Now().After(w.Expiration)
}

// NeedsRenewal reports whether the subscription expires within the threshold
func (w *WatchSubscription) NeedsRenewal(threshold time.Duration) bool {
	return time.Until(w.Expiration) < threshold
}
