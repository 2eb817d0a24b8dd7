package sync

import (
	"time"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
)

// TriggerResponse carries the outcome of a manual sync
type TriggerResponse struct {
	SyncLog *entities.SyncLog `json:"sync_log"`
}

// StatusResponse lists recent sync attempts for the user
type StatusResponse struct {
	Logs []*entities.SyncLog `json:"logs"`
}

// WatchResponse describes the user's push channel registration
type WatchResponse struct {
	SubscriptionID string    `json:"subscription_id"`
	Expiration     time.Time `json:"expiration"`
	IsActive       bool      `json:"is_active"`
}
