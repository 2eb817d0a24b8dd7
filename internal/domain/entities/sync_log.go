package entities

import (
	"time"

	"github.com/google/uuid"
)

// SyncType identifies what triggered a sync attempt
type SyncType string

const (
	SyncTypeInitial     SyncType = "initial"
	SyncTypeIncremental SyncType = "incremental"
	SyncTypeWebhook     SyncType = "webhook"
	SyncTypeManual      SyncType = "manual"
)

// SyncLogStatus is the outcome of a sync attempt
type SyncLogStatus string

const (
	SyncLogStatusSuccess SyncLogStatus = "success"
	SyncLogStatusFailed  SyncLogStatus = "failed"
)

// SyncLog is an append-only audit record of one sync attempt. Besides
// diagnostics it feeds the adaptive scheduler's change-frequency estimate.
type SyncLog struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_sync_logs_user_started,priority:1"`

	SyncType SyncType `json:"sync_type" gorm:"type:varchar(20);not null"`

	Processed int `json:"processed" gorm:"not null;default:0"`
	Created   int `json:"created" gorm:"not null;default:0"`
	Updated   int `json:"updated" gorm:"not null;default:0"`
	Deleted   int `json:"deleted" gorm:"not null;default:0"`

	Status SyncLogStatus `json:"status" gorm:"type:varchar(20);not null"`
	Error  *string       `json:"error,omitempty" gorm:"type:text"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null;index:idx_sync_logs_user_started,priority:2,sort:desc"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}

// NewSyncLog starts an audit record for a sync attempt
func NewSyncLog(userID uuid.UUID, syncType SyncType) *SyncLog {
	return &SyncLog{
		ID:        uuid.New(),
		UserID:    userID,
		SyncType:  syncType,
		StartedAt: time.Now(),
	}
}

// Complete marks the log entry successful with final counts
func (l *SyncLog) Complete(processed, created, updated, deleted int) {
	now := time.Now()
	l.Status = SyncLogStatusSuccess
	l.Processed = processed
	l.Created = created
	l.Updated = updated
	l.Deleted = deleted
	l.CompletedAt = &now
}

// Fail marks the log entry failed. The message must not contain secrets.
func (l *SyncLog) Fail(message string) {
	now := time.Now()
	l.Status = SyncLogStatusFailed
	l.Error = &message
	l.CompletedAt = &now
}

// ChangeCount returns the total number of mutations this pass applied
func (l *SyncLog) ChangeCount() int {
	return l.Created + l.Updated + l.Deleted
}
