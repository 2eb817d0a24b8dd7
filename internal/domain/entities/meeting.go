package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventStatus reflects the attendee response on the remote calendar event.
// It is owned by the reconciler and mirrors the provider's view.
type EventStatus string

const (
	EventStatusAccepted    EventStatus = "accepted"
	EventStatusDeclined    EventStatus = "declined"
	EventStatusTentative   EventStatus = "tentative"
	EventStatusNeedsAction EventStatus = "needsAction"
)

// IsValid checks if the event status is valid
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusAccepted, EventStatusDeclined, EventStatusTentative, EventStatusNeedsAction:
		return true
	}
	return false
}

// BotStatus tracks the transcription bot lifecycle for a meeting.
// It is owned by the bot gateway flow; reconciliation never rewrites it.
type BotStatus string

const (
	BotStatusPending      BotStatus = "pending"
	BotStatusScheduled    BotStatus = "bot_scheduled"
	BotStatusJoined       BotStatus = "bot_joined"
	BotStatusTranscribing BotStatus = "transcribing"
	BotStatusCompleted    BotStatus = "completed"
	BotStatusFailed       BotStatus = "failed"
)

// IsValid checks if the bot status is valid
func (s BotStatus) IsValid() bool {
	switch s {
	case BotStatusPending, BotStatusScheduled, BotStatusJoined,
		BotStatusTranscribing, BotStatusCompleted, BotStatusFailed:
		return true
	}
	return false
}

// Meeting represents a calendar meeting tracked for transcription
type Meeting struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_remote_event,priority:1"`
	User   *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`

	// Optional grouping, independent of calendar sync
	ProjectID *uuid.UUID `json:"project_id,omitempty" gorm:"type:uuid;index"`

	// Natural key for reconciliation against the remote calendar. Nil for
	// meetings created by hand rather than by sync.
	RemoteEventID *string `json:"remote_event_id,omitempty" gorm:"type:varchar(255);uniqueIndex:idx_user_remote_event,priority:2"`

	Title       string     `json:"title" gorm:"type:varchar(500);not null"`
	Description *string    `json:"description,omitempty" gorm:"type:text"`
	MeetingURL  *string    `json:"meeting_url,omitempty" gorm:"type:varchar(1000)"`
	StartTime   time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime     time.Time  `json:"end_time" gorm:"not null"`

	EventStatus EventStatus `json:"event_status" gorm:"type:varchar(20);not null;default:'needsAction'"`

	// Bot-owned fields. Set once at creation, afterwards mutated only by the
	// bot gateway flow.
	BotStatus        BotStatus      `json:"bot_status" gorm:"type:varchar(20);not null;default:'pending';index"`
	BotID            *string        `json:"bot_id,omitempty" gorm:"type:varchar(255)"`
	BotConfiguration datatypes.JSON `json:"bot_configuration,omitempty" gorm:"type:jsonb;default:'{}'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// NewSyncedMeeting creates a meeting from a remote calendar event
func NewSyncedMeeting(userID uuid.UUID, remoteEventID string) *Meeting {
	now := time.Now()
	return &Meeting{
		ID:            uuid.New(),
		UserID:        userID,
		RemoteEventID: &remoteEventID,
		EventStatus:   EventStatusNeedsAction,
		BotStatus:     BotStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsBotActive reports whether a bot is currently in the meeting or
// transcribing. Meetings in this state are never hard-deleted.
func (m *Meeting) IsBotActive() bool {
	return m.BotStatus == BotStatusJoined || m.BotStatus == BotStatusTranscribing
}

// HasBotState reports whether any bot work has started for this meeting
func (m *Meeting) HasBotState() bool {
	return m.BotStatus != BotStatusPending || m.BotID != nil
}

// SoftCancel marks the meeting as declined without deleting it, failing the
// bot so any captured transcript is preserved.
func (m *Meeting) SoftCancel() {
	m.EventStatus = EventStatusDeclined
	if m.IsBotActive() {
		m.BotStatus = BotStatusFailed
	}
	m.UpdatedAt = time.Now()
}
