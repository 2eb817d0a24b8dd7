package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
)

// meetingRepository implements the MeetingRepository interface using GORM
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// Create creates a new meeting
func (r *meetingRepository) Create(ctx context.Context, meeting *entities.Meeting) error {
	if err := r.db.WithContext(ctx).Create(meeting).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// FindByID finds a meeting by ID
func (r *meetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	var meeting entities.Meeting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&meeting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to find meeting by ID: %w", err)
	}
	return &meeting, nil
}

// FindByRemoteEventID finds a meeting by its reconciliation natural key
func (r *meetingRepository) FindByRemoteEventID(ctx context.Context, userID uuid.UUID, remoteEventID string) (*entities.Meeting, error) {
	var meeting entities.Meeting
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND remote_event_id = ?", userID, remoteEventID).
		First(&meeting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entities.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to find meeting by remote event: %w", err)
	}
	return &meeting, nil
}

// Update updates an existing meeting
func (r *meetingRepository) Update(ctx context.Context, meeting *entities.Meeting) error {
	if err := r.db.WithContext(ctx).Save(meeting).Error; err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	return nil
}

// UpdateRemoteFields writes only reconciler-owned columns. Bot-owned columns
// are never part of the update set, so a reconciliation pass cannot clobber
// an in-flight bot.
func (r *meetingRepository) UpdateRemoteFields(ctx context.Context, meeting *entities.Meeting) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", meeting.ID).
		Updates(map[string]interface{}{
			"title":        meeting.Title,
			"description":  meeting.Description,
			"meeting_url":  meeting.MeetingURL,
			"start_time":   meeting.StartTime,
			"end_time":     meeting.EndTime,
			"event_status": meeting.EventStatus,
			"updated_at":   time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to update meeting remote fields: %w", err)
	}
	return nil
}

// UpdateBotState writes only bot-owned columns
func (r *meetingRepository) UpdateBotState(ctx context.Context, meetingID uuid.UUID, status entities.BotStatus, botID *string) error {
	updates := map[string]interface{}{
		"bot_status": status,
		"updated_at": time.Now(),
	}
	if botID != nil {
		updates["bot_id"] = *botID
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", meetingID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update bot state: %w", err)
	}
	return nil
}

// Delete hard-deletes a meeting
func (r *meetingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&entities.Meeting{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}

// ListByUser returns a user's meetings inside a time window
func (r *meetingRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// ListSyncedByUser returns all of a user's meetings that carry a remote event id
func (r *meetingRepository) ListSyncedByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND remote_event_id IS NOT NULL", userID).
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list synced meetings: %w", err)
	}
	return meetings, nil
}
