package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/usecase/extractor"
)

// SyncResult is the outcome of one reconciliation pass
type SyncResult struct {
	Processed int
	Created   int
	Updated   int
	Deleted   int

	// Meetings inserted this pass, for bot scheduling
	CreatedMeetings []*entities.Meeting
}

// reconcile merges one provider delta into the meeting store. Remote-owned
// fields are written, bot-owned fields on existing rows are never touched.
// A persistence failure aborts the batch so the caller does not advance the
// stored cursor; reprocessing the same window is safe because the merge is
// idempotent.
func (s *Service) reconcile(ctx context.Context, user *entities.User, d *delta) (*SyncResult, error) {
	result := &SyncResult{}
	seen := make(map[string]bool, len(d.result.Events))

	for _, raw := range d.result.Events {
		result.Processed++
		seen[raw.ID] = true

		candidate, ok := extractor.Extract(raw)
		if !ok {
			continue
		}

		if err := s.mergeCandidate(ctx, user, candidate, result); err != nil {
			return result, fmt.Errorf("%w: %v", entities.ErrSyncPersistence, err)
		}
	}

	for _, remoteID := range d.result.DeletedIDs {
		result.Processed++
		if err := s.removeMeeting(ctx, user, remoteID, result); err != nil {
			return result, fmt.Errorf("%w: %v", entities.ErrSyncPersistence, err)
		}
	}

	// Orphan sweep: only a full window scan may infer deletions from
	// absence. An incremental pull's partial ID set cannot.
	if d.fullWindow {
		if err := s.sweepOrphans(ctx, user, seen, result); err != nil {
			return result, fmt.Errorf("%w: %v", entities.ErrSyncPersistence, err)
		}
	}

	return result, nil
}

// mergeCandidate inserts or updates one meeting row
func (s *Service) mergeCandidate(ctx context.Context, user *entities.User, candidate extractor.CandidateMeeting, result *SyncResult) error {
	existing, err := s.meetingRepo.FindByRemoteEventID(ctx, user.ID, candidate.RemoteEventID)
	if err != nil && !errors.Is(err, entities.ErrMeetingNotFound) {
		return err
	}

	if existing == nil {
		meeting := entities.NewSyncedMeeting(user.ID, candidate.RemoteEventID)
		applyCandidate(meeting, candidate)
		if err := s.meetingRepo.Create(ctx, meeting); err != nil {
			return err
		}
		result.Created++
		result.CreatedMeetings = append(result.CreatedMeetings, meeting)
		return nil
	}

	if !remoteFieldsChanged(existing, candidate) {
		return nil
	}

	applyCandidate(existing, candidate)
	if err := s.meetingRepo.UpdateRemoteFields(ctx, existing); err != nil {
		return err
	}
	result.Updated++
	return nil
}

// removeMeeting applies one tombstone. Meetings that have accumulated bot
// state are soft-cancelled instead of deleted so captured transcripts
// survive the remote event disappearing.
func (s *Service) removeMeeting(ctx context.Context, user *entities.User, remoteEventID string, result *SyncResult) error {
	existing, err := s.meetingRepo.FindByRemoteEventID(ctx, user.ID, remoteEventID)
	if err != nil {
		if errors.Is(err, entities.ErrMeetingNotFound) {
			return nil
		}
		return err
	}

	if existing.HasBotState() {
		wasActive := existing.IsBotActive()
		existing.SoftCancel()
		if err := s.meetingRepo.UpdateRemoteFields(ctx, existing); err != nil {
			return err
		}
		if wasActive {
			if err := s.meetingRepo.UpdateBotState(ctx, existing.ID, entities.BotStatusFailed, existing.BotID); err != nil {
				return err
			}
		}
		s.cancelBot(ctx, existing)
		result.Deleted++
		return nil
	}

	if err := s.meetingRepo.Delete(ctx, existing.ID); err != nil {
		return err
	}
	result.Deleted++
	return nil
}

// sweepOrphans treats stored meetings absent from a full window scan as
// implicit deletions. Only rows inside the scanned window are considered;
// meetings outside it were legitimately not fetched.
func (s *Service) sweepOrphans(ctx context.Context, user *entities.User, seen map[string]bool, result *SyncResult) error {
	from, to := s.windowBounds()

	stored, err := s.meetingRepo.ListSyncedByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	for _, meeting := range stored {
		if meeting.RemoteEventID == nil || seen[*meeting.RemoteEventID] {
			continue
		}
		if meeting.StartTime.Before(from) || !meeting.StartTime.Before(to) {
			continue
		}

		s.logger.Debug("sweeping orphaned meeting",
			zap.String("user_id", user.ID.String()),
			zap.String("remote_event_id", *meeting.RemoteEventID))

		if err := s.removeMeeting(ctx, user, *meeting.RemoteEventID, result); err != nil {
			return err
		}
	}
	return nil
}

// applyCandidate copies remote-owned fields onto a meeting row
func applyCandidate(meeting *entities.Meeting, candidate extractor.CandidateMeeting) {
	meeting.Title = candidate.Title
	if candidate.Description != "" {
		desc := candidate.Description
		meeting.Description = &desc
	} else {
		meeting.Description = nil
	}
	url := candidate.MeetingURL
	meeting.MeetingURL = &url
	meeting.StartTime = candidate.StartTime
	meeting.EndTime = candidate.EndTime
	meeting.EventStatus = candidate.EventStatus
}

// remoteFieldsChanged reports whether a candidate differs from the stored row
func remoteFieldsChanged(meeting *entities.Meeting, candidate extractor.CandidateMeeting) bool {
	if meeting.Title != candidate.Title {
		return true
	}
	if stringValue(meeting.Description) != candidate.Description {
		return true
	}
	if stringValue(meeting.MeetingURL) != candidate.MeetingURL {
		return true
	}
	if !meeting.StartTime.Equal(candidate.StartTime) || !meeting.EndTime.Equal(candidate.EndTime) {
		return true
	}
	return meeting.EventStatus != candidate.EventStatus
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
