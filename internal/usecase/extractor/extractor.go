package extractor

import (
	"regexp"
	"strings"
	"time"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
)

// CandidateMeeting is the normalized form of one remote event, ready to be
// merged into the store
type CandidateMeeting struct {
	RemoteEventID string
	Title         string
	Description   string
	MeetingURL    string
	StartTime     time.Time
	EndTime       time.Time
	EventStatus   entities.EventStatus
}

// Conferencing URL shapes recognized inside free-text descriptions
var meetingURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://meet\.google\.com/[a-z0-9-]+`),
	regexp.MustCompile(`https://[a-zA-Z0-9.-]*zoom\.us/j/[A-Za-z0-9?=&.-]+`),
	regexp.MustCompile(`https://teams\.microsoft\.com/l/meetup-join/[^\s<>"]+`),
	regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.webex\.com/[^\s<>"]+`),
}

// Extract normalizes one raw calendar event into a candidate meeting.
// Returns ok=false when no meeting URL can be found; such events are never
// persisted.
func Extract(raw calendar.Event) (CandidateMeeting, bool) {
	url := extractMeetingURL(raw)
	if url == "" {
		return CandidateMeeting{}, false
	}

	return CandidateMeeting{
		RemoteEventID: raw.ID,
		Title:         raw.Summary,
		Description:   raw.Description,
		MeetingURL:    url,
		StartTime:     raw.Start,
		EndTime:       raw.End,
		EventStatus:   resolveStatus(raw),
	}, true
}

// extractMeetingURL looks for a conferencing URL in priority order:
// structured video entry point, then the provider's own conference link,
// then known URL shapes inside the description.
func extractMeetingURL(raw calendar.Event) string {
	for _, ep := range raw.EntryPoints {
		if ep.Type == "video" && ep.URI != "" {
			return ep.URI
		}
	}

	if raw.HangoutLink != "" {
		return raw.HangoutLink
	}

	for _, pattern := range meetingURLPatterns {
		if match := pattern.FindString(raw.Description); match != "" {
			return strings.TrimRight(match, ".,;)")
		}
	}

	return ""
}

// resolveStatus derives the owner's attendance response. The self-flagged
// attendee wins; without one, an event the owner organizes counts as
// accepted, anything else stays needsAction until the owner responds.
func resolveStatus(raw calendar.Event) entities.EventStatus {
	for _, att := range raw.Attendees {
		if att.Self {
			if status := entities.EventStatus(att.ResponseStatus); status.IsValid() {
				return status
			}
			return entities.EventStatusNeedsAction
		}
	}

	if raw.OrganizerSelf {
		return entities.EventStatusAccepted
	}
	return entities.EventStatusNeedsAction
}
