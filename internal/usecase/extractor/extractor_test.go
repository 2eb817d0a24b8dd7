package extractor

import (
	"testing"
	"time"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
)

func baseEvent() calendar.Event {
	return calendar.Event{
		ID:      "evt-1",
		Status:  "confirmed",
		Summary: "Weekly planning",
		Start:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
}

func TestExtractPrefersVideoEntryPoint(t *testing.T) {
	ev := baseEvent()
	ev.Description = "join here: https://meet.google.com/xyz-abcd-efg"
	ev.HangoutLink = "https://meet.google.com/hangout-link"
	ev.EntryPoints = []calendar.ConferenceEntryPoint{
		{Type: "phone", URI: "tel:+1-555-0100"},
		{Type: "video", URI: "https://meet.google.com/aaa-bbbb-ccc"},
	}

	candidate, ok := Extract(ev)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	if candidate.MeetingURL != "https://meet.google.com/aaa-bbbb-ccc" {
		t.Errorf("expected video entry point URL, got %s", candidate.MeetingURL)
	}
	if candidate.RemoteEventID != "evt-1" {
		t.Errorf("expected remote event id evt-1, got %s", candidate.RemoteEventID)
	}
}

func TestExtractFallsBackToConferenceLink(t *testing.T) {
	ev := baseEvent()
	ev.HangoutLink = "https://meet.google.com/hangout-link"

	candidate, ok := Extract(ev)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	if candidate.MeetingURL != "https://meet.google.com/hangout-link" {
		t.Errorf("expected conference link, got %s", candidate.MeetingURL)
	}
}

func TestExtractFindsURLInDescription(t *testing.T) {
	cases := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "google meet",
			description: "Agenda attached.\nJoin: https://meet.google.com/xyz-abcd-efg see you there",
			want:        "https://meet.google.com/xyz-abcd-efg",
		},
		{
			name:        "zoom",
			description: "Zoom link https://us02web.zoom.us/j/1234567890?pwd=abc123",
			want:        "https://us02web.zoom.us/j/1234567890?pwd=abc123",
		},
		{
			name:        "teams",
			description: "https://teams.microsoft.com/l/meetup-join/19%3ameeting_abc/0?context=xyz",
			want:        "https://teams.microsoft.com/l/meetup-join/19%3ameeting_abc/0?context=xyz",
		},
		{
			name:        "webex",
			description: "Meet at https://company.webex.com/meet/room123.",
			want:        "https://company.webex.com/meet/room123",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := baseEvent()
			ev.Description = tc.description

			candidate, ok := Extract(ev)
			if !ok {
				t.Fatalf("expected extraction to succeed")
			}
			if candidate.MeetingURL != tc.want {
				t.Errorf("expected %s, got %s", tc.want, candidate.MeetingURL)
			}
		})
	}
}

func TestExtractRejectsEventWithoutURL(t *testing.T) {
	ev := baseEvent()
	ev.Description = "lunch at the corner cafe, see https://example.com/menu"

	if _, ok := Extract(ev); ok {
		t.Errorf("expected extraction to fail for event without meeting URL")
	}
}

func TestResolveStatusUsesSelfAttendee(t *testing.T) {
	ev := baseEvent()
	ev.HangoutLink = "https://meet.google.com/abc"
	ev.Attendees = []calendar.Attendee{
		{Email: "organizer@example.com", ResponseStatus: "accepted", Organizer: true},
		{Email: "me@example.com", ResponseStatus: "tentative", Self: true},
	}

	candidate, ok := Extract(ev)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	if candidate.EventStatus != entities.EventStatusTentative {
		t.Errorf("expected tentative, got %s", candidate.EventStatus)
	}
}

func TestResolveStatusOrganizerDefaultsToAccepted(t *testing.T) {
	ev := baseEvent()
	ev.HangoutLink = "https://meet.google.com/abc"
	ev.OrganizerSelf = true

	candidate, _ := Extract(ev)
	if candidate.EventStatus != entities.EventStatusAccepted {
		t.Errorf("expected accepted for self-organized event, got %s", candidate.EventStatus)
	}
}

func TestResolveStatusDefaultsToNeedsAction(t *testing.T) {
	ev := baseEvent()
	ev.HangoutLink = "https://meet.google.com/abc"
	ev.Attendees = []calendar.Attendee{
		{Email: "other@example.com", ResponseStatus: "accepted"},
	}

	candidate, _ := Extract(ev)
	if candidate.EventStatus != entities.EventStatusNeedsAction {
		t.Errorf("expected needsAction, got %s", candidate.EventStatus)
	}
}

func TestResolveStatusInvalidResponseFallsBack(t *testing.T) {
	ev := baseEvent()
	ev.HangoutLink = "https://meet.google.com/abc"
	ev.Attendees = []calendar.Attendee{
		{Email: "me@example.com", ResponseStatus: "maybe-later", Self: true},
	}

	candidate, _ := Extract(ev)
	if candidate.EventStatus != entities.EventStatusNeedsAction {
		t.Errorf("expected needsAction for unknown response, got %s", candidate.EventStatus)
	}
}
