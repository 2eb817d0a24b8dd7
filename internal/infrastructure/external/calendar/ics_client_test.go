package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serveFeed(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	body := strings.Join(lines, "\r\n") + "\r\n"
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(body))
	}))
}

func TestICSClientListWindow(t *testing.T) {
	server := serveFeed(t, []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Example//Feed//EN",
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Design review",
		"DTSTART:20260830T100000Z",
		"DTEND:20260830T110000Z",
		"URL:https://meet.google.com/abc-defg-hij",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-2",
		"SUMMARY:Cancelled standup",
		"DTSTART:20260831T100000Z",
		"DTEND:20260831T101500Z",
		"STATUS:CANCELLED",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-3",
		"SUMMARY:Next year planning",
		"DTSTART:20270115T100000Z",
		"DTEND:20270115T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:No UID, skipped",
		"DTSTART:20260830T120000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	})
	defer server.Close()

	client := NewICSClient(5 * time.Second)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	result, err := client.ListWindow(context.Background(), nil, server.URL, from, to)
	if err != nil {
		t.Fatalf("ListWindow failed: %v", err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event inside the window, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if ev.ID != "evt-1" || ev.Summary != "Design review" {
		t.Errorf("unexpected event: %s %q", ev.ID, ev.Summary)
	}
	if !ev.Start.Equal(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start time: %v", ev.Start)
	}
	if len(ev.EntryPoints) != 1 || ev.EntryPoints[0].URI != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("URL property not surfaced as a conference entry point: %+v", ev.EntryPoints)
	}

	if len(result.DeletedIDs) != 1 || result.DeletedIDs[0] != "evt-2" {
		t.Errorf("cancelled event not reported as a tombstone: %v", result.DeletedIDs)
	}
	if result.NextSyncToken != "" {
		t.Errorf("feed must not hand back a cursor, got %q", result.NextSyncToken)
	}
}

func TestICSClientRejectsNonCalendarPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>login required</body></html>"))
	}))
	defer server.Close()

	client := NewICSClient(5 * time.Second)
	_, err := client.ListWindow(context.Background(), nil, server.URL, time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected an error for a non-iCalendar response")
	}
	if !IsTransient(err) {
		t.Errorf("malformed feed should classify as unavailable: %v", err)
	}
}

func TestICSClientAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewICSClient(5 * time.Second)
	_, err := client.ListWindow(context.Background(), nil, server.URL, time.Now(), time.Now().Add(time.Hour))
	if !IsAuthExpired(err) {
		t.Fatalf("expected auth classification for 403, got %v", err)
	}
}

func TestICSClientNoIncrementalSync(t *testing.T) {
	client := NewICSClient(5 * time.Second)

	caps := client.Capabilities()
	if caps.IncrementalSync || caps.PushNotifications {
		t.Errorf("feed backend must advertise no incremental sync and no push: %+v", caps)
	}

	_, err := client.ListChanges(context.Background(), nil, "https://example.com/feed.ics", "cursor")
	if !IsCursorInvalid(err) {
		t.Fatalf("ListChanges should report an unusable cursor, got %v", err)
	}
}
