package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"golang.org/x/oauth2"
)

// ICSClient is the legacy read-only backend for users without an
// OAuth-connected provider. It fetches a published ICS feed. The feed has no
// cursor and no push channels, so the engine always does full-window pulls
// for these users.
//
// The calendarID argument is the feed URL.
type ICSClient struct {
	client *http.Client
}

// NewICSClient creates an ICS feed provider client
func NewICSClient(timeout time.Duration) *ICSClient {
	return &ICSClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Capabilities reports the feed's limits: no incremental sync, no push
func (c *ICSClient) Capabilities() Capabilities {
	return Capabilities{IncrementalSync: false, PushNotifications: false}
}

// ListWindow fetches and parses the feed, keeping events inside [from, to)
func (c *ICSClient) ListWindow(ctx context.Context, _ *oauth2.Token, feedURL string, from, to time.Time) (*DeltaResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &ProviderError{Kind: KindUnavailable, Message: "invalid feed URL", Raw: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ProviderError{Kind: KindTimeout, Message: "feed fetch timed out", Raw: err}
		}
		return nil, &ProviderError{Kind: KindUnavailable, Message: "feed fetch failed", Raw: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &ProviderError{Kind: KindAuthExpired, StatusCode: resp.StatusCode, Message: "feed rejected request"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Message: "feed returned error"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: KindUnavailable, Message: "failed to read feed body", Raw: err}
	}

	if !strings.HasPrefix(strings.TrimSpace(string(body)), "BEGIN:VCALENDAR") {
		return nil, &ProviderError{Kind: KindUnavailable, Message: "response is not iCalendar data"}
	}

	result := &DeltaResult{}
	decoder := ical.NewDecoder(strings.NewReader(string(body)))
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ProviderError{Kind: KindUnavailable, Message: "failed to decode feed", Raw: err}
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, ok := parseICSEvent(comp)
			if !ok {
				continue
			}
			if ev.Status == "cancelled" {
				result.DeletedIDs = append(result.DeletedIDs, ev.ID)
				continue
			}
			if ev.Start.Before(from) || !ev.Start.Before(to) {
				continue
			}
			result.Events = append(result.Events, ev)
		}
	}

	return result, nil
}

// ListChanges is unsupported: the feed carries no cursor
func (c *ICSClient) ListChanges(ctx context.Context, _ *oauth2.Token, _, _ string) (*DeltaResult, error) {
	return nil, &ProviderError{Kind: KindCursorInvalid, Message: "ICS feed does not support incremental sync"}
}

// MintSyncToken is unsupported for feeds
func (c *ICSClient) MintSyncToken(ctx context.Context, _ *oauth2.Token, _ string) (string, error) {
	return "", nil
}

// Watch is unsupported for feeds
func (c *ICSClient) Watch(ctx context.Context, _ *oauth2.Token, _, _, _ string) (*WatchChannel, error) {
	return nil, &ProviderError{Kind: KindUnavailable, Message: "ICS feed does not support push notifications"}
}

// StopWatch is a no-op for feeds
func (c *ICSClient) StopWatch(ctx context.Context, _ *oauth2.Token, _, _ string) error {
	return nil
}

// parseICSEvent maps one VEVENT component to a provider-neutral event
func parseICSEvent(comp *ical.Component) (Event, bool) {
	ev := Event{Status: "confirmed"}

	uidProp := comp.Props.Get(ical.PropUID)
	if uidProp == nil || uidProp.Value == "" {
		return ev, false
	}
	ev.ID = uidProp.Value

	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.Summary = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		ev.Description = p.Value
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		ev.Status = "cancelled"
	}

	if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
		t, err := parseICSDateTime(p)
		if err != nil {
			return ev, false
		}
		ev.Start = t
	} else {
		return ev, false
	}
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		if t, err := parseICSDateTime(p); err == nil {
			ev.End = t
		}
	}
	if ev.End.IsZero() {
		ev.End = ev.Start.Add(time.Hour)
	}

	// Feeds sometimes carry the conference link in URL or LOCATION; surface
	// both so the extractor's pattern matching can pick them up.
	if p := comp.Props.Get(ical.PropURL); p != nil && p.Value != "" {
		ev.EntryPoints = append(ev.EntryPoints, ConferenceEntryPoint{Type: "video", URI: p.Value})
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil && p.Value != "" {
		ev.Description = ev.Description + "\n" + p.Value
	}

	return ev, true
}

// parseICSDateTime parses a datetime property, tolerating feeds that omit
// timezone information
func parseICSDateTime(prop *ical.Prop) (time.Time, error) {
	if t, err := prop.DateTime(time.UTC); err == nil {
		return t, nil
	}

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, prop.Value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime value: %s", prop.Value)
}
