package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrorKind classifies provider failures the sync engine reacts to
type ErrorKind int

const (
	KindUnavailable ErrorKind = iota
	KindAuthExpired
	KindCursorInvalid
	KindTimeout
)

// ProviderError wraps a provider failure with the classification the sync
// engine branches on (re-auth retry, full resync fallback, transient retry).
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Raw        error
}

// Error implements error interface
func (e *ProviderError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("calendar provider error (status %d): %s: %v", e.StatusCode, e.Message, e.Raw)
	}
	return fmt.Sprintf("calendar provider error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap exposes the underlying cause
func (e *ProviderError) Unwrap() error {
	return e.Raw
}

// Attendee is one attendee on a remote event
type Attendee struct {
	Email          string
	ResponseStatus string // accepted | declined | tentative | needsAction
	Self           bool
	Organizer      bool
}

// ConferenceEntryPoint is one structured conferencing entry on an event
type ConferenceEntryPoint struct {
	Type string // video | phone | sip | more
	URI  string
}

// Event is a provider-neutral raw calendar event
type Event struct {
	ID             string
	Status         string // confirmed | tentative | cancelled
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	AllDay         bool
	OrganizerEmail string
	OrganizerSelf  bool
	Attendees      []Attendee
	EntryPoints    []ConferenceEntryPoint
	HangoutLink    string
}

// DeltaResult is one page-complete pull from the provider
type DeltaResult struct {
	Events        []Event
	DeletedIDs    []string
	NextSyncToken string
}

// WatchChannel is the provider's registration of a push channel
type WatchChannel struct {
	SubscriptionID string
	ResourceID     string
	Expiration     time.Time
}

// Capabilities describes what a provider implementation can do. The engine
// probes this instead of shape-checking the client at runtime.
type Capabilities struct {
	IncrementalSync   bool
	PushNotifications bool
}

// Provider is the calendar backend strategy. GoogleClient is the primary
// implementation; ICSClient is the legacy read-only fallback.
//
// calendarID is provider-specific: the Google client expects a calendar id
// such as "primary", the ICS client expects the feed URL.
type Provider interface {
	// Capabilities reports what this backend supports
	Capabilities() Capabilities

	// ListWindow fetches all events inside [from, to). When the backend
	// supports incremental sync the result carries a NextSyncToken for
	// subsequent ListChanges calls; it may be empty if the backend does not
	// hand one back for a windowed list (see MintSyncToken).
	ListWindow(ctx context.Context, token *oauth2.Token, calendarID string, from, to time.Time) (*DeltaResult, error)

	// ListChanges fetches changes since syncToken, including tombstones.
	// Returns a ProviderError with KindCursorInvalid when the token has
	// expired and a full resync is required.
	ListChanges(ctx context.Context, token *oauth2.Token, calendarID, syncToken string) (*DeltaResult, error)

	// MintSyncToken issues a minimal probe call whose only purpose is to
	// obtain a fresh cursor for future incremental pulls.
	MintSyncToken(ctx context.Context, token *oauth2.Token, calendarID string) (string, error)

	// Watch registers a push notification channel
	Watch(ctx context.Context, token *oauth2.Token, calendarID, channelID, channelToken string) (*WatchChannel, error)

	// StopWatch tears down a push channel. Best-effort at the call sites:
	// the provider expires channels on its own.
	StopWatch(ctx context.Context, token *oauth2.Token, subscriptionID, resourceID string) error
}

// IsAuthExpired reports whether err is a provider auth failure
func IsAuthExpired(err error) bool {
	return errKind(err, KindAuthExpired)
}

// IsCursorInvalid reports whether err signals an expired sync cursor
func IsCursorInvalid(err error) bool {
	return errKind(err, KindCursorInvalid)
}

// IsTransient reports whether err is worth retrying on the next tick
func IsTransient(err error) bool {
	return errKind(err, KindUnavailable) || errKind(err, KindTimeout)
}

func errKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
