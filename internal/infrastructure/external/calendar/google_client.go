package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleClient is the primary calendar backend. It supports token-based
// incremental sync and push notification channels.
type GoogleClient struct {
	oauthConfig *oauth2.Config
	webhookURL  string
	watchTTL    time.Duration
}

// NewGoogleClient creates a Google Calendar provider client
func NewGoogleClient(oauthConfig *oauth2.Config, webhookURL string, watchTTL time.Duration) *GoogleClient {
	return &GoogleClient{
		oauthConfig: oauthConfig,
		webhookURL:  webhookURL,
		watchTTL:    watchTTL,
	}
}

// Capabilities reports full support: incremental sync and push channels
func (g *GoogleClient) Capabilities() Capabilities {
	return Capabilities{IncrementalSync: true, PushNotifications: true}
}

func (g *GoogleClient) service(ctx context.Context, token *oauth2.Token) (*gcal.Service, error) {
	client := g.oauthConfig.Client(ctx, token)
	// Floor for callers that pass a deadline-free context (watch lifecycle);
	// sync passes carry a tighter per-attempt deadline on top.
	client.Timeout = 30 * time.Second
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// ListWindow fetches all events inside [from, to), paging to completion.
// Google hands back nextSyncToken on the final page of a bounded list, so
// most callers will not need MintSyncToken.
func (g *GoogleClient) ListWindow(ctx context.Context, token *oauth2.Token, calendarID string, from, to time.Time) (*DeltaResult, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, mapGoogleError(err)
	}

	result := &DeltaResult{}
	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			MaxResults(250).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, mapGoogleError(err)
		}

		for _, item := range page.Items {
			appendItem(result, item)
		}

		if page.NextPageToken == "" {
			result.NextSyncToken = page.NextSyncToken
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// ListChanges fetches changes since syncToken, including tombstones for
// deleted and cancelled events.
func (g *GoogleClient) ListChanges(ctx context.Context, token *oauth2.Token, calendarID, syncToken string) (*DeltaResult, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, mapGoogleError(err)
	}

	result := &DeltaResult{}
	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			SyncToken(syncToken).
			ShowDeleted(true).
			SingleEvents(true).
			MaxResults(250).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, mapGoogleError(err)
		}

		for _, item := range page.Items {
			appendItem(result, item)
		}

		if page.NextPageToken == "" {
			result.NextSyncToken = page.NextSyncToken
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// MintSyncToken issues a minimal probe whose only purpose is a fresh cursor:
// listing with updatedMin set to now returns an empty page carrying
// nextSyncToken.
func (g *GoogleClient) MintSyncToken(ctx context.Context, token *oauth2.Token, calendarID string) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", mapGoogleError(err)
	}

	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			UpdatedMin(time.Now().Format(time.RFC3339)).
			SingleEvents(true).
			MaxResults(250).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return "", mapGoogleError(err)
		}
		if page.NextPageToken == "" {
			return page.NextSyncToken, nil
		}
		pageToken = page.NextPageToken
	}
}

// Watch registers a web_hook push channel against the calendar
func (g *GoogleClient) Watch(ctx context.Context, token *oauth2.Token, calendarID, channelID, channelToken string) (*WatchChannel, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, mapGoogleError(err)
	}

	expiration := time.Now().Add(g.watchTTL)
	channel := &gcal.Channel{
		Id:         channelID,
		Type:       "web_hook",
		Address:    g.webhookURL,
		Token:      channelToken,
		Expiration: expiration.UnixMilli(),
	}

	created, err := svc.Events.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}

	// Google may clamp the requested expiration
	exp := expiration
	if created.Expiration > 0 {
		exp = time.UnixMilli(created.Expiration)
	}

	return &WatchChannel{
		SubscriptionID: created.Id,
		ResourceID:     created.ResourceId,
		Expiration:     exp,
	}, nil
}

// StopWatch tears down a push channel
func (g *GoogleClient) StopWatch(ctx context.Context, token *oauth2.Token, subscriptionID, resourceID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return mapGoogleError(err)
	}

	err = svc.Channels.Stop(&gcal.Channel{
		Id:         subscriptionID,
		ResourceId: resourceID,
	}).Context(ctx).Do()
	if err != nil {
		return mapGoogleError(err)
	}
	return nil
}

// appendItem sorts one raw item into events or tombstones
func appendItem(result *DeltaResult, item *gcal.Event) {
	if item.Status == "cancelled" {
		result.DeletedIDs = append(result.DeletedIDs, item.Id)
		return
	}
	result.Events = append(result.Events, convertGoogleEvent(item))
}

func convertGoogleEvent(item *gcal.Event) Event {
	ev := Event{
		ID:          item.Id,
		Status:      item.Status,
		Summary:     item.Summary,
		Description: item.Description,
		HangoutLink: item.HangoutLink,
	}

	if item.Start != nil {
		if item.Start.DateTime != "" {
			ev.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
		} else if item.Start.Date != "" {
			ev.Start, _ = time.Parse("2006-01-02", item.Start.Date)
			ev.AllDay = true
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			ev.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
		} else if item.End.Date != "" {
			ev.End, _ = time.Parse("2006-01-02", item.End.Date)
		}
	}

	if item.Organizer != nil {
		ev.OrganizerEmail = item.Organizer.Email
		ev.OrganizerSelf = item.Organizer.Self
	}

	for _, att := range item.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          att.Email,
			ResponseStatus: att.ResponseStatus,
			Self:           att.Self,
			Organizer:      att.Organizer,
		})
	}

	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			ev.EntryPoints = append(ev.EntryPoints, ConferenceEntryPoint{
				Type: ep.EntryPointType,
				URI:  ep.Uri,
			})
		}
	}

	return ev
}

// mapGoogleError classifies a Google API failure for the sync engine
func mapGoogleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Message: "provider call timed out", Raw: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return &ProviderError{Kind: KindAuthExpired, StatusCode: gerr.Code, Message: "access token rejected", Raw: err}
		case gerr.Code == http.StatusGone:
			// Google's signal that the sync token has expired
			return &ProviderError{Kind: KindCursorInvalid, StatusCode: gerr.Code, Message: "sync token expired", Raw: err}
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return &ProviderError{Kind: KindUnavailable, StatusCode: gerr.Code, Message: "provider unavailable", Raw: err}
		default:
			return &ProviderError{Kind: KindUnavailable, StatusCode: gerr.Code, Message: gerr.Message, Raw: err}
		}
	}

	return &ProviderError{Kind: KindUnavailable, Message: "provider request failed", Raw: err}
}
