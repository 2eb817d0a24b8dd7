package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
)

type fakeUserRepo struct {
	users        map[uuid.UUID]*entities.User
	tokenUpdates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entities.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error) {
	for _, user := range r.users {
		if user.OAuthProvider != nil && *user.OAuthProvider == provider &&
			user.OAuthID != nil && *user.OAuthID == oauthID {
			return user, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entities.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateOAuthTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	user, ok := r.users[userID]
	if !ok {
		return entities.ErrUserNotFound
	}
	user.OAuthAccessToken = &accessToken
	if refreshToken != "" {
		user.OAuthRefreshToken = &refreshToken
	}
	user.OAuthTokenExpiry = &expiry
	r.tokenUpdates++
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (r *fakeUserRepo) ListConnected(ctx context.Context) ([]*entities.User, error) {
	var connected []*entities.User
	for _, user := range r.users {
		if user.IsActive && (user.HasCalendarCredentials() || user.HasICSFeed()) {
			connected = append(connected, user)
		}
	}
	return connected, nil
}

type fakeMeetingRepo struct {
	meetings  map[uuid.UUID]*entities.Meeting
	createErr error

	remoteUpdates int
	botUpdates    int
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[uuid.UUID]*entities.Meeting)}
}

func cloneMeeting(m *entities.Meeting) *entities.Meeting {
	clone := *m
	return &clone
}

func (r *fakeMeetingRepo) Create(ctx context.Context, meeting *entities.Meeting) error {
	if r.createErr != nil {
		return r.createErr
	}
	if meeting.RemoteEventID != nil {
		for _, stored := range r.meetings {
			if stored.UserID == meeting.UserID && stored.RemoteEventID != nil &&
				*stored.RemoteEventID == *meeting.RemoteEventID {
				return errors.New("duplicate remote event id")
			}
		}
	}
	r.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

func (r *fakeMeetingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	stored, ok := r.meetings[id]
	if !ok {
		return nil, entities.ErrMeetingNotFound
	}
	return cloneMeeting(stored), nil
}

func (r *fakeMeetingRepo) FindByRemoteEventID(ctx context.Context, userID uuid.UUID, remoteEventID string) (*entities.Meeting, error) {
	for _, stored := range r.meetings {
		if stored.UserID == userID && stored.RemoteEventID != nil && *stored.RemoteEventID == remoteEventID {
			return cloneMeeting(stored), nil
		}
	}
	return nil, entities.ErrMeetingNotFound
}

func (r *fakeMeetingRepo) Update(ctx context.Context, meeting *entities.Meeting) error {
	if _, ok := r.meetings[meeting.ID]; !ok {
		return entities.ErrMeetingNotFound
	}
	r.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

func (r *fakeMeetingRepo) UpdateRemoteFields(ctx context.Context, meeting *entities.Meeting) error {
	stored, ok := r.meetings[meeting.ID]
	if !ok {
		return entities.ErrMeetingNotFound
	}
	stored.Title = meeting.Title
	stored.Description = meeting.Description
	stored.MeetingURL = meeting.MeetingURL
	stored.StartTime = meeting.StartTime
	stored.EndTime = meeting.EndTime
	stored.EventStatus = meeting.EventStatus
	stored.UpdatedAt = time.Now()
	r.remoteUpdates++
	return nil
}

func (r *fakeMeetingRepo) UpdateBotState(ctx context.Context, meetingID uuid.UUID, status entities.BotStatus, botID *string) error {
	stored, ok := r.meetings[meetingID]
	if !ok {
		return entities.ErrMeetingNotFound
	}
	stored.BotStatus = status
	stored.BotID = botID
	r.botUpdates++
	return nil
}

func (r *fakeMeetingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.meetings[id]; !ok {
		return entities.ErrMeetingNotFound
	}
	delete(r.meetings, id)
	return nil
}

func (r *fakeMeetingRepo) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Meeting, error) {
	var result []*entities.Meeting
	for _, stored := range r.meetings {
		if stored.UserID == userID && !stored.StartTime.Before(from) && stored.StartTime.Before(to) {
			result = append(result, cloneMeeting(stored))
		}
	}
	return result, nil
}

func (r *fakeMeetingRepo) ListSyncedByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Meeting, error) {
	var result []*entities.Meeting
	for _, stored := range r.meetings {
		if stored.UserID == userID && stored.RemoteEventID != nil {
			result = append(result, cloneMeeting(stored))
		}
	}
	return result, nil
}

func (r *fakeMeetingRepo) byRemoteID(userID uuid.UUID, remoteEventID string) *entities.Meeting {
	for _, stored := range r.meetings {
		if stored.UserID == userID && stored.RemoteEventID != nil && *stored.RemoteEventID == remoteEventID {
			return stored
		}
	}
	return nil
}

type fakeWatchRepo struct {
	subs map[string]*entities.WatchSubscription
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{subs: make(map[string]*entities.WatchSubscription)}
}

func watchKey(userID uuid.UUID, calendarID string) string {
	return userID.String() + "/" + calendarID
}

func (r *fakeWatchRepo) Upsert(ctx context.Context, sub *entities.WatchSubscription) error {
	r.subs[watchKey(sub.UserID, sub.CalendarID)] = sub
	return nil
}

func (r *fakeWatchRepo) FindByUser(ctx context.Context, userID uuid.UUID, calendarID string) (*entities.WatchSubscription, error) {
	sub, ok := r.subs[watchKey(userID, calendarID)]
	if !ok {
		return nil, entities.ErrWatchNotFound
	}
	return sub, nil
}

func (r *fakeWatchRepo) FindByResourceID(ctx context.Context, resourceID string) (*entities.WatchSubscription, error) {
	for _, sub := range r.subs {
		if sub.ResourceID == resourceID {
			return sub, nil
		}
	}
	return nil, entities.ErrWatchNotFound
}

func (r *fakeWatchRepo) UpdateSyncToken(ctx context.Context, userID uuid.UUID, calendarID, syncToken string) error {
	sub, ok := r.subs[watchKey(userID, calendarID)]
	if !ok {
		return entities.ErrWatchNotFound
	}
	sub.SyncToken = syncToken
	return nil
}

func (r *fakeWatchRepo) Deactivate(ctx context.Context, userID uuid.UUID, calendarID string) error {
	sub, ok := r.subs[watchKey(userID, calendarID)]
	if !ok {
		return entities.ErrWatchNotFound
	}
	sub.IsActive = false
	return nil
}

func (r *fakeWatchRepo) ListExpiring(ctx context.Context, within time.Duration) ([]*entities.WatchSubscription, error) {
	var expiring []*entities.WatchSubscription
	cutoff := time.Now().Add(within)
	for _, sub := range r.subs {
		if sub.IsActive && sub.Expiration.Before(cutoff) {
			expiring = append(expiring, sub)
		}
	}
	return expiring, nil
}

type fakeSyncLogRepo struct {
	entries []*entities.SyncLog
}

func (r *fakeSyncLogRepo) Create(ctx context.Context, log *entities.SyncLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeSyncLogRepo) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*entities.SyncLog, error) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			return r.entries[i], nil
		}
	}
	return nil, nil
}

func (r *fakeSyncLogRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.SyncLog, error) {
	var recent []*entities.SyncLog
	for i := len(r.entries) - 1; i >= 0 && len(recent) < limit; i-- {
		if r.entries[i].UserID == userID {
			recent = append(recent, r.entries[i])
		}
	}
	return recent, nil
}

func (r *fakeSyncLogRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*entities.SyncLog
	var removed int64
	for _, entry := range r.entries {
		if entry.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return removed, nil
}

type fakeProvider struct {
	caps calendar.Capabilities

	window      *calendar.DeltaResult
	windowErrs  []error
	blockWindow bool
	changes     *calendar.DeltaResult
	changesErr  error
	mintToken   string
	mintErr     error

	windowCalls  int
	changesCalls int
	mintCalls    int
	lastCursor   string
}

func (p *fakeProvider) Capabilities() calendar.Capabilities {
	return p.caps
}

func (p *fakeProvider) ListWindow(ctx context.Context, token *oauth2.Token, calendarID string, from, to time.Time) (*calendar.DeltaResult, error) {
	p.windowCalls++
	if p.blockWindow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if len(p.windowErrs) > 0 {
		err := p.windowErrs[0]
		p.windowErrs = p.windowErrs[1:]
		return nil, err
	}
	if p.window == nil {
		return &calendar.DeltaResult{}, nil
	}
	return p.window, nil
}

func (p *fakeProvider) ListChanges(ctx context.Context, token *oauth2.Token, calendarID, syncToken string) (*calendar.DeltaResult, error) {
	p.changesCalls++
	p.lastCursor = syncToken
	if p.changesErr != nil {
		return nil, p.changesErr
	}
	if p.changes == nil {
		return &calendar.DeltaResult{}, nil
	}
	return p.changes, nil
}

func (p *fakeProvider) MintSyncToken(ctx context.Context, token *oauth2.Token, calendarID string) (string, error) {
	p.mintCalls++
	return p.mintToken, p.mintErr
}

func (p *fakeProvider) Watch(ctx context.Context, token *oauth2.Token, calendarID, channelID, channelToken string) (*calendar.WatchChannel, error) {
	return nil, &calendar.ProviderError{Kind: calendar.KindUnavailable, Message: "watch not supported"}
}

func (p *fakeProvider) StopWatch(ctx context.Context, token *oauth2.Token, subscriptionID, resourceID string) error {
	return nil
}

type fakeBots struct {
	enabled   bool
	err       error
	cancelErr error
	scheduled []string
	cancelled []string
}

func (b *fakeBots) Enabled() bool {
	return b.enabled
}

func (b *fakeBots) ScheduleBot(ctx context.Context, meetingURL string, joinAt time.Time, cfg []byte) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.scheduled = append(b.scheduled, meetingURL)
	return fmt.Sprintf("bot-%d", len(b.scheduled)), nil
}

func (b *fakeBots) CancelBot(ctx context.Context, botID string) error {
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancelled = append(b.cancelled, botID)
	return nil
}

type fakeRefresher struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}
