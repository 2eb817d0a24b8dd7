package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
	"github.com/meetsync-team/meetsync/internal/usecase/sync"
	"github.com/meetsync-team/meetsync/pkg/config"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*entities.User
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
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) FindByOAuth(ctx context.Context, provider, oauthID string) (*entities.User, error) {
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entities.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateOAuthTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (r *fakeUserRepo) ListConnected(ctx context.Context) ([]*entities.User, error) {
	return nil, nil
}

type fakeWatchRepo struct {
	subs map[string]*entities.WatchSubscription
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

type fakeProvider struct {
	caps     calendar.Capabilities
	channel  *calendar.WatchChannel
	watchErr error
	stopErr  error

	watchCalls       int
	stopCalls        int
	lastChannelToken string
}

func (p *fakeProvider) Capabilities() calendar.Capabilities {
	return p.caps
}

func (p *fakeProvider) ListWindow(ctx context.Context, token *oauth2.Token, calendarID string, from, to time.Time) (*calendar.DeltaResult, error) {
	return &calendar.DeltaResult{}, nil
}

func (p *fakeProvider) ListChanges(ctx context.Context, token *oauth2.Token, calendarID, syncToken string) (*calendar.DeltaResult, error) {
	return &calendar.DeltaResult{}, nil
}

func (p *fakeProvider) MintSyncToken(ctx context.Context, token *oauth2.Token, calendarID string) (string, error) {
	return "", nil
}

func (p *fakeProvider) Watch(ctx context.Context, token *oauth2.Token, calendarID, channelID, channelToken string) (*calendar.WatchChannel, error) {
	p.watchCalls++
	p.lastChannelToken = channelToken
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	return p.channel, nil
}

func (p *fakeProvider) StopWatch(ctx context.Context, token *oauth2.Token, subscriptionID, resourceID string) error {
	p.stopCalls++
	return p.stopErr
}

type fakeRefresher struct{}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
}

type watchEnv struct {
	users    *fakeUserRepo
	watches  *fakeWatchRepo
	provider *fakeProvider
	manager  *Manager
}

func newWatchEnv() *watchEnv {
	env := &watchEnv{
		users:   &fakeUserRepo{users: make(map[uuid.UUID]*entities.User)},
		watches: &fakeWatchRepo{subs: make(map[string]*entities.WatchSubscription)},
		provider: &fakeProvider{
			caps: calendar.Capabilities{IncrementalSync: true, PushNotifications: true},
			channel: &calendar.WatchChannel{
				SubscriptionID: "chan-new",
				ResourceID:     "res-new",
				Expiration:     time.Now().Add(7 * 24 * time.Hour),
			},
		},
	}

	logger := zap.NewNop()
	creds := sync.NewCredentialProvider(env.users, &fakeRefresher{}, logger)
	cfg := config.WatchConfig{
		TTL:              7 * 24 * time.Hour,
		RenewalThreshold: 24 * time.Hour,
		RenewalInterval:  time.Hour,
	}
	env.manager = NewManager(env.watches, env.users, env.provider, creds, cfg, logger)
	return env
}

func (e *watchEnv) addOAuthUser() *entities.User {
	access := "stored-access"
	refresh := "stored-refresh"
	expiry := time.Now().Add(time.Hour)
	user := entities.NewUser("dana@example.com", "Dana")
	user.OAuthAccessToken = &access
	user.OAuthRefreshToken = &refresh
	user.OAuthTokenExpiry = &expiry
	e.users.users[user.ID] = user
	return user
}

func TestSetupUpsertsSingleChannel(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()

	sub, err := env.manager.Setup(context.Background(), user.ID, "primary")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if sub.SubscriptionID != "chan-new" || sub.ResourceID != "res-new" {
		t.Errorf("unexpected channel identity: %s/%s", sub.SubscriptionID, sub.ResourceID)
	}
	if !sub.IsActive {
		t.Error("new subscription should be active")
	}
	if env.provider.lastChannelToken != user.ID.String() {
		t.Errorf("channel token must carry the user id, got %q", env.provider.lastChannelToken)
	}

	env.provider.channel = &calendar.WatchChannel{
		SubscriptionID: "chan-replaced",
		ResourceID:     "res-replaced",
		Expiration:     time.Now().Add(7 * 24 * time.Hour),
	}
	if _, err := env.manager.Setup(context.Background(), user.ID, "primary"); err != nil {
		t.Fatalf("second Setup failed: %v", err)
	}

	if len(env.watches.subs) != 1 {
		t.Fatalf("expected one row per (user, calendar), got %d", len(env.watches.subs))
	}
	stored, _ := env.watches.FindByUser(context.Background(), user.ID, "primary")
	if stored.SubscriptionID != "chan-replaced" {
		t.Errorf("re-setup did not replace the channel: %s", stored.SubscriptionID)
	}
}

func TestSetupCarriesSyncTokenForward(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()

	env.watches.subs[watchKey(user.ID, "primary")] = &entities.WatchSubscription{
		UserID:     user.ID,
		CalendarID: "primary",
		SyncToken:  "cursor-9",
		Expiration: time.Now(),
		IsActive:   false,
	}

	sub, err := env.manager.Setup(context.Background(), user.ID, "primary")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if sub.SyncToken != "cursor-9" {
		t.Errorf("sync cursor lost across channel setup, got %q", sub.SyncToken)
	}
}

func TestSetupRejectsUnsupportedProvider(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()
	env.provider.caps = calendar.Capabilities{IncrementalSync: false, PushNotifications: false}

	_, err := env.manager.Setup(context.Background(), user.ID, "primary")
	if !errors.Is(err, entities.ErrWatchNotSupported) {
		t.Fatalf("expected ErrWatchNotSupported, got %v", err)
	}
	if env.provider.watchCalls != 0 {
		t.Errorf("provider must not be called, watchCalls=%d", env.provider.watchCalls)
	}
}

func TestRenewSkipsFreshChannel(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()

	sub := &entities.WatchSubscription{
		UserID:         user.ID,
		CalendarID:     "primary",
		SubscriptionID: "chan-1",
		ResourceID:     "res-1",
		Expiration:     time.Now().Add(72 * time.Hour),
		IsActive:       true,
	}
	env.watches.subs[watchKey(user.ID, "primary")] = sub

	if err := env.manager.Renew(context.Background(), sub); err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if env.provider.watchCalls != 0 || env.provider.stopCalls != 0 {
		t.Errorf("fresh channel must not be touched: watch=%d stop=%d",
			env.provider.watchCalls, env.provider.stopCalls)
	}
}

func TestRenewReplacesExpiringChannel(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()

	sub := &entities.WatchSubscription{
		UserID:         user.ID,
		CalendarID:     "primary",
		SubscriptionID: "chan-old",
		ResourceID:     "res-old",
		Expiration:     time.Now().Add(time.Hour),
		SyncToken:      "cursor-3",
		IsActive:       true,
	}
	env.watches.subs[watchKey(user.ID, "primary")] = sub

	if err := env.manager.Renew(context.Background(), sub); err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if env.provider.stopCalls != 1 || env.provider.watchCalls != 1 {
		t.Errorf("expected old channel stopped and a new one registered: stop=%d watch=%d",
			env.provider.stopCalls, env.provider.watchCalls)
	}

	stored, _ := env.watches.FindByUser(context.Background(), user.ID, "primary")
	if stored.SubscriptionID != "chan-new" {
		t.Errorf("channel not replaced: %s", stored.SubscriptionID)
	}
	if stored.SyncToken != "cursor-3" {
		t.Errorf("sync cursor lost across renewal, got %q", stored.SyncToken)
	}
}

func TestRenewForUserReturnsCurrentSubscription(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()

	env.watches.subs[watchKey(user.ID, "primary")] = &entities.WatchSubscription{
		UserID:         user.ID,
		CalendarID:     "primary",
		SubscriptionID: "chan-old",
		ResourceID:     "res-old",
		Expiration:     time.Now().Add(time.Hour),
		IsActive:       true,
	}

	sub, err := env.manager.RenewForUser(context.Background(), user.ID, "primary")
	if err != nil {
		t.Fatalf("RenewForUser failed: %v", err)
	}
	if sub.SubscriptionID != "chan-new" {
		t.Errorf("expected renewed channel, got %s", sub.SubscriptionID)
	}

	if _, err := env.manager.RenewForUser(context.Background(), uuid.New(), "primary"); !errors.Is(err, entities.ErrWatchNotFound) {
		t.Fatalf("expected ErrWatchNotFound for a user without a channel, got %v", err)
	}
}

func TestStopDeactivatesDespiteProviderFailure(t *testing.T) {
	env := newWatchEnv()
	user := env.addOAuthUser()
	env.provider.stopErr = &calendar.ProviderError{Kind: calendar.KindUnavailable, StatusCode: 500, Message: "backend error"}

	env.watches.subs[watchKey(user.ID, "primary")] = &entities.WatchSubscription{
		UserID:         user.ID,
		CalendarID:     "primary",
		SubscriptionID: "chan-1",
		ResourceID:     "res-1",
		Expiration:     time.Now().Add(24 * time.Hour),
		IsActive:       true,
	}

	if err := env.manager.Stop(context.Background(), user.ID, "primary"); err != nil {
		t.Fatalf("Stop must tolerate provider failures: %v", err)
	}

	stored, _ := env.watches.FindByUser(context.Background(), user.ID, "primary")
	if stored.IsActive {
		t.Error("local row must be deactivated even when the provider call fails")
	}
}
