package watch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
	"github.com/meetsync-team/meetsync/internal/usecase/sync"
	"github.com/meetsync-team/meetsync/pkg/config"
)

// Manager drives the push-notification channel lifecycle: setup, renewal
// ahead of expiry, and best-effort teardown. At most one active channel
// exists per (user, calendar); Setup always upserts.
type Manager struct {
	watchRepo repositories.WatchRepository
	userRepo  repositories.UserRepository
	provider  calendar.Provider
	creds     *sync.CredentialProvider
	cfg       config.WatchConfig
	logger    *zap.Logger
}

// NewManager creates a watch lifecycle manager
func NewManager(
	watchRepo repositories.WatchRepository,
	userRepo repositories.UserRepository,
	provider calendar.Provider,
	creds *sync.CredentialProvider,
	cfg config.WatchConfig,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		watchRepo: watchRepo,
		userRepo:  userRepo,
		provider:  provider,
		creds:     creds,
		cfg:       cfg,
		logger:    logger,
	}
}

// Setup registers a push channel for the user's calendar and persists it.
// The last known sync cursor is carried forward so webhook-triggered pulls
// resume where the previous channel left off.
func (m *Manager) Setup(ctx context.Context, userID uuid.UUID, calendarID string) (*entities.WatchSubscription, error) {
	if !m.provider.Capabilities().PushNotifications {
		return nil, entities.ErrWatchNotSupported
	}

	user, err := m.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := m.creds.GetValidToken(ctx, user)
	if err != nil {
		return nil, err
	}

	syncToken := ""
	if existing, err := m.watchRepo.FindByUser(ctx, userID, calendarID); err == nil {
		syncToken = existing.SyncToken
	} else if !errors.Is(err, entities.ErrWatchNotFound) {
		return nil, err
	}

	channelID := uuid.New().String()
	channel, err := m.provider.Watch(ctx, token, calendarID, channelID, userID.String())
	if err != nil {
		return nil, err
	}

	sub := &entities.WatchSubscription{
		ID:             uuid.New(),
		UserID:         userID,
		CalendarID:     calendarID,
		SubscriptionID: channel.SubscriptionID,
		ResourceID:     channel.ResourceID,
		Expiration:     channel.Expiration,
		SyncToken:      syncToken,
		IsActive:       true,
	}
	if err := m.watchRepo.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	m.logger.Info("watch channel registered",
		zap.String("user_id", userID.String()),
		zap.String("subscription_id", channel.SubscriptionID),
		zap.Time("expiration", channel.Expiration))

	return sub, nil
}

// Renew replaces a channel nearing expiry. A channel with more than the
// renewal threshold left is a no-op. Stopping the old channel is
// best-effort; the provider expires it on its own anyway.
func (m *Manager) Renew(ctx context.Context, sub *entities.WatchSubscription) error {
	if !sub.NeedsRenewal(m.cfg.RenewalThreshold) {
		return nil
	}

	m.stopProviderChannel(ctx, sub)

	if _, err := m.Setup(ctx, sub.UserID, sub.CalendarID); err != nil {
		return err
	}
	return nil
}

// RenewForUser renews the user's channel if it is nearing expiry and
// returns the subscription as it stands afterwards.
func (m *Manager) RenewForUser(ctx context.Context, userID uuid.UUID, calendarID string) (*entities.WatchSubscription, error) {
	sub, err := m.watchRepo.FindByUser(ctx, userID, calendarID)
	if err != nil {
		return nil, err
	}

	if err := m.Renew(ctx, sub); err != nil {
		return nil, err
	}

	return m.watchRepo.FindByUser(ctx, userID, calendarID)
}

// Stop tears down the user's channel. The provider call is best-effort; the
// local row is always marked inactive so it cannot stay active against a
// channel the provider has already forgotten.
func (m *Manager) Stop(ctx context.Context, userID uuid.UUID, calendarID string) error {
	sub, err := m.watchRepo.FindByUser(ctx, userID, calendarID)
	if err != nil {
		return err
	}

	m.stopProviderChannel(ctx, sub)

	return m.watchRepo.Deactivate(ctx, userID, calendarID)
}

// RenewExpiring runs one renewal sweep over channels nearing expiry
func (m *Manager) RenewExpiring(ctx context.Context) {
	subs, err := m.watchRepo.ListExpiring(ctx, m.cfg.RenewalThreshold)
	if err != nil {
		m.logger.Error("renewal sweep failed to list watches", zap.Error(err))
		return
	}

	for _, sub := range subs {
		if err := m.Renew(ctx, sub); err != nil {
			m.logger.Warn("failed to renew watch channel",
				zap.String("user_id", sub.UserID.String()),
				zap.Error(err))
		}
	}
}

// RunRenewalLoop periodically renews expiring channels until ctx is done
func (m *Manager) RunRenewalLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.RenewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RenewExpiring(ctx)
		}
	}
}

func (m *Manager) stopProviderChannel(ctx context.Context, sub *entities.WatchSubscription) {
	if sub.SubscriptionID == "" {
		return
	}

	user, err := m.userRepo.FindByID(ctx, sub.UserID)
	if err != nil {
		m.logger.Warn("failed to load user for watch teardown", zap.Error(err))
		return
	}

	token, err := m.creds.GetValidToken(ctx, user)
	if err != nil {
		m.logger.Warn("failed to get token for watch teardown", zap.Error(err))
		return
	}

	if err := m.provider.StopWatch(ctx, token, sub.SubscriptionID, sub.ResourceID); err != nil {
		m.logger.Warn("failed to stop watch channel",
			zap.String("subscription_id", sub.SubscriptionID),
			zap.Error(err))
	}
}
