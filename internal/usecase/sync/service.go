package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
	"github.com/meetsync-team/meetsync/internal/infrastructure/external/calendar"
	"github.com/meetsync-team/meetsync/pkg/config"
)

// BotGateway schedules and withdraws transcription bots for meetings
type BotGateway interface {
	Enabled() bool
	ScheduleBot(ctx context.Context, meetingURL string, joinAt time.Time, cfg []byte) (string, error)
	CancelBot(ctx context.Context, botID string) error
}

// Service runs calendar reconciliation for users. Reconciliation per user is
// single-writer: concurrent triggers for the same user are rejected with
// ErrSyncInProgress and coalesce onto the running pass.
type Service struct {
	userRepo    repositories.UserRepository
	meetingRepo repositories.MeetingRepository
	watchRepo   repositories.WatchRepository
	syncLogRepo repositories.SyncLogRepository

	google calendar.Provider
	ics    calendar.Provider
	creds  *CredentialProvider
	bots   BotGateway

	cfg    config.SyncConfig
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewService creates the sync service
func NewService(
	userRepo repositories.UserRepository,
	meetingRepo repositories.MeetingRepository,
	watchRepo repositories.WatchRepository,
	syncLogRepo repositories.SyncLogRepository,
	google calendar.Provider,
	ics calendar.Provider,
	creds *CredentialProvider,
	bots BotGateway,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		meetingRepo: meetingRepo,
		watchRepo:   watchRepo,
		syncLogRepo: syncLogRepo,
		google:      google,
		ics:         ics,
		creds:       creds,
		bots:        bots,
		cfg:         cfg,
		logger:      logger,
		inFlight:    make(map[uuid.UUID]bool),
	}
}

// SyncUser runs one reconciliation pass for the user and records the outcome
// in the audit log. The returned log entry carries the change counts the
// scheduler feeds on.
func (s *Service) SyncUser(ctx context.Context, userID uuid.UUID, trigger entities.SyncType) (*entities.SyncLog, error) {
	if !s.acquire(userID) {
		return nil, entities.ErrSyncInProgress
	}
	defer s.release(userID)

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	provider, token, calendarID, err := s.resolveBackend(ctx, user)
	if err != nil {
		// Missing configuration and dead credentials are audit-worthy
		// outcomes like any other failed pass
		return s.finishFailed(ctx, entities.NewSyncLog(userID, trigger), err)
	}

	syncToken := s.storedSyncToken(ctx, userID, calendarID)
	log := entities.NewSyncLog(userID, syncTypeFor(trigger, syncToken != ""))

	d, err := s.fetchWithReauth(ctx, provider, token, user, calendarID, syncToken)
	if err != nil {
		return s.finishFailed(ctx, log, err)
	}

	result, err := s.reconcile(ctx, user, d)
	if err != nil {
		// Cursor not advanced: the same window is retried next cycle
		return s.finishFailed(ctx, log, err)
	}

	if d.result.NextSyncToken != "" {
		s.storeSyncToken(ctx, userID, calendarID, d.result.NextSyncToken)
	}

	s.scheduleBots(ctx, user, result.CreatedMeetings)

	log.Complete(result.Processed, result.Created, result.Updated, result.Deleted)
	if err := s.syncLogRepo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to write sync log", zap.Error(err))
	}

	s.logger.Info("sync completed",
		zap.String("user_id", userID.String()),
		zap.String("sync_type", string(log.SyncType)),
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted))

	return log, nil
}

// Status returns the most recent sync outcomes for a user
func (s *Service) Status(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.SyncLog, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.syncLogRepo.ListRecentByUser(ctx, userID, limit)
}

// PruneLogs removes audit entries older than the retention window
func (s *Service) PruneLogs(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.LogRetention)
	removed, err := s.syncLogRepo.PruneOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warn("failed to prune sync logs", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("pruned sync logs", zap.Int64("removed", removed))
	}
}

// resolveBackend picks the calendar backend for the user. OAuth credentials
// select the primary provider; an ICS feed is the read-only fallback.
func (s *Service) resolveBackend(ctx context.Context, user *entities.User) (calendar.Provider, *oauth2.Token, string, error) {
	if user.HasCalendarCredentials() {
		token, err := s.creds.GetValidToken(ctx, user)
		if err != nil {
			return nil, nil, "", err
		}
		return s.google, token, "primary", nil
	}

	if user.HasICSFeed() {
		return s.ics, nil, *user.ICSFeedURL, nil
	}

	return nil, nil, "", entities.ErrConfigurationMissing
}

// fetchWithReauth pulls a delta, allowing exactly one re-authentication
// retry when the provider rejects the token mid-flight.
func (s *Service) fetchWithReauth(ctx context.Context, provider calendar.Provider, token *oauth2.Token, user *entities.User, calendarID, syncToken string) (*delta, error) {
	d, err := s.fetchDelta(ctx, provider, token, calendarID, syncToken)
	if err == nil || !calendar.IsAuthExpired(err) {
		return d, err
	}

	s.logger.Info("provider rejected token, re-authenticating",
		zap.String("user_id", user.ID.String()))

	fresh, refreshErr := s.creds.ForceRefresh(ctx, user)
	if refreshErr != nil {
		return nil, refreshErr
	}
	return s.fetchDelta(ctx, provider, fresh, calendarID, syncToken)
}

// storedSyncToken loads the incremental cursor persisted alongside the
// user's watch row, empty when none exists
func (s *Service) storedSyncToken(ctx context.Context, userID uuid.UUID, calendarID string) string {
	sub, err := s.watchRepo.FindByUser(ctx, userID, calendarID)
	if err != nil {
		if !errors.Is(err, entities.ErrWatchNotFound) {
			s.logger.Warn("failed to load sync token", zap.Error(err))
		}
		return ""
	}
	return sub.SyncToken
}

// storeSyncToken persists the cursor, creating a token-only row when the
// user has no push channel yet
func (s *Service) storeSyncToken(ctx context.Context, userID uuid.UUID, calendarID, syncToken string) {
	err := s.watchRepo.UpdateSyncToken(ctx, userID, calendarID, syncToken)
	if err == nil {
		return
	}
	if !errors.Is(err, entities.ErrWatchNotFound) {
		s.logger.Warn("failed to store sync token", zap.Error(err))
		return
	}

	sub := &entities.WatchSubscription{
		ID:         uuid.New(),
		UserID:     userID,
		CalendarID: calendarID,
		Expiration: time.Now(),
		SyncToken:  syncToken,
		IsActive:   false,
	}
	if err := s.watchRepo.Upsert(ctx, sub); err != nil {
		s.logger.Warn("failed to store sync token", zap.Error(err))
	}
}

// scheduleBots requests a transcription bot for each newly created future
// meeting of an auto-record user. Gateway failures are logged per meeting,
// never failing the sync pass.
func (s *Service) scheduleBots(ctx context.Context, user *entities.User, created []*entities.Meeting) {
	if !user.AutoRecord || s.bots == nil || !s.bots.Enabled() {
		return
	}

	for _, meeting := range created {
		if meeting.MeetingURL == nil || meeting.StartTime.Before(time.Now()) {
			continue
		}

		botID, err := s.bots.ScheduleBot(ctx, *meeting.MeetingURL, meeting.StartTime, meeting.BotConfiguration)
		if err != nil {
			s.logger.Warn("failed to schedule bot",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
			continue
		}

		if err := s.meetingRepo.UpdateBotState(ctx, meeting.ID, entities.BotStatusScheduled, &botID); err != nil {
			s.logger.Warn("failed to record scheduled bot",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
	}
}

// cancelBot withdraws the bot of a meeting whose remote event disappeared.
// Best-effort: a gateway failure never fails the tombstone.
func (s *Service) cancelBot(ctx context.Context, meeting *entities.Meeting) {
	if meeting.BotID == nil || s.bots == nil || !s.bots.Enabled() {
		return
	}
	if err := s.bots.CancelBot(ctx, *meeting.BotID); err != nil {
		s.logger.Warn("failed to cancel bot",
			zap.String("meeting_id", meeting.ID.String()),
			zap.String("bot_id", *meeting.BotID),
			zap.Error(err))
	}
}

func (s *Service) finishFailed(ctx context.Context, log *entities.SyncLog, cause error) (*entities.SyncLog, error) {
	log.Fail(cause.Error())
	if err := s.syncLogRepo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to write sync log", zap.Error(err))
	}

	s.logger.Error("sync failed",
		zap.String("user_id", log.UserID.String()),
		zap.String("sync_type", string(log.SyncType)),
		zap.Error(cause))

	return log, fmt.Errorf("sync failed for user %s: %w", log.UserID, cause)
}

func (s *Service) acquire(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return false
	}
	s.inFlight[userID] = true
	return true
}

func (s *Service) release(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}
