package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/meetsync-team/meetsync/errors"
	syncdto "github.com/meetsync-team/meetsync/internal/adapter/dto/sync"
	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
	"github.com/meetsync-team/meetsync/internal/usecase/scheduler"
	"github.com/meetsync-team/meetsync/internal/usecase/sync"
	"github.com/meetsync-team/meetsync/internal/usecase/watch"
)

// Sync handles calendar sync HTTP requests: manual triggers, status reads,
// activity signals and watch lifecycle.
type Sync struct {
	syncService  *sync.Service
	watchManager *watch.Manager
	scheduler    *scheduler.Scheduler
	userRepo     repositories.UserRepository
	logger       *zap.Logger
}

// NewSync creates a new sync handler
func NewSync(
	syncService *sync.Service,
	watchManager *watch.Manager,
	sched *scheduler.Scheduler,
	userRepo repositories.UserRepository,
	logger *zap.Logger,
) *Sync {
	return &Sync{
		syncService:  syncService,
		watchManager: watchManager,
		scheduler:    sched,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// Trigger runs a sync pass for the current user right now
// @Summary Trigger a manual calendar sync
// @Router /v1/sync/trigger [post]
func (h *Sync) Trigger(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	log, err := h.syncService.SyncUser(c.Request().Context(), user.ID, entities.SyncTypeManual)
	if err != nil {
		return HandleError(h.logger, c, mapSyncError(user.ID.String(), err))
	}

	return HandleSuccess(h.logger, c, syncdto.TriggerResponse{SyncLog: log})
}

// Status returns the recent sync attempts for the current user
// @Summary Recent sync attempts
// @Router /v1/sync/status [get]
func (h *Sync) Status(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	logs, err := h.syncService.Status(c.Request().Context(), user.ID, limit)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	return HandleSuccess(h.logger, c, syncdto.StatusResponse{Logs: logs})
}

// Activity records a user activity signal for the adaptive scheduler
// @Summary Report user activity
// @Router /v1/sync/activity [post]
func (h *Sync) Activity(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	var req syncdto.ActivitySignalRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	h.scheduler.SignalActivity(user.ID, scheduler.ActivityType(req.Activity))

	return HandleSuccess(h.logger, c, nil)
}

// ConnectFeed attaches a read-only ICS feed to the current user
// @Summary Connect an ICS calendar feed
// @Router /v1/sync/feed [post]
func (h *Sync) ConnectFeed(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	var req syncdto.ConnectFeedRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	user.ICSFeedURL = &req.FeedURL
	if err := h.userRepo.Update(c.Request().Context(), user); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	h.scheduler.Start(user.ID)

	return HandleSuccess(h.logger, c, user)
}

// SetupWatch registers a push notification channel for the current user
// @Summary Register a calendar push channel
// @Router /v1/sync/watch [post]
func (h *Sync) SetupWatch(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sub, err := h.watchManager.Setup(c.Request().Context(), user.ID, "primary")
	if err != nil {
		if errors.Is(err, entities.ErrWatchNotSupported) {
			return HandleError(h.logger, c, apperrors.ErrWatchNotSupported())
		}
		return HandleError(h.logger, c, apperrors.ErrWatchSetupFailed(err))
	}

	return HandleSuccess(h.logger, c, syncdto.WatchResponse{
		SubscriptionID: sub.SubscriptionID,
		Expiration:     sub.Expiration,
		IsActive:       sub.IsActive,
	})
}

// RenewWatch renews the current user's push channel if it is nearing expiry
// @Summary Renew the calendar push channel
// @Router /v1/sync/watch/renew [post]
func (h *Sync) RenewWatch(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sub, err := h.watchManager.RenewForUser(c.Request().Context(), user.ID, "primary")
	if err != nil {
		if errors.Is(err, entities.ErrWatchNotFound) {
			return HandleError(h.logger, c, apperrors.ErrWatchNotFound(user.ID.String()))
		}
		return HandleError(h.logger, c, apperrors.ErrWatchSetupFailed(err))
	}

	return HandleSuccess(h.logger, c, syncdto.WatchResponse{
		SubscriptionID: sub.SubscriptionID,
		Expiration:     sub.Expiration,
		IsActive:       sub.IsActive,
	})
}

// StopWatch tears down the current user's push channel
// @Summary Stop the calendar push channel
// @Router /v1/sync/watch [delete]
func (h *Sync) StopWatch(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	if err := h.watchManager.Stop(c.Request().Context(), user.ID, "primary"); err != nil {
		if errors.Is(err, entities.ErrWatchNotFound) {
			return HandleError(h.logger, c, apperrors.ErrWatchNotFound(user.ID.String()))
		}
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	h.scheduler.Stop(user.ID)

	return HandleSuccess(h.logger, c, nil)
}

// mapSyncError translates domain sync failures into API errors
func mapSyncError(userID string, err error) error {
	switch {
	case errors.Is(err, entities.ErrSyncInProgress):
		return apperrors.ErrSyncInProgress(userID)
	case errors.Is(err, entities.ErrConfigurationMissing):
		return apperrors.ErrSyncNotConnected(userID)
	case errors.Is(err, entities.ErrAuthExpired):
		return apperrors.ErrSyncAuthExpired(err)
	case errors.Is(err, entities.ErrSyncPersistence):
		return apperrors.ErrSyncPersistenceFailed(err)
	default:
		return apperrors.ErrSyncProviderUnavailable(err)
	}
}
