package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetsync-team/meetsync/internal/domain/entities"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
	"github.com/meetsync-team/meetsync/internal/usecase/scheduler"
)

// Webhook receives calendar push notifications. Google sends no body; the
// channel identity and event kind travel in X-Goog-* headers.
type Webhook struct {
	watchRepo repositories.WatchRepository
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewWebhook creates a new webhook handler
func NewWebhook(watchRepo repositories.WatchRepository, sched *scheduler.Scheduler, logger *zap.Logger) *Webhook {
	return &Webhook{
		watchRepo: watchRepo,
		scheduler: sched,
		logger:    logger,
	}
}

// Calendar acknowledges a push notification and triggers an incremental
// pull for the owning user. Always answers 200 for known shapes: the
// provider retries on errors and a stale channel is not worth retrying.
// @Summary Calendar push notification receiver
// @Router /v1/webhooks/calendar [post]
func (h *Webhook) Calendar(c echo.Context) error {
	channelID := c.Request().Header.Get("X-Goog-Channel-ID")
	resourceID := c.Request().Header.Get("X-Goog-Resource-ID")
	state := c.Request().Header.Get("X-Goog-Resource-State")
	channelToken := c.Request().Header.Get("X-Goog-Channel-Token")

	if channelID == "" || resourceID == "" {
		return c.NoContent(http.StatusBadRequest)
	}

	// "sync" is the registration handshake, nothing changed yet
	if state == "sync" {
		h.logger.Debug("watch channel handshake",
			zap.String("channel_id", channelID))
		return c.NoContent(http.StatusOK)
	}

	sub, err := h.watchRepo.FindByResourceID(c.Request().Context(), resourceID)
	if err != nil {
		if errors.Is(err, entities.ErrWatchNotFound) {
			// A channel we no longer track, likely replaced by a renewal
			h.logger.Debug("notification for unknown channel",
				zap.String("resource_id", resourceID))
			return c.NoContent(http.StatusOK)
		}
		h.logger.Error("webhook lookup failed", zap.Error(err))
		return c.NoContent(http.StatusInternalServerError)
	}

	// The channel token was set to the owning user id at registration
	if channelToken != "" && channelToken != sub.UserID.String() {
		h.logger.Warn("webhook channel token mismatch",
			zap.String("resource_id", resourceID))
		return c.NoContent(http.StatusForbidden)
	}

	h.logger.Info("calendar change notification",
		zap.String("user_id", sub.UserID.String()),
		zap.String("state", state))

	h.scheduler.Trigger(sub.UserID, entities.SyncTypeWebhook)

	return c.NoContent(http.StatusOK)
}
