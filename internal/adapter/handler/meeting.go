package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/meetsync-team/meetsync/errors"
	"github.com/meetsync-team/meetsync/internal/domain/repositories"
)

// Meeting handles meeting read requests
type Meeting struct {
	meetingRepo repositories.MeetingRepository
	logger      *zap.Logger
}

// NewMeeting creates a new meeting handler
func NewMeeting(meetingRepo repositories.MeetingRepository, logger *zap.Logger) *Meeting {
	return &Meeting{
		meetingRepo: meetingRepo,
		logger:      logger,
	}
}

// List returns the current user's meetings inside a time window.
// Defaults to the next 30 days when no range is given.
// @Summary List meetings
// @Router /v1/meetings [get]
func (h *Meeting) List(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	from := time.Now()
	to := from.AddDate(0, 0, 30)

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return HandleError(h.logger, c, apperrors.ErrInvalidArgument("from must be RFC3339"))
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return HandleError(h.logger, c, apperrors.ErrInvalidArgument("to must be RFC3339"))
		}
		to = parsed
	}
	if !from.Before(to) {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("from must precede to"))
	}

	meetings, err := h.meetingRepo.ListByUser(c.Request().Context(), user.ID, from, to)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	return HandleSuccess(h.logger, c, meetings)
}
