package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/response"
)

type notificationService interface {
	Full(ctx context.Context, userID, eventID string) (models.NotificationDiff, error)
	Current(ctx context.Context, userID, eventID string) (models.NotificationDiff, error)
}

// NotificationHandler previews the schedule notification a speaker would receive.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the notification handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Preview godoc
// @Summary Preview a speaker's schedule notification
// @Description mode=current compares the two latest releases, mode=full lists every current session.
// @Tags Notifications
// @Produce json
// @Param eventId path string true "Event ID"
// @Param userId path string true "Speaker user ID"
// @Param mode query string false "current or full" default(current)
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/speakers/{userId}/notifications [get]
func (h *NotificationHandler) Preview(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	userID := requireParam(c, "userId")
	if userID == "" {
		return
	}

	mode := strings.ToLower(strings.TrimSpace(c.DefaultQuery("mode", "current")))
	var (
		diff models.NotificationDiff
		err  error
	)
	switch mode {
	case "current":
		diff, err = h.service.Current(c.Request.Context(), userID, eventID)
	case "full":
		diff, err = h.service.Full(c.Request.Context(), userID, eventID)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mode must be current or full"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, 200, diff, nil, map[string]interface{}{"mode": mode})
}
