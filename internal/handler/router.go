package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/conf-schedule-api/internal/middleware"
	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// Routes groups the handlers and middleware collaborators mounted under the API prefix.
type Routes struct {
	Schedules     *ScheduleHandler
	Slots         *SlotHandler
	Availability  *AvailabilityHandler
	Notifications *NotificationHandler

	Tokens internalmiddleware.TokenValidator
	Audit  internalmiddleware.AuditWriter
	Logger *zap.Logger
}

// Register mounts the API. Reads accept an optional token, mutations require one.
func (r Routes) Register(group *gin.RouterGroup) {
	optional := internalmiddleware.OptionalJWT(r.Tokens)
	required := internalmiddleware.JWT(r.Tokens)

	events := group.Group("/events/:eventId")

	schedules := events.Group("/schedules")
	schedules.GET("", optional, r.Schedules.List)
	schedules.GET("/:version", optional, r.Schedules.Get)
	schedules.GET("/:version/changes", optional, r.Schedules.Changes)
	schedules.GET("/:version/warnings", required, r.Schedules.Warnings)
	schedules.POST("", required, r.Schedules.Freeze)
	schedules.POST("/:version/unfreeze", required, r.Schedules.Unfreeze)
	events.GET("/unreleased-changes", required, r.Schedules.UnreleasedChanges)

	slots := events.Group("/slots", required)
	slots.GET("", r.Slots.List)
	slots.POST("", r.Slots.Create)
	slots.PATCH("/:slotId", r.Slots.Update)
	slots.DELETE("/:slotId", r.Slots.Delete)

	rooms := events.Group("/rooms/:roomId")
	rooms.GET("/availabilities", optional, r.Availability.GetRoom)
	rooms.PUT("/availabilities", required,
		internalmiddleware.Audit(r.Audit, r.Logger, models.AuditActionAvailability, "room", "roomId"),
		r.Availability.ReplaceRoom)

	speakers := events.Group("/speakers/:userId")
	speakers.GET("/availabilities", optional, r.Availability.GetSpeaker)
	speakers.PUT("/availabilities", required,
		internalmiddleware.Audit(r.Audit, r.Logger, models.AuditActionAvailability, "speaker", "userId"),
		r.Availability.ReplaceSpeaker)
	speakers.GET("/notifications", required, r.Notifications.Preview)
}
