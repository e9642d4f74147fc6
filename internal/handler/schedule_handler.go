package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/conf-schedule-api/internal/dto"
	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/response"
)

type scheduleReleaseService interface {
	Freeze(ctx context.Context, req models.FreezeRequest) (*models.FreezeResult, error)
	Unfreeze(ctx context.Context, eventID, version, actorID string) (*models.UnfreezeResult, error)
	ListReleases(ctx context.Context, eventID string) ([]models.Schedule, error)
	GetRelease(ctx context.Context, eventID, version string) (*models.Schedule, error)
	Snapshot(ctx context.Context, eventID, version string, visibleOnly bool) (*models.ScheduleSnapshot, error)
}

type scheduleChangesService interface {
	Changes(ctx context.Context, schedule *models.Schedule) (*models.ScheduleChanges, error)
	HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error)
}

type scheduleWarningService interface {
	Warnings(ctx context.Context, eventID string) (*models.ScheduleWarnings, error)
}

// ScheduleHandler exposes schedule releases, the draft and their changelogs.
type ScheduleHandler struct {
	releases scheduleReleaseService
	changes  scheduleChangesService
	warnings scheduleWarningService
}

// NewScheduleHandler constructs the schedule handler.
func NewScheduleHandler(releases scheduleReleaseService, changes scheduleChangesService, warnings scheduleWarningService) *ScheduleHandler {
	return &ScheduleHandler{releases: releases, changes: changes, warnings: warnings}
}

// List godoc
// @Summary List schedule releases
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	releases, err := h.releases.ListReleases(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, releases, nil, map[string]interface{}{"count": len(releases)})
}

// Freeze godoc
// @Summary Release the current draft
// @Tags Schedules
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.FreezeScheduleRequest true "Release payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{eventId}/schedules [post]
func (h *ScheduleHandler) Freeze(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	var req dto.FreezeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid release payload"))
		return
	}
	result, err := h.releases.Freeze(c.Request.Context(), req.ToModel(eventID, actorID(c)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a schedule snapshot with its placements
// @Description "latest" resolves to the current release, "wip" to the draft (authentication required).
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Param version path string true "Version name, latest or wip"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{eventId}/schedules/{version} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	eventID, version, ok := h.versionParams(c)
	if !ok {
		return
	}
	snapshot, err := h.releases.Snapshot(c.Request.Context(), eventID, version, !isDraftVersion(version))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snapshot)
}

// Changes godoc
// @Summary Changelog of a snapshot against the previous release
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Param version path string true "Version name, latest or wip"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/schedules/{version}/changes [get]
func (h *ScheduleHandler) Changes(c *gin.Context) {
	eventID, version, ok := h.versionParams(c)
	if !ok {
		return
	}
	schedule, err := h.releases.GetRelease(c.Request.Context(), eventID, version)
	if err != nil {
		response.Error(c, err)
		return
	}
	changes, err := h.changes.Changes(c.Request.Context(), schedule)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, changes)
}

// Unfreeze godoc
// @Summary Reset the draft to an earlier release
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Param version path string true "Version name or latest"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{eventId}/schedules/{version}/unfreeze [post]
func (h *ScheduleHandler) Unfreeze(c *gin.Context) {
	eventID, version, ok := h.versionParams(c)
	if !ok {
		return
	}
	result, err := h.releases.Unfreeze(c.Request.Context(), eventID, version, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Warnings godoc
// @Summary Advisory warnings of the draft
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Param version path string true "Must be wip"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/schedules/{version}/warnings [get]
func (h *ScheduleHandler) Warnings(c *gin.Context) {
	eventID, version, ok := h.versionParams(c)
	if !ok {
		return
	}
	if !isDraftVersion(version) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "warnings are only available for the draft"))
		return
	}
	warnings, err := h.warnings.Warnings(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, warnings)
}

// UnreleasedChanges godoc
// @Summary Whether the draft differs from the current release
// @Tags Schedules
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/unreleased-changes [get]
func (h *ScheduleHandler) UnreleasedChanges(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	has, err := h.changes.HasUnreleasedChanges(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UnreleasedChangesResponse{EventID: eventID, HasUnreleasedWork: has})
}

// versionParams reads eventId and version. The draft is only visible to authenticated users.
func (h *ScheduleHandler) versionParams(c *gin.Context) (string, string, bool) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return "", "", false
	}
	version := requireParam(c, "version")
	if version == "" {
		return "", "", false
	}
	if isDraftVersion(version) && actorID(c) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "the draft requires authentication"))
		return "", "", false
	}
	return eventID, version, true
}

func isDraftVersion(version string) bool {
	return strings.EqualFold(strings.TrimSpace(version), models.ScheduleVersionDraft)
}
