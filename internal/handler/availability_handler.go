package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/conf-schedule-api/internal/dto"
	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/interval"
	"github.com/noah-isme/conf-schedule-api/pkg/response"
)

type availabilityService interface {
	Replace(ctx context.Context, owner models.AvailabilityOwner, windows []interval.Window) ([]interval.Window, error)
	Read(ctx context.Context, owner models.AvailabilityOwner) ([]interval.Window, error)
}

// AvailabilityHandler reads and replaces room and speaker availability.
type AvailabilityHandler struct {
	service   availabilityService
	validator *validator.Validate
}

// NewAvailabilityHandler constructs the availability handler.
func NewAvailabilityHandler(service availabilityService, validate *validator.Validate) *AvailabilityHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityHandler{service: service, validator: validate}
}

// GetRoom godoc
// @Summary Merged availability of a room
// @Tags Availability
// @Produce json
// @Param eventId path string true "Event ID"
// @Param roomId path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/rooms/{roomId}/availabilities [get]
func (h *AvailabilityHandler) GetRoom(c *gin.Context) {
	h.read(c, "roomId")
}

// ReplaceRoom godoc
// @Summary Replace the availability of a room
// @Tags Availability
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param roomId path string true "Room ID"
// @Param payload body dto.ReplaceAvailabilityRequest true "Windows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{eventId}/rooms/{roomId}/availabilities [put]
func (h *AvailabilityHandler) ReplaceRoom(c *gin.Context) {
	h.replace(c, "roomId")
}

// GetSpeaker godoc
// @Summary Merged availability of a speaker
// @Tags Availability
// @Produce json
// @Param eventId path string true "Event ID"
// @Param userId path string true "Speaker user ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/speakers/{userId}/availabilities [get]
func (h *AvailabilityHandler) GetSpeaker(c *gin.Context) {
	h.read(c, "userId")
}

// ReplaceSpeaker godoc
// @Summary Replace the availability of a speaker
// @Tags Availability
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param userId path string true "Speaker user ID"
// @Param payload body dto.ReplaceAvailabilityRequest true "Windows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/{eventId}/speakers/{userId}/availabilities [put]
func (h *AvailabilityHandler) ReplaceSpeaker(c *gin.Context) {
	h.replace(c, "userId")
}

func (h *AvailabilityHandler) read(c *gin.Context, ownerParam string) {
	owner, ok := availabilityOwner(c, ownerParam)
	if !ok {
		return
	}
	windows, err := h.service.Read(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAvailabilityResponse(windows))
}

func (h *AvailabilityHandler) replace(c *gin.Context, ownerParam string) {
	owner, ok := availabilityOwner(c, ownerParam)
	if !ok {
		return
	}
	var req dto.ReplaceAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "start and end are required"))
		return
	}
	windows, err := h.service.Replace(c.Request.Context(), owner, req.Windows())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAvailabilityResponse(windows))
}

func availabilityOwner(c *gin.Context, ownerParam string) (models.AvailabilityOwner, bool) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return models.AvailabilityOwner{}, false
	}
	id := requireParam(c, ownerParam)
	if id == "" {
		return models.AvailabilityOwner{}, false
	}
	owner := models.AvailabilityOwner{EventID: eventID}
	if ownerParam == "roomId" {
		owner.RoomID = id
	} else {
		owner.PersonID = id
	}
	return owner, true
}
