package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/conf-schedule-api/internal/dto"
	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/response"
)

type slotService interface {
	ListDraft(ctx context.Context, eventID string) ([]models.TalkSlot, error)
	Create(ctx context.Context, eventID, actorID string, input models.SlotInput) (*models.TalkSlot, error)
	Update(ctx context.Context, eventID, slotID, actorID string, input models.SlotInput) (*models.TalkSlot, error)
	Delete(ctx context.Context, eventID, slotID, actorID string) error
}

// SlotHandler edits placements of the draft schedule.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs the slot handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// List godoc
// @Summary List draft placements
// @Tags Slots
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	slots, err := h.service.ListDraft(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Create godoc
// @Summary Place a submission into the draft
// @Tags Slots
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.SlotRequest true "Placement"
// @Success 201 {object} response.Envelope
// @Router /events/{eventId}/slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), eventID, actorID(c), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Move, retime or hide a draft placement
// @Tags Slots
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param slotId path string true "Slot ID"
// @Param payload body dto.SlotRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{eventId}/slots/{slotId} [patch]
func (h *SlotHandler) Update(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	slotID := requireParam(c, "slotId")
	if slotID == "" {
		return
	}
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), eventID, slotID, actorID(c), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slot)
}

// Delete godoc
// @Summary Remove a draft placement
// @Tags Slots
// @Param eventId path string true "Event ID"
// @Param slotId path string true "Slot ID"
// @Success 204
// @Router /events/{eventId}/slots/{slotId} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	eventID := requireParam(c, "eventId")
	if eventID == "" {
		return
	}
	slotID := requireParam(c, "slotId")
	if slotID == "" {
		return
	}
	if err := h.service.Delete(c.Request.Context(), eventID, slotID, actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
