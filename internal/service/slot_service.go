package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
)

type slotStore interface {
	ListBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.TalkSlot, error)
	FindByID(ctx context.Context, id string) (*models.TalkSlot, error)
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error
	Update(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type slotScheduleReader interface {
	FindByID(ctx context.Context, eventID, id string) (*models.Schedule, error)
	FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
	LockDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
	EnsureDraft(ctx context.Context, eventID string, now time.Time) (*models.Schedule, error)
}

type submissionReader interface {
	FindByID(ctx context.Context, eventID, id string) (*models.Submission, error)
}

type roomReader interface {
	FindByID(ctx context.Context, eventID, id string) (*models.Room, error)
}

type draftInvalidator interface {
	InvalidateDraft(ctx context.Context, eventID, draftID string)
}

// SlotService edits placements of the draft schedule. Release placements are read-only.
type SlotService struct {
	slots       slotStore
	schedules   slotScheduleReader
	submissions submissionReader
	rooms       roomReader
	audit       auditWriter
	changes     draftInvalidator
	tx          txProvider
	clock       Clock
	logger      *zap.Logger
}

// SlotServiceDeps groups the collaborators of SlotService.
type SlotServiceDeps struct {
	Slots       slotStore
	Schedules   slotScheduleReader
	Submissions submissionReader
	Rooms       roomReader
	Audit       auditWriter
	Changes     draftInvalidator
	Tx          txProvider
	Clock       Clock
	Logger      *zap.Logger
}

// NewSlotService constructs the draft slot editor.
func NewSlotService(deps SlotServiceDeps) *SlotService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SlotService{
		slots:       deps.Slots,
		schedules:   deps.Schedules,
		submissions: deps.Submissions,
		rooms:       deps.Rooms,
		audit:       deps.Audit,
		changes:     deps.Changes,
		tx:          deps.Tx,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// ListDraft returns every placement of the draft.
func (s *SlotService) ListDraft(ctx context.Context, eventID string) ([]models.TalkSlot, error) {
	draft, err := s.draft(ctx, eventID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListBySchedule(ctx, nil, draft.ID)
	if err != nil {
		return nil, internalError(err, "failed to list draft slots")
	}
	if slots == nil {
		slots = []models.TalkSlot{}
	}
	return slots, nil
}

// Create places a submission into the draft.
func (s *SlotService) Create(ctx context.Context, eventID, actorID string, input models.SlotInput) (slot *models.TalkSlot, err error) {
	if input.SubmissionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission_id is required")
	}
	if _, err := s.submissions.FindByID(ctx, eventID, input.SubmissionID); err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to load submission")
	}

	slot = &models.TalkSlot{SubmissionID: input.SubmissionID, IsVisible: true}
	if err := s.apply(ctx, eventID, slot, input); err != nil {
		return nil, err
	}

	if _, err := s.draft(ctx, eventID); err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	draft, err := s.lockDraft(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	slot.ScheduleID = draft.ID

	if err = s.slots.Create(ctx, tx, slot); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "submission is already placed in the draft")
		}
		return nil, internalError(err, "failed to create slot")
	}
	if err = s.writeAudit(ctx, tx, models.AuditActionSlotCreate, actorID, slot.ID, nil, slot); err != nil {
		return nil, internalError(err, "failed to write audit log")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit slot")
	}

	s.invalidate(ctx, eventID, draft.ID)
	return slot, nil
}

// Update edits room, time or visibility of a draft placement.
func (s *SlotService) Update(ctx context.Context, eventID, slotID, actorID string, input models.SlotInput) (slot *models.TalkSlot, err error) {
	slot, schedule, err := s.draftSlot(ctx, eventID, slotID)
	if err != nil {
		return nil, err
	}
	before := *slot
	if err := s.apply(ctx, eventID, slot, input); err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lockSlotDraft(ctx, tx, eventID, slot); err != nil {
		return nil, err
	}
	if err = s.slots.Update(ctx, tx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, internalError(err, "failed to update slot")
	}
	if err = s.writeAudit(ctx, tx, models.AuditActionSlotUpdate, actorID, slot.ID, &before, slot); err != nil {
		return nil, internalError(err, "failed to write audit log")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit slot")
	}

	s.invalidate(ctx, eventID, schedule.ID)
	return slot, nil
}

// Delete removes a draft placement.
func (s *SlotService) Delete(ctx context.Context, eventID, slotID, actorID string) (err error) {
	slot, schedule, err := s.draftSlot(ctx, eventID, slotID)
	if err != nil {
		return err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lockSlotDraft(ctx, tx, eventID, slot); err != nil {
		return err
	}
	if err = s.slots.Delete(ctx, tx, slot.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return internalError(err, "failed to delete slot")
	}
	if err = s.writeAudit(ctx, tx, models.AuditActionSlotDelete, actorID, slot.ID, slot, nil); err != nil {
		return internalError(err, "failed to write audit log")
	}
	if err = tx.Commit(); err != nil {
		return internalError(err, "failed to commit slot removal")
	}

	s.invalidate(ctx, eventID, schedule.ID)
	return nil
}

func (s *SlotService) draft(ctx context.Context, eventID string) (*models.Schedule, error) {
	draft, err := s.schedules.FindDraft(ctx, nil, eventID)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load draft schedule")
	}
	draft, err = s.schedules.EnsureDraft(ctx, eventID, s.clock.now())
	if err != nil {
		return nil, internalError(err, "failed to create draft schedule")
	}
	return draft, nil
}

// lockDraft locks the draft row for the rest of tx. A freeze holding the lock
// releases the draft, so a missing row means the edit lost the race.
func (s *SlotService) lockDraft(ctx context.Context, tx sqlx.ExtContext, eventID string) (*models.Schedule, error) {
	draft, err := s.schedules.LockDraft(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "the draft was just released, retry the change")
		}
		return nil, internalError(err, "failed to lock draft schedule")
	}
	return draft, nil
}

// lockSlotDraft locks the draft and checks the slot still belongs to it.
func (s *SlotService) lockSlotDraft(ctx context.Context, tx sqlx.ExtContext, eventID string, slot *models.TalkSlot) error {
	draft, err := s.lockDraft(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if draft.ID != slot.ScheduleID {
		return appErrors.Clone(appErrors.ErrFinalized, "slots of a release cannot be changed")
	}
	return nil
}

// draftSlot loads a slot of the event and rejects placements of releases.
func (s *SlotService) draftSlot(ctx context.Context, eventID, slotID string) (*models.TalkSlot, *models.Schedule, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, nil, notFoundOr(err, "slot not found", "failed to load slot")
	}
	schedule, err := s.schedules.FindByID(ctx, eventID, slot.ScheduleID)
	if err != nil {
		return nil, nil, notFoundOr(err, "slot not found", "failed to load schedule")
	}
	if !schedule.IsDraft() {
		return nil, nil, appErrors.Clone(appErrors.ErrFinalized, "slots of a release cannot be changed")
	}
	return slot, schedule, nil
}

func (s *SlotService) apply(ctx context.Context, eventID string, slot *models.TalkSlot, input models.SlotInput) error {
	switch {
	case input.ClearRoom:
		slot.RoomID = nil
	case input.RoomID != nil && *input.RoomID != "":
		if _, err := s.rooms.FindByID(ctx, eventID, *input.RoomID); err != nil {
			return notFoundOr(err, "room not found", "failed to load room")
		}
		room := *input.RoomID
		slot.RoomID = &room
	}

	if input.ClearTime {
		slot.StartAt, slot.EndAt = nil, nil
	}
	if input.StartAt != nil {
		start := input.StartAt.UTC()
		slot.StartAt = &start
	}
	if input.EndAt != nil {
		end := input.EndAt.UTC()
		slot.EndAt = &end
	}
	if input.IsVisible != nil {
		slot.IsVisible = *input.IsVisible
	}

	if slot.StartAt != nil && slot.EndAt != nil && slot.EndAt.Before(*slot.StartAt) {
		return appErrors.Clone(appErrors.ErrMalformedInterval, "end must not be before start")
	}
	return nil
}

func (s *SlotService) writeAudit(ctx context.Context, exec sqlx.ExtContext, action, actorID, slotID string, before, after *models.TalkSlot) error {
	if s.audit == nil {
		return nil
	}
	entry := &models.AuditLog{
		UserID:     stringPtr(actorID),
		Action:     action,
		Resource:   "talk_slot",
		ResourceID: &slotID,
		CreatedAt:  s.clock.now(),
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		entry.OldValues = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		entry.NewValues = payload
	}
	return s.audit.Create(ctx, exec, entry)
}

func (s *SlotService) invalidate(ctx context.Context, eventID, draftID string) {
	if s.changes != nil {
		s.changes.InvalidateDraft(ctx, eventID, draftID)
	}
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, internal)
}
