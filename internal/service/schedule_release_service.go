package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
)

type releaseScheduleStore interface {
	FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
	LockDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
	CreateDraft(ctx context.Context, exec sqlx.ExtContext, eventID string, now time.Time) (*models.Schedule, error)
	EnsureDraft(ctx context.Context, eventID string, now time.Time) (*models.Schedule, error)
	MarkReleased(ctx context.Context, exec sqlx.ExtContext, id, version string, comment *string, publishedAt time.Time) error
	FindByVersion(ctx context.Context, eventID, version string) (*models.Schedule, error)
	VersionExists(ctx context.Context, eventID, version string) (bool, error)
	HasRelease(ctx context.Context, exec sqlx.ExtContext, eventID string) (bool, error)
	ListReleases(ctx context.Context, eventID string, limit int) ([]models.Schedule, error)
	PreviousRelease(ctx context.Context, eventID string, before *time.Time) (*models.Schedule, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type releaseSlotStore interface {
	ListBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.TalkSlot, error)
	ApplyReleaseVisibility(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error)
	CopyToSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.TalkSlot) ([]models.TalkSlot, error)
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error
}

type changesInvalidator interface {
	InvalidateDraft(ctx context.Context, eventID, draftID string)
	ResetAfterRelease(ctx context.Context, eventID string, scheduleIDs ...string)
}

type releaseNotifier interface {
	NotifyRelease(ctx context.Context, payload models.ReleaseNotifyPayload) error
}

// ScheduleReleaseService manages the draft and the immutable releases of an event schedule.
type ScheduleReleaseService struct {
	schedules releaseScheduleStore
	slots     releaseSlotStore
	audit     auditWriter
	changes   changesInvalidator
	notifier  releaseNotifier
	metrics   *MetricsService
	tx        txProvider
	validator *validator.Validate
	clock     Clock
	logger    *zap.Logger
}

// ScheduleReleaseDeps groups the collaborators of ScheduleReleaseService. Changes,
// Notifier, Metrics and Clock are optional.
type ScheduleReleaseDeps struct {
	Schedules releaseScheduleStore
	Slots     releaseSlotStore
	Audit     auditWriter
	Changes   changesInvalidator
	Notifier  releaseNotifier
	Metrics   *MetricsService
	Tx        txProvider
	Validator *validator.Validate
	Clock     Clock
	Logger    *zap.Logger
}

// NewScheduleReleaseService constructs the release manager.
func NewScheduleReleaseService(deps ScheduleReleaseDeps) *ScheduleReleaseService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ScheduleReleaseService{
		schedules: deps.Schedules,
		slots:     deps.Slots,
		audit:     deps.Audit,
		changes:   deps.Changes,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		tx:        deps.Tx,
		validator: deps.Validator,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// Freeze releases the current draft under req.Version and starts a new draft holding
// copies of every released placement.
func (s *ScheduleReleaseService) Freeze(ctx context.Context, req models.FreezeRequest) (result *models.FreezeResult, err error) {
	req.Version = strings.TrimSpace(req.Version)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid release payload")
	}
	if isReservedVersion(req.Version) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "version name is reserved")
	}

	exists, err := s.schedules.VersionExists(ctx, req.EventID, req.Version)
	if err != nil {
		return nil, internalError(err, "failed to check version")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateVersion, "a release named "+req.Version+" already exists")
	}

	now := s.clock.now()
	if _, err := s.schedules.EnsureDraft(ctx, req.EventID, now); err != nil {
		return nil, internalError(err, "failed to prepare draft schedule")
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

	release, err := s.schedules.LockDraft(ctx, tx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.lostDraft(ctx, req)
		}
		return nil, internalError(err, "failed to lock draft schedule")
	}
	hasPrevious, err := s.schedules.HasRelease(ctx, tx, req.EventID)
	if err != nil {
		return nil, internalError(err, "failed to check previous releases")
	}
	visible, err := s.slots.ApplyReleaseVisibility(ctx, tx, release.ID)
	if err != nil {
		return nil, internalError(err, "failed to apply release visibility")
	}
	slots, err := s.slots.ListBySchedule(ctx, tx, release.ID)
	if err != nil {
		return nil, internalError(err, "failed to load draft slots")
	}

	if err = s.schedules.MarkReleased(ctx, tx, release.ID, req.Version, req.Comment, now); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateVersion.Code, appErrors.ErrDuplicateVersion.Status, "a release named "+req.Version+" already exists")
		}
		return nil, internalError(err, "failed to release schedule")
	}
	version := req.Version
	release.Version = &version
	release.Comment = req.Comment
	release.PublishedAt = &now
	release.UpdatedAt = now

	draft, err := s.schedules.CreateDraft(ctx, tx, req.EventID, now)
	if err != nil {
		return nil, internalError(err, "failed to create draft schedule")
	}
	if _, err = s.slots.CopyToSchedule(ctx, tx, draft.ID, slots); err != nil {
		return nil, internalError(err, "failed to copy slots into draft")
	}

	if err = s.writeAudit(ctx, tx, models.AuditActionScheduleRelease, req.ActorID, release.ID, now, map[string]interface{}{
		"event_id":   req.EventID,
		"version":    version,
		"comment":    req.Comment,
		"slot_count": len(slots),
		"draft_id":   draft.ID,
	}); err != nil {
		return nil, internalError(err, "failed to write audit log")
	}

	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit release")
	}

	if s.changes != nil {
		s.changes.ResetAfterRelease(ctx, req.EventID, release.ID, draft.ID)
	}
	s.metrics.RecordRelease("release")
	s.logger.Info("schedule released",
		zap.String("event_id", req.EventID),
		zap.String("version", version),
		zap.Int("slots", len(slots)),
		zap.Int64("visible", visible),
	)

	if req.NotifySpeakers && hasPrevious && s.notifier != nil {
		payload := models.ReleaseNotifyPayload{EventID: req.EventID, ScheduleID: release.ID}
		if notifyErr := s.notifier.NotifyRelease(ctx, payload); notifyErr != nil {
			s.logger.Warn("failed to schedule release notifications", zap.String("schedule_id", release.ID), zap.Error(notifyErr))
		}
	}

	return &models.FreezeResult{Release: release, Draft: draft, SlotCount: len(slots)}, nil
}

// lostDraft reports a freeze whose draft was released by a concurrent freeze
// between the draft preparation and the lock.
func (s *ScheduleReleaseService) lostDraft(ctx context.Context, req models.FreezeRequest) error {
	exists, err := s.schedules.VersionExists(ctx, req.EventID, req.Version)
	if err != nil {
		return internalError(err, "failed to check version")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateVersion, "a release named "+req.Version+" already exists")
	}
	return appErrors.Clone(appErrors.ErrConflict, "the draft was released concurrently, retry the release")
}

// CurrentSchedule returns the most recently published release, or nil when none exists.
func (s *ScheduleReleaseService) CurrentSchedule(ctx context.Context, eventID string) (*models.Schedule, error) {
	release, err := s.schedules.PreviousRelease(ctx, eventID, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load current release")
	}
	return release, nil
}

// DraftSchedule returns the event's draft, creating it on first access.
func (s *ScheduleReleaseService) DraftSchedule(ctx context.Context, eventID string) (*models.Schedule, error) {
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

// ListReleases returns every release of the event, most recent first.
func (s *ScheduleReleaseService) ListReleases(ctx context.Context, eventID string) ([]models.Schedule, error) {
	releases, err := s.schedules.ListReleases(ctx, eventID, 0)
	if err != nil {
		return nil, internalError(err, "failed to list releases")
	}
	if releases == nil {
		releases = []models.Schedule{}
	}
	return releases, nil
}

// GetRelease resolves a version name. "wip" is the draft and "latest" the current release.
func (s *ScheduleReleaseService) GetRelease(ctx context.Context, eventID, version string) (*models.Schedule, error) {
	version = strings.TrimSpace(version)
	switch {
	case version == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "version is required")
	case strings.EqualFold(version, models.ScheduleVersionDraft):
		return s.DraftSchedule(ctx, eventID)
	case strings.EqualFold(version, models.ScheduleVersionLatest):
		current, err := s.CurrentSchedule(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule has been released yet")
		}
		return current, nil
	}

	release, err := s.schedules.FindByVersion(ctx, eventID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule release not found")
		}
		return nil, internalError(err, "failed to load release")
	}
	return release, nil
}

// Snapshot returns a schedule with its placements. visibleOnly drops hidden placements.
func (s *ScheduleReleaseService) Snapshot(ctx context.Context, eventID, version string, visibleOnly bool) (*models.ScheduleSnapshot, error) {
	schedule, err := s.GetRelease(ctx, eventID, version)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListBySchedule(ctx, nil, schedule.ID)
	if err != nil {
		return nil, internalError(err, "failed to load schedule slots")
	}
	result := make([]models.TalkSlot, 0, len(slots))
	for _, slot := range slots {
		if visibleOnly && !slot.IsVisible {
			continue
		}
		result = append(result, slot)
	}
	return &models.ScheduleSnapshot{Schedule: *schedule, Slots: result}, nil
}

// Unfreeze replaces the draft with the placements of an older release. Draft placements of
// submissions absent from that release are kept.
func (s *ScheduleReleaseService) Unfreeze(ctx context.Context, eventID, version, actorID string) (result *models.UnfreezeResult, err error) {
	if strings.EqualFold(strings.TrimSpace(version), models.ScheduleVersionDraft) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the draft cannot be unfrozen")
	}
	release, err := s.GetRelease(ctx, eventID, version)
	if err != nil {
		return nil, err
	}
	if release.IsDraft() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the draft cannot be unfrozen")
	}
	releaseSlots, err := s.slots.ListBySchedule(ctx, nil, release.ID)
	if err != nil {
		return nil, internalError(err, "failed to load release slots")
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

	var (
		oldDraft   *models.Schedule
		draftSlots []models.TalkSlot
	)
	oldDraft, err = s.schedules.LockDraft(ctx, tx, eventID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		oldDraft, err = nil, nil
	case err != nil:
		return nil, internalError(err, "failed to lock draft schedule")
	default:
		if draftSlots, err = s.slots.ListBySchedule(ctx, tx, oldDraft.ID); err != nil {
			return nil, internalError(err, "failed to load draft slots")
		}
	}

	merged := mergeUnfrozen(draftSlots, releaseSlots)

	if oldDraft != nil {
		if err = s.slots.DeleteBySchedule(ctx, tx, oldDraft.ID); err != nil {
			return nil, internalError(err, "failed to clear draft slots")
		}
		if err = s.schedules.Delete(ctx, tx, oldDraft.ID); err != nil {
			return nil, internalError(err, "failed to delete draft schedule")
		}
	}

	now := s.clock.now()
	draft, err := s.schedules.CreateDraft(ctx, tx, eventID, now)
	if err != nil {
		return nil, internalError(err, "failed to create draft schedule")
	}
	if _, err = s.slots.CopyToSchedule(ctx, tx, draft.ID, merged); err != nil {
		return nil, internalError(err, "failed to copy slots into draft")
	}

	if err = s.writeAudit(ctx, tx, models.AuditActionScheduleUnfreeze, actorID, release.ID, now, map[string]interface{}{
		"event_id":   eventID,
		"version":    release.VersionName(),
		"slot_count": len(merged),
		"draft_id":   draft.ID,
	}); err != nil {
		return nil, internalError(err, "failed to write audit log")
	}

	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit unfreeze")
	}

	if s.changes != nil {
		if oldDraft != nil {
			s.changes.InvalidateDraft(ctx, eventID, oldDraft.ID)
		}
		s.changes.InvalidateDraft(ctx, eventID, draft.ID)
	}
	s.metrics.RecordRelease("unfreeze")
	s.logger.Info("schedule unfrozen",
		zap.String("event_id", eventID),
		zap.String("version", release.VersionName()),
		zap.Int("slots", len(merged)),
	)

	return &models.UnfreezeResult{Release: release, Draft: draft, SlotCount: len(merged)}, nil
}

func (s *ScheduleReleaseService) writeAudit(ctx context.Context, exec sqlx.ExtContext, action, actorID, scheduleID string, now time.Time, values map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}
	resourceID := scheduleID
	return s.audit.Create(ctx, exec, &models.AuditLog{
		UserID:     stringPtr(actorID),
		Action:     action,
		Resource:   "schedule",
		ResourceID: &resourceID,
		NewValues:  payload,
		CreatedAt:  now,
	})
}

// mergeUnfrozen keeps draft placements whose submission is missing from the release and
// appends every release placement.
func mergeUnfrozen(draft, release []models.TalkSlot) []models.TalkSlot {
	released := make(map[string]struct{}, len(release))
	for _, slot := range release {
		released[slot.SubmissionID] = struct{}{}
	}
	merged := make([]models.TalkSlot, 0, len(draft)+len(release))
	for _, slot := range draft {
		if _, ok := released[slot.SubmissionID]; !ok {
			merged = append(merged, slot)
		}
	}
	return append(merged, release...)
}

func isReservedVersion(version string) bool {
	return strings.EqualFold(version, models.ScheduleVersionDraft) || strings.EqualFold(version, models.ScheduleVersionLatest)
}
