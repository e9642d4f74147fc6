package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

type changesScheduleReader interface {
	FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
	PreviousRelease(ctx context.Context, eventID string, before *time.Time) (*models.Schedule, error)
}

type scheduleSlotLister interface {
	ListBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.TalkSlot, error)
}

type changesCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ChangesConfig sets cache lifetimes of computed changelogs.
type ChangesConfig struct {
	DraftTTL      time.Duration
	ReleaseTTL    time.Duration
	UnreleasedTTL time.Duration
}

// ScheduleChangesService computes what changed in a snapshot compared to the release before it.
type ScheduleChangesService struct {
	schedules changesScheduleReader
	slots     scheduleSlotLister
	cache     changesCache
	cfg       ChangesConfig
	logger    *zap.Logger
}

// NewScheduleChangesService constructs the changelog service. cache may be nil.
func NewScheduleChangesService(schedules changesScheduleReader, slots scheduleSlotLister, cache changesCache, cfg ChangesConfig, logger *zap.Logger) *ScheduleChangesService {
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = time.Minute
	}
	if cfg.ReleaseTTL <= 0 {
		cfg.ReleaseTTL = 10 * time.Minute
	}
	if cfg.UnreleasedTTL <= 0 {
		cfg.UnreleasedTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleChangesService{schedules: schedules, slots: slots, cache: cache, cfg: cfg, logger: logger}
}

func changesKey(scheduleID string) string {
	return fmt.Sprintf("schedule:%s:changes", scheduleID)
}

func unreleasedKey(eventID string) string {
	return fmt.Sprintf("event:%s:unreleased_changes", eventID)
}

// TTL returns the cache lifetime used for the schedule's changelog.
func (s *ScheduleChangesService) TTL(schedule *models.Schedule) time.Duration {
	if schedule.IsDraft() {
		return s.cfg.DraftTTL
	}
	return s.cfg.ReleaseTTL
}

// Changes returns the changelog of the schedule, served from cache when possible.
func (s *ScheduleChangesService) Changes(ctx context.Context, schedule *models.Schedule) (*models.ScheduleChanges, error) {
	if schedule == nil {
		return nil, fmt.Errorf("schedule is nil")
	}
	key := changesKey(schedule.ID)
	if s.cache != nil {
		var cached models.ScheduleChanges
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	changes, scheduled, err := s.compute(ctx, schedule)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, changes, s.TTL(schedule))
	if schedule.IsDraft() {
		s.store(ctx, unreleasedKey(schedule.EventID), hasChanges(changes, scheduled), s.cfg.UnreleasedTTL)
	}
	return changes, nil
}

// HasUnreleasedChanges reports whether the draft differs from the current release.
func (s *ScheduleChangesService) HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error) {
	key := unreleasedKey(eventID)
	if s.cache != nil {
		var cached bool
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	draft, err := s.schedules.FindDraft(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, internalError(err, "failed to load draft schedule")
	}
	changes, scheduled, err := s.compute(ctx, draft)
	if err != nil {
		return false, err
	}
	value := hasChanges(changes, scheduled)
	s.store(ctx, changesKey(draft.ID), changes, s.cfg.DraftTTL)
	s.store(ctx, key, value, s.cfg.UnreleasedTTL)
	return value, nil
}

// InvalidateDraft drops cached results after a draft edit.
func (s *ScheduleChangesService) InvalidateDraft(ctx context.Context, eventID, draftID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, changesKey(draftID), unreleasedKey(eventID)); err != nil {
		s.logger.Warn("failed to invalidate schedule changes", zap.String("event_id", eventID), zap.Error(err))
	}
}

// ResetAfterRelease drops cached changelogs of the given schedules and records
// that the fresh draft has nothing unreleased.
func (s *ScheduleChangesService) ResetAfterRelease(ctx context.Context, eventID string, scheduleIDs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(scheduleIDs))
	for _, id := range scheduleIDs {
		keys = append(keys, changesKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate schedule changes", zap.String("event_id", eventID), zap.Error(err))
	}
	s.store(ctx, unreleasedKey(eventID), false, s.cfg.UnreleasedTTL)
}

func (s *ScheduleChangesService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("failed to cache schedule changes", zap.String("key", key), zap.Error(err))
	}
}

func (s *ScheduleChangesService) compute(ctx context.Context, schedule *models.Schedule) (*models.ScheduleChanges, int, error) {
	current, err := s.scheduledTalks(ctx, schedule.ID)
	if err != nil {
		return nil, 0, err
	}

	previous, err := s.schedules.PreviousRelease(ctx, schedule.EventID, schedule.PublishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ScheduleChanges{
				Action:        models.ChangesActionCreate,
				NewTalks:      []models.TalkSlot{},
				CanceledTalks: []models.TalkSlot{},
				MovedTalks:    []models.MovedSlot{},
			}, len(current), nil
		}
		return nil, 0, internalError(err, "failed to load previous release")
	}

	old, err := s.scheduledTalks(ctx, previous.ID)
	if err != nil {
		return nil, 0, err
	}
	return diffSchedules(old, current), len(current), nil
}

// scheduledTalks returns visible slots with both room and start set.
func (s *ScheduleChangesService) scheduledTalks(ctx context.Context, scheduleID string) ([]models.TalkSlot, error) {
	slots, err := s.slots.ListBySchedule(ctx, nil, scheduleID)
	if err != nil {
		return nil, internalError(err, "failed to load schedule slots")
	}
	result := make([]models.TalkSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsVisible && slot.IsScheduled() && slot.RoomID != nil {
			result = append(result, slot)
		}
	}
	return result, nil
}

func diffSchedules(old, current []models.TalkSlot) *models.ScheduleChanges {
	changes := &models.ScheduleChanges{
		Action:        models.ChangesActionUpdate,
		NewTalks:      []models.TalkSlot{},
		CanceledTalks: []models.TalkSlot{},
		MovedTalks:    []models.MovedSlot{},
	}

	oldBySubmission := make(map[string]models.TalkSlot, len(old))
	for _, slot := range old {
		oldBySubmission[slot.SubmissionID] = slot
	}
	seen := make(map[string]struct{}, len(current))
	for _, slot := range current {
		seen[slot.SubmissionID] = struct{}{}
		previous, ok := oldBySubmission[slot.SubmissionID]
		switch {
		case !ok:
			changes.NewTalks = append(changes.NewTalks, slot)
		case !previous.SameSlot(slot):
			changes.MovedTalks = append(changes.MovedTalks, movedSlot(previous, slot))
		}
	}
	for _, slot := range old {
		if _, ok := seen[slot.SubmissionID]; !ok {
			changes.CanceledTalks = append(changes.CanceledTalks, slot)
		}
	}

	sortSlots(changes.NewTalks)
	sortSlots(changes.CanceledTalks)
	sortMoves(changes.MovedTalks)
	changes.Count = len(changes.NewTalks) + len(changes.CanceledTalks) + len(changes.MovedTalks)
	return changes
}

func hasChanges(changes *models.ScheduleChanges, scheduled int) bool {
	if changes.Action == models.ChangesActionCreate {
		return scheduled > 0
	}
	return changes.Count > 0
}
