package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

type releaseLister interface {
	ListReleases(ctx context.Context, eventID string, limit int) ([]models.Schedule, error)
}

type speakerSlotReader interface {
	ListVisibleForSpeaker(ctx context.Context, scheduleID, userID string) ([]models.TalkSlot, error)
}

// NotificationService computes per-speaker diffs between schedule releases.
// Missing releases, speakers or history produce empty diffs rather than errors.
type NotificationService struct {
	releases releaseLister
	slots    speakerSlotReader
	logger   *zap.Logger
}

// NewNotificationService constructs the diff engine.
func NewNotificationService(releases releaseLister, slots speakerSlotReader, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{releases: releases, slots: slots, logger: logger}
}

// Full lists every visible session of the user in the current release.
func (s *NotificationService) Full(ctx context.Context, userID, eventID string) (models.NotificationDiff, error) {
	if userID == "" || eventID == "" {
		return models.EmptyNotificationDiff(), nil
	}
	releases, err := s.releases.ListReleases(ctx, eventID, 1)
	if err != nil {
		return models.EmptyNotificationDiff(), internalError(err, "failed to load releases")
	}
	if len(releases) == 0 {
		return models.EmptyNotificationDiff(), nil
	}
	return s.Between(ctx, userID, nil, &releases[0])
}

// Current compares the two most recent releases for the user. With fewer than
// two releases it behaves like Full.
func (s *NotificationService) Current(ctx context.Context, userID, eventID string) (models.NotificationDiff, error) {
	if userID == "" || eventID == "" {
		return models.EmptyNotificationDiff(), nil
	}
	releases, err := s.releases.ListReleases(ctx, eventID, 2)
	if err != nil {
		return models.EmptyNotificationDiff(), internalError(err, "failed to load releases")
	}
	switch len(releases) {
	case 0:
		return models.EmptyNotificationDiff(), nil
	case 1:
		return s.Between(ctx, userID, nil, &releases[0])
	default:
		return s.Between(ctx, userID, &releases[1], &releases[0])
	}
}

// Between diffs the user's visible sessions of latest against previous. A nil
// previous reports every session of latest as created.
func (s *NotificationService) Between(ctx context.Context, userID string, previous, latest *models.Schedule) (models.NotificationDiff, error) {
	diff := models.EmptyNotificationDiff()
	if latest == nil || userID == "" {
		return diff, nil
	}

	current, err := s.speakerSlots(ctx, latest.ID, userID)
	if err != nil {
		return models.EmptyNotificationDiff(), err
	}
	if len(current) == 0 {
		return diff, nil
	}
	if previous == nil {
		diff.Created = current
		sortSlots(diff.Created)
		return diff, nil
	}

	before, err := s.speakerSlots(ctx, previous.ID, userID)
	if err != nil {
		return models.EmptyNotificationDiff(), err
	}
	bySubmission := make(map[string]models.TalkSlot, len(before))
	for _, slot := range before {
		bySubmission[slot.SubmissionID] = slot
	}

	for _, slot := range current {
		old, ok := bySubmission[slot.SubmissionID]
		switch {
		case !ok:
			diff.Created = append(diff.Created, slot)
		case old.SameSlot(slot):
		default:
			diff.Updated = append(diff.Updated, movedSlot(old, slot))
		}
	}
	sortSlots(diff.Created)
	sortMoves(diff.Updated)
	return diff, nil
}

func (s *NotificationService) speakerSlots(ctx context.Context, scheduleID, userID string) ([]models.TalkSlot, error) {
	slots, err := s.slots.ListVisibleForSpeaker(ctx, scheduleID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load speaker sessions")
	}
	result := make([]models.TalkSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsVisible && slot.IsScheduled() {
			result = append(result, slot)
		}
	}
	return result, nil
}

func movedSlot(old, current models.TalkSlot) models.MovedSlot {
	return models.MovedSlot{
		SubmissionID: current.SubmissionID,
		OldStart:     old.StartAt,
		NewStart:     current.StartAt,
		OldRoomID:    old.RoomID,
		NewRoomID:    current.RoomID,
		NewSlotID:    current.ID,
	}
}

// sortSlots orders by start, then submission id. Unscheduled slots go last.
func sortSlots(slots []models.TalkSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return startsBefore(slots[i].StartAt, slots[j].StartAt, slots[i].SubmissionID, slots[j].SubmissionID)
	})
}

func sortMoves(moves []models.MovedSlot) {
	sort.SliceStable(moves, func(i, j int) bool {
		return startsBefore(moves[i].NewStart, moves[j].NewStart, moves[i].SubmissionID, moves[j].SubmissionID)
	})
}

func startsBefore(a, b *time.Time, idA, idB string) bool {
	switch {
	case a == nil && b == nil:
		return idA < idB
	case a == nil:
		return false
	case b == nil:
		return true
	case !a.Equal(*b):
		return a.Before(*b)
	default:
		return idA < idB
	}
}
