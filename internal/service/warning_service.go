package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	"github.com/noah-isme/conf-schedule-api/pkg/interval"
)

type warningScheduleReader interface {
	FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error)
}

type warningAvailabilityReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Availability, error)
}

type speakerLookup interface {
	SpeakersBySubmission(ctx context.Context, submissionIDs []string) (map[string][]string, error)
}

// WarningService reports advisory problems of draft placements.
type WarningService struct {
	schedules      warningScheduleReader
	slots          scheduleSlotLister
	availabilities warningAvailabilityReader
	speakers       speakerLookup
	logger         *zap.Logger
}

// NewWarningService constructs the warning calculator.
func NewWarningService(schedules warningScheduleReader, slots scheduleSlotLister, availabilities warningAvailabilityReader, speakers speakerLookup, logger *zap.Logger) *WarningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarningService{schedules: schedules, slots: slots, availabilities: availabilities, speakers: speakers, logger: logger}
}

type placedSlot struct {
	slot   models.TalkSlot
	window interval.Window
}

// Warnings lists placements of the draft that fall outside room or speaker
// availability or collide with another session.
func (s *WarningService) Warnings(ctx context.Context, eventID string) (*models.ScheduleWarnings, error) {
	result := &models.ScheduleWarnings{TalkWarnings: []models.TalkWarnings{}}

	draft, err := s.schedules.FindDraft(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return nil, internalError(err, "failed to load draft schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, nil, draft.ID)
	if err != nil {
		return nil, internalError(err, "failed to load draft slots")
	}

	placed := make([]placedSlot, 0, len(slots))
	submissionIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.RoomID == nil || slot.StartAt == nil || slot.EndAt == nil {
			result.Unscheduled++
			continue
		}
		placed = append(placed, placedSlot{slot: slot, window: interval.Window{Start: *slot.StartAt, End: *slot.EndAt}})
		submissionIDs = append(submissionIDs, slot.SubmissionID)
	}
	if len(placed) == 0 {
		return result, nil
	}

	rows, err := s.availabilities.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, internalError(err, "failed to load availabilities")
	}
	roomWindows, speakerWindows := groupAvailabilities(rows)

	speakers, err := s.speakers.SpeakersBySubmission(ctx, submissionIDs)
	if err != nil {
		return nil, internalError(err, "failed to load speakers")
	}

	for i, current := range placed {
		var warnings []models.SlotWarning

		if windows, ok := roomWindows[*current.slot.RoomID]; ok && !covered(windows, current.window) {
			warnings = append(warnings, models.SlotWarning{
				Type:    models.WarningRoom,
				Message: "room is not available at this time",
			})
		}

		for j, other := range placed {
			if i == j || *other.slot.RoomID != *current.slot.RoomID {
				continue
			}
			if collides(current.window, other.window) {
				warnings = append(warnings, models.SlotWarning{
					Type:    models.WarningRoomOverlap,
					Message: fmt.Sprintf("room is also used by submission %s", other.slot.SubmissionID),
				})
			}
		}

		for _, speakerID := range speakers[current.slot.SubmissionID] {
			if windows, ok := speakerWindows[speakerID]; ok && !covered(windows, current.window) {
				warnings = append(warnings, models.SlotWarning{
					Type:      models.WarningSpeaker,
					Message:   "speaker is not available at this time",
					SpeakerID: speakerID,
				})
			}
			for j, other := range placed {
				if i == j || !hasSpeaker(speakers[other.slot.SubmissionID], speakerID) {
					continue
				}
				if collides(current.window, other.window) {
					warnings = append(warnings, models.SlotWarning{
						Type:      models.WarningSpeaker,
						Message:   fmt.Sprintf("speaker also presents submission %s at this time", other.slot.SubmissionID),
						SpeakerID: speakerID,
					})
				}
			}
		}

		if len(warnings) > 0 {
			result.TalkWarnings = append(result.TalkWarnings, models.TalkWarnings{Slot: current.slot, Warnings: warnings})
		}
	}

	s.logger.Debug("computed schedule warnings",
		zap.String("event_id", eventID),
		zap.Int("talks", len(result.TalkWarnings)),
		zap.Int("unscheduled", result.Unscheduled),
	)
	return result, nil
}

func groupAvailabilities(rows []models.Availability) (map[string][]interval.Window, map[string][]interval.Window) {
	rooms := make(map[string][]interval.Window)
	people := make(map[string][]interval.Window)
	for _, row := range rows {
		switch {
		case row.RoomID != nil:
			rooms[*row.RoomID] = append(rooms[*row.RoomID], row.Window())
		case row.PersonID != nil:
			people[*row.PersonID] = append(people[*row.PersonID], row.Window())
		}
	}
	for id, windows := range rooms {
		rooms[id] = interval.Merge(windows)
	}
	for id, windows := range people {
		people[id] = interval.Merge(windows)
	}
	return rooms, people
}

func covered(windows []interval.Window, w interval.Window) bool {
	for _, window := range windows {
		if interval.Contains(window, w) {
			return true
		}
	}
	return false
}

func collides(a, b interval.Window) bool {
	return interval.Overlaps(a, b, true) || (a.Start.Equal(b.Start) && a.End.Equal(b.End))
}

func hasSpeaker(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
