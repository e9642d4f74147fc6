package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

const slotColumns = `id, schedule_id, submission_id, room_id, start_at, end_at, is_visible, created_at, updated_at`

// SlotRepository persists talk slots owned by schedule snapshots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs a slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySchedule returns every slot of a schedule ordered by start then submission.
func (r *SlotRepository) ListBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.TalkSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM talk_slots WHERE schedule_id = $1 ORDER BY start_at NULLS LAST, submission_id`
	var slots []models.TalkSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list talk slots: %w", err)
	}
	return slots, nil
}

// ListVisibleForSpeaker returns the visible, started slots of a schedule presented by the user.
func (r *SlotRepository) ListVisibleForSpeaker(ctx context.Context, scheduleID, userID string) ([]models.TalkSlot, error) {
	const query = `SELECT ts.id, ts.schedule_id, ts.submission_id, ts.room_id, ts.start_at, ts.end_at, ts.is_visible, ts.created_at, ts.updated_at
FROM talk_slots ts
JOIN submission_speakers ss ON ss.submission_id = ts.submission_id
WHERE ts.schedule_id = $1 AND ss.user_id = $2 AND ts.is_visible = TRUE AND ts.start_at IS NOT NULL
ORDER BY ts.start_at, ts.submission_id`
	var slots []models.TalkSlot
	if err := r.db.SelectContext(ctx, &slots, query, scheduleID, userID); err != nil {
		return nil, fmt.Errorf("list speaker talk slots: %w", err)
	}
	return slots, nil
}

// ListSpeakers returns the distinct speakers having a visible, started slot in the schedule.
func (r *SlotRepository) ListSpeakers(ctx context.Context, scheduleID string) ([]string, error) {
	const query = `SELECT DISTINCT ss.user_id
FROM talk_slots ts
JOIN submission_speakers ss ON ss.submission_id = ts.submission_id
WHERE ts.schedule_id = $1 AND ts.is_visible = TRUE AND ts.start_at IS NOT NULL
ORDER BY ss.user_id`
	var speakers []string
	if err := r.db.SelectContext(ctx, &speakers, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule speakers: %w", err)
	}
	return speakers, nil
}

// FindByID loads a slot by identifier.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.TalkSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM talk_slots WHERE id = $1`
	var slot models.TalkSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts a slot, assigning an identifier and timestamps when missing.
func (r *SlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO talk_slots (id, schedule_id, submission_id, room_id, start_at, end_at, is_visible, created_at, updated_at)
VALUES (:id, :schedule_id, :submission_id, :room_id, :start_at, :end_at, :is_visible, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("insert talk slot: %w", err)
	}
	return nil
}

// CopyToSchedule inserts fresh copies of the slots into the target schedule and returns them.
func (r *SlotRepository) CopyToSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.TalkSlot) ([]models.TalkSlot, error) {
	copies := make([]models.TalkSlot, 0, len(slots))
	for _, slot := range slots {
		clone := models.TalkSlot{
			ScheduleID:   scheduleID,
			SubmissionID: slot.SubmissionID,
			RoomID:       slot.RoomID,
			StartAt:      slot.StartAt,
			EndAt:        slot.EndAt,
			IsVisible:    slot.IsVisible,
		}
		if err := r.Create(ctx, exec, &clone); err != nil {
			return nil, fmt.Errorf("copy talk slot %s: %w", slot.ID, err)
		}
		copies = append(copies, clone)
	}
	return copies, nil
}

// draftScheduleFilter restricts slot writes to placements of a draft schedule.
const draftScheduleFilter = `schedule_id IN (SELECT id FROM schedules WHERE version IS NULL)`

// ApplyReleaseVisibility shows the scheduled slots of confirmed submissions in
// the schedule and hides every other slot. It returns the number of visible slots.
func (r *SlotRepository) ApplyReleaseVisibility(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error) {
	const query = `UPDATE talk_slots ts
SET is_visible = (s.state = $2 AND ts.start_at IS NOT NULL), updated_at = $3
FROM submissions s
WHERE s.id = ts.submission_id AND ts.schedule_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID, models.SubmissionStateConfirmed, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("apply release visibility: %w", err)
	}
	var visible int64
	const count = `SELECT COUNT(*) FROM talk_slots WHERE schedule_id = $1 AND is_visible = TRUE`
	if err := sqlx.GetContext(ctx, r.exec(exec), &visible, count, scheduleID); err != nil {
		return 0, fmt.Errorf("count visible talk slots: %w", err)
	}
	return visible, nil
}

// Update overwrites the mutable fields of a draft slot. Release slots match no row.
func (r *SlotRepository) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	query := `UPDATE talk_slots SET room_id = :room_id, start_at = :start_at, end_at = :end_at, is_visible = :is_visible, updated_at = :updated_at WHERE id = :id AND ` + draftScheduleFilter
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot)
	if err != nil {
		return fmt.Errorf("update talk slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("talk slot rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a draft slot. Release slots match no row.
func (r *SlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	query := `DELETE FROM talk_slots WHERE id = $1 AND ` + draftScheduleFilter
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete talk slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("talk slot rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBySchedule removes every slot of a schedule.
func (r *SlotRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	const query = `DELETE FROM talk_slots WHERE schedule_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID); err != nil {
		return fmt.Errorf("delete schedule talk slots: %w", err)
	}
	return nil
}
