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

const scheduleColumns = `id, event_id, version, published_at, comment, created_at, updated_at`

// ScheduleRepository persists schedule snapshots: the single draft and the releases of an event.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a schedule of the event by identifier.
func (r *ScheduleRepository) FindByID(ctx context.Context, eventID, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND id = $2`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, eventID, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindDraft returns the draft of the event or sql.ErrNoRows.
func (r *ScheduleRepository) FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NULL`
	var schedule models.Schedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, eventID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// LockDraft selects the draft row FOR UPDATE; exec must be a transaction.
func (r *ScheduleRepository) LockDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NULL FOR UPDATE`
	var schedule models.Schedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, eventID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CreateDraft inserts a new empty draft. The partial unique index rejects a second draft.
func (r *ScheduleRepository) CreateDraft(ctx context.Context, exec sqlx.ExtContext, eventID string, now time.Time) (*models.Schedule, error) {
	schedule := &models.Schedule{ID: uuid.NewString(), EventID: eventID, CreatedAt: now, UpdatedAt: now}
	const query = `INSERT INTO schedules (id, event_id, created_at, updated_at) VALUES (:id, :event_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return nil, fmt.Errorf("insert draft schedule: %w", err)
	}
	return schedule, nil
}

// EnsureDraft creates the draft when missing and returns the stored one.
// Concurrent callers converge on a single row.
func (r *ScheduleRepository) EnsureDraft(ctx context.Context, eventID string, now time.Time) (*models.Schedule, error) {
	const query = `INSERT INTO schedules (id, event_id, created_at, updated_at) VALUES ($1, $2, $3, $3)
ON CONFLICT (event_id) WHERE version IS NULL DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), eventID, now); err != nil {
		return nil, fmt.Errorf("ensure draft schedule: %w", err)
	}
	return r.FindDraft(ctx, nil, eventID)
}

// MarkReleased turns the draft into a release.
func (r *ScheduleRepository) MarkReleased(ctx context.Context, exec sqlx.ExtContext, id, version string, comment *string, publishedAt time.Time) error {
	const query = `UPDATE schedules SET version = $1, comment = $2, published_at = $3, updated_at = $3 WHERE id = $4 AND version IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, version, comment, publishedAt, id)
	if err != nil {
		return fmt.Errorf("release schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByVersion loads a release by name.
func (r *ScheduleRepository) FindByVersion(ctx context.Context, eventID, version string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version = $2`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, eventID, version); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// VersionExists reports whether a release with the name already exists for the event.
func (r *ScheduleRepository) VersionExists(ctx context.Context, eventID, version string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedules WHERE event_id = $1 AND version = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, eventID, version); err != nil {
		return false, fmt.Errorf("check schedule version: %w", err)
	}
	return exists, nil
}

// HasRelease reports whether the event has published at least one release.
func (r *ScheduleRepository) HasRelease(ctx context.Context, exec sqlx.ExtContext, eventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedules WHERE event_id = $1 AND version IS NOT NULL)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, eventID); err != nil {
		return false, fmt.Errorf("check schedule releases: %w", err)
	}
	return exists, nil
}

// ListReleases returns releases, most recent first. A positive limit caps the result.
func (r *ScheduleRepository) ListReleases(ctx context.Context, eventID string, limit int) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NOT NULL ORDER BY published_at DESC, id`
	args := []interface{}{eventID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule releases: %w", err)
	}
	return schedules, nil
}

// PreviousRelease returns the release published before the given instant, or the
// latest release when before is nil. Missing history yields sql.ErrNoRows.
func (r *ScheduleRepository) PreviousRelease(ctx context.Context, eventID string, before *time.Time) (*models.Schedule, error) {
	var (
		schedule models.Schedule
		err      error
	)
	if before == nil {
		query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NOT NULL ORDER BY published_at DESC LIMIT 1`
		err = r.db.GetContext(ctx, &schedule, query, eventID)
	} else {
		query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE event_id = $1 AND version IS NOT NULL AND published_at < $2 ORDER BY published_at DESC LIMIT 1`
		err = r.db.GetContext(ctx, &schedule, query, eventID, *before)
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Delete removes a schedule row; only drafts may be deleted.
func (r *ScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM schedules WHERE id = $1 AND version IS NULL`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete draft schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete draft schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
