package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

const availabilityColumns = `id, event_id, room_id, person_id, start_at, end_at`

// AvailabilityRepository persists availability windows of rooms and people.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func ownerClause(owner models.AvailabilityOwner) (string, string) {
	if owner.RoomID != "" {
		return "room_id", owner.RoomID
	}
	return "person_id", owner.PersonID
}

// ListByOwner returns the stored windows of one owner ordered by start.
func (r *AvailabilityRepository) ListByOwner(ctx context.Context, exec sqlx.ExtContext, owner models.AvailabilityOwner) ([]models.Availability, error) {
	column, value := ownerClause(owner)
	query := fmt.Sprintf(`SELECT %s FROM availabilities WHERE event_id = $1 AND %s = $2 ORDER BY start_at, end_at`, availabilityColumns, column)
	var rows []models.Availability
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, owner.EventID, value); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return rows, nil
}

// ListByEvent returns every window of the event, rooms and people alike.
func (r *AvailabilityRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE event_id = $1 ORDER BY start_at, end_at`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("list event availabilities: %w", err)
	}
	return rows, nil
}

// DeleteByOwner removes every window of one owner.
func (r *AvailabilityRepository) DeleteByOwner(ctx context.Context, exec sqlx.ExtContext, owner models.AvailabilityOwner) error {
	column, value := ownerClause(owner)
	query := fmt.Sprintf(`DELETE FROM availabilities WHERE event_id = $1 AND %s = $2`, column)
	if _, err := r.exec(exec).ExecContext(ctx, query, owner.EventID, value); err != nil {
		return fmt.Errorf("delete availabilities: %w", err)
	}
	return nil
}

// Insert stores windows, assigning identifiers when missing.
func (r *AvailabilityRepository) Insert(ctx context.Context, exec sqlx.ExtContext, rows []models.Availability) error {
	const query = `INSERT INTO availabilities (id, event_id, room_id, person_id, start_at, end_at)
VALUES (:id, :event_id, :room_id, :person_id, :start_at, :end_at)`
	target := r.exec(exec)
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, &rows[i]); err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}
	return nil
}
