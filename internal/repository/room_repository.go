package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// RoomRepository reads event rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID loads a room of the event.
func (r *RoomRepository) FindByID(ctx context.Context, eventID, id string) (*models.Room, error) {
	const query = `SELECT id, event_id, name, speaker_info, position FROM rooms WHERE event_id = $1 AND id = $2`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, eventID, id); err != nil {
		return nil, err
	}
	return &room, nil
}
