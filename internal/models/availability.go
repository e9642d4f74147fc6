package models

import (
	"time"

	"github.com/noah-isme/conf-schedule-api/pkg/interval"
)

// AvailabilityOwner identifies whose windows are addressed. Exactly one of RoomID and PersonID is set.
type AvailabilityOwner struct {
	EventID  string
	RoomID   string
	PersonID string
}

// Availability is a stored availability row.
type Availability struct {
	ID       string    `db:"id" json:"id"`
	EventID  string    `db:"event_id" json:"event_id"`
	RoomID   *string   `db:"room_id" json:"room_id,omitempty"`
	PersonID *string   `db:"person_id" json:"person_id,omitempty"`
	StartAt  time.Time `db:"start_at" json:"start"`
	EndAt    time.Time `db:"end_at" json:"end"`
}

// Window returns the row as an interval window.
func (a Availability) Window() interval.Window {
	return interval.Window{Start: a.StartAt, End: a.EndAt}
}
