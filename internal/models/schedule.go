package models

import "time"

// Reserved version aliases that can never be used as release names.
const (
	ScheduleVersionDraft  = "wip"
	ScheduleVersionLatest = "latest"
)

// MaxVersionLength bounds release names.
const MaxVersionLength = 190

// Schedule is one snapshot of an event program. A nil Version marks the draft.
type Schedule struct {
	ID          string     `db:"id" json:"id"`
	EventID     string     `db:"event_id" json:"event_id"`
	Version     *string    `db:"version" json:"version,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Comment     *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// IsDraft reports whether the schedule is still mutable.
func (s *Schedule) IsDraft() bool {
	return s != nil && s.Version == nil
}

// VersionName returns the release name or "wip" for the draft.
func (s *Schedule) VersionName() string {
	if s == nil || s.Version == nil {
		return ScheduleVersionDraft
	}
	return *s.Version
}

// TalkSlot places one submission into a room and time within one schedule.
type TalkSlot struct {
	ID           string     `db:"id" json:"id"`
	ScheduleID   string     `db:"schedule_id" json:"schedule_id"`
	SubmissionID string     `db:"submission_id" json:"submission_id"`
	RoomID       *string    `db:"room_id" json:"room_id,omitempty"`
	StartAt      *time.Time `db:"start_at" json:"start,omitempty"`
	EndAt        *time.Time `db:"end_at" json:"end,omitempty"`
	IsVisible    bool       `db:"is_visible" json:"is_visible"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsScheduled reports whether the slot has a start time.
func (t TalkSlot) IsScheduled() bool {
	return t.StartAt != nil
}

// SameSlot reports whether both slots use the same room and start.
func (t TalkSlot) SameSlot(other TalkSlot) bool {
	return sameString(t.RoomID, other.RoomID) && sameTime(t.StartAt, other.StartAt)
}

// ScheduleSnapshot is a schedule together with its placements.
type ScheduleSnapshot struct {
	Schedule
	Slots []TalkSlot `json:"slots"`
}

// FreezeRequest describes a release of the current draft.
type FreezeRequest struct {
	EventID        string  `json:"-" validate:"required"`
	Version        string  `json:"version" validate:"required,max=190"`
	Comment        *string `json:"comment,omitempty"`
	NotifySpeakers bool    `json:"notify_speakers"`
	ActorID        string  `json:"-"`
}

// FreezeResult is returned by a successful freeze.
type FreezeResult struct {
	Release   *Schedule `json:"release"`
	Draft     *Schedule `json:"draft"`
	SlotCount int       `json:"slot_count"`
}

// UnfreezeResult is returned when the draft is reset to an older release.
type UnfreezeResult struct {
	Release   *Schedule `json:"release"`
	Draft     *Schedule `json:"draft"`
	SlotCount int       `json:"slot_count"`
}

// SlotInput carries draft placement edits. Nil fields are left untouched on update.
type SlotInput struct {
	SubmissionID string     `json:"submission_id"`
	RoomID       *string    `json:"room_id"`
	StartAt      *time.Time `json:"start"`
	EndAt        *time.Time `json:"end"`
	IsVisible    *bool      `json:"is_visible"`
	ClearRoom    bool       `json:"clear_room"`
	ClearTime    bool       `json:"clear_time"`
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
