package models

import "time"

// NotificationDiff describes which of a speaker's sessions are new or moved.
type NotificationDiff struct {
	Created []TalkSlot  `json:"created"`
	Updated []MovedSlot `json:"updated"`
}

// EmptyNotificationDiff returns a diff with non-nil empty lists.
func EmptyNotificationDiff() NotificationDiff {
	return NotificationDiff{Created: []TalkSlot{}, Updated: []MovedSlot{}}
}

// IsEmpty reports whether there is nothing to tell the speaker.
func (d NotificationDiff) IsEmpty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0
}

// MovedSlot is a session whose room or start changed between two snapshots.
type MovedSlot struct {
	SubmissionID string     `json:"submission_id"`
	OldStart     *time.Time `json:"old_start"`
	NewStart     *time.Time `json:"new_start"`
	OldRoomID    *string    `json:"old_room_id"`
	NewRoomID    *string    `json:"new_room_id"`
	NewSlotID    string     `json:"new_slot_id,omitempty"`
}

// ScheduleChanges is the changelog of a snapshot against the release before it.
type ScheduleChanges struct {
	Action        string      `json:"action"`
	Count         int         `json:"count"`
	NewTalks      []TalkSlot  `json:"new_talks"`
	CanceledTalks []TalkSlot  `json:"canceled_talks"`
	MovedTalks    []MovedSlot `json:"moved_talks"`
}

// Changelog actions.
const (
	ChangesActionCreate = "create"
	ChangesActionUpdate = "update"
)

// ReleaseNotifyPayload is the job payload for speaker notifications after a freeze.
type ReleaseNotifyPayload struct {
	EventID    string `json:"event_id"`
	ScheduleID string `json:"schedule_id"`
}

// QueuedMail is an outbox row consumed by the external mail worker.
type QueuedMail struct {
	ID         string     `db:"id" json:"id"`
	EventID    string     `db:"event_id" json:"event_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	ScheduleID *string    `db:"schedule_id" json:"schedule_id,omitempty"`
	Template   string     `db:"template" json:"template"`
	Payload    []byte     `db:"payload" json:"payload"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// MailTemplateScheduleUpdate is used for release notifications.
const MailTemplateScheduleUpdate = "schedule.update"
