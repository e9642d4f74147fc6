package models

import "time"

// Event is the tenant boundary every schedule entity belongs to.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Room is a location sessions can be placed into.
type Room struct {
	ID          string `db:"id" json:"id"`
	EventID     string `db:"event_id" json:"event_id"`
	Name        string `db:"name" json:"name"`
	SpeakerInfo string `db:"speaker_info" json:"speaker_info"`
	Position    int    `db:"position" json:"position"`
}

// SubmissionStateConfirmed marks a submission accepted by its speakers. Only
// confirmed, scheduled placements are published by a release.
const SubmissionStateConfirmed = "confirmed"

// Submission is a proposal that can be placed in a schedule. Read only here.
type Submission struct {
	ID      string `db:"id" json:"id"`
	EventID string `db:"event_id" json:"event_id"`
	Code    string `db:"code" json:"code"`
	Title   string `db:"title" json:"title"`
	State   string `db:"state" json:"state"`
}

// SubmissionSpeaker links a submission to one of its speakers.
type SubmissionSpeaker struct {
	SubmissionID string `db:"submission_id" json:"submission_id"`
	UserID       string `db:"user_id" json:"user_id"`
}
