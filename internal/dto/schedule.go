package dto

import (
	"time"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// FreezeScheduleRequest releases the current draft.
type FreezeScheduleRequest struct {
	Version        string  `json:"version" validate:"required"`
	Comment        *string `json:"comment,omitempty"`
	NotifySpeakers *bool   `json:"notify_speakers,omitempty" example:"true"`
}

// ToModel attaches the event and acting user. Speakers are notified unless
// notify_speakers is sent as false.
func (r FreezeScheduleRequest) ToModel(eventID, actorID string) models.FreezeRequest {
	notify := true
	if r.NotifySpeakers != nil {
		notify = *r.NotifySpeakers
	}
	return models.FreezeRequest{
		EventID:        eventID,
		Version:        r.Version,
		Comment:        r.Comment,
		NotifySpeakers: notify,
		ActorID:        actorID,
	}
}

// SlotRequest creates or edits a draft placement. Omitted fields keep their value on update.
type SlotRequest struct {
	SubmissionID string     `json:"submission_id"`
	RoomID       *string    `json:"room_id"`
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
	IsVisible    *bool      `json:"is_visible"`
	ClearRoom    bool       `json:"clear_room"`
	ClearTime    bool       `json:"clear_time"`
}

// ToInput converts the payload for the slot service.
func (r SlotRequest) ToInput() models.SlotInput {
	return models.SlotInput{
		SubmissionID: r.SubmissionID,
		RoomID:       r.RoomID,
		StartAt:      r.Start,
		EndAt:        r.End,
		IsVisible:    r.IsVisible,
		ClearRoom:    r.ClearRoom,
		ClearTime:    r.ClearTime,
	}
}

// UnreleasedChangesResponse reports whether the draft differs from the current release.
type UnreleasedChangesResponse struct {
	EventID           string `json:"event_id"`
	HasUnreleasedWork bool   `json:"has_unreleased_changes"`
}
