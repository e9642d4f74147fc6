package models

// Slot warning types.
const (
	WarningRoom        = "room"
	WarningRoomOverlap = "room_overlap"
	WarningSpeaker     = "speaker"
)

// SlotWarning is an advisory problem with a draft placement. It never blocks a write.
type SlotWarning struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

// TalkWarnings groups warnings of one placement.
type TalkWarnings struct {
	Slot     TalkSlot      `json:"slot"`
	Warnings []SlotWarning `json:"warnings"`
}

// ScheduleWarnings summarises problems to acknowledge before a release.
type ScheduleWarnings struct {
	TalkWarnings []TalkWarnings `json:"talk_warnings"`
	Unscheduled  int            `json:"unscheduled"`
}
