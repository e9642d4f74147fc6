package dto

import (
	"time"

	"github.com/noah-isme/conf-schedule-api/pkg/interval"
)

// AvailabilityWindow is the API form of an availability window.
type AvailabilityWindow struct {
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
	AllDay bool      `json:"all_day"`
}

// ReplaceAvailabilityRequest replaces every window of one room or speaker.
type ReplaceAvailabilityRequest struct {
	Availabilities []AvailabilityWindow `json:"availabilities" validate:"dive"`
}

// Windows converts the payload for the interval package.
func (r ReplaceAvailabilityRequest) Windows() []interval.Window {
	windows := make([]interval.Window, 0, len(r.Availabilities))
	for _, w := range r.Availabilities {
		windows = append(windows, interval.Window{Start: w.Start.UTC(), End: w.End.UTC()})
	}
	return windows
}

// AvailabilityResponse lists the merged windows of an owner.
type AvailabilityResponse struct {
	Availabilities []AvailabilityWindow `json:"availabilities"`
}

// NewAvailabilityResponse converts merged windows to their API form.
func NewAvailabilityResponse(windows []interval.Window) AvailabilityResponse {
	result := make([]AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		result = append(result, AvailabilityWindow{Start: w.Start, End: w.End, AllDay: w.AllDay()})
	}
	return AvailabilityResponse{Availabilities: result}
}
