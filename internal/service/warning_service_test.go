package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

type availabilityListFake struct {
	rows []models.Availability
}

func (f availabilityListFake) ListByEvent(ctx context.Context, eventID string) ([]models.Availability, error) {
	return f.rows, nil
}

func roomWindow(room string, from, to int) models.Availability {
	return models.Availability{EventID: "event-1", RoomID: ptr(room), StartAt: *at(from, 0), EndAt: *at(to, 0)}
}

func personWindow(person string, from, to int) models.Availability {
	return models.Availability{EventID: "event-1", PersonID: ptr(person), StartAt: *at(from, 0), EndAt: *at(to, 0)}
}

func warningTypes(tw models.TalkWarnings) []string {
	types := make([]string, 0, len(tw.Warnings))
	for _, w := range tw.Warnings {
		types = append(types, w.Type)
	}
	return types
}

func TestWarningServiceWarnings(t *testing.T) {
	db := newMemoryDB()
	db.place("event-1", "X", ptr("A"), at(10, 0), true, "S")
	db.place("event-1", "Y", ptr("A"), at(10, 30), true, "S")
	db.place("event-1", "V", ptr("A"), at(11, 15), true)
	db.place("event-1", "W", ptr("C"), at(13, 0), true, "U")
	db.place("event-1", "Z", ptr("B"), at(14, 0), true)
	db.place("event-1", "Q", nil, nil, true)

	availabilities := availabilityListFake{rows: []models.Availability{
		roomWindow("A", 9, 10),
		roomWindow("A", 10, 13),
		roomWindow("B", 9, 12),
		personWindow("U", 9, 12),
	}}
	svc := NewWarningService(scheduleFake{db}, slotFake{db}, availabilities, submissionFake{db}, nil)

	result, err := svc.Warnings(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unscheduled)
	require.Len(t, result.TalkWarnings, 4)

	x, y, w, z := result.TalkWarnings[0], result.TalkWarnings[1], result.TalkWarnings[2], result.TalkWarnings[3]
	assert.Equal(t, "X", x.Slot.SubmissionID)
	assert.Equal(t, []string{models.WarningRoomOverlap, models.WarningSpeaker}, warningTypes(x))
	assert.Equal(t, "S", x.Warnings[1].SpeakerID)
	assert.Equal(t, "Y", y.Slot.SubmissionID)
	assert.Equal(t, []string{models.WarningRoomOverlap, models.WarningSpeaker}, warningTypes(y))

	assert.Equal(t, "W", w.Slot.SubmissionID)
	assert.Equal(t, []string{models.WarningSpeaker}, warningTypes(w))
	assert.Equal(t, "U", w.Warnings[0].SpeakerID)

	assert.Equal(t, "Z", z.Slot.SubmissionID)
	assert.Equal(t, []string{models.WarningRoom}, warningTypes(z))
}

func TestWarningServiceIdenticalSlotsCollide(t *testing.T) {
	db := newMemoryDB()
	db.place("event-1", "X", ptr("A"), at(10, 0), true)
	db.place("event-1", "Y", ptr("A"), at(10, 0), true)
	svc := NewWarningService(scheduleFake{db}, slotFake{db}, availabilityListFake{}, submissionFake{db}, nil)

	result, err := svc.Warnings(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, result.TalkWarnings, 2)
	for _, tw := range result.TalkWarnings {
		assert.Equal(t, []string{models.WarningRoomOverlap}, warningTypes(tw))
	}
}

func TestWarningServiceWithoutDraft(t *testing.T) {
	db := newMemoryDB()
	svc := NewWarningService(scheduleFake{db}, slotFake{db}, availabilityListFake{}, submissionFake{db}, nil)

	result, err := svc.Warnings(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Empty(t, result.TalkWarnings)
	assert.NotNil(t, result.TalkWarnings)
	assert.Zero(t, result.Unscheduled)
}

func TestCollides(t *testing.T) {
	start := baseTime
	point := models.Availability{StartAt: start, EndAt: start}.Window()
	assert.True(t, collides(point, point))

	a := models.Availability{StartAt: start, EndAt: start.Add(time.Hour)}.Window()
	b := models.Availability{StartAt: start.Add(time.Hour), EndAt: start.Add(2 * time.Hour)}.Window()
	assert.False(t, collides(a, b))
}
