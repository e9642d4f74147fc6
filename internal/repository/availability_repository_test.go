package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

func TestAvailabilityRepositoryListByRoom(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM availabilities WHERE event_id = $1 AND room_id = $2 ORDER BY start_at, end_at")).
		WithArgs("event-1", "room-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "room_id", "person_id", "start_at", "end_at"}).
			AddRow("av-1", "event-1", "room-a", nil, start, start.Add(2*time.Hour)))

	rows, err := repo.ListByOwner(context.Background(), nil, models.AvailabilityOwner{EventID: "event-1", RoomID: "room-a"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, start, rows[0].Window().Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDeleteByPerson(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availabilities WHERE event_id = $1 AND person_id = $2")).
		WithArgs("event-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByOwner(context.Background(), nil, models.AvailabilityOwner{EventID: "event-1", PersonID: "user-1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryInsertAssignsIDs(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)
	person := "user-1"
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Availability{
		{EventID: "event-1", PersonID: &person, StartAt: start, EndAt: start.Add(time.Hour)},
		{EventID: "event-1", PersonID: &person, StartAt: start.Add(3 * time.Hour), EndAt: start.Add(4 * time.Hour)},
	}

	for range rows {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availabilities")).
			WithArgs(sqlmock.AnyArg(), "event-1", nil, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, repo.Insert(context.Background(), nil, rows))
	assert.NotEmpty(t, rows[0].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
