package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scheduleRowColumns = []string{"id", "event_id", "version", "published_at", "comment", "created_at", "updated_at"}

func TestScheduleRepositoryFindDraft(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE event_id = $1 AND version IS NULL")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("draft-1", "event-1", nil, nil, nil, now, now))

	draft, err := repo.FindDraft(context.Background(), nil, "event-1")
	require.NoError(t, err)
	assert.True(t, draft.IsDraft())
	assert.Equal(t, "wip", draft.VersionName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLockDraftUsesForUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1 AND version IS NULL FOR UPDATE")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("draft-1", "event-1", nil, nil, nil, now, now))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	draft, err := repo.LockDraft(context.Background(), tx, "event-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, "draft-1", draft.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryEnsureDraft(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id) WHERE version IS NULL DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "event-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE event_id = $1 AND version IS NULL")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("draft-existing", "event-1", nil, nil, nil, now, now))

	draft, err := repo.EnsureDraft(context.Background(), "event-1", now)
	require.NoError(t, err)
	assert.Equal(t, "draft-existing", draft.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMarkReleased(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version = $1, comment = $2, published_at = $3, updated_at = $3 WHERE id = $4 AND version IS NULL")).
		WithArgs("1.0", nil, now, "draft-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkReleased(context.Background(), nil, "draft-1", "1.0", nil, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMarkReleasedAlreadyReleased(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkReleased(context.Background(), nil, "release-1", "1.0", nil, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRepositoryListReleases(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1 AND version IS NOT NULL ORDER BY published_at DESC, id LIMIT $2")).
		WithArgs("event-1", 2).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("rel-2", "event-1", "2.0", now, nil, now, now).
			AddRow("rel-1", "event-1", "1.0", now.Add(-time.Hour), "first", now, now))

	releases, err := repo.ListReleases(context.Background(), "event-1", 2)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "2.0", releases[0].VersionName())
	assert.Equal(t, "first", *releases[1].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryPreviousRelease(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("AND published_at < $2 ORDER BY published_at DESC LIMIT 1")).
		WithArgs("event-1", now).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.PreviousRelease(context.Background(), "event-1", &now)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1 AND version IS NOT NULL ORDER BY published_at DESC LIMIT 1")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("rel-1", "event-1", "1.0", now, nil, now, now))

	latest, err := repo.PreviousRelease(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "rel-1", latest.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryVersionExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schedules WHERE event_id = $1 AND version = $2)")).
		WithArgs("event-1", "1.0").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.VersionExists(context.Background(), "event-1", "1.0")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryHasRelease(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schedules WHERE event_id = $1 AND version IS NOT NULL)")).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.HasRelease(context.Background(), nil, "event-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteOnlyDrafts(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1 AND version IS NULL")).
		WithArgs("rel-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), nil, "rel-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
