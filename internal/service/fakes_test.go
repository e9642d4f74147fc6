package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

var baseTime = time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := baseTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func ptr(v string) *string {
	return &v
}

// steppingClock advances one minute per call.
func steppingClock() Clock {
	var mu sync.Mutex
	current := baseTime.Add(-24 * time.Hour)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func requireCode(t *testing.T, err error, expected *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, expected.Code, appErrors.FromError(err).Code, err.Error())
}

// memoryDB keeps schedules and slots in memory and mirrors the database constraints
// the services rely on.
type memoryDB struct {
	mu        sync.Mutex
	seq       int
	schedules []*models.Schedule
	slots     []*models.TalkSlot
	speakers  map[string][]string
	states    map[string]string

	precheckDisabled bool
	onLock           func() error
	markErr          error
	copyErr          error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{speakers: map[string][]string{}, states: map[string]string{}}
}

func (m *memoryDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryDB) draftOf(eventID string) *models.Schedule {
	for _, s := range m.schedules {
		if s.EventID == eventID && s.Version == nil {
			return s
		}
	}
	return nil
}

func (m *memoryDB) releasesOf(eventID string) []*models.Schedule {
	var releases []*models.Schedule
	for _, s := range m.schedules {
		if s.EventID == eventID && s.Version != nil {
			releases = append(releases, s)
		}
	}
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].PublishedAt.After(*releases[j].PublishedAt)
	})
	return releases
}

// stateOf defaults to confirmed for submissions the test did not classify.
func (m *memoryDB) stateOf(submissionID string) string {
	if state, ok := m.states[submissionID]; ok {
		return state
	}
	return models.SubmissionStateConfirmed
}

func (m *memoryDB) slotsOf(scheduleID string) []models.TalkSlot {
	var result []models.TalkSlot
	for _, s := range m.slots {
		if s.ScheduleID == scheduleID {
			result = append(result, *s)
		}
	}
	sortSlots(result)
	return result
}

// place adds a slot to the draft of the event, creating the draft when needed.
// Hidden placements belong to submissions that are not confirmed yet.
func (m *memoryDB) place(eventID, submissionID string, room *string, start *time.Time, visible bool, speakers ...string) models.TalkSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft := m.draftOf(eventID)
	if draft == nil {
		draft = &models.Schedule{ID: m.nextID("sched"), EventID: eventID, CreatedAt: baseTime}
		m.schedules = append(m.schedules, draft)
	}
	var end *time.Time
	if start != nil {
		e := start.Add(45 * time.Minute)
		end = &e
	}
	slot := &models.TalkSlot{
		ID:           m.nextID("slot"),
		ScheduleID:   draft.ID,
		SubmissionID: submissionID,
		RoomID:       room,
		StartAt:      start,
		EndAt:        end,
		IsVisible:    visible,
	}
	m.slots = append(m.slots, slot)
	if _, ok := m.states[submissionID]; !ok && !visible {
		m.states[submissionID] = "accepted"
	}
	if len(speakers) > 0 {
		m.speakers[submissionID] = speakers
	}
	return *slot
}

func (m *memoryDB) draftSlot(eventID, submissionID string) *models.TalkSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft := m.draftOf(eventID)
	for _, s := range m.slots {
		if draft != nil && s.ScheduleID == draft.ID && s.SubmissionID == submissionID {
			return s
		}
	}
	return nil
}

// releaseDraft marks the draft of the event as a release and opens a fresh draft
// holding copies of its slots, the way a committed freeze leaves the tables.
func (m *memoryDB) releaseDraft(eventID, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft := m.draftOf(eventID)
	if draft == nil {
		return
	}
	v := version
	published := baseTime
	draft.Version = &v
	draft.PublishedAt = &published
	next := &models.Schedule{ID: m.nextID("sched"), EventID: eventID, CreatedAt: baseTime}
	m.schedules = append(m.schedules, next)
	for _, slot := range m.slotsOf(draft.ID) {
		clone := slot
		clone.ID = m.nextID("slot")
		clone.ScheduleID = next.ID
		m.slots = append(m.slots, &clone)
	}
}

func (m *memoryDB) isDraft(scheduleID string) bool {
	for _, s := range m.schedules {
		if s.ID == scheduleID {
			return s.Version == nil
		}
	}
	return false
}

func (m *memoryDB) countReleases(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.releasesOf(eventID))
}

func (m *memoryDB) countSlots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

type scheduleFake struct{ db *memoryDB }

func (f scheduleFake) FindByID(ctx context.Context, eventID, id string) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.schedules {
		if s.ID == id && s.EventID == eventID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f scheduleFake) FindDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if draft := f.db.draftOf(eventID); draft != nil {
		clone := *draft
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f scheduleFake) LockDraft(ctx context.Context, exec sqlx.ExtContext, eventID string) (*models.Schedule, error) {
	if f.db.onLock != nil {
		if err := f.db.onLock(); err != nil {
			return nil, err
		}
	}
	return f.FindDraft(ctx, exec, eventID)
}

func (f scheduleFake) CreateDraft(ctx context.Context, exec sqlx.ExtContext, eventID string, now time.Time) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.draftOf(eventID) != nil {
		return nil, &pq.Error{Code: pqUniqueViolation, Message: "duplicate draft"}
	}
	draft := &models.Schedule{ID: f.db.nextID("sched"), EventID: eventID, CreatedAt: now, UpdatedAt: now}
	f.db.schedules = append(f.db.schedules, draft)
	clone := *draft
	return &clone, nil
}

func (f scheduleFake) EnsureDraft(ctx context.Context, eventID string, now time.Time) (*models.Schedule, error) {
	f.db.mu.Lock()
	if f.db.draftOf(eventID) == nil {
		f.db.schedules = append(f.db.schedules, &models.Schedule{ID: f.db.nextID("sched"), EventID: eventID, CreatedAt: now, UpdatedAt: now})
	}
	f.db.mu.Unlock()
	return f.FindDraft(ctx, nil, eventID)
}

func (f scheduleFake) MarkReleased(ctx context.Context, exec sqlx.ExtContext, id, version string, comment *string, publishedAt time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.markErr != nil {
		return f.db.markErr
	}
	for _, s := range f.db.schedules {
		if s.ID == id && s.Version == nil {
			for _, other := range f.db.releasesOf(s.EventID) {
				if *other.Version == version {
					return &pq.Error{Code: pqUniqueViolation, Message: "duplicate version"}
				}
			}
			v := version
			published := publishedAt
			s.Version = &v
			s.Comment = comment
			s.PublishedAt = &published
			s.UpdatedAt = publishedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f scheduleFake) FindByVersion(ctx context.Context, eventID, version string) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.releasesOf(eventID) {
		if *s.Version == version {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f scheduleFake) VersionExists(ctx context.Context, eventID, version string) (bool, error) {
	if f.db.precheckDisabled {
		return false, nil
	}
	_, err := f.FindByVersion(ctx, eventID, version)
	return err == nil, nil
}

func (f scheduleFake) HasRelease(ctx context.Context, exec sqlx.ExtContext, eventID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.releasesOf(eventID)) > 0, nil
}

func (f scheduleFake) ListReleases(ctx context.Context, eventID string, limit int) ([]models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var result []models.Schedule
	for _, s := range f.db.releasesOf(eventID) {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, *s)
	}
	return result, nil
}

func (f scheduleFake) PreviousRelease(ctx context.Context, eventID string, before *time.Time) (*models.Schedule, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.releasesOf(eventID) {
		if before == nil || s.PublishedAt.Before(*before) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f scheduleFake) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, s := range f.db.schedules {
		if s.ID == id && s.Version == nil {
			f.db.schedules = append(f.db.schedules[:i], f.db.schedules[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type slotFake struct{ db *memoryDB }

func (f slotFake) ListBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.TalkSlot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.slotsOf(scheduleID), nil
}

func (f slotFake) ListVisibleForSpeaker(ctx context.Context, scheduleID, userID string) ([]models.TalkSlot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var result []models.TalkSlot
	for _, slot := range f.db.slotsOf(scheduleID) {
		if slot.IsVisible && slot.StartAt != nil && hasSpeaker(f.db.speakers[slot.SubmissionID], userID) {
			result = append(result, slot)
		}
	}
	return result, nil
}

func (f slotFake) ListSpeakers(ctx context.Context, scheduleID string) ([]string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	seen := map[string]struct{}{}
	var result []string
	for _, slot := range f.db.slotsOf(scheduleID) {
		if !slot.IsVisible || slot.StartAt == nil {
			continue
		}
		for _, userID := range f.db.speakers[slot.SubmissionID] {
			if _, ok := seen[userID]; !ok {
				seen[userID] = struct{}{}
				result = append(result, userID)
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

func (f slotFake) FindByID(ctx context.Context, id string) (*models.TalkSlot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.slots {
		if s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f slotFake) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.slots {
		if s.ScheduleID == slot.ScheduleID && s.SubmissionID == slot.SubmissionID {
			return &pq.Error{Code: pqUniqueViolation, Message: "duplicate placement"}
		}
	}
	if slot.ID == "" {
		slot.ID = f.db.nextID("slot")
	}
	stored := *slot
	f.db.slots = append(f.db.slots, &stored)
	return nil
}

func (f slotFake) CopyToSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.TalkSlot) ([]models.TalkSlot, error) {
	if f.db.copyErr != nil {
		return nil, f.db.copyErr
	}
	copies := make([]models.TalkSlot, 0, len(slots))
	for _, slot := range slots {
		clone := models.TalkSlot{
			ScheduleID:   scheduleID,
			SubmissionID: slot.SubmissionID,
			RoomID:       slot.RoomID,
			StartAt:      slot.StartAt,
			EndAt:        slot.EndAt,
			IsVisible:    slot.IsVisible,
		}
		if err := f.Create(ctx, exec, &clone); err != nil {
			return nil, err
		}
		copies = append(copies, clone)
	}
	return copies, nil
}

func (f slotFake) ApplyReleaseVisibility(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var visible int64
	for _, s := range f.db.slots {
		if s.ScheduleID != scheduleID {
			continue
		}
		s.IsVisible = f.db.stateOf(s.SubmissionID) == models.SubmissionStateConfirmed && s.StartAt != nil
		if s.IsVisible {
			visible++
		}
	}
	return visible, nil
}

func (f slotFake) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.TalkSlot) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, s := range f.db.slots {
		if s.ID == slot.ID && f.db.isDraft(s.ScheduleID) {
			stored := *slot
			f.db.slots[i] = &stored
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f slotFake) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, s := range f.db.slots {
		if s.ID == id && f.db.isDraft(s.ScheduleID) {
			f.db.slots = append(f.db.slots[:i], f.db.slots[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f slotFake) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	kept := f.db.slots[:0]
	for _, s := range f.db.slots {
		if s.ScheduleID != scheduleID {
			kept = append(kept, s)
		}
	}
	f.db.slots = kept
	return nil
}

type submissionFake struct{ db *memoryDB }

func (f submissionFake) FindByID(ctx context.Context, eventID, id string) (*models.Submission, error) {
	if eventID != "event-1" || id == "missing" {
		return nil, sql.ErrNoRows
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return &models.Submission{ID: id, EventID: eventID, Code: id, Title: "Talk " + id, State: f.db.stateOf(id)}, nil
}

func (f submissionFake) SpeakersBySubmission(ctx context.Context, submissionIDs []string) (map[string][]string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	result := make(map[string][]string, len(submissionIDs))
	for _, id := range submissionIDs {
		if speakers, ok := f.db.speakers[id]; ok {
			result[id] = speakers
		}
	}
	return result, nil
}

type roomFake struct{}

func (roomFake) FindByID(ctx context.Context, eventID, id string) (*models.Room, error) {
	if eventID != "event-1" || id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Room{ID: id, EventID: eventID, Name: "Room " + id}, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (a *auditRecorder) Create(ctx context.Context, exec sqlx.ExtContext, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		result = append(result, entry.Action)
	}
	return result
}

type invalidationRecorder struct {
	mu          sync.Mutex
	invalidated []string
	resets      [][]string
}

func (r *invalidationRecorder) InvalidateDraft(ctx context.Context, eventID, draftID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, draftID)
}

func (r *invalidationRecorder) ResetAfterRelease(ctx context.Context, eventID string, scheduleIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, scheduleIDs)
}

type notifierRecorder struct {
	payloads []models.ReleaseNotifyPayload
	err      error
}

func (n *notifierRecorder) NotifyRelease(ctx context.Context, payload models.ReleaseNotifyPayload) error {
	n.payloads = append(n.payloads, payload)
	return n.err
}

type mailerRecorder struct {
	mails []models.QueuedMail
	err   error
}

func (m *mailerRecorder) Enqueue(ctx context.Context, mail *models.QueuedMail) error {
	if m.err != nil {
		return m.err
	}
	m.mails = append(m.mails, *mail)
	return nil
}
