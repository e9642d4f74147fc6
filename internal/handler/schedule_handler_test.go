package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
)

type releaseServiceStub struct {
	freezeReq   models.FreezeRequest
	freezeErr   error
	unfreezeArg []string
	releases    []models.Schedule
	schedule    *models.Schedule
	getErr      error
	snapshotArg struct {
		version     string
		visibleOnly bool
	}
}

func (s *releaseServiceStub) Freeze(ctx context.Context, req models.FreezeRequest) (*models.FreezeResult, error) {
	s.freezeReq = req
	if s.freezeErr != nil {
		return nil, s.freezeErr
	}
	return &models.FreezeResult{
		Release:   &models.Schedule{ID: "rel-1", EventID: req.EventID, Version: strPtr(req.Version)},
		Draft:     &models.Schedule{ID: "draft-2", EventID: req.EventID},
		SlotCount: 3,
	}, nil
}

func (s *releaseServiceStub) Unfreeze(ctx context.Context, eventID, version, actorID string) (*models.UnfreezeResult, error) {
	s.unfreezeArg = []string{eventID, version, actorID}
	return &models.UnfreezeResult{Draft: &models.Schedule{ID: "draft-3"}}, nil
}

func (s *releaseServiceStub) ListReleases(ctx context.Context, eventID string) ([]models.Schedule, error) {
	return s.releases, nil
}

func (s *releaseServiceStub) GetRelease(ctx context.Context, eventID, version string) (*models.Schedule, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.schedule, nil
}

func (s *releaseServiceStub) Snapshot(ctx context.Context, eventID, version string, visibleOnly bool) (*models.ScheduleSnapshot, error) {
	s.snapshotArg.version = version
	s.snapshotArg.visibleOnly = visibleOnly
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.ScheduleSnapshot{Schedule: *s.schedule, Slots: []models.TalkSlot{}}, nil
}

type changesServiceStub struct {
	changes    *models.ScheduleChanges
	unreleased bool
	seen       *models.Schedule
}

func (s *changesServiceStub) Changes(ctx context.Context, schedule *models.Schedule) (*models.ScheduleChanges, error) {
	s.seen = schedule
	return s.changes, nil
}

func (s *changesServiceStub) HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error) {
	return s.unreleased, nil
}

type warningServiceStub struct {
	called bool
}

func (s *warningServiceStub) Warnings(ctx context.Context, eventID string) (*models.ScheduleWarnings, error) {
	s.called = true
	return &models.ScheduleWarnings{TalkWarnings: []models.TalkWarnings{}, Unscheduled: 2}, nil
}

type scheduleHarness struct {
	releases *releaseServiceStub
	changes  *changesServiceStub
	warnings *warningServiceStub
	router   http.Handler
}

func newScheduleHarness() *scheduleHarness {
	h := &scheduleHarness{
		releases: &releaseServiceStub{schedule: &models.Schedule{ID: "rel-1", EventID: "event-1", Version: strPtr("v1")}},
		changes:  &changesServiceStub{changes: &models.ScheduleChanges{Action: models.ChangesActionUpdate, Count: 1}},
		warnings: &warningServiceStub{},
	}
	handler := NewScheduleHandler(h.releases, h.changes, h.warnings)

	router := newTestRouter()
	router.GET("/events/:eventId/schedules", handler.List)
	router.POST("/events/:eventId/schedules", handler.Freeze)
	router.GET("/events/:eventId/schedules/:version", handler.Get)
	router.GET("/events/:eventId/schedules/:version/changes", handler.Changes)
	router.GET("/events/:eventId/schedules/:version/warnings", handler.Warnings)
	router.POST("/events/:eventId/schedules/:version/unfreeze", handler.Unfreeze)
	router.GET("/events/:eventId/unreleased-changes", handler.UnreleasedChanges)
	h.router = router
	return h
}

func TestScheduleHandlerFreeze(t *testing.T) {
	h := newScheduleHarness()

	req, _ := http.NewRequest(http.MethodPost, "/events/event-1/schedules", bytes.NewBufferString(`{"version":"v1","comment":"first","notify_speakers":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "organiser-1")
	resp := performRequest(h.router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"slot_count":3`)
	assert.Equal(t, "event-1", h.releases.freezeReq.EventID)
	assert.Equal(t, "v1", h.releases.freezeReq.Version)
	assert.Equal(t, "organiser-1", h.releases.freezeReq.ActorID)
	assert.True(t, h.releases.freezeReq.NotifySpeakers)
	require.NotNil(t, h.releases.freezeReq.Comment)
	assert.Equal(t, "first", *h.releases.freezeReq.Comment)
}

func TestScheduleHandlerFreezeNotifiesByDefault(t *testing.T) {
	cases := map[string]bool{
		`{"version":"2.0"}`:                         true,
		`{"version":"2.0","notify_speakers":false}`: false,
	}
	for body, expected := range cases {
		h := newScheduleHarness()
		req, _ := http.NewRequest(http.MethodPost, "/events/event-1/schedules", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(h.router, req)

		require.Equal(t, http.StatusCreated, resp.Code, body)
		assert.Equal(t, expected, h.releases.freezeReq.NotifySpeakers, body)
	}
}

func TestScheduleHandlerFreezeErrors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h := newScheduleHarness()
		req, _ := http.NewRequest(http.MethodPost, "/events/event-1/schedules", bytes.NewBufferString(`{"version":`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), appErrors.ErrValidation.Code)
	})

	t.Run("duplicate version", func(t *testing.T) {
		h := newScheduleHarness()
		h.releases.freezeErr = appErrors.ErrDuplicateVersion
		req, _ := http.NewRequest(http.MethodPost, "/events/event-1/schedules", bytes.NewBufferString(`{"version":"v1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Contains(t, resp.Body.String(), appErrors.ErrDuplicateVersion.Code)
	})
}

func TestScheduleHandlerListIncludesCount(t *testing.T) {
	h := newScheduleHarness()
	h.releases.releases = []models.Schedule{{ID: "rel-2"}, {ID: "rel-1"}}

	req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules", nil)
	resp := performRequest(h.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":2`)
}

func TestScheduleHandlerGet(t *testing.T) {
	t.Run("release hides invisible slots", func(t *testing.T) {
		h := newScheduleHarness()
		req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/latest", nil)
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "latest", h.releases.snapshotArg.version)
		assert.True(t, h.releases.snapshotArg.visibleOnly)
	})

	t.Run("draft requires authentication", func(t *testing.T) {
		h := newScheduleHarness()
		req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/wip", nil)
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Empty(t, h.releases.snapshotArg.version)
	})

	t.Run("draft shows every slot", func(t *testing.T) {
		h := newScheduleHarness()
		req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/wip", nil)
		req.Header.Set("X-Test-User", "organiser-1")
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, h.releases.snapshotArg.visibleOnly)
	})

	t.Run("unknown version", func(t *testing.T) {
		h := newScheduleHarness()
		h.releases.getErr = appErrors.Clone(appErrors.ErrNotFound, "schedule version not found")
		req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/v9", nil)
		resp := performRequest(h.router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestScheduleHandlerChanges(t *testing.T) {
	h := newScheduleHarness()

	req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/v1/changes", nil)
	resp := performRequest(h.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"action":"update"`)
	require.NotNil(t, h.changes.seen)
	assert.Equal(t, "rel-1", h.changes.seen.ID)
}

func TestScheduleHandlerWarningsOnlyForDraft(t *testing.T) {
	h := newScheduleHarness()

	req, _ := http.NewRequest(http.MethodGet, "/events/event-1/schedules/v1/warnings", nil)
	resp := performRequest(h.router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, h.warnings.called)

	req, _ = http.NewRequest(http.MethodGet, "/events/event-1/schedules/wip/warnings", nil)
	req.Header.Set("X-Test-User", "organiser-1")
	resp = performRequest(h.router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"unscheduled":2`)
}

func TestScheduleHandlerUnfreeze(t *testing.T) {
	h := newScheduleHarness()

	req, _ := http.NewRequest(http.MethodPost, "/events/event-1/schedules/v1/unfreeze", nil)
	req.Header.Set("X-Test-User", "organiser-1")
	resp := performRequest(h.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"event-1", "v1", "organiser-1"}, h.releases.unfreezeArg)
}

func TestScheduleHandlerUnreleasedChanges(t *testing.T) {
	h := newScheduleHarness()
	h.changes.unreleased = true

	req, _ := http.NewRequest(http.MethodGet, "/events/event-1/unreleased-changes", nil)
	resp := performRequest(h.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"has_unreleased_changes":true`)
}
