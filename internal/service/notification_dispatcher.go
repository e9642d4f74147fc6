package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	"github.com/noah-isme/conf-schedule-api/pkg/jobs"
)

// JobTypeReleaseNotify identifies speaker notification jobs.
const JobTypeReleaseNotify = "schedule.release.notify"

type dispatchScheduleReader interface {
	FindByID(ctx context.Context, eventID, id string) (*models.Schedule, error)
	PreviousRelease(ctx context.Context, eventID string, before *time.Time) (*models.Schedule, error)
}

type speakerLister interface {
	ListSpeakers(ctx context.Context, scheduleID string) ([]string, error)
}

type releaseDiffer interface {
	Between(ctx context.Context, userID string, previous, latest *models.Schedule) (models.NotificationDiff, error)
}

// Mailer stores outgoing mails for the external mail worker.
type Mailer interface {
	Enqueue(ctx context.Context, mail *models.QueuedMail) error
}

type jobEnqueuer interface {
	EnqueueContext(ctx context.Context, job jobs.Job) error
}

// notifyEnqueueTimeout bounds how long a release waits for room in a full queue.
const notifyEnqueueTimeout = 2 * time.Second

// NotificationDispatcher writes one schedule update mail per speaker whose sessions
// changed in a release.
type NotificationDispatcher struct {
	schedules dispatchScheduleReader
	speakers  speakerLister
	diffs     releaseDiffer
	mailer    Mailer
	metrics   *MetricsService
	queue     jobEnqueuer
	logger    *zap.Logger
}

// NewNotificationDispatcher constructs the dispatcher. Without an attached queue,
// NotifyRelease dispatches inline.
func NewNotificationDispatcher(schedules dispatchScheduleReader, speakers speakerLister, diffs releaseDiffer, mailer Mailer, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{schedules: schedules, speakers: speakers, diffs: diffs, mailer: mailer, metrics: metrics, logger: logger}
}

// AttachQueue routes NotifyRelease through the background queue.
func (d *NotificationDispatcher) AttachQueue(queue jobEnqueuer) {
	d.queue = queue
}

// NotifyRelease schedules notifications for a freshly frozen release.
func (d *NotificationDispatcher) NotifyRelease(ctx context.Context, payload models.ReleaseNotifyPayload) error {
	if d.queue != nil {
		ctx, cancel := context.WithTimeout(ctx, notifyEnqueueTimeout)
		defer cancel()
		return d.queue.EnqueueContext(ctx, jobs.Job{
			ID:      payload.ScheduleID,
			Type:    JobTypeReleaseNotify,
			Payload: payload,
		})
	}
	_, err := d.Dispatch(ctx, payload)
	return err
}

// Handle is the queue handler for JobTypeReleaseNotify jobs.
func (d *NotificationDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeReleaseNotify {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	var payload models.ReleaseNotifyPayload
	switch value := job.Payload.(type) {
	case models.ReleaseNotifyPayload:
		payload = value
	case *models.ReleaseNotifyPayload:
		if value == nil {
			return errors.New("empty notification payload")
		}
		payload = *value
	default:
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	_, err := d.Dispatch(ctx, payload)
	if err != nil {
		d.metrics.RecordNotificationFailure()
	}
	return err
}

type scheduleUpdateMail struct {
	EventID    string                  `json:"event_id"`
	ScheduleID string                  `json:"schedule_id"`
	Version    string                  `json:"version"`
	Diff       models.NotificationDiff `json:"diff"`
}

// Dispatch writes the mails and returns how many were queued.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, payload models.ReleaseNotifyPayload) (int, error) {
	release, err := d.schedules.FindByID(ctx, payload.EventID, payload.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.logger.Warn("release for notification not found", zap.String("schedule_id", payload.ScheduleID))
			return 0, nil
		}
		return 0, internalError(err, "failed to load release")
	}
	if release.IsDraft() {
		return 0, nil
	}

	previous, err := d.schedules.PreviousRelease(ctx, payload.EventID, release.PublishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, internalError(err, "failed to load previous release")
	}

	speakers, err := d.speakers.ListSpeakers(ctx, release.ID)
	if err != nil {
		return 0, internalError(err, "failed to list speakers")
	}

	sent := 0
	for _, userID := range speakers {
		diff, err := d.diffs.Between(ctx, userID, previous, release)
		if err != nil {
			return sent, err
		}
		if diff.IsEmpty() {
			continue
		}
		body, err := json.Marshal(scheduleUpdateMail{
			EventID:    payload.EventID,
			ScheduleID: release.ID,
			Version:    release.VersionName(),
			Diff:       diff,
		})
		if err != nil {
			return sent, internalError(err, "failed to encode notification")
		}
		scheduleID := release.ID
		if err := d.mailer.Enqueue(ctx, &models.QueuedMail{
			EventID:    payload.EventID,
			UserID:     userID,
			ScheduleID: &scheduleID,
			Template:   models.MailTemplateScheduleUpdate,
			Payload:    body,
		}); err != nil {
			return sent, internalError(err, "failed to queue notification")
		}
		sent++
	}

	d.metrics.RecordNotifications(sent)
	d.logger.Info("release notifications queued",
		zap.String("event_id", payload.EventID),
		zap.String("version", release.VersionName()),
		zap.Int("mails", sent),
	)
	return sent, nil
}
