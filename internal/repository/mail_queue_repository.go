package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// MailQueueRepository writes outbox rows picked up by the external mail worker.
type MailQueueRepository struct {
	db *sqlx.DB
}

// NewMailQueueRepository constructs a mail queue repository.
func NewMailQueueRepository(db *sqlx.DB) *MailQueueRepository {
	return &MailQueueRepository{db: db}
}

// Enqueue stores a queued mail.
func (r *MailQueueRepository) Enqueue(ctx context.Context, mail *models.QueuedMail) error {
	if mail.ID == "" {
		mail.ID = uuid.NewString()
	}
	if mail.CreatedAt.IsZero() {
		mail.CreatedAt = time.Now().UTC()
	}
	payload := types.JSONText(mail.Payload)
	if len(payload) == 0 {
		payload = types.JSONText(`{}`)
	}
	const query = `INSERT INTO queued_mails (id, event_id, user_id, schedule_id, template, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, mail.ID, mail.EventID, mail.UserID, mail.ScheduleID, mail.Template, payload, mail.CreatedAt); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
