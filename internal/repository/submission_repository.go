package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// SubmissionRepository reads submissions and their speakers.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID loads a submission of the event.
func (r *SubmissionRepository) FindByID(ctx context.Context, eventID, id string) (*models.Submission, error) {
	const query = `SELECT id, event_id, code, title, state FROM submissions WHERE event_id = $1 AND id = $2`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, eventID, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// SpeakersBySubmission maps each submission to its speaker user ids.
func (r *SubmissionRepository) SpeakersBySubmission(ctx context.Context, submissionIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return result, nil
	}
	const query = `SELECT submission_id, user_id FROM submission_speakers WHERE submission_id = ANY($1) ORDER BY submission_id, user_id`
	var rows []models.SubmissionSpeaker
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(submissionIDs)); err != nil {
		return nil, fmt.Errorf("list submission speakers: %w", err)
	}
	for _, row := range rows {
		result[row.SubmissionID] = append(result[row.SubmissionID], row.UserID)
	}
	return result, nil
}
