package service

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/models"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/interval"
)

type availabilityRepository interface {
	ListByOwner(ctx context.Context, exec sqlx.ExtContext, owner models.AvailabilityOwner) ([]models.Availability, error)
	DeleteByOwner(ctx context.Context, exec sqlx.ExtContext, owner models.AvailabilityOwner) error
	Insert(ctx context.Context, exec sqlx.ExtContext, rows []models.Availability) error
}

// AvailabilityService stores room and speaker availability as a minimal disjoint set of windows.
type AvailabilityService struct {
	repo   availabilityRepository
	tx     txProvider
	logger *zap.Logger
}

// NewAvailabilityService constructs the availability service.
func NewAvailabilityService(repo availabilityRepository, tx txProvider, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, tx: tx, logger: logger}
}

// Replace swaps every stored window of the owner for the merged input in one transaction.
// An empty input clears the owner.
func (s *AvailabilityService) Replace(ctx context.Context, owner models.AvailabilityOwner, windows []interval.Window) (result []interval.Window, err error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	merged := interval.Merge(windows)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.DeleteByOwner(ctx, tx, owner); err != nil {
		return nil, internalError(err, "failed to clear availabilities")
	}
	rows := make([]models.Availability, 0, len(merged))
	for _, w := range merged {
		rows = append(rows, models.Availability{
			EventID:  owner.EventID,
			RoomID:   stringPtr(owner.RoomID),
			PersonID: stringPtr(owner.PersonID),
			StartAt:  w.Start,
			EndAt:    w.End,
		})
	}
	if err = s.repo.Insert(ctx, tx, rows); err != nil {
		return nil, internalError(err, "failed to store availabilities")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit availabilities")
	}

	s.logger.Debug("availabilities replaced",
		zap.String("event_id", owner.EventID),
		zap.String("room_id", owner.RoomID),
		zap.String("person_id", owner.PersonID),
		zap.Int("submitted", len(windows)),
		zap.Int("stored", len(merged)),
	)
	return merged, nil
}

// Read returns the stored windows of the owner, merged again so legacy overlaps never leak.
func (s *AvailabilityService) Read(ctx context.Context, owner models.AvailabilityOwner) ([]interval.Window, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, nil, owner)
	if err != nil {
		return nil, internalError(err, "failed to load availabilities")
	}
	windows := make([]interval.Window, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, row.Window())
	}
	merged := interval.Merge(windows)
	if len(merged) != len(windows) {
		s.logger.Debug("stored availabilities overlapped",
			zap.String("event_id", owner.EventID),
			zap.Int("stored", len(windows)),
			zap.Int("merged", len(merged)),
		)
	}
	return merged, nil
}

func validateOwner(owner models.AvailabilityOwner) error {
	if owner.EventID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "event id is required")
	}
	if (owner.RoomID == "") == (owner.PersonID == "") {
		return appErrors.Clone(appErrors.ErrValidation, "availability needs exactly one owner: a room or a person")
	}
	return nil
}

func validateWindows(windows []interval.Window) error {
	if err := interval.Validate(windows); err != nil {
		if errors.Is(err, interval.ErrMalformed) {
			return appErrors.Wrap(err, appErrors.ErrMalformedInterval.Code, appErrors.ErrMalformedInterval.Status, err.Error())
		}
		return internalError(err, "failed to validate availabilities")
	}
	return nil
}
