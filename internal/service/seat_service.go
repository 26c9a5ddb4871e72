package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type seatStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SeatRecord, error)
	ListByShift(ctx context.Context, shiftID string) ([]models.SeatRecord, error)
	ListByWeek(ctx context.Context, weekID string) ([]models.SeatRecord, error)
	ListByPerson(ctx context.Context, personID string) ([]models.PersonShift, error)
	InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) (bool, error)
	UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) error
}

// SeatService exposes seat-record reads and manual assignment edits. All
// structural maintenance (dedup, pruning, normalization) belongs to the
// reconciler, not here.
type SeatService struct {
	seats     seatStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSeatService wires seat access.
func NewSeatService(seats seatStore, validate *validator.Validate, logger *zap.Logger) *SeatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatService{seats: seats, validator: validate, logger: logger}
}

// ListByShift returns the shift's seat grid.
func (s *SeatService) ListByShift(ctx context.Context, shiftID string) ([]models.SeatRecord, error) {
	return s.seats.ListByShift(ctx, shiftID)
}

// ListByWeek returns every seat record in the week.
func (s *SeatService) ListByWeek(ctx context.Context, weekID string) ([]models.SeatRecord, error) {
	return s.seats.ListByWeek(ctx, weekID)
}

// PersonSchedule returns every seat the person holds, soonest shift first.
func (s *SeatService) PersonSchedule(ctx context.Context, personID string) ([]models.PersonShift, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id is required")
	}
	return s.seats.ListByPerson(ctx, personID)
}

// UpdateAssignment applies a manual staffing edit to one seat record.
func (s *SeatService) UpdateAssignment(ctx context.Context, seatRecordID string, req dto.SeatAssignmentRequest) (*models.SeatRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seat assignment payload")
	}

	assignment, err := assignmentFromRequest(req)
	if err != nil {
		return nil, err
	}

	seat, err := s.seats.FindByID(ctx, nil, seatRecordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("seat record %s not found", seatRecordID))
	}
	if err != nil {
		return nil, fmt.Errorf("load seat record: %w", err)
	}

	seat.SetAssignment(assignment)
	if req.Health != "" {
		seat.Health = req.Health
	} else if assignment.IsAssigned() {
		seat.Health = models.HealthFilled
	} else {
		seat.Health = models.HealthUnfilled
	}
	seat.Note = req.Note

	if err := s.seats.UpdateAssignment(ctx, nil, seat); err != nil {
		return nil, err
	}

	s.logger.Info("seat assignment updated",
		zap.String("seat_record_id", seat.ID),
		zap.String("entity_type", string(seat.EntityType)))
	return seat, nil
}

func assignmentFromRequest(req dto.SeatAssignmentRequest) (models.Assignment, error) {
	switch req.EntityType {
	case models.AssignedPerson:
		if req.PersonID == "" {
			return models.Assignment{}, appErrors.Clone(appErrors.ErrValidation, "person_id is required for a PERSON assignment")
		}
		return models.AssignPerson(req.PersonID), nil
	case models.AssignedPlaceholder:
		if req.PlaceholderID == "" {
			return models.Assignment{}, appErrors.Clone(appErrors.ErrValidation, "placeholder_id is required for a PLACEHOLDER assignment")
		}
		return models.AssignPlaceholder(CanonPlaceholderID(req.PlaceholderID)), nil
	case models.AssignedNone:
		return models.Unassigned(), nil
	default:
		return models.Assignment{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity type %q", req.EntityType))
	}
}
