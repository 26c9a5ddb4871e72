package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type weekEnsurer interface {
	EnsureWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.WeekDetail, error)
}

type unitChecker interface {
	UnitExists(ctx context.Context, unitID string) (bool, error)
}

// RotationService owns the first-out rotation: pointing a week (and all of
// its shifts) at a unit, and planning round-robin sequences across
// consecutive weeks. Seat records are never touched; which unit's seats
// count as PRIMARY is resolved at read time from the shift config.
type RotationService struct {
	weeks     weekStore
	shifts    shiftStore
	units     unitChecker
	calendar  weekEnsurer
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService

	rotationUnits []string
}

// NewRotationService wires the rotation engine.
func NewRotationService(weeks weekStore, shifts shiftStore, units unitChecker, calendar weekEnsurer, tx txProvider, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, rotationUnits []string) *RotationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RotationService{
		weeks:         weeks,
		shifts:        shifts,
		units:         units,
		calendar:      calendar,
		tx:            tx,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
		rotationUnits: rotationUnits,
	}
}

// ApplyFirstOut updates the week default and every shift's staffed unit in
// one transaction. Per-shift overrides always win over the rotation
// default, so they are left untouched.
func (s *RotationService) ApplyFirstOut(ctx context.Context, weekID, unitID string) error {
	if unitID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "unit id is required")
	}
	if s.units != nil {
		known, err := s.units.UnitExists(ctx, unitID)
		if err != nil {
			return err
		}
		if !known {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unit %s not found", unitID))
		}
	}

	week, err := s.weeks.FindByID(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("week %s not found", weekID))
	}
	if err != nil {
		return err
	}
	if week.Status == models.WeekLocked {
		return appErrors.Clone(appErrors.ErrWeekLocked, fmt.Sprintf("week %s is locked", weekID))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply first-out: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.weeks.UpdateFirstOut(ctx, tx, weekID, unitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("week %s not found", weekID))
		}
		return err
	}
	updated, err := s.shifts.UpdateStaffedUnitByWeek(ctx, tx, weekID, unitID)
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply first-out: %w", err)
	}

	s.metrics.ObserveRotationApplied()
	s.logger.Info("first-out applied",
		zap.String("week_id", weekID),
		zap.String("unit_id", unitID),
		zap.Int64("shifts_updated", updated))
	return nil
}

// PlanRotation ensures N consecutive weeks exist and assigns first-out
// round-robin: week i gets units[i mod len(units)]. No fairness beyond the
// modular sequence is attempted.
func (s *RotationService) PlanRotation(ctx context.Context, req dto.RotationPlanRequest) (*dto.RotationPlanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rotation plan payload")
	}
	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}

	units := req.Units
	if len(units) == 0 {
		units = s.rotationUnits
	}
	if len(units) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rotation unit list is empty")
	}

	starts, err := weeklyStarts(start, req.Weeks)
	if err != nil {
		return nil, fmt.Errorf("enumerate week starts: %w", err)
	}

	result := &dto.RotationPlanResult{Assignments: make([]dto.WeekAssignment, 0, len(starts))}
	for i, weekStart := range starts {
		unit := units[i%len(units)]

		if _, err := s.calendar.EnsureWeek(ctx, dto.GenerateWeekRequest{
			StartDate:     weekStart.Format("2006-01-02"),
			FirstOutUnit:  unit,
			RotationUnits: units,
		}); err != nil {
			return nil, err
		}

		weekID := models.WeekID(weekStart)
		if err := s.ApplyFirstOut(ctx, weekID, unit); err != nil {
			return nil, err
		}
		result.Assignments = append(result.Assignments, dto.WeekAssignment{
			WeekID:    weekID,
			StartDate: weekStart.Format("2006-01-02"),
			UnitID:    unit,
		})
	}

	s.logger.Info("rotation planned",
		zap.String("start", req.StartDate),
		zap.Int("weeks", len(result.Assignments)))
	return result, nil
}

// weeklyStarts enumerates count week-start dates from start using a
// WEEKLY recurrence rule.
func weeklyStarts(start time.Time, count int) ([]time.Time, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   count,
		Dtstart: start,
	})
	if err != nil {
		return nil, err
	}
	return rule.All(), nil
}
