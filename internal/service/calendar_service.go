package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type weekStore interface {
	FindByID(ctx context.Context, id string) (*models.Week, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]models.Week, int, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, week *models.Week) error
	InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, week *models.Week) (bool, error)
	UpdateFirstOut(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) error
}

type shiftStore interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	ListByWeek(ctx context.Context, weekID string) ([]models.Shift, error)
	InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) (bool, error)
	GetConfig(ctx context.Context, shiftID string) (*models.ShiftConfig, error)
	ListConfigsByWeek(ctx context.Context, weekID string) ([]models.ShiftConfig, error)
	InsertConfigIfMissing(ctx context.Context, exec sqlx.ExtContext, cfg *models.ShiftConfig) (bool, error)
	UpdateStaffedUnitByWeek(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) (int64, error)
}

type seatEnsurer interface {
	InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) (bool, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CalendarService materializes schedule weeks: the week row, its 14
// twelve-hour shifts, per-shift configuration and the full PRIMARY/SHADOW
// seat grid.
type CalendarService struct {
	weeks     weekStore
	shifts    shiftStore
	seats     seatEnsurer
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService

	rotationUnits []string
	lockLeadDays  int
}

// CalendarConfig carries the generation defaults lifted out of the legacy
// scripts.
type CalendarConfig struct {
	RotationUnits []string
	LockLeadDays  int
}

// NewCalendarService wires the week generator.
func NewCalendarService(weeks weekStore, shifts shiftStore, seats seatEnsurer, tx txProvider, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg CalendarConfig) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockLeadDays <= 0 {
		cfg.LockLeadDays = 28
	}
	return &CalendarService{
		weeks:         weeks,
		shifts:        shifts,
		seats:         seats,
		tx:            tx,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
		rotationUnits: cfg.RotationUnits,
		lockLeadDays:  cfg.LockLeadDays,
	}
}

// GenerateWeek creates a week and its full shift/seat grid. A week whose
// deterministic id already exists surfaces a conflict instead of being
// overwritten.
func (s *CalendarService) GenerateWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.WeekDetail, error) {
	week, rows, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin generate week: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := s.weeks.Exists(ctx, tx, week.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		err = appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("week %s already exists", week.ID))
		return nil, err
	}
	if err = s.weeks.Insert(ctx, tx, week); err != nil {
		return nil, err
	}
	if err = s.ensureRows(ctx, tx, rows); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit generate week: %w", err)
	}

	s.metrics.ObserveWeekGenerated()
	s.logger.Info("week generated",
		zap.String("week_id", week.ID),
		zap.String("first_out", week.FirstOutUnitID),
		zap.Int("shifts", len(rows.shifts)),
		zap.Int("seats", len(rows.seats)))

	return s.GetWeek(ctx, week.ID)
}

// EnsureWeek is the idempotent variant: missing rows are created, and
// existing rows, including any manual staffing on seat records, are left
// exactly as they are.
func (s *CalendarService) EnsureWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.WeekDetail, error) {
	week, rows, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ensure week: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created, err := s.weeks.InsertIfMissing(ctx, tx, week)
	if err != nil {
		return nil, err
	}
	if err = s.ensureRows(ctx, tx, rows); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ensure week: %w", err)
	}

	if created {
		s.metrics.ObserveWeekGenerated()
	}
	return s.GetWeek(ctx, week.ID)
}

// GetWeek returns the week with its shifts, configs and resolved
// effective units.
func (s *CalendarService) GetWeek(ctx context.Context, weekID string) (*dto.WeekDetail, error) {
	week, err := s.weeks.FindByID(ctx, weekID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("week %s not found", weekID))
	}
	if err != nil {
		return nil, fmt.Errorf("load week: %w", err)
	}

	shifts, err := s.shifts.ListByWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	configs, err := s.shifts.ListConfigsByWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	configByShift := make(map[string]*models.ShiftConfig, len(configs))
	for i := range configs {
		configByShift[configs[i].ShiftID] = &configs[i]
	}

	detail := &dto.WeekDetail{Week: *week, Shifts: make([]dto.ShiftDetail, 0, len(shifts))}
	for _, shift := range shifts {
		cfg := configByShift[shift.ID]
		detail.Shifts = append(detail.Shifts, dto.ShiftDetail{
			Shift:         shift,
			Config:        cfg,
			EffectiveUnit: cfg.EffectiveUnit(week.FirstOutUnitID),
		})
	}
	return detail, nil
}

// ListWeeks pages through stored weeks, newest first.
func (s *CalendarService) ListWeeks(ctx context.Context, page, size int) ([]models.Week, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	weeks, total, err := s.weeks.List(ctx, size, (page-1)*size)
	if err != nil {
		return nil, nil, err
	}
	return weeks, models.NewPagination(page, size, total), nil
}

// weekRows is the full deterministic row set for one week.
type weekRows struct {
	shifts  []models.Shift
	configs []models.ShiftConfig
	seats   []models.SeatRecord
}

// prepare validates the request and builds every deterministic row. Callers
// own writing them under a transaction.
func (s *CalendarService) prepare(req dto.GenerateWeekRequest) (*models.Week, *weekRows, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week generation payload")
	}
	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}

	units := req.RotationUnits
	if len(units) == 0 {
		units = s.rotationUnits
	}
	if len(units) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "rotation unit list is empty")
	}
	if !containsUnit(units, req.FirstOutUnit) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("first-out unit %s is not in the rotation list", req.FirstOutUnit))
	}

	week, rows := buildWeek(start, units, req.FirstOutUnit, s.lockLeadDays)
	return week, rows, nil
}

// buildWeek materializes the deterministic row set: 1 week, 14 shifts
// (7 DAY + 7 NIGHT), one config per shift, and 2 x len(units) seats per
// shift, PRIMARY for the first-out unit and SHADOW for every other unit.
func buildWeek(start time.Time, units []string, firstOut string, lockLeadDays int) (*models.Week, *weekRows) {
	week := &models.Week{
		ID:             models.WeekID(start),
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 6),
		LockAt:         models.LockTime(start, lockLeadDays),
		FirstOutUnitID: firstOut,
		Status:         models.WeekDraft,
	}

	rows := &weekRows{}
	for dayIndex := 0; dayIndex < 7; dayIndex++ {
		day := start.AddDate(0, 0, dayIndex)
		for _, slot := range []models.Slot{models.SlotDay, models.SlotNight} {
			startAt, endAt := models.ShiftWindow(day, slot)
			shiftID := models.ShiftID(week.ID, dayIndex, slot)
			rows.shifts = append(rows.shifts, models.Shift{
				ID:       shiftID,
				WeekID:   week.ID,
				StartAt:  startAt,
				EndAt:    endAt,
				Label:    models.ShiftLabel(day, slot),
				DayIndex: dayIndex,
				Slot:     slot,
			})
			rows.configs = append(rows.configs, models.ShiftConfig{
				ShiftID:       shiftID,
				StaffedUnitID: firstOut,
				SalaryOnly:    false,
				Active:        true,
			})
			for _, unit := range units {
				layer := models.LayerShadow
				if unit == firstOut {
					layer = models.LayerPrimary
				}
				for _, role := range models.SeatRoles {
					rows.seats = append(rows.seats, models.SeatRecord{
						ID:         models.SeatRecordID(shiftID, unit, role, layer),
						ShiftID:    shiftID,
						UnitID:     unit,
						Role:       role,
						Layer:      layer,
						EntityType: models.AssignedNone,
						Health:     models.HealthUnfilled,
					})
				}
			}
		}
	}
	return week, rows
}

func (s *CalendarService) ensureRows(ctx context.Context, tx *sqlx.Tx, rows *weekRows) error {
	for i := range rows.shifts {
		if _, err := s.shifts.InsertIfMissing(ctx, tx, &rows.shifts[i]); err != nil {
			return err
		}
	}
	for i := range rows.configs {
		if _, err := s.shifts.InsertConfigIfMissing(ctx, tx, &rows.configs[i]); err != nil {
			return err
		}
	}
	for i := range rows.seats {
		if _, err := s.seats.InsertIfMissing(ctx, tx, &rows.seats[i]); err != nil {
			return err
		}
	}
	return nil
}

func containsUnit(units []string, unit string) bool {
	for _, u := range units {
		if u == unit {
			return true
		}
	}
	return false
}
