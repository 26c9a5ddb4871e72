package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	"github.com/emsops/shiftcommander-api/pkg/config"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type reconcileRunner interface {
	Run(ctx context.Context) (*dto.ReconcileReport, error)
}

// ImportService bulk-loads historical seat assignments. Every written seat
// carries the request's history tag in its note, which is what makes these
// rows authoritative when the reconciler later collapses duplicates: a
// history import that skips reconciliation leaves stale blanks behind, so
// the service always runs a pass before returning.
type ImportService struct {
	calendar  weekEnsurer
	seats     seatStore
	reconcile reconcileRunner
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger

	defaultFirstOut string
	weekStartDay    time.Weekday
	backfill        config.BackfillConfig
}

// NewImportService wires the history importer.
func NewImportService(calendar weekEnsurer, seats seatStore, reconcile reconcileRunner, tx txProvider, validate *validator.Validate, logger *zap.Logger, defaultFirstOut string, weekStartDay time.Weekday, backfill config.BackfillConfig) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		calendar:        calendar,
		seats:           seats,
		reconcile:       reconcile,
		tx:              tx,
		validator:       validate,
		logger:          logger,
		defaultFirstOut: defaultFirstOut,
		weekStartDay:    weekStartDay,
		backfill:        backfill,
	}
}

// ImportHistory writes tagged PRIMARY seat assignments for the given rows,
// materializing any weeks and shifts the rows land on. Unassigned DRIVER
// rows on weekdays are backfilled per the configured policy; unassigned
// weekend rows are never guessed at and come back as pending gaps.
func (s *ImportService) ImportHistory(ctx context.Context, req dto.HistoryImportRequest) (*dto.HistoryImportReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history import payload")
	}
	tag := NormalizeHistoryTag(req.Tag)

	rows := make([]historySeat, 0, len(req.Rows))
	weekStarts := make(map[string]time.Time)
	for i, raw := range req.Rows {
		row, err := s.resolveRow(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("row %d: %v", i+1, err))
		}
		rows = append(rows, row)
		weekStarts[models.WeekID(row.weekStart)] = row.weekStart
	}

	// Materialize every touched week first, outside the seat transaction,
	// so the deterministic shift ids the rows point at exist.
	for _, start := range weekStarts {
		ensureReq := dto.GenerateWeekRequest{
			StartDate:    start.Format("2006-01-02"),
			FirstOutUnit: s.defaultFirstOut,
		}
		if _, err := s.calendar.EnsureWeek(ctx, ensureReq); err != nil {
			return nil, err
		}
	}

	report := &dto.HistoryImportReport{}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin history import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, row := range rows {
		assignment := row.assignment
		backfilled := false
		if !assignment.IsAssigned() {
			switch {
			case row.role == models.SeatDriver && row.isWeekday && s.backfill.Enabled:
				assignment = models.AssignPlaceholder(s.backfill.WeekdayPlaceholderID)
				backfilled = true
			default:
				gap := fmt.Sprintf("%s %s %s %s", row.date, row.slot, row.unitID, row.role)
				report.PendingGaps = append(report.PendingGaps, gap)
				s.logger.Warn("history gap left unfilled",
					zap.String("gap", gap),
					zap.String("code", appErrors.ErrPolicyAmbiguity.Code))
				continue
			}
		}

		seat := &models.SeatRecord{
			ID:      models.SeatRecordID(row.shiftID, row.unitID, row.role, models.LayerPrimary),
			ShiftID: row.shiftID,
			UnitID:  row.unitID,
			Role:    row.role,
			Layer:   models.LayerPrimary,
			Health:  models.HealthFilled,
			Note:    tag,
		}
		seat.SetAssignment(assignment)

		if err = s.writeSeat(ctx, tx, seat); err != nil {
			return nil, err
		}
		report.SeatsWritten++
		if backfilled {
			report.Backfilled++
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit history import: %w", err)
	}

	reconciliation, err := s.reconcile.Run(ctx)
	if err != nil {
		return nil, err
	}
	report.Reconciliation = *reconciliation

	s.logger.Info("history imported",
		zap.String("tag", tag),
		zap.Int("seats", report.SeatsWritten),
		zap.Int("backfilled", report.Backfilled),
		zap.Int("pending_gaps", len(report.PendingGaps)))
	return report, nil
}

// writeSeat inserts the tagged record, or overwrites the row already held
// under the deterministic id (usually the blank default the week
// materializer left there).
func (s *ImportService) writeSeat(ctx context.Context, tx *sqlx.Tx, seat *models.SeatRecord) error {
	created, err := s.seats.InsertIfMissing(ctx, tx, seat)
	if err != nil {
		return err
	}
	if created {
		return nil
	}
	existing, err := s.seats.FindByID(ctx, tx, seat.ID)
	if err != nil {
		return fmt.Errorf("load seat for history overwrite: %w", err)
	}
	existing.SetAssignment(seat.Assignment())
	existing.Health = seat.Health
	existing.Note = seat.Note
	return s.seats.UpdateAssignment(ctx, tx, existing)
}

type historySeat struct {
	date       string
	slot       models.Slot
	unitID     string
	role       models.SeatRole
	weekStart  time.Time
	shiftID    string
	isWeekday  bool
	assignment models.Assignment
}

func (s *ImportService) resolveRow(raw dto.HistorySeatRow) (historySeat, error) {
	day, err := time.ParseInLocation("2006-01-02", raw.Date, time.Local)
	if err != nil {
		return historySeat{}, fmt.Errorf("invalid date %q", raw.Date)
	}
	if raw.PersonID != "" && raw.PlaceholderID != "" {
		return historySeat{}, fmt.Errorf("row assigns both a person and a placeholder")
	}

	assignment := models.Unassigned()
	if raw.PersonID != "" {
		assignment = models.AssignPerson(raw.PersonID)
	} else if raw.PlaceholderID != "" {
		assignment = models.AssignPlaceholder(CanonPlaceholderID(raw.PlaceholderID))
	}

	slot := models.Slot(raw.Slot)
	weekStart := WeekStartFor(day, s.weekStartDay)
	dayIndex := calendarDaysBetween(weekStart, day)
	weekday := day.Weekday()

	return historySeat{
		date:       raw.Date,
		slot:       slot,
		unitID:     strings.ToUpper(strings.TrimSpace(raw.UnitID)),
		role:       models.SeatRole(raw.Role),
		weekStart:  weekStart,
		shiftID:    models.ShiftID(models.WeekID(weekStart), dayIndex, slot),
		isWeekday:  weekday >= time.Monday && weekday <= time.Friday,
		assignment: assignment,
	}, nil
}

// WeekStartFor snaps a date back to the weekday that opens its schedule
// week.
func WeekStartFor(day time.Time, weekStartDay time.Weekday) time.Time {
	delta := (int(day.Weekday()) - int(weekStartDay) + 7) % 7
	return day.AddDate(0, 0, -delta)
}

// calendarDaysBetween counts whole calendar days from start to end. The
// diff runs over UTC-normalized dates, so a DST transition inside the
// window cannot shave an hour off and truncate the count.
func calendarDaysBetween(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s) / (24 * time.Hour))
}

// NormalizeHistoryTag guarantees the provenance prefix the reconciler
// scores on.
func NormalizeHistoryTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, " ", "_")
	if !strings.HasPrefix(tag, HistoryTagPrefix) {
		tag = HistoryTagPrefix + tag
	}
	return tag
}
