package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emsops/shiftcommander-api/internal/models"
)

// ShiftRepository provides persistence for shifts and their configuration.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository creates a new shift repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

func (r *ShiftRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a shift by id.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	const query = `SELECT shift_id, week_id, start_at, end_at, label, day_index, slot FROM shifts WHERE shift_id = $1`
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// ListByWeek returns the week's shifts in chronological order.
func (r *ShiftRepository) ListByWeek(ctx context.Context, weekID string) ([]models.Shift, error) {
	const query = `SELECT shift_id, week_id, start_at, end_at, label, day_index, slot FROM shifts WHERE week_id = $1 ORDER BY start_at ASC`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, weekID); err != nil {
		return nil, fmt.Errorf("list shifts by week: %w", err)
	}
	return shifts, nil
}

// InsertIfMissing writes a shift unless its deterministic id already exists.
func (r *ShiftRepository) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) (bool, error) {
	const query = `INSERT INTO shifts (shift_id, week_id, start_at, end_at, label, day_index, slot)
VALUES (:shift_id, :week_id, :start_at, :end_at, :label, :day_index, :slot)
ON CONFLICT (shift_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, shift)
	if err != nil {
		return false, fmt.Errorf("ensure shift: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure shift affected rows: %w", err)
	}
	return affected > 0, nil
}

// GetConfig loads the configuration row of a shift.
func (r *ShiftRepository) GetConfig(ctx context.Context, shiftID string) (*models.ShiftConfig, error) {
	const query = `SELECT shift_id, staffed_unit_id, first_out_override_unit_id, salary_only, active FROM shift_config WHERE shift_id = $1`
	var cfg models.ShiftConfig
	if err := r.db.GetContext(ctx, &cfg, query, shiftID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigsByWeek returns config rows for every shift in the week.
func (r *ShiftRepository) ListConfigsByWeek(ctx context.Context, weekID string) ([]models.ShiftConfig, error) {
	const query = `SELECT c.shift_id, c.staffed_unit_id, c.first_out_override_unit_id, c.salary_only, c.active
FROM shift_config c JOIN shifts s ON s.shift_id = c.shift_id
WHERE s.week_id = $1 ORDER BY s.start_at ASC`
	var configs []models.ShiftConfig
	if err := r.db.SelectContext(ctx, &configs, query, weekID); err != nil {
		return nil, fmt.Errorf("list shift configs by week: %w", err)
	}
	return configs, nil
}

// InsertConfigIfMissing writes a config row unless one already exists.
// Existing rows keep their salary-only and override flags untouched.
func (r *ShiftRepository) InsertConfigIfMissing(ctx context.Context, exec sqlx.ExtContext, cfg *models.ShiftConfig) (bool, error) {
	const query = `INSERT INTO shift_config (shift_id, staffed_unit_id, first_out_override_unit_id, salary_only, active)
VALUES (:shift_id, :staffed_unit_id, :first_out_override_unit_id, :salary_only, :active)
ON CONFLICT (shift_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, cfg)
	if err != nil {
		return false, fmt.Errorf("ensure shift config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure shift config affected rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateStaffedUnitByWeek repoints every shift in the week at the unit.
// Per-shift first-out overrides are deliberately left alone.
func (r *ShiftRepository) UpdateStaffedUnitByWeek(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) (int64, error) {
	const query = `UPDATE shift_config SET staffed_unit_id = $1
WHERE shift_id IN (SELECT shift_id FROM shifts WHERE week_id = $2)`
	res, err := r.exec(exec).ExecContext(ctx, query, unitID, weekID)
	if err != nil {
		return 0, fmt.Errorf("update staffed unit by week: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update staffed unit affected rows: %w", err)
	}
	return affected, nil
}

// SetOverride sets or clears the per-shift first-out override.
func (r *ShiftRepository) SetOverride(ctx context.Context, exec sqlx.ExtContext, shiftID string, unitID *string) error {
	const query = `UPDATE shift_config SET first_out_override_unit_id = $1 WHERE shift_id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, unitID, shiftID); err != nil {
		return fmt.Errorf("set shift override: %w", err)
	}
	return nil
}

// FindShiftForDate resolves the shift covering the given calendar day and slot.
func (r *ShiftRepository) FindShiftForDate(ctx context.Context, day time.Time, slot models.Slot) (*models.Shift, error) {
	const query = `SELECT shift_id, week_id, start_at, end_at, label, day_index, slot FROM shifts WHERE DATE(start_at) = $1 AND slot = $2`
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, day.Format("2006-01-02"), slot); err != nil {
		return nil, err
	}
	return &shift, nil
}
