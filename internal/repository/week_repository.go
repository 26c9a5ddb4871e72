package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emsops/shiftcommander-api/internal/models"
)

// WeekRepository provides persistence for schedule weeks.
type WeekRepository struct {
	db *sqlx.DB
}

// NewWeekRepository creates a new week repository.
func NewWeekRepository(db *sqlx.DB) *WeekRepository {
	return &WeekRepository{db: db}
}

func (r *WeekRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a week by id. Returns sql.ErrNoRows when absent.
func (r *WeekRepository) FindByID(ctx context.Context, id string) (*models.Week, error) {
	const query = `SELECT week_id, start_date, end_date, lock_at, first_out_unit_id, status, created_at, updated_at FROM weeks WHERE week_id = $1`
	var week models.Week
	if err := r.db.GetContext(ctx, &week, query, id); err != nil {
		return nil, err
	}
	return &week, nil
}

// Exists reports whether a week row is present for the id.
func (r *WeekRepository) Exists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `SELECT 1 FROM weeks WHERE week_id = $1 LIMIT 1`
	var one int
	err := sqlx.GetContext(ctx, r.exec(exec), &one, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check week exists: %w", err)
	}
	return true, nil
}

// List returns weeks ordered by start date.
func (r *WeekRepository) List(ctx context.Context, limit, offset int) ([]models.Week, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT week_id, start_date, end_date, lock_at, first_out_unit_id, status, created_at, updated_at FROM weeks ORDER BY start_date DESC LIMIT %d OFFSET %d`, limit, offset)
	var weeks []models.Week
	if err := r.db.SelectContext(ctx, &weeks, query); err != nil {
		return nil, 0, fmt.Errorf("list weeks: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM weeks`); err != nil {
		return nil, 0, fmt.Errorf("count weeks: %w", err)
	}
	return weeks, total, nil
}

// Insert stores a new week row.
func (r *WeekRepository) Insert(ctx context.Context, exec sqlx.ExtContext, week *models.Week) error {
	now := time.Now().UTC()
	if week.CreatedAt.IsZero() {
		week.CreatedAt = now
	}
	week.UpdatedAt = now

	const query = `INSERT INTO weeks (week_id, start_date, end_date, lock_at, first_out_unit_id, status, created_at, updated_at)
VALUES (:week_id, :start_date, :end_date, :lock_at, :first_out_unit_id, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, week); err != nil {
		return fmt.Errorf("insert week: %w", err)
	}
	return nil
}

// InsertIfMissing stores the week only when its id is not taken yet.
// Returns true when a row was written.
func (r *WeekRepository) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, week *models.Week) (bool, error) {
	now := time.Now().UTC()
	if week.CreatedAt.IsZero() {
		week.CreatedAt = now
	}
	week.UpdatedAt = now

	const query = `INSERT INTO weeks (week_id, start_date, end_date, lock_at, first_out_unit_id, status, created_at, updated_at)
VALUES (:week_id, :start_date, :end_date, :lock_at, :first_out_unit_id, :status, :created_at, :updated_at)
ON CONFLICT (week_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, week)
	if err != nil {
		return false, fmt.Errorf("ensure week: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure week affected rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateFirstOut points the week's rotation default at a unit.
func (r *WeekRepository) UpdateFirstOut(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) error {
	const query = `UPDATE weeks SET first_out_unit_id = $1, updated_at = $2 WHERE week_id = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, unitID, time.Now().UTC(), weekID)
	if err != nil {
		return fmt.Errorf("update week first-out: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update week first-out affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a week through its lifecycle.
func (r *WeekRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, weekID string, status models.WeekStatus) error {
	const query = `UPDATE weeks SET status = $1, updated_at = $2 WHERE week_id = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), weekID)
	if err != nil {
		return fmt.Errorf("update week status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update week status affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
