package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emsops/shiftcommander-api/internal/models"
)

// SeatRepository provides persistence for seat records.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new seat repository.
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

func (r *SeatRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const seatColumns = `seat_record_id, shift_id, unit_id, seat_role, layer, assigned_entity_type, assigned_person_id, assigned_placeholder_id, health_status, note, created_at`

// FindByID loads a seat record by id. Callers holding a transaction must
// pass it: a row written inside an open tx is invisible to the pool
// connection.
func (r *SeatRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SeatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM seat_records WHERE seat_record_id = $1`, seatColumns)
	var seat models.SeatRecord
	if err := sqlx.GetContext(ctx, r.exec(exec), &seat, query, id); err != nil {
		return nil, err
	}
	return &seat, nil
}

// ListByPerson returns the person's assigned seats joined with their
// shifts, soonest first.
func (r *SeatRepository) ListByPerson(ctx context.Context, personID string) ([]models.PersonShift, error) {
	const query = `SELECT r.seat_record_id, r.shift_id, r.unit_id, r.seat_role, r.layer, r.assigned_entity_type, r.assigned_person_id, r.assigned_placeholder_id, r.health_status, r.note, r.created_at, s.label, s.start_at, s.end_at
FROM seat_records r JOIN shifts s ON s.shift_id = r.shift_id
WHERE r.assigned_person_id = $1 ORDER BY s.start_at ASC, r.layer ASC, r.unit_id ASC`
	var seats []models.PersonShift
	if err := r.db.SelectContext(ctx, &seats, query, personID); err != nil {
		return nil, fmt.Errorf("list seats by person: %w", err)
	}
	return seats, nil
}

// ListByShift returns the shift's seat records, PRIMARY layer first.
func (r *SeatRepository) ListByShift(ctx context.Context, shiftID string) ([]models.SeatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM seat_records WHERE shift_id = $1 ORDER BY layer ASC, unit_id ASC, seat_role ASC`, seatColumns)
	var seats []models.SeatRecord
	if err := r.db.SelectContext(ctx, &seats, query, shiftID); err != nil {
		return nil, fmt.Errorf("list seats by shift: %w", err)
	}
	return seats, nil
}

// ListByWeek returns every seat record across the week's shifts.
func (r *SeatRepository) ListByWeek(ctx context.Context, weekID string) ([]models.SeatRecord, error) {
	const query = `SELECT r.seat_record_id, r.shift_id, r.unit_id, r.seat_role, r.layer, r.assigned_entity_type, r.assigned_person_id, r.assigned_placeholder_id, r.health_status, r.note, r.created_at
FROM seat_records r JOIN shifts s ON s.shift_id = r.shift_id
WHERE s.week_id = $1 ORDER BY s.start_at ASC, r.layer ASC, r.unit_id ASC, r.seat_role ASC`
	var seats []models.SeatRecord
	if err := r.db.SelectContext(ctx, &seats, query, weekID); err != nil {
		return nil, fmt.Errorf("list seats by week: %w", err)
	}
	return seats, nil
}

// ListByKey returns every record sharing a seat key, oldest first. A
// healthy store returns exactly one row; reconciliation consumes the rest.
func (r *SeatRepository) ListByKey(ctx context.Context, exec sqlx.ExtContext, key models.SeatKey) ([]models.SeatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM seat_records WHERE shift_id = $1 AND unit_id = $2 AND seat_role = $3 AND layer = $4 ORDER BY created_at ASC, seat_record_id ASC`, seatColumns)
	var seats []models.SeatRecord
	if err := sqlx.SelectContext(ctx, r.exec(exec), &seats, query, key.ShiftID, key.UnitID, key.Role, key.Layer); err != nil {
		return nil, fmt.Errorf("list seats by key: %w", err)
	}
	return seats, nil
}

// ListDuplicateKeys surfaces seat keys that hold more than one record.
func (r *SeatRepository) ListDuplicateKeys(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatKey, error) {
	const query = `SELECT shift_id, unit_id, seat_role, layer FROM seat_records
GROUP BY shift_id, unit_id, seat_role, layer HAVING COUNT(*) > 1`
	var keys []models.SeatKey
	if err := sqlx.SelectContext(ctx, r.exec(exec), &keys, query); err != nil {
		return nil, fmt.Errorf("list duplicate seat keys: %w", err)
	}
	return keys, nil
}

// InsertIfMissing writes a seat record unless its deterministic id exists.
// Existing rows keep their assignment fields untouched.
func (r *SeatRepository) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) (bool, error) {
	if seat.CreatedAt.IsZero() {
		seat.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO seat_records (seat_record_id, shift_id, unit_id, seat_role, layer, assigned_entity_type, assigned_person_id, assigned_placeholder_id, health_status, note, created_at)
VALUES (:seat_record_id, :shift_id, :unit_id, :seat_role, :layer, :assigned_entity_type, :assigned_person_id, :assigned_placeholder_id, :health_status, :note, :created_at)
ON CONFLICT (seat_record_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, seat)
	if err != nil {
		return false, fmt.Errorf("ensure seat record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure seat record affected rows: %w", err)
	}
	return affected > 0, nil
}

// UpdateAssignment rewrites who holds the seat plus its health and note.
func (r *SeatRepository) UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) error {
	const query = `UPDATE seat_records
SET assigned_entity_type = :assigned_entity_type,
    assigned_person_id = :assigned_person_id,
    assigned_placeholder_id = :assigned_placeholder_id,
    health_status = :health_status,
    note = :note
WHERE seat_record_id = :seat_record_id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, seat); err != nil {
		return fmt.Errorf("update seat assignment: %w", err)
	}
	return nil
}

// UpdateNote rewrites only the note column, used to carry provenance tags
// onto a reconciliation winner.
func (r *SeatRepository) UpdateNote(ctx context.Context, exec sqlx.ExtContext, seatRecordID, note string) error {
	const query = `UPDATE seat_records SET note = $1 WHERE seat_record_id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, note, seatRecordID); err != nil {
		return fmt.Errorf("update seat note: %w", err)
	}
	return nil
}

// UpdatePlaceholderID rewrites the placeholder reference on a record.
func (r *SeatRepository) UpdatePlaceholderID(ctx context.Context, exec sqlx.ExtContext, seatRecordID, placeholderID string) error {
	const query = `UPDATE seat_records SET assigned_placeholder_id = $1 WHERE seat_record_id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, placeholderID, seatRecordID); err != nil {
		return fmt.Errorf("update seat placeholder: %w", err)
	}
	return nil
}

// ListPlaceholderRefs returns (seat id, placeholder id) pairs for every
// record carrying a placeholder assignment.
func (r *SeatRepository) ListPlaceholderRefs(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM seat_records WHERE assigned_placeholder_id IS NOT NULL`, seatColumns)
	var seats []models.SeatRecord
	if err := sqlx.SelectContext(ctx, r.exec(exec), &seats, query); err != nil {
		return nil, fmt.Errorf("list placeholder refs: %w", err)
	}
	return seats, nil
}

// Delete removes a seat record by id.
func (r *SeatRepository) Delete(ctx context.Context, exec sqlx.ExtContext, seatRecordID string) error {
	const query = `DELETE FROM seat_records WHERE seat_record_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, seatRecordID); err != nil {
		return fmt.Errorf("delete seat record: %w", err)
	}
	return nil
}
