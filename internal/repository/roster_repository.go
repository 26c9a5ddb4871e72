package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emsops/shiftcommander-api/internal/models"
)

// RosterRepository provides read/upsert access to people, unit ops
// capability, units and placeholders. The staffing core treats these rows
// as externally owned; only roster import writes them.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository creates a new roster repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListPeople returns the full roster.
func (r *RosterRepository) ListPeople(ctx context.Context) ([]models.Person, error) {
	const query = `SELECT person_id, display_name, active, employment_type, medical_cert, willing_attend, created_at, updated_at FROM people ORDER BY display_name ASC`
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query); err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	return people, nil
}

// FindPersonByName resolves a person by display name.
func (r *RosterRepository) FindPersonByName(ctx context.Context, displayName string) (*models.Person, error) {
	const query = `SELECT person_id, display_name, active, employment_type, medical_cert, willing_attend, created_at, updated_at FROM people WHERE display_name = $1`
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, displayName); err != nil {
		return nil, err
	}
	return &person, nil
}

// UpsertPerson inserts or refreshes a roster row by person id.
func (r *RosterRepository) UpsertPerson(ctx context.Context, exec sqlx.ExtContext, person *models.Person) error {
	now := time.Now().UTC()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	const query = `INSERT INTO people (person_id, display_name, active, employment_type, medical_cert, willing_attend, created_at, updated_at)
VALUES (:person_id, :display_name, :active, :employment_type, :medical_cert, :willing_attend, :created_at, :updated_at)
ON CONFLICT (person_id) DO UPDATE
SET display_name = EXCLUDED.display_name,
    active = EXCLUDED.active,
    employment_type = EXCLUDED.employment_type,
    medical_cert = EXCLUDED.medical_cert,
    willing_attend = EXCLUDED.willing_attend,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, person); err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}
	return nil
}

// ListOps returns every positive ops-capability row.
func (r *RosterRepository) ListOps(ctx context.Context) ([]models.PersonOps, error) {
	const query = `SELECT person_id, unit_id, can_operate FROM person_ops WHERE can_operate = TRUE`
	var ops []models.PersonOps
	if err := r.db.SelectContext(ctx, &ops, query); err != nil {
		return nil, fmt.Errorf("list person ops: %w", err)
	}
	return ops, nil
}

// UpsertOps records whether a person can operate a unit.
func (r *RosterRepository) UpsertOps(ctx context.Context, exec sqlx.ExtContext, ops *models.PersonOps) error {
	const query = `INSERT INTO person_ops (person_id, unit_id, can_operate)
VALUES (:person_id, :unit_id, :can_operate)
ON CONFLICT (person_id, unit_id) DO UPDATE SET can_operate = EXCLUDED.can_operate`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, ops); err != nil {
		return fmt.Errorf("upsert person ops: %w", err)
	}
	return nil
}

// ListUnits returns active units ordered by id.
func (r *RosterRepository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	const query = `SELECT unit_id, unit_label, active FROM units WHERE active = TRUE ORDER BY unit_id ASC`
	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, query); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// UnitExists reports whether an active unit row is present.
func (r *RosterRepository) UnitExists(ctx context.Context, unitID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM units WHERE unit_id = $1 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, unitID); err != nil {
		return false, fmt.Errorf("check unit exists: %w", err)
	}
	return count > 0, nil
}

// SeedUnit inserts a unit if absent.
func (r *RosterRepository) SeedUnit(ctx context.Context, exec sqlx.ExtContext, unit *models.Unit) error {
	const query = `INSERT INTO units (unit_id, unit_label, active) VALUES (:unit_id, :unit_label, :active)
ON CONFLICT (unit_id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, unit); err != nil {
		return fmt.Errorf("seed unit: %w", err)
	}
	return nil
}

// ListPlaceholders returns active placeholders.
func (r *RosterRepository) ListPlaceholders(ctx context.Context) ([]models.Placeholder, error) {
	const query = `SELECT placeholder_id, placeholder_label, active FROM placeholders WHERE active = TRUE ORDER BY placeholder_id ASC`
	var placeholders []models.Placeholder
	if err := r.db.SelectContext(ctx, &placeholders, query); err != nil {
		return nil, fmt.Errorf("list placeholders: %w", err)
	}
	return placeholders, nil
}

// SeedPlaceholder inserts a placeholder if absent.
func (r *RosterRepository) SeedPlaceholder(ctx context.Context, exec sqlx.ExtContext, placeholder *models.Placeholder) error {
	const query = `INSERT INTO placeholders (placeholder_id, placeholder_label, active)
VALUES (:placeholder_id, :placeholder_label, :active)
ON CONFLICT (placeholder_id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, placeholder); err != nil {
		return fmt.Errorf("seed placeholder: %w", err)
	}
	return nil
}

// Snapshot assembles the read-only roster view the radar consumes.
func (r *RosterRepository) Snapshot(ctx context.Context) (*models.RosterSnapshot, error) {
	people, err := r.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	ops, err := r.ListOps(ctx)
	if err != nil {
		return nil, err
	}

	byUnit := make(map[string]map[string]bool)
	for _, op := range ops {
		if byUnit[op.UnitID] == nil {
			byUnit[op.UnitID] = make(map[string]bool)
		}
		byUnit[op.UnitID][op.PersonID] = true
	}

	return &models.RosterSnapshot{People: people, OpsByUnit: byUnit}, nil
}
