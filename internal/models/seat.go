package models

import (
	"fmt"
	"strings"
	"time"
)

// SeatRole identifies the operational role a seat covers.
type SeatRole string

const (
	SeatAttendant SeatRole = "ATTENDANT"
	SeatDriver    SeatRole = "DRIVER"
)

// SeatRoles lists every role in the canonical order seats are materialized.
var SeatRoles = []SeatRole{SeatAttendant, SeatDriver}

// ValidSeatRole reports whether r names a known seat role.
func ValidSeatRole(r SeatRole) bool {
	return r == SeatAttendant || r == SeatDriver
}

// Layer distinguishes the effective unit's seats from the standby seats
// kept for every other rotation unit.
type Layer string

const (
	LayerPrimary Layer = "PRIMARY"
	LayerShadow  Layer = "SHADOW"
)

// ValidLayer reports whether l names a known layer.
func ValidLayer(l Layer) bool {
	return l == LayerPrimary || l == LayerShadow
}

// HealthStatus annotates the staffing state of a seat record.
type HealthStatus string

const (
	HealthUnfilled HealthStatus = "UNFILLED"
	HealthFilled   HealthStatus = "FILLED"
	HealthGreen    HealthStatus = "GREEN"
	HealthYellow   HealthStatus = "YELLOW"
	HealthRed      HealthStatus = "RED"
)

// AssignmentType tags the variant held by an Assignment.
type AssignmentType string

const (
	AssignedNone        AssignmentType = "NONE"
	AssignedPerson      AssignmentType = "PERSON"
	AssignedPlaceholder AssignmentType = "PLACEHOLDER"
)

// Assignment is the tagged variant of who (if anyone) holds a seat. The
// constructors are the only way to build one, so a PERSON assignment can
// never carry a placeholder id and vice versa.
type Assignment struct {
	typ           AssignmentType
	personID      string
	placeholderID string
}

// Unassigned returns the empty assignment.
func Unassigned() Assignment {
	return Assignment{typ: AssignedNone}
}

// AssignPerson returns a person assignment.
func AssignPerson(personID string) Assignment {
	return Assignment{typ: AssignedPerson, personID: personID}
}

// AssignPlaceholder returns a placeholder assignment.
func AssignPlaceholder(placeholderID string) Assignment {
	return Assignment{typ: AssignedPlaceholder, placeholderID: placeholderID}
}

// Type returns the variant tag.
func (a Assignment) Type() AssignmentType { return a.typ }

// PersonID returns the assigned person id and whether the variant is PERSON.
func (a Assignment) PersonID() (string, bool) {
	return a.personID, a.typ == AssignedPerson
}

// PlaceholderID returns the placeholder id and whether the variant is PLACEHOLDER.
func (a Assignment) PlaceholderID() (string, bool) {
	return a.placeholderID, a.typ == AssignedPlaceholder
}

// IsAssigned reports whether the seat is held by a person or placeholder.
func (a Assignment) IsAssigned() bool {
	return a.typ == AssignedPerson || a.typ == AssignedPlaceholder
}

// SeatKey is the uniqueness key of a seat record.
type SeatKey struct {
	ShiftID string   `db:"shift_id" json:"shift_id"`
	UnitID  string   `db:"unit_id" json:"unit_id"`
	Role    SeatRole `db:"seat_role" json:"seat_role"`
	Layer   Layer    `db:"layer" json:"layer"`
}

// SeatRecord is the staffing unit of record, unique per SeatKey.
type SeatRecord struct {
	ID            string         `db:"seat_record_id" json:"seat_record_id"`
	ShiftID       string         `db:"shift_id" json:"shift_id"`
	UnitID        string         `db:"unit_id" json:"unit_id"`
	Role          SeatRole       `db:"seat_role" json:"seat_role"`
	Layer         Layer          `db:"layer" json:"layer"`
	EntityType    AssignmentType `db:"assigned_entity_type" json:"assigned_entity_type"`
	PersonID      *string        `db:"assigned_person_id" json:"assigned_person_id,omitempty"`
	PlaceholderID *string        `db:"assigned_placeholder_id" json:"assigned_placeholder_id,omitempty"`
	Health        HealthStatus   `db:"health_status" json:"health_status"`
	Note          string         `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Key returns the record's uniqueness key.
func (s *SeatRecord) Key() SeatKey {
	return SeatKey{ShiftID: s.ShiftID, UnitID: s.UnitID, Role: s.Role, Layer: s.Layer}
}

// Assignment reconstructs the tagged variant from the stored columns.
// Inconsistent rows (a person id alongside a NONE tag, say) collapse to
// the tag, which is what imports and reconciliation key off.
func (s *SeatRecord) Assignment() Assignment {
	switch s.EntityType {
	case AssignedPerson:
		if s.PersonID != nil {
			return AssignPerson(*s.PersonID)
		}
	case AssignedPlaceholder:
		if s.PlaceholderID != nil {
			return AssignPlaceholder(*s.PlaceholderID)
		}
	}
	return Unassigned()
}

// SetAssignment writes the variant back to the stored columns, keeping the
// (type, id) pair consistent by construction.
func (s *SeatRecord) SetAssignment(a Assignment) {
	s.EntityType = a.Type()
	s.PersonID = nil
	s.PlaceholderID = nil
	if id, ok := a.PersonID(); ok {
		s.PersonID = &id
	}
	if id, ok := a.PlaceholderID(); ok {
		s.PlaceholderID = &id
	}
}

// IsBlankDefault reports whether the record is an untouched materialized
// seat: unassigned, unfilled, no note. Blank defaults never outrank rows
// carrying real or historical data.
func (s *SeatRecord) IsBlankDefault() bool {
	if s.Assignment().IsAssigned() {
		return false
	}
	if s.Health != "" && s.Health != HealthUnfilled {
		return false
	}
	return strings.TrimSpace(s.Note) == ""
}

// SeatRecordID derives the deterministic seat record identifier so reruns
// of week materialization collide instead of duplicating.
func SeatRecordID(shiftID, unitID string, role SeatRole, layer Layer) string {
	return fmt.Sprintf("%s__%s__%s__%s", shiftID, layer, unitID, role)
}

// PersonShift is a seat record joined with its shift, the row shape of a
// person's schedule view.
type PersonShift struct {
	SeatRecord
	Label   string    `db:"label" json:"label"`
	StartAt time.Time `db:"start_at" json:"start_at"`
	EndAt   time.Time `db:"end_at" json:"end_at"`
}
