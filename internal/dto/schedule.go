package dto

import (
	"time"

	"github.com/emsops/shiftcommander-api/internal/models"
)

// GenerateWeekRequest describes a week materialization call.
type GenerateWeekRequest struct {
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	FirstOutUnit  string   `json:"first_out_unit" validate:"required"`
	RotationUnits []string `json:"rotation_units,omitempty"`
}

// ApplyFirstOutRequest points a week's rotation default at a unit.
type ApplyFirstOutRequest struct {
	UnitID string `json:"unit_id" validate:"required"`
}

// RotationPlanRequest applies round-robin first-out over consecutive weeks.
type RotationPlanRequest struct {
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	Weeks     int      `json:"weeks" validate:"required,min=1,max=52"`
	Units     []string `json:"units,omitempty"`
}

// RotationPlanResult reports the unit assigned to each planned week.
type RotationPlanResult struct {
	Assignments []WeekAssignment `json:"assignments"`
}

// WeekAssignment pairs a planned week with its first-out unit.
type WeekAssignment struct {
	WeekID    string `json:"week_id"`
	StartDate string `json:"start_date"`
	UnitID    string `json:"unit_id"`
}

// WeekDetail is the read view of a week with its shifts.
type WeekDetail struct {
	Week   models.Week   `json:"week"`
	Shifts []ShiftDetail `json:"shifts"`
}

// ShiftDetail joins a shift with its config and resolved effective unit.
type ShiftDetail struct {
	Shift         models.Shift        `json:"shift"`
	Config        *models.ShiftConfig `json:"config,omitempty"`
	EffectiveUnit string              `json:"effective_unit"`
}

// SeatAssignmentRequest updates who holds a seat.
type SeatAssignmentRequest struct {
	EntityType    models.AssignmentType `json:"entity_type" validate:"required,oneof=NONE PERSON PLACEHOLDER"`
	PersonID      string                `json:"person_id,omitempty"`
	PlaceholderID string                `json:"placeholder_id,omitempty"`
	Health        models.HealthStatus   `json:"health_status,omitempty"`
	Note          string                `json:"note,omitempty"`
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	GroupsResolved    int              `json:"groups_resolved"`
	RecordsDeleted    int              `json:"records_deleted"`
	BlanksPruned      int              `json:"blanks_pruned"`
	PlaceholdersFixed int              `json:"placeholders_fixed"`
	UnresolvedGroups  []models.SeatKey `json:"unresolved_groups,omitempty"`
}

// RadarPolicy tunes eligibility evaluation.
type RadarPolicy struct {
	AllowNonMedicalDriver bool `json:"allow_non_medical_driver"`
}

// ShiftRadar is the per-shift fragility verdict.
type ShiftRadar struct {
	ShiftID        string    `json:"shift_id"`
	Label          string    `json:"label"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	EffectiveUnit  string    `json:"effective_unit"`
	AttendantCount int       `json:"attendant_count"`
	ALSCount       int       `json:"als_count"`
	DriverCount    int       `json:"driver_count"`
	Status         string    `json:"status"`
	Reasons        []string  `json:"reasons,omitempty"`
}

// WeekRadar aggregates shift verdicts for a week.
type WeekRadar struct {
	WeekID      string       `json:"week_id"`
	Policy      RadarPolicy  `json:"policy"`
	Shifts      []ShiftRadar `json:"shifts"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// RosterImportReport summarizes a roster CSV ingestion.
type RosterImportReport struct {
	PeopleUpserted int      `json:"people_upserted"`
	OpsUpserted    int      `json:"ops_upserted"`
	Skipped        []string `json:"skipped,omitempty"`
}

// HistorySeatRow is one externally imported seat assignment.
type HistorySeatRow struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Slot          string `json:"slot" validate:"required,oneof=DAY NIGHT"`
	UnitID        string `json:"unit_id" validate:"required"`
	Role          string `json:"seat_role" validate:"required,oneof=ATTENDANT DRIVER"`
	PersonID      string `json:"person_id,omitempty"`
	PlaceholderID string `json:"placeholder_id,omitempty"`
}

// HistoryImportRequest bulk-writes historical assignments under a tag.
type HistoryImportRequest struct {
	Tag  string           `json:"tag" validate:"required"`
	Rows []HistorySeatRow `json:"rows" validate:"required,min=1,dive"`
}

// HistoryImportReport summarizes a history import pass.
type HistoryImportReport struct {
	SeatsWritten   int             `json:"seats_written"`
	Backfilled     int             `json:"backfilled"`
	PendingGaps    []string        `json:"pending_gaps,omitempty"`
	Reconciliation ReconcileReport `json:"reconciliation"`
}
