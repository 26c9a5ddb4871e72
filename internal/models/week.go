package models

import (
	"fmt"
	"time"
)

// WeekStatus is the lifecycle state of a schedule week.
type WeekStatus string

const (
	WeekDraft    WeekStatus = "DRAFT"
	WeekLocked   WeekStatus = "LOCKED"
	WeekArchived WeekStatus = "ARCHIVED"
)

// Slot identifies the half of a scheduling day a shift covers.
type Slot string

const (
	SlotDay   Slot = "DAY"
	SlotNight Slot = "NIGHT"
)

// ValidSlot reports whether s names a known slot.
func ValidSlot(s Slot) bool {
	return s == SlotDay || s == SlotNight
}

// Shift window boundaries. DAY runs 06:00-18:00; NIGHT spans midnight.
const (
	DayStartHour   = 6
	DayEndHour     = 18
	NightStartHour = 18
	NightEndHour   = 6
)

// Week is a fixed seven-day scheduling period.
type Week struct {
	ID             string     `db:"week_id" json:"week_id"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        time.Time  `db:"end_date" json:"end_date"`
	LockAt         time.Time  `db:"lock_at" json:"lock_at"`
	FirstOutUnitID string     `db:"first_out_unit_id" json:"first_out_unit_id"`
	Status         WeekStatus `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Shift is a 12-hour staffing window inside a week. Time boundaries are
// immutable once created; only the companion ShiftConfig changes.
type Shift struct {
	ID       string    `db:"shift_id" json:"shift_id"`
	WeekID   string    `db:"week_id" json:"week_id"`
	StartAt  time.Time `db:"start_at" json:"start_at"`
	EndAt    time.Time `db:"end_at" json:"end_at"`
	Label    string    `db:"label" json:"label"`
	DayIndex int       `db:"day_index" json:"day_index"`
	Slot     Slot      `db:"slot" json:"slot"`
}

// ShiftConfig holds the mutable staffing configuration of a shift.
type ShiftConfig struct {
	ShiftID            string  `db:"shift_id" json:"shift_id"`
	StaffedUnitID      string  `db:"staffed_unit_id" json:"staffed_unit_id"`
	FirstOutOverrideID *string `db:"first_out_override_unit_id" json:"first_out_override_unit_id,omitempty"`
	SalaryOnly         bool    `db:"salary_only" json:"salary_only"`
	Active             bool    `db:"active" json:"active"`
}

// EffectiveUnit resolves which unit a shift is first-out for: a per-shift
// override always wins over the staffed unit, which in turn falls back to
// the week default.
func (c *ShiftConfig) EffectiveUnit(weekDefault string) string {
	if c == nil {
		return weekDefault
	}
	if c.FirstOutOverrideID != nil && *c.FirstOutOverrideID != "" {
		return *c.FirstOutOverrideID
	}
	if c.StaffedUnitID != "" {
		return c.StaffedUnitID
	}
	return weekDefault
}

// WeekID derives the deterministic week identifier from a start date.
// Re-creating a week for the same start date collides on this id instead
// of producing a second row.
func WeekID(start time.Time) string {
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("WEEK_%s_to_%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// ShiftID derives the deterministic shift identifier.
func ShiftID(weekID string, dayIndex int, slot Slot) string {
	return fmt.Sprintf("%s__D%d__%s", weekID, dayIndex, slot)
}

// ShiftLabel renders the human label used across exports and the UI,
// e.g. "Thu 12/04 DAY (06-18)".
func ShiftLabel(day time.Time, slot Slot) string {
	window := "(06-18)"
	if slot == SlotNight {
		window = "(18-06)"
	}
	return fmt.Sprintf("%s %s %s", day.Format("Mon 01/02"), slot, window)
}

// ShiftWindow returns the start and end timestamps for a slot on the given
// calendar day. NIGHT ends at 06:00 the following day.
func ShiftWindow(day time.Time, slot Slot) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	if slot == SlotDay {
		return time.Date(y, m, d, DayStartHour, 0, 0, 0, loc),
			time.Date(y, m, d, DayEndHour, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, NightStartHour, 0, 0, 0, loc),
		time.Date(y, m, d, NightEndHour, 0, 0, 0, loc).AddDate(0, 0, 1)
}

// LockTime computes the week lock marker: leadDays before the start date,
// at midnight local time.
func LockTime(start time.Time, leadDays int) time.Time {
	y, m, d := start.AddDate(0, 0, -leadDays).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, start.Location())
}
