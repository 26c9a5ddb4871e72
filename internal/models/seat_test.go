package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentVariants(t *testing.T) {
	none := Unassigned()
	assert.False(t, none.IsAssigned())
	_, ok := none.PersonID()
	assert.False(t, ok)

	person := AssignPerson("jane_doe")
	assert.True(t, person.IsAssigned())
	id, ok := person.PersonID()
	assert.True(t, ok)
	assert.Equal(t, "jane_doe", id)
	_, ok = person.PlaceholderID()
	assert.False(t, ok)

	ph := AssignPlaceholder("PH_FIRE_DIVISION")
	id, ok = ph.PlaceholderID()
	assert.True(t, ok)
	assert.Equal(t, "PH_FIRE_DIVISION", id)
}

func TestSeatRecordAssignmentRoundTrip(t *testing.T) {
	rec := SeatRecord{EntityType: AssignedNone}
	rec.SetAssignment(AssignPerson("jane_doe"))
	assert.Equal(t, AssignedPerson, rec.EntityType)
	assert.NotNil(t, rec.PersonID)
	assert.Nil(t, rec.PlaceholderID)

	rec.SetAssignment(AssignPlaceholder("PH_VOL_DUTY"))
	assert.Equal(t, AssignedPlaceholder, rec.EntityType)
	assert.Nil(t, rec.PersonID)
	assert.NotNil(t, rec.PlaceholderID)

	rec.SetAssignment(Unassigned())
	assert.Equal(t, AssignedNone, rec.EntityType)
	assert.Nil(t, rec.PersonID)
	assert.Nil(t, rec.PlaceholderID)
}

func TestSeatRecordAssignmentCollapsesInconsistentRows(t *testing.T) {
	stale := "jane_doe"
	rec := SeatRecord{EntityType: AssignedNone, PersonID: &stale}
	assert.False(t, rec.Assignment().IsAssigned())
}

func TestIsBlankDefault(t *testing.T) {
	rec := SeatRecord{EntityType: AssignedNone, Health: HealthUnfilled}
	assert.True(t, rec.IsBlankDefault())

	rec.Note = "HISTORY_DEC2025"
	assert.False(t, rec.IsBlankDefault())

	rec.Note = ""
	rec.Health = HealthFilled
	assert.False(t, rec.IsBlankDefault())

	rec.Health = HealthUnfilled
	rec.SetAssignment(AssignPlaceholder("PH_FIRE_DIVISION"))
	assert.False(t, rec.IsBlankDefault())
}

func TestSeatRecordIDFormat(t *testing.T) {
	id := SeatRecordID("WEEK_2025-12-04_to_2025-12-10__D0__DAY", "AMB120", SeatAttendant, LayerPrimary)
	assert.Equal(t, "WEEK_2025-12-04_to_2025-12-10__D0__DAY__PRIMARY__AMB120__ATTENDANT", id)
}
