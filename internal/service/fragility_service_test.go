package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
)

func rosterWith(people []models.Person, ops map[string][]string) *models.RosterSnapshot {
	byUnit := make(map[string]map[string]bool)
	for unit, ids := range ops {
		byUnit[unit] = make(map[string]bool)
		for _, id := range ids {
			byUnit[unit][id] = true
		}
	}
	return &models.RosterSnapshot{People: people, OpsByUnit: byUnit}
}

func person(id string, cert models.CertLevel) models.Person {
	return models.Person{ID: id, DisplayName: id, Active: true, MedicalCert: cert, WillingAttend: true}
}

var radarShift = models.Shift{ID: "WEEK_2025-12-04_to_2025-12-10__D0__DAY", Label: "Thu 12/04 DAY (06-18)"}

func TestEvaluateShiftRedReportsEveryEmptyPool(t *testing.T) {
	roster := rosterWith(nil, nil)

	radar := EvaluateShift(radarShift, "AMB120", roster, dto.RadarPolicy{})
	assert.Equal(t, RadarRed, radar.Status)
	require.Len(t, radar.Reasons, 2)
	assert.Contains(t, radar.Reasons, "no attendant candidates")
	assert.Contains(t, radar.Reasons, "no driver candidates with AMB120 ops")
}

func TestEvaluateShiftYellowWithoutALS(t *testing.T) {
	roster := rosterWith([]models.Person{
		person("emt_one", models.CertEMT),
		person("emt_two", models.CertEMT),
	}, map[string][]string{"AMB120": {"emt_one", "emt_two"}})

	radar := EvaluateShift(radarShift, "AMB120", roster, dto.RadarPolicy{})
	assert.Equal(t, RadarYellow, radar.Status)
	assert.Equal(t, []string{"no ALS-capable attendant"}, radar.Reasons)
	assert.Equal(t, 2, radar.AttendantCount)
	assert.Zero(t, radar.ALSCount)
}

func TestEvaluateShiftYellowSuppressedUnderRed(t *testing.T) {
	// No drivers and no ALS: the report stays RED and the ALS warning is
	// not stacked on top.
	roster := rosterWith([]models.Person{person("emt_one", models.CertEMT)}, nil)

	radar := EvaluateShift(radarShift, "AMB120", roster, dto.RadarPolicy{})
	assert.Equal(t, RadarRed, radar.Status)
	assert.Equal(t, []string{"no driver candidates with AMB120 ops"}, radar.Reasons)
}

func TestEvaluateShiftFragileSinglePool(t *testing.T) {
	roster := rosterWith([]models.Person{
		person("medic_one", models.CertParamedic),
		person("medic_two", models.CertParamedic),
	}, map[string][]string{"AMB120": {"medic_one"}})

	radar := EvaluateShift(radarShift, "AMB120", roster, dto.RadarPolicy{})
	assert.Equal(t, RadarYellow, radar.Status)
	assert.Equal(t, []string{"fragile: only 1 candidate in a pool"}, radar.Reasons)
	assert.Equal(t, 1, radar.DriverCount)
}

func TestEvaluateShiftGreen(t *testing.T) {
	roster := rosterWith([]models.Person{
		person("medic_one", models.CertParamedic),
		person("medic_two", models.CertALS),
	}, map[string][]string{"AMB120": {"medic_one", "medic_two"}})

	radar := EvaluateShift(radarShift, "AMB120", roster, dto.RadarPolicy{})
	assert.Equal(t, RadarGreen, radar.Status)
	assert.Empty(t, radar.Reasons)
	assert.Equal(t, 2, radar.ALSCount)
}

func TestDriverPoolPolicyAdmitsNonMedical(t *testing.T) {
	nonMedical := models.Person{ID: "driver_only", DisplayName: "driver_only", Active: true, MedicalCert: models.CertNone}
	roster := rosterWith([]models.Person{nonMedical}, map[string][]string{"AMB120": {"driver_only"}})

	strict := DriverPool(roster, "AMB120", dto.RadarPolicy{})
	assert.Empty(t, strict)

	relaxed := DriverPool(roster, "AMB120", dto.RadarPolicy{AllowNonMedicalDriver: true})
	assert.Len(t, relaxed, 1)
}

func TestAttendantPoolFilters(t *testing.T) {
	inactive := person("inactive", models.CertParamedic)
	inactive.Active = false
	unwilling := person("unwilling", models.CertParamedic)
	unwilling.WillingAttend = false
	uncertified := person("uncertified", models.CertNone)
	eligible := person("eligible", models.CertEMT)

	roster := rosterWith([]models.Person{inactive, unwilling, uncertified, eligible}, nil)
	pool := AttendantPool(roster)
	require.Len(t, pool, 1)
	assert.Equal(t, "eligible", pool[0].ID)
}

func TestFragilityServiceEvaluateWeek(t *testing.T) {
	weeks := newFakeWeekStore()
	shifts := newFakeShiftStore()
	seats := newFakeSeatStore()
	roster := newFakeRosterStore()
	roster.people["medic_one"] = person("medic_one", models.CertParamedic)
	roster.people["medic_two"] = person("medic_two", models.CertMedic)
	roster.ops["AMB120"] = map[string]bool{"medic_one": true, "medic_two": true}

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	calendar := NewCalendarService(weeks, shifts, seats, tx, nil, nil, nil, CalendarConfig{
		RotationUnits: testUnits,
		LockLeadDays:  28,
	})
	_, err := calendar.GenerateWeek(context.Background(), dto.GenerateWeekRequest{
		StartDate:    "2025-12-04",
		FirstOutUnit: "AMB120",
	})
	require.NoError(t, err)

	svc := NewFragilityService(calendar, roster, nil, nil, nil, 0, dto.RadarPolicy{})
	report, err := svc.EvaluateWeek(context.Background(), "WEEK_2025-12-04_to_2025-12-10", nil)
	require.NoError(t, err)

	require.Len(t, report.Shifts, 14)
	for _, shift := range report.Shifts {
		assert.Equal(t, RadarGreen, shift.Status)
		assert.Equal(t, "AMB120", shift.EffectiveUnit)
	}
}
