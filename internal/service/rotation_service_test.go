package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type rotationFixture struct {
	svc    *RotationService
	weeks  *fakeWeekStore
	shifts *fakeShiftStore
	seats  *fakeSeatStore
	roster *fakeRosterStore
}

func newRotationFixture(t *testing.T, weekCount int) *rotationFixture {
	weeks := newFakeWeekStore()
	shifts := newFakeShiftStore()
	seats := newFakeSeatStore()
	roster := newFakeRosterStore()
	for _, u := range testUnits {
		roster.units[u] = models.Unit{ID: u, Label: u, Active: true}
	}

	calTx, calMock := newTxProviderMock(t)
	calendar := NewCalendarService(weeks, shifts, seats, calTx, nil, nil, nil, CalendarConfig{
		RotationUnits: testUnits,
		LockLeadDays:  28,
	})

	rotTx, rotMock := newTxProviderMock(t)
	for i := 0; i < weekCount; i++ {
		calMock.ExpectBegin()
		calMock.ExpectCommit()
		rotMock.ExpectBegin()
		rotMock.ExpectCommit()
	}

	svc := NewRotationService(weeks, shifts, roster, calendar, rotTx, nil, nil, nil, testUnits)
	return &rotationFixture{svc: svc, weeks: weeks, shifts: shifts, seats: seats, roster: roster}
}

func TestRotationServicePlanRoundRobin(t *testing.T) {
	fix := newRotationFixture(t, 4)

	result, err := fix.svc.PlanRotation(context.Background(), dto.RotationPlanRequest{
		StartDate: "2025-12-04",
		Weeks:     4,
	})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 4)

	// Round-robin wraps back to the first unit on week four.
	assert.Equal(t, "AMB120", result.Assignments[0].UnitID)
	assert.Equal(t, "AMB121", result.Assignments[1].UnitID)
	assert.Equal(t, "AMB131", result.Assignments[2].UnitID)
	assert.Equal(t, "AMB120", result.Assignments[3].UnitID)

	assert.Equal(t, "2025-12-04", result.Assignments[0].StartDate)
	assert.Equal(t, "2025-12-11", result.Assignments[1].StartDate)
	assert.Equal(t, "WEEK_2025-12-18_to_2025-12-24", result.Assignments[2].WeekID)

	for _, a := range result.Assignments {
		week, err := fix.weeks.FindByID(context.Background(), a.WeekID)
		require.NoError(t, err)
		assert.Equal(t, a.UnitID, week.FirstOutUnitID)

		configs, err := fix.shifts.ListConfigsByWeek(context.Background(), a.WeekID)
		require.NoError(t, err)
		require.Len(t, configs, 14)
		for _, cfg := range configs {
			assert.Equal(t, a.UnitID, cfg.StaffedUnitID)
		}
	}
}

func TestRotationServiceApplyFirstOutLeavesOverridesAlone(t *testing.T) {
	fix := newRotationFixture(t, 2)

	_, err := fix.svc.PlanRotation(context.Background(), dto.RotationPlanRequest{
		StartDate: "2025-12-04",
		Weeks:     1,
	})
	require.NoError(t, err)

	weekID := "WEEK_2025-12-04_to_2025-12-10"
	shiftID := models.ShiftID(weekID, 0, models.SlotDay)
	override := "AMB131"
	cfg := fix.shifts.configs[shiftID]
	cfg.FirstOutOverrideID = &override
	fix.shifts.configs[shiftID] = cfg

	require.NoError(t, fix.svc.ApplyFirstOut(context.Background(), weekID, "AMB121"))

	got, err := fix.shifts.GetConfig(context.Background(), shiftID)
	require.NoError(t, err)
	assert.Equal(t, "AMB121", got.StaffedUnitID)
	require.NotNil(t, got.FirstOutOverrideID)
	assert.Equal(t, "AMB131", got.EffectiveUnit("AMB121"), "override outranks the applied unit")
}

func TestRotationServiceApplyFirstOutUnknownUnit(t *testing.T) {
	fix := newRotationFixture(t, 0)

	err := fix.svc.ApplyFirstOut(context.Background(), "WEEK_2025-12-04_to_2025-12-10", "AMB999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceApplyFirstOutMissingWeek(t *testing.T) {
	weeks := newFakeWeekStore()
	shifts := newFakeShiftStore()
	roster := newFakeRosterStore()
	roster.units["AMB120"] = models.Unit{ID: "AMB120", Label: "AMB120", Active: true}
	tx, _ := newTxProviderMock(t)

	svc := NewRotationService(weeks, shifts, roster, nil, tx, nil, nil, nil, testUnits)
	err := svc.ApplyFirstOut(context.Background(), "WEEK_2025-12-04_to_2025-12-10", "AMB120")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceApplyFirstOutLockedWeek(t *testing.T) {
	fix := newRotationFixture(t, 1)

	_, err := fix.svc.PlanRotation(context.Background(), dto.RotationPlanRequest{
		StartDate: "2025-12-04",
		Weeks:     1,
	})
	require.NoError(t, err)

	weekID := "WEEK_2025-12-04_to_2025-12-10"
	week, err := fix.weeks.FindByID(context.Background(), weekID)
	require.NoError(t, err)
	week.Status = models.WeekLocked
	require.NoError(t, fix.weeks.Insert(context.Background(), nil, week))

	err = fix.svc.ApplyFirstOut(context.Background(), weekID, "AMB121")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWeekLocked.Code, appErrors.FromError(err).Code)

	kept, err := fix.weeks.FindByID(context.Background(), weekID)
	require.NoError(t, err)
	assert.Equal(t, "AMB120", kept.FirstOutUnitID, "locked week keeps its rotation unit")
}
