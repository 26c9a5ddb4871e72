package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsops/shiftcommander-api/internal/models"
)

func TestCanonPlaceholderID(t *testing.T) {
	cases := map[string]string{
		"PH_FIRE_DIVISION":   "PH_FIRE_DIVISION",
		"Fire Division":      "PH_FIRE_DIVISION",
		"ph_fire__division":  "PH_FIRE_DIVISION",
		"  PH_Fire Division": "PH_FIRE_DIVISION",
		"EMS Supervisor":     "PH_EMS_SUPERVISOR",
		"PH_VOL-DUTY":        "PH_VOL_DUTY",
		"":                   "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, CanonPlaceholderID(raw), "input %q", raw)
	}
}

func TestExtractHistoryTag(t *testing.T) {
	assert.Equal(t, "HISTORY_DEC2025", ExtractHistoryTag("HISTORY_DEC2025"))
	assert.Equal(t, "HISTORY_DEC2025", ExtractHistoryTag("imported HISTORY_DEC2025 keep"))
	assert.Equal(t, "", ExtractHistoryTag("manual note"))
	assert.Equal(t, "", ExtractHistoryTag(""))
}

func TestScoreSeatRecord(t *testing.T) {
	person := "jane_doe"
	ph := "PH_FIRE_DIVISION"

	blank := models.SeatRecord{EntityType: models.AssignedNone, Health: models.HealthUnfilled}
	assert.Equal(t, 0, ScoreSeatRecord(blank))

	assigned := models.SeatRecord{EntityType: models.AssignedPerson, PersonID: &person, Health: models.HealthFilled}
	assert.Equal(t, 113, ScoreSeatRecord(assigned))

	tagged := models.SeatRecord{
		EntityType:    models.AssignedPlaceholder,
		PlaceholderID: &ph,
		Health:        models.HealthFilled,
		Note:          "HISTORY_DEC2025",
	}
	assert.Equal(t, 1112, ScoreSeatRecord(tagged))
}

func TestChooseSurvivorTieBreaks(t *testing.T) {
	earlier := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	a := models.SeatRecord{ID: "b", CreatedAt: later}
	b := models.SeatRecord{ID: "a", CreatedAt: earlier}
	winner, losers := ChooseSurvivor([]models.SeatRecord{a, b})
	assert.Equal(t, "a", winner.ID, "earliest created wins on equal score")
	assert.Len(t, losers, 1)

	c := models.SeatRecord{ID: "z", CreatedAt: earlier}
	d := models.SeatRecord{ID: "y", CreatedAt: earlier}
	winner, _ = ChooseSurvivor([]models.SeatRecord{c, d})
	assert.Equal(t, "y", winner.ID, "lowest id wins on equal score and time")
}

func newReconcileFixture(t *testing.T) (*ReconcileService, *fakeSeatStore, func()) {
	seats := newFakeSeatStore()
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewReconcileService(seats, tx, nil, nil)
	return svc, seats, func() { assert.NoError(t, mock.ExpectationsWereMet()) }
}

func seatForKey(id string, created time.Time) models.SeatRecord {
	return models.SeatRecord{
		ID:         id,
		ShiftID:    "WEEK_2025-12-04_to_2025-12-10__D0__DAY",
		UnitID:     "AMB120",
		Role:       models.SeatAttendant,
		Layer:      models.LayerPrimary,
		EntityType: models.AssignedNone,
		Health:     models.HealthUnfilled,
		CreatedAt:  created,
	}
}

func TestReconcileCollapsesDuplicatesAndCopiesTag(t *testing.T) {
	svc, seats, done := newReconcileFixture(t)
	defer done()
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	// An assigned untagged row, a tagged history row, and a blank default,
	// all sharing one seat key.
	person := "jane_doe"
	assigned := seatForKey("seat-a", now)
	assigned.EntityType = models.AssignedPerson
	assigned.PersonID = &person
	assigned.Health = models.HealthFilled

	ph := "PH_FIRE_DIVISION"
	tagged := seatForKey("seat-b", now.Add(time.Hour))
	tagged.EntityType = models.AssignedPlaceholder
	tagged.PlaceholderID = &ph
	tagged.Health = models.HealthFilled
	tagged.Note = "HISTORY_DEC2025"

	blank := seatForKey("seat-c", now.Add(2*time.Hour))

	for _, rec := range []models.SeatRecord{assigned, tagged, blank} {
		r := rec
		_, err := seats.InsertIfMissing(context.Background(), nil, &r)
		require.NoError(t, err)
	}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.BlanksPruned)
	assert.Equal(t, 1, report.RecordsDeleted)
	assert.Equal(t, 1, report.GroupsResolved)
	assert.Empty(t, report.UnresolvedGroups)

	// The tagged history row outscores the manual assignment.
	survivor, err := seats.FindByID(context.Background(), nil, "seat-b")
	require.NoError(t, err)
	assert.Equal(t, "HISTORY_DEC2025", survivor.Note)
	assert.Len(t, seats.seats, 1)
}

func TestReconcileUntaggedDuplicatesKeepEarliest(t *testing.T) {
	svc, seats, done := newReconcileFixture(t)
	defer done()
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	// No tag anywhere, equal scores: the oldest row survives and nothing
	// is pruned as a blank.
	first := seatForKey("seat-b", now)
	second := seatForKey("seat-a", now.Add(time.Hour))
	for _, rec := range []models.SeatRecord{first, second} {
		r := rec
		_, err := seats.InsertIfMissing(context.Background(), nil, &r)
		require.NoError(t, err)
	}

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.BlanksPruned)
	assert.Equal(t, 1, report.RecordsDeleted)

	_, err = seats.FindByID(context.Background(), nil, "seat-b")
	assert.NoError(t, err, "earliest created row survives")
}

func TestReconcileNormalizesPlaceholderSpellings(t *testing.T) {
	svc, seats, done := newReconcileFixture(t)
	defer done()

	ph := "Fire Division"
	rec := seatForKey("seat-a", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	rec.EntityType = models.AssignedPlaceholder
	rec.PlaceholderID = &ph
	rec.Health = models.HealthFilled
	_, err := seats.InsertIfMissing(context.Background(), nil, &rec)
	require.NoError(t, err)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.PlaceholdersFixed)

	fixed, err := seats.FindByID(context.Background(), nil, "seat-a")
	require.NoError(t, err)
	require.NotNil(t, fixed.PlaceholderID)
	assert.Equal(t, "PH_FIRE_DIVISION", *fixed.PlaceholderID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	seats := newFakeSeatStore()
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewReconcileService(seats, tx, nil, nil)
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	tagged := seatForKey("seat-a", now)
	tagged.Health = models.HealthFilled
	tagged.Note = "HISTORY_DEC2025"
	blank := seatForKey("seat-b", now.Add(time.Hour))
	for _, rec := range []models.SeatRecord{tagged, blank} {
		r := rec
		_, err := seats.InsertIfMissing(context.Background(), nil, &r)
		require.NoError(t, err)
	}

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.BlanksPruned)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.BlanksPruned)
	assert.Zero(t, second.RecordsDeleted)
	assert.Empty(t, second.UnresolvedGroups)
}
