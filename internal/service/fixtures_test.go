package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/emsops/shiftcommander-api/internal/models"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// fakeWeekStore keeps weeks in memory; the exec parameter is ignored since
// nothing here is transactional.
type fakeWeekStore struct {
	weeks map[string]*models.Week
}

func newFakeWeekStore() *fakeWeekStore {
	return &fakeWeekStore{weeks: make(map[string]*models.Week)}
}

func (f *fakeWeekStore) FindByID(ctx context.Context, id string) (*models.Week, error) {
	week, ok := f.weeks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *week
	return &clone, nil
}

func (f *fakeWeekStore) Exists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	_, ok := f.weeks[id]
	return ok, nil
}

func (f *fakeWeekStore) List(ctx context.Context, limit, offset int) ([]models.Week, int, error) {
	all := make([]models.Week, 0, len(f.weeks))
	for _, w := range f.weeks {
		all = append(all, *w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.After(all[j].StartDate) })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(f.weeks), nil
}

func (f *fakeWeekStore) Insert(ctx context.Context, exec sqlx.ExtContext, week *models.Week) error {
	clone := *week
	f.weeks[week.ID] = &clone
	return nil
}

func (f *fakeWeekStore) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, week *models.Week) (bool, error) {
	if _, ok := f.weeks[week.ID]; ok {
		return false, nil
	}
	clone := *week
	f.weeks[week.ID] = &clone
	return true, nil
}

func (f *fakeWeekStore) UpdateFirstOut(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) error {
	week, ok := f.weeks[weekID]
	if !ok {
		return sql.ErrNoRows
	}
	week.FirstOutUnitID = unitID
	return nil
}

type fakeShiftStore struct {
	shifts  map[string]models.Shift
	configs map[string]models.ShiftConfig
}

func newFakeShiftStore() *fakeShiftStore {
	return &fakeShiftStore{
		shifts:  make(map[string]models.Shift),
		configs: make(map[string]models.ShiftConfig),
	}
}

func (f *fakeShiftStore) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	shift, ok := f.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &shift, nil
}

func (f *fakeShiftStore) ListByWeek(ctx context.Context, weekID string) ([]models.Shift, error) {
	out := make([]models.Shift, 0)
	for _, shift := range f.shifts {
		if shift.WeekID == weekID {
			out = append(out, shift)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (f *fakeShiftStore) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) (bool, error) {
	if _, ok := f.shifts[shift.ID]; ok {
		return false, nil
	}
	f.shifts[shift.ID] = *shift
	return true, nil
}

func (f *fakeShiftStore) GetConfig(ctx context.Context, shiftID string) (*models.ShiftConfig, error) {
	cfg, ok := f.configs[shiftID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cfg, nil
}

func (f *fakeShiftStore) ListConfigsByWeek(ctx context.Context, weekID string) ([]models.ShiftConfig, error) {
	out := make([]models.ShiftConfig, 0)
	for shiftID, cfg := range f.configs {
		if shift, ok := f.shifts[shiftID]; ok && shift.WeekID == weekID {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShiftID < out[j].ShiftID })
	return out, nil
}

func (f *fakeShiftStore) InsertConfigIfMissing(ctx context.Context, exec sqlx.ExtContext, cfg *models.ShiftConfig) (bool, error) {
	if _, ok := f.configs[cfg.ShiftID]; ok {
		return false, nil
	}
	f.configs[cfg.ShiftID] = *cfg
	return true, nil
}

func (f *fakeShiftStore) UpdateStaffedUnitByWeek(ctx context.Context, exec sqlx.ExtContext, weekID, unitID string) (int64, error) {
	var updated int64
	for shiftID, cfg := range f.configs {
		if shift, ok := f.shifts[shiftID]; ok && shift.WeekID == weekID {
			cfg.StaffedUnitID = unitID
			f.configs[shiftID] = cfg
			updated++
		}
	}
	return updated, nil
}

type fakeSeatStore struct {
	seats map[string]models.SeatRecord
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{seats: make(map[string]models.SeatRecord)}
}

func (f *fakeSeatStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SeatRecord, error) {
	seat, ok := f.seats[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &seat, nil
}

func (f *fakeSeatStore) ListByPerson(ctx context.Context, personID string) ([]models.PersonShift, error) {
	out := make([]models.PersonShift, 0)
	for _, seat := range f.seats {
		if seat.PersonID != nil && *seat.PersonID == personID {
			out = append(out, models.PersonShift{SeatRecord: seat})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSeatStore) ListByShift(ctx context.Context, shiftID string) ([]models.SeatRecord, error) {
	out := make([]models.SeatRecord, 0)
	for _, seat := range f.seats {
		if seat.ShiftID == shiftID {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

func (f *fakeSeatStore) ListByWeek(ctx context.Context, weekID string) ([]models.SeatRecord, error) {
	out := make([]models.SeatRecord, 0)
	for _, seat := range f.seats {
		if strings.HasPrefix(seat.ShiftID, weekID+"__") {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

func (f *fakeSeatStore) InsertIfMissing(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) (bool, error) {
	if _, ok := f.seats[seat.ID]; ok {
		return false, nil
	}
	if seat.CreatedAt.IsZero() {
		seat.CreatedAt = time.Now().UTC()
	}
	f.seats[seat.ID] = *seat
	return true, nil
}

func (f *fakeSeatStore) UpdateAssignment(ctx context.Context, exec sqlx.ExtContext, seat *models.SeatRecord) error {
	if _, ok := f.seats[seat.ID]; !ok {
		return sql.ErrNoRows
	}
	f.seats[seat.ID] = *seat
	return nil
}

func (f *fakeSeatStore) UpdateNote(ctx context.Context, exec sqlx.ExtContext, seatRecordID, note string) error {
	seat, ok := f.seats[seatRecordID]
	if !ok {
		return sql.ErrNoRows
	}
	seat.Note = note
	f.seats[seatRecordID] = seat
	return nil
}

func (f *fakeSeatStore) UpdatePlaceholderID(ctx context.Context, exec sqlx.ExtContext, seatRecordID, placeholderID string) error {
	seat, ok := f.seats[seatRecordID]
	if !ok {
		return sql.ErrNoRows
	}
	seat.PlaceholderID = &placeholderID
	f.seats[seatRecordID] = seat
	return nil
}

func (f *fakeSeatStore) Delete(ctx context.Context, exec sqlx.ExtContext, seatRecordID string) error {
	delete(f.seats, seatRecordID)
	return nil
}

func (f *fakeSeatStore) ListByKey(ctx context.Context, exec sqlx.ExtContext, key models.SeatKey) ([]models.SeatRecord, error) {
	out := make([]models.SeatRecord, 0)
	for _, seat := range f.seats {
		if seat.Key() == key {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeSeatStore) ListDuplicateKeys(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatKey, error) {
	counts := make(map[models.SeatKey]int)
	for _, seat := range f.seats {
		counts[seat.Key()]++
	}
	out := make([]models.SeatKey, 0)
	for key, n := range counts {
		if n > 1 {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShiftID < out[j].ShiftID })
	return out, nil
}

func (f *fakeSeatStore) ListPlaceholderRefs(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatRecord, error) {
	out := make([]models.SeatRecord, 0)
	for _, seat := range f.seats {
		if seat.PlaceholderID != nil && *seat.PlaceholderID != "" {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

func sortSeats(seats []models.SeatRecord) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
}

type fakeRosterStore struct {
	people       map[string]models.Person
	ops          map[string]map[string]bool
	units        map[string]models.Unit
	placeholders map[string]models.Placeholder
}

func newFakeRosterStore() *fakeRosterStore {
	return &fakeRosterStore{
		people:       make(map[string]models.Person),
		ops:          make(map[string]map[string]bool),
		units:        make(map[string]models.Unit),
		placeholders: make(map[string]models.Placeholder),
	}
}

func (f *fakeRosterStore) ListPeople(ctx context.Context) ([]models.Person, error) {
	out := make([]models.Person, 0, len(f.people))
	for _, p := range f.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (f *fakeRosterStore) UpsertPerson(ctx context.Context, exec sqlx.ExtContext, person *models.Person) error {
	f.people[person.ID] = *person
	return nil
}

func (f *fakeRosterStore) UpsertOps(ctx context.Context, exec sqlx.ExtContext, ops *models.PersonOps) error {
	if f.ops[ops.UnitID] == nil {
		f.ops[ops.UnitID] = make(map[string]bool)
	}
	f.ops[ops.UnitID][ops.PersonID] = ops.CanOperate
	return nil
}

func (f *fakeRosterStore) ListUnits(ctx context.Context) ([]models.Unit, error) {
	out := make([]models.Unit, 0, len(f.units))
	for _, u := range f.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRosterStore) UnitExists(ctx context.Context, unitID string) (bool, error) {
	_, ok := f.units[unitID]
	return ok, nil
}

func (f *fakeRosterStore) SeedUnit(ctx context.Context, exec sqlx.ExtContext, unit *models.Unit) error {
	if _, ok := f.units[unit.ID]; !ok {
		f.units[unit.ID] = *unit
	}
	return nil
}

func (f *fakeRosterStore) ListPlaceholders(ctx context.Context) ([]models.Placeholder, error) {
	out := make([]models.Placeholder, 0, len(f.placeholders))
	for _, p := range f.placeholders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRosterStore) SeedPlaceholder(ctx context.Context, exec sqlx.ExtContext, placeholder *models.Placeholder) error {
	if _, ok := f.placeholders[placeholder.ID]; !ok {
		f.placeholders[placeholder.ID] = *placeholder
	}
	return nil
}

func (f *fakeRosterStore) Snapshot(ctx context.Context) (*models.RosterSnapshot, error) {
	people, _ := f.ListPeople(ctx)
	return &models.RosterSnapshot{People: people, OpsByUnit: f.ops}, nil
}
