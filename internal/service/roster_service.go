package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
)

type rosterStore interface {
	ListPeople(ctx context.Context) ([]models.Person, error)
	UpsertPerson(ctx context.Context, exec sqlx.ExtContext, person *models.Person) error
	UpsertOps(ctx context.Context, exec sqlx.ExtContext, ops *models.PersonOps) error
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListPlaceholders(ctx context.Context) ([]models.Placeholder, error)
	SeedUnit(ctx context.Context, exec sqlx.ExtContext, unit *models.Unit) error
	SeedPlaceholder(ctx context.Context, exec sqlx.ExtContext, placeholder *models.Placeholder) error
}

// CanonicalPlaceholders are the stand-in assignees seeded on every import so
// coverage rules always have something to point at.
var CanonicalPlaceholders = []models.Placeholder{
	{ID: "PH_FIRE_DIVISION", Label: "Fire Division", Active: true},
	{ID: "PH_EMS_SUPERVISOR", Label: "EMS Supervisor", Active: true},
	{ID: "PH_VOL_DUTY", Label: "Volunteer Duty", Active: true},
}

// RosterService ingests roster CSVs and serves roster reads. Rows are
// upserted by person id, so re-importing the same file is a no-op apart
// from refreshed timestamps.
type RosterService struct {
	roster rosterStore
	tx     txProvider
	logger *zap.Logger

	rotationUnits []string
}

// NewRosterService wires roster access.
func NewRosterService(roster rosterStore, tx txProvider, logger *zap.Logger, rotationUnits []string) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{roster: roster, tx: tx, logger: logger, rotationUnits: rotationUnits}
}

// ListPeople returns the full roster.
func (s *RosterService) ListPeople(ctx context.Context) ([]models.Person, error) {
	return s.roster.ListPeople(ctx)
}

// ListUnits returns the active units.
func (s *RosterService) ListUnits(ctx context.Context) ([]models.Unit, error) {
	return s.roster.ListUnits(ctx)
}

// ListPlaceholders returns the active placeholders.
func (s *RosterService) ListPlaceholders(ctx context.Context) ([]models.Placeholder, error) {
	return s.roster.ListPlaceholders(ctx)
}

// ImportCSV loads a roster CSV. The only required column is display_name;
// person ids are derived from the name when the person_id column is blank,
// and rows that cannot be parsed are skipped with a reason rather than
// failing the whole import.
func (s *RosterService) ImportCSV(ctx context.Context, r io.Reader) (*dto.RosterImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "roster CSV has no header row")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols["display_name"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster CSV missing required column: display_name")
	}

	existing, err := s.roster.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	idTaken := make(map[string]bool, len(existing))
	idByName := make(map[string]string, len(existing))
	for _, p := range existing {
		idTaken[p.ID] = true
		idByName[p.DisplayName] = p.ID
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin roster import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.seedDefaults(ctx, tx); err != nil {
		return nil, err
	}

	report := &dto.RosterImportReport{}
	line := 1
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: %v", line, readErr))
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		name := field("display_name")
		if name == "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("line %d: missing display_name", line))
			continue
		}

		personID := field("person_id")
		if personID == "" {
			personID = resolvePersonID(name, idTaken, idByName)
		}
		idTaken[personID] = true
		idByName[name] = personID

		person := &models.Person{
			ID:             personID,
			DisplayName:    name,
			Active:         parseBool(field("active"), true),
			EmploymentType: parseEnum(field("employment_type"), []string{"FT", "PT", "VOL"}, "PT"),
			MedicalCert:    parseCert(field("medical_cert")),
			WillingAttend:  parseBool(field("willing_attend"), true),
		}
		if err = s.roster.UpsertPerson(ctx, tx, person); err != nil {
			return nil, err
		}
		report.PeopleUpserted++

		for _, unit := range splitList(field("ops_units")) {
			unitID := strings.ToUpper(unit)
			if err = s.roster.UpsertOps(ctx, tx, &models.PersonOps{PersonID: personID, UnitID: unitID, CanOperate: true}); err != nil {
				return nil, err
			}
			report.OpsUpserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit roster import: %w", err)
	}

	s.logger.Info("roster imported",
		zap.Int("people", report.PeopleUpserted),
		zap.Int("ops", report.OpsUpserted),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// seedDefaults makes sure the rotation units and canonical placeholders
// exist before any people reference them.
func (s *RosterService) seedDefaults(ctx context.Context, tx *sqlx.Tx) error {
	for _, unitID := range s.rotationUnits {
		unit := &models.Unit{ID: unitID, Label: unitID, Active: true}
		if err := s.roster.SeedUnit(ctx, tx, unit); err != nil {
			return err
		}
	}
	for i := range CanonicalPlaceholders {
		if err := s.roster.SeedPlaceholder(ctx, tx, &CanonicalPlaceholders[i]); err != nil {
			return err
		}
	}
	return nil
}

var (
	slugJunk = regexp.MustCompile(`[^a-z0-9]+`)
	slugRuns = regexp.MustCompile(`_+`)
)

// SlugifyName derives a stable person id from a display name.
func SlugifyName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugJunk.ReplaceAllString(s, "_")
	s = strings.Trim(slugRuns.ReplaceAllString(s, "_"), "_")
	if s == "" {
		return "person"
	}
	return s
}

// resolvePersonID reuses the id of a person already imported under the same
// display name, and otherwise suffixes the slug until it is free.
func resolvePersonID(name string, taken map[string]bool, byName map[string]string) string {
	if id, ok := byName[name]; ok {
		return id
	}
	base := SlugifyName(name)
	id := base
	for i := 2; taken[id]; i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	return id
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func parseEnum(raw string, allowed []string, def string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return a
		}
	}
	return def
}

// parseCert defaults a blank cell to EMT, the common case on hand-kept
// rosters, while unrecognized text still collapses to NONE.
func parseCert(raw string) models.CertLevel {
	if strings.TrimSpace(raw) == "" {
		return models.CertEMT
	}
	return models.NormalizeCert(raw)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
