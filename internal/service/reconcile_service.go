package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
)

// HistoryTagPrefix marks a seat note as authoritative imported history.
// Imports append a concrete tag such as HISTORY_2025_12 to the rows they
// write; reconciliation treats any such tag as the strongest signal when
// picking a surviving record.
const HistoryTagPrefix = "HISTORY_"

type seatReconcileStore interface {
	ListByKey(ctx context.Context, exec sqlx.ExtContext, key models.SeatKey) ([]models.SeatRecord, error)
	ListDuplicateKeys(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatKey, error)
	ListPlaceholderRefs(ctx context.Context, exec sqlx.ExtContext) ([]models.SeatRecord, error)
	UpdateNote(ctx context.Context, exec sqlx.ExtContext, seatRecordID, note string) error
	UpdatePlaceholderID(ctx context.Context, exec sqlx.ExtContext, seatRecordID, placeholderID string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, seatRecordID string) error
}

// ReconcileService enforces seat-record uniqueness per (shift, unit, role,
// layer) key. Duplicate groups are resolved by a deterministic score; blank
// default rows never survive against tagged history; placeholder ids are
// normalized to one canonical spelling before any comparison. A pass is
// re-runnable: a second run over the same data deletes nothing.
type ReconcileService struct {
	seats   seatReconcileStore
	tx      txProvider
	logger  *zap.Logger
	metrics *MetricsService
}

// NewReconcileService wires the reconciler.
func NewReconcileService(seats seatReconcileStore, tx txProvider, logger *zap.Logger, metrics *MetricsService) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{seats: seats, tx: tx, logger: logger, metrics: metrics}
}

// Run executes one full reconciliation pass in a single transaction:
// placeholder canonicalization, then per-key dedup until every seat key
// holds exactly one record.
func (s *ReconcileService) Run(ctx context.Context) (*dto.ReconcileReport, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	report := &dto.ReconcileReport{}

	if err = s.normalizePlaceholders(ctx, tx, report); err != nil {
		return nil, err
	}

	keys, err := s.seats.ListDuplicateKeys(ctx, tx)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err = s.reconcileKey(ctx, tx, key, report); err != nil {
			return nil, err
		}
	}

	// Fixed-point check: anything still duplicated had no policy to
	// resolve it and is surfaced for manual review rather than dropped.
	remaining, err := s.seats.ListDuplicateKeys(ctx, tx)
	if err != nil {
		return nil, err
	}
	report.UnresolvedGroups = remaining

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reconcile: %w", err)
	}

	s.metrics.ObserveReconcilePass(report.RecordsDeleted + report.BlanksPruned)
	s.logger.Info("reconcile pass complete",
		zap.Int("groups_resolved", report.GroupsResolved),
		zap.Int("records_deleted", report.RecordsDeleted),
		zap.Int("blanks_pruned", report.BlanksPruned),
		zap.Int("placeholders_fixed", report.PlaceholdersFixed),
		zap.Int("unresolved", len(report.UnresolvedGroups)))
	return report, nil
}

func (s *ReconcileService) normalizePlaceholders(ctx context.Context, tx *sqlx.Tx, report *dto.ReconcileReport) error {
	refs, err := s.seats.ListPlaceholderRefs(ctx, tx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.PlaceholderID == nil {
			continue
		}
		canon := CanonPlaceholderID(*ref.PlaceholderID)
		if canon == *ref.PlaceholderID {
			continue
		}
		if err := s.seats.UpdatePlaceholderID(ctx, tx, ref.ID, canon); err != nil {
			return err
		}
		report.PlaceholdersFixed++
	}
	return nil
}

func (s *ReconcileService) reconcileKey(ctx context.Context, tx *sqlx.Tx, key models.SeatKey, report *dto.ReconcileReport) error {
	records, err := s.seats.ListByKey(ctx, tx, key)
	if err != nil {
		return err
	}

	// Blank defaults are pruned outright whenever tagged history shares
	// the key: a freshly materialized row never outranks real data.
	if groupHasTag(records) {
		kept := records[:0]
		for _, rec := range records {
			if rec.IsBlankDefault() {
				if err := s.seats.Delete(ctx, tx, rec.ID); err != nil {
					return err
				}
				report.BlanksPruned++
				continue
			}
			kept = append(kept, rec)
		}
		records = kept
	}
	if len(records) <= 1 {
		if len(records) == 1 {
			report.GroupsResolved++
		}
		return nil
	}

	winner, losers := ChooseSurvivor(records)

	// Preserve provenance: if the winner is untagged but a loser carries
	// the history tag, the tag moves onto the winner before deletion.
	if ExtractHistoryTag(winner.Note) == "" {
		for _, loser := range losers {
			if tag := ExtractHistoryTag(loser.Note); tag != "" {
				if err := s.seats.UpdateNote(ctx, tx, winner.ID, tag); err != nil {
					return err
				}
				break
			}
		}
	}

	for _, loser := range losers {
		if err := s.seats.Delete(ctx, tx, loser.ID); err != nil {
			return err
		}
		report.RecordsDeleted++
	}
	report.GroupsResolved++
	return nil
}

// ScoreSeatRecord rates a duplicate candidate. Higher wins: tagged history
// dominates, then filled status, then any real assignment.
func ScoreSeatRecord(rec models.SeatRecord) int {
	score := 0
	if ExtractHistoryTag(rec.Note) != "" {
		score += 1000
	}
	if rec.Health == models.HealthFilled {
		score += 100
	}
	if rec.Assignment().IsAssigned() {
		score += 10
	}
	if rec.PersonID != nil && *rec.PersonID != "" {
		score += 3
	}
	if rec.PlaceholderID != nil && *rec.PlaceholderID != "" {
		score += 2
	}
	return score
}

// ChooseSurvivor orders candidates by score, breaking ties by earliest
// creation then lowest id so repeated runs pick the same winner.
func ChooseSurvivor(records []models.SeatRecord) (models.SeatRecord, []models.SeatRecord) {
	sorted := make([]models.SeatRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := ScoreSeatRecord(sorted[i]), ScoreSeatRecord(sorted[j])
		if si != sj {
			return si > sj
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0], sorted[1:]
}

// ExtractHistoryTag returns the first authoritative history tag found in a
// note, or "" when the note carries none.
func ExtractHistoryTag(note string) string {
	for _, token := range strings.Fields(note) {
		if strings.HasPrefix(token, HistoryTagPrefix) {
			return token
		}
	}
	return ""
}

func groupHasTag(records []models.SeatRecord) bool {
	for _, rec := range records {
		if ExtractHistoryTag(rec.Note) != "" {
			return true
		}
	}
	return false
}

var placeholderJunk = regexp.MustCompile(`[^A-Za-z0-9_]+`)
var placeholderRuns = regexp.MustCompile(`_+`)

// CanonPlaceholderID normalizes a placeholder identifier to its canonical
// spelling: PH_ prefix, uppercase, whitespace and punctuation collapsed to
// single underscores. "Fire Division" and "PH_fire__division" both map to
// PH_FIRE_DIVISION, so textual variants merge instead of diverging.
func CanonPlaceholderID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return id
	}
	if !strings.HasPrefix(strings.ToUpper(id), "PH_") {
		id = "PH_" + id
	}
	tail := id[3:]
	tail = placeholderJunk.ReplaceAllString(tail, "_")
	tail = placeholderRuns.ReplaceAllString(tail, "_")
	tail = strings.Trim(tail, "_")
	return "PH_" + strings.ToUpper(tail)
}
