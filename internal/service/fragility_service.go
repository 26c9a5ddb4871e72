package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/models"
)

// Radar statuses. RED dominates YELLOW; GREEN means both pools are staffed
// with depth and ALS coverage.
const (
	RadarGreen  = "GREEN"
	RadarYellow = "YELLOW"
	RadarRed    = "RED"
)

type rosterSnapshotter interface {
	Snapshot(ctx context.Context) (*models.RosterSnapshot, error)
}

// FragilityService computes the staffing-risk radar: for every shift in a
// week, the eligible attendant and driver pools against a live roster and
// a GREEN/YELLOW/RED verdict. Evaluation is a pure projection, nothing in
// the schedule is mutated, so it is safe to run concurrently with writers.
type FragilityService struct {
	calendar *CalendarService
	roster   rosterSnapshotter
	redis    *redis.Client
	logger   *zap.Logger
	metrics  *MetricsService

	cacheTTL      time.Duration
	defaultPolicy dto.RadarPolicy
}

// NewFragilityService wires the radar.
func NewFragilityService(calendar *CalendarService, roster rosterSnapshotter, redisClient *redis.Client, logger *zap.Logger, metrics *MetricsService, cacheTTL time.Duration, defaultPolicy dto.RadarPolicy) *FragilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &FragilityService{
		calendar:      calendar,
		roster:        roster,
		redis:         redisClient,
		logger:        logger,
		metrics:       metrics,
		cacheTTL:      cacheTTL,
		defaultPolicy: defaultPolicy,
	}
}

// EvaluateWeek returns the radar report for every shift in the week,
// serving from cache when a fresh report exists for the same policy.
func (s *FragilityService) EvaluateWeek(ctx context.Context, weekID string, policy *dto.RadarPolicy) (*dto.WeekRadar, error) {
	p := s.defaultPolicy
	if policy != nil {
		p = *policy
	}

	cacheKey := radarCacheKey(weekID, p)
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	detail, err := s.calendar.GetWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.roster.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.WeekRadar{
		WeekID:      weekID,
		Policy:      p,
		Shifts:      make([]dto.ShiftRadar, 0, len(detail.Shifts)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, sd := range detail.Shifts {
		verdict := EvaluateShift(sd.Shift, sd.EffectiveUnit, snapshot, p)
		report.Shifts = append(report.Shifts, verdict)
		s.metrics.ObserveRadarStatus(verdict.Status)
	}

	s.toCache(ctx, cacheKey, report)
	return report, nil
}

// EvaluateShift is the pure per-shift evaluation. Every triggering
// condition contributes a reason: a shift missing both pools reports both
// RED reasons, not just the first.
func EvaluateShift(shift models.Shift, effectiveUnit string, roster *models.RosterSnapshot, policy dto.RadarPolicy) dto.ShiftRadar {
	attendants := AttendantPool(roster)
	drivers := DriverPool(roster, effectiveUnit, policy)

	alsCount := 0
	for _, p := range attendants {
		if p.MedicalCert.ALSCapable() {
			alsCount++
		}
	}

	status := RadarGreen
	var reasons []string

	if len(attendants) == 0 {
		status = RadarRed
		reasons = append(reasons, "no attendant candidates")
	}
	if len(drivers) == 0 {
		status = RadarRed
		reasons = append(reasons, fmt.Sprintf("no driver candidates with %s ops", effectiveUnit))
	}
	if status != RadarRed && alsCount == 0 {
		status = RadarYellow
		reasons = append(reasons, "no ALS-capable attendant")
	}
	if status == RadarGreen && (len(attendants) == 1 || len(drivers) == 1) {
		status = RadarYellow
		reasons = append(reasons, "fragile: only 1 candidate in a pool")
	}

	return dto.ShiftRadar{
		ShiftID:        shift.ID,
		Label:          shift.Label,
		StartAt:        shift.StartAt,
		EndAt:          shift.EndAt,
		EffectiveUnit:  effectiveUnit,
		AttendantCount: len(attendants),
		ALSCount:       alsCount,
		DriverCount:    len(drivers),
		Status:         status,
		Reasons:        reasons,
	}
}

// AttendantPool filters the roster to people eligible for the attendant
// seat: active, willing to attend, certified EMT or higher.
func AttendantPool(roster *models.RosterSnapshot) []models.Person {
	var pool []models.Person
	for _, p := range roster.People {
		if !p.Active || !p.WillingAttend {
			continue
		}
		if !p.MedicalCert.EMTOrHigher() {
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

// DriverPool filters the roster to people eligible to drive the unit:
// active with ops capability, and EMT or higher unless the policy admits
// non-medical drivers.
func DriverPool(roster *models.RosterSnapshot, unitID string, policy dto.RadarPolicy) []models.Person {
	var pool []models.Person
	for _, p := range roster.People {
		if !p.Active {
			continue
		}
		if !roster.CanOperate(p.ID, unitID) {
			continue
		}
		if !policy.AllowNonMedicalDriver && !p.MedicalCert.EMTOrHigher() {
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

func radarCacheKey(weekID string, policy dto.RadarPolicy) string {
	return fmt.Sprintf("radar:%s:nonmed=%t", weekID, policy.AllowNonMedicalDriver)
}

func (s *FragilityService) fromCache(ctx context.Context, key string) *dto.WeekRadar {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var report dto.WeekRadar
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil
	}
	return &report
}

func (s *FragilityService) toCache(ctx context.Context, key string, report *dto.WeekRadar) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("radar cache write failed", zap.Error(err))
	}
}
