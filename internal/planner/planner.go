// Package planner turns a weekly target into a validated week plan. It distributes
// volume, attaches paces, validates against the guardrails and retries with bounded
// adjustments when an error-severity rule fails.
package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/distributor"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/guardrails"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/observability"
	"github.com/julianstephens/pacewise/internal/utils"
)

// Adjustments applied between attempts, reported on the result.
const (
	AdjustQualityDowngraded = "quality_downgraded"
	AdjustTargetLowered     = "target_lowered"
	AdjustWorkReduced       = "work_reduced"
	AdjustFractionLowered   = "long_fraction_lowered"
	AdjustSlotDropped       = "slot_dropped"
	AdjustSessionShortened  = "session_shortened"
)

// easyFallbackFactor scales the slowest known zone when a zone set has no easy zone.
const easyFallbackFactor = 1.25

// Recorder receives instrumentation events. observability.Metrics implements it.
type Recorder interface {
	RecordViolations(violations []models.ViolationReport)
	RecordOutcome(outcome string, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) RecordViolations([]models.ViolationReport) {}
func (nopRecorder) RecordOutcome(string, int)                 {}

type Config struct {
	MaxAttempts         int
	Minimums            distributor.Minimums
	Granularity         float64
	MinSessionsFloor    int
	QualityWorkFraction float64
	LowReadiness        float64
	HighLoadRatio       float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:         constants.DefaultPlannerMaxAttempts,
		Minimums:            distributor.DefaultMinimums(),
		Granularity:         constants.DefaultGranularity,
		MinSessionsFloor:    constants.DefaultMinSessionsFloor,
		QualityWorkFraction: constants.DefaultQualityWorkFraction,
		LowReadiness:        constants.DefaultLowReadiness,
		HighLoadRatio:       constants.DefaultHighLoadRatio,
	}
}

// Request is everything needed to plan one week for one athlete.
type Request struct {
	AthleteID   string
	WeekStart   string // a Monday
	Target      models.WeeklyPlanTarget
	Constraints models.AthleteConstraints
	Zones       models.PaceZoneSet
	// Snapshot is the latest metrics snapshot; nil skips readiness gating.
	Snapshot        *models.MetricsSnapshot
	History         []models.WeekSummary
	OtherActivities []models.LoadSample
	AllowReduced    bool
}

type PlanResult struct {
	Plan        models.WeekPlan
	Validation  guardrails.ValidationResult
	Attempts    int
	Adjustments []string
	Warnings    []string
}

type Planner struct {
	cfg         Config
	distributor *distributor.Distributor
	validator   *guardrails.Validator
	recorder    Recorder
}

// New builds a planner. A nil validator uses the embedded guardrail catalog and a nil
// recorder drops instrumentation.
func New(cfg Config, validator *guardrails.Validator, recorder Recorder) *Planner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = constants.DefaultPlannerMaxAttempts
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = constants.DefaultGranularity
	}
	if cfg.MinSessionsFloor < 1 {
		cfg.MinSessionsFloor = constants.DefaultMinSessionsFloor
	}
	if validator == nil {
		validator = guardrails.NewDefault()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Planner{
		cfg:         cfg,
		distributor: distributor.New(),
		validator:   validator,
		recorder:    recorder,
	}
}

// state is what the adjustments change between attempts.
type state struct {
	target      float64
	fraction    float64
	slots       []models.SessionSlot
	workCaps    map[models.Zone]float64 // share of volume allowed per quality zone
	maxSession  float64
	easyQuality map[int]bool // quality days forced easy
}

// Generate builds and validates the week. When attempts run out it returns the last
// result together with a GuardrailViolation.
func (p *Planner) Generate(req Request) (PlanResult, error) {
	if err := p.validateRequest(req); err != nil {
		p.recorder.RecordOutcome(observability.OutcomeInvalid, 0)
		return PlanResult{}, err
	}

	mins := distributor.ResolveMinimums(req.Constraints, p.cfg.Minimums)
	easyPace := easyPaceOf(req.Zones)

	st := state{
		target:      req.Target.TargetVolume,
		fraction:    req.Target.LongSessionFraction,
		slots:       append([]models.SessionSlot(nil), req.Target.SessionSlots...),
		workCaps:    map[models.Zone]float64{},
		easyQuality: map[int]bool{},
	}
	if req.Constraints.MaxSessionMinutes > 0 {
		st.maxSession = req.Constraints.MaxSessionMinutes * 60 / easyPace
	}

	result := PlanResult{}
	if p.shouldDowngrade(req.Snapshot) {
		for _, s := range st.slots {
			if s.Category == models.CategoryQuality {
				st.easyQuality[s.Day] = true
			}
		}
		if len(st.easyQuality) > 0 {
			result.Adjustments = append(result.Adjustments, AdjustQualityDowngraded)
			logger.Debug("Downgrading quality sessions", "athlete", req.AthleteID, "readiness", req.Snapshot.Readiness)
		}
	}

	gctx := guardrails.Context{
		Constraints:     req.Constraints,
		MinEasyDistance: mins.Easy,
		MinLongDistance: mins.Long,
		Granularity:     p.cfg.Granularity,
		History:         req.History,
		Snapshot:        req.Snapshot,
		OtherActivities: req.OtherActivities,
	}

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		dist, err := p.distribute(req, st, mins)
		if err != nil {
			outcome := observability.OutcomeInfeasible
			if errors.Is(err, perrors.ErrInputValidation) {
				outcome = observability.OutcomeInvalid
			}
			p.recorder.RecordOutcome(outcome, attempt)
			return result, err
		}
		result.Warnings = appendUnique(result.Warnings, dist.Warnings...)

		result.Plan = p.buildPlan(req, st, dist, easyPace)
		result.Validation = p.validator.Validate(result.Plan, gctx)
		p.recorder.RecordViolations(result.Validation.Violations)

		if result.Validation.OK {
			p.recorder.RecordOutcome(observability.OutcomeAccepted, attempt)
			logger.Debug("Plan accepted", "athlete", req.AthleteID, "week", req.WeekStart, "attempts", attempt)
			return result, nil
		}

		applied := p.adjust(&st, result, req, dist, easyPace)
		if len(applied) == 0 {
			logger.Debug("No adjustment for violations", "rules", result.Validation.ErrorRuleIDs())
			break
		}
		result.Adjustments = appendUnique(result.Adjustments, applied...)
	}

	p.recorder.RecordOutcome(observability.OutcomeRejected, result.Attempts)
	return result, result.Validation.Err()
}

func (p *Planner) validateRequest(req Request) error {
	if req.AthleteID == "" {
		return perrors.Invalid("athlete_id", "is required")
	}
	if !utils.IsWeekStart(req.WeekStart) {
		return perrors.Invalid("week_start", "%q is not a Monday", req.WeekStart)
	}
	if err := models.Validate(req.Target); err != nil {
		return err
	}
	if err := models.Validate(req.Constraints); err != nil {
		return err
	}
	if len(req.Zones.Zones) == 0 {
		return perrors.Invalid("zones", "no pace zones")
	}
	return nil
}

func (p *Planner) shouldDowngrade(snap *models.MetricsSnapshot) bool {
	if snap == nil {
		return false
	}
	if snap.Readiness < p.cfg.LowReadiness {
		return true
	}
	return snap.LoadRatio.Defined && snap.LoadRatio.Value > p.cfg.HighLoadRatio
}

func (p *Planner) distribute(req Request, st state, mins distributor.Minimums) (distributor.Result, error) {
	dreq := distributor.RequestFor(req.Target, mins)
	dreq.TargetVolume = st.target
	dreq.Slots = st.slots
	dreq.LongFraction = st.fraction
	dreq.MaxSessionDistance = st.maxSession
	dreq.Granularity = p.cfg.Granularity
	dreq.MinSessions = p.cfg.MinSessionsFloor
	dreq.AllowReduced = req.AllowReduced
	if dreq.MinSessions > len(dreq.Slots) {
		dreq.MinSessions = len(dreq.Slots)
	}
	return p.distributor.Distribute(dreq)
}

// qualityZones assigns intensities to the quality sessions of a week, in day order.
var qualityZones = map[models.Phase][]models.Zone{
	models.PhaseBase:  {models.ZoneThreshold},
	models.PhaseBuild: {models.ZoneThreshold, models.ZoneInterval},
	models.PhasePeak:  {models.ZoneInterval, models.ZoneRepetition},
	models.PhaseTaper: {models.ZoneThreshold, models.ZoneInterval},
}

func (p *Planner) buildPlan(req Request, st state, dist distributor.Result, easyPace float64) models.WeekPlan {
	zones, ok := qualityZones[req.Target.Phase]
	if !ok {
		zones = qualityZones[models.PhaseBase]
	}

	target := req.Target
	target.TargetVolume = st.target
	target.SessionSlots = st.slots
	target.LongSessionFraction = dist.Fraction

	easyRange, ok := req.Zones.Get(models.ZoneEasy)
	if !ok {
		easyRange = models.PaceRange{MinPace: easyPace, MaxPace: easyPace}
	}

	sessions := make([]models.SessionPrescription, len(dist.Sessions))
	copy(sessions, dist.Sessions)

	// Work is capped per zone across the week
	zoneCount := map[models.Zone]int{}
	quality := 0
	for i := range sessions {
		s := &sessions[i]
		if s.Category != models.CategoryQuality {
			continue
		}
		if st.easyQuality[s.Day] {
			s.Category = models.CategoryEasy
			continue
		}
		s.Intensity = zones[min(quality, len(zones)-1)]
		zoneCount[s.Intensity]++
		quality++
	}

	volume := dist.Volume()
	for i := range sessions {
		s := &sessions[i]
		switch s.Category {
		case models.CategoryQuality:
			zr, ok := req.Zones.Get(s.Intensity)
			if !ok {
				zr = easyRange
			}
			work := roundTenth(s.Distance * p.cfg.QualityWorkFraction)
			if share, capped := st.workCaps[s.Intensity]; capped {
				work = math.Min(work, floorTenth(share*volume/float64(zoneCount[s.Intensity])))
			}
			s.Pace = zr
			s.WorkDistance = work
			s.DurationMinutes = (work*zr.Midpoint() + (s.Distance-work)*easyPace) / 60
		default:
			s.Intensity = models.ZoneEasy
			s.Pace = easyRange
			s.DurationMinutes = s.Distance * easyPace / 60
		}
	}

	return models.WeekPlan{
		AthleteID: req.AthleteID,
		WeekStart: req.WeekStart,
		Target:    target,
		Sessions:  sessions,
	}
}

// adjust changes the state in response to the error-severity violations and returns
// what it changed. An empty return means nothing more can be done.
func (p *Planner) adjust(st *state, res PlanResult, req Request, dist distributor.Result, easyPace float64) []string {
	th := p.validator.Thresholds()
	var applied []string

	for _, id := range res.Validation.ErrorRuleIDs() {
		switch id {
		case guardrails.RuleWeeklyProgression:
			limit := progressionLimit(req.History, th.ProgressionCap)
			lowered := math.Floor(limit/p.cfg.Granularity+1e-9) * p.cfg.Granularity
			if lowered > 0 && lowered < st.target {
				st.target = lowered
				applied = append(applied, AdjustTargetLowered)
			}

		case guardrails.RuleThresholdCap, guardrails.RuleIntervalCap, guardrails.RuleRepetitionCap:
			zone, limit := capFor(id, th)
			if cur, ok := st.workCaps[zone]; !ok || limit < cur {
				st.workCaps[zone] = limit
				applied = append(applied, AdjustWorkReduced)
			}

		case guardrails.RuleLongDuration:
			maxLong := th.LongDurationCapMinutes * 60 / easyPace
			fraction := math.Floor(maxLong/st.target*100) / 100
			if fraction < dist.Fraction && fraction >= req.Target.LongFractionRange.Min {
				st.fraction = fraction
				applied = append(applied, AdjustFractionLowered)
			}

		case guardrails.RuleSessionBelowMinimum:
			if len(st.slots) > p.cfg.MinSessionsFloor {
				if day, ok := smallestNonLong(res.Plan.Sessions); ok {
					st.slots = removeDay(st.slots, day)
					applied = append(applied, AdjustSlotDropped)
				}
			}

		case guardrails.RuleSessionDuration:
			longest := 0.0
			for _, s := range res.Plan.Sessions {
				longest = math.Max(longest, s.Distance)
			}
			if longest > 0 {
				st.maxSession = longest - p.cfg.Granularity
				applied = append(applied, AdjustSessionShortened)
			}

		case guardrails.RuleQualityAfterLowerBody:
			if v, ok := res.Validation.Find(id); ok {
				for _, d := range v.Days {
					st.easyQuality[d] = true
				}
				applied = append(applied, AdjustQualityDowngraded)
			}
		}
	}

	if len(applied) > 0 {
		logger.Debug("Adjusted plan", "athlete", req.AthleteID, "adjustments", applied)
	}
	return applied
}

func progressionLimit(history []models.WeekSummary, progressionCap float64) float64 {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsRecoveryWeek && history[i].Volume > 0 {
			return history[i].Volume * (1 + progressionCap)
		}
	}
	return 0
}

func capFor(ruleID string, th guardrails.Thresholds) (models.Zone, float64) {
	switch ruleID {
	case guardrails.RuleIntervalCap:
		return models.ZoneInterval, th.IntervalShareCap
	case guardrails.RuleRepetitionCap:
		return models.ZoneRepetition, th.RepetitionShareCap
	default:
		return models.ZoneThreshold, th.ThresholdShareCap
	}
}

func smallestNonLong(sessions []models.SessionPrescription) (int, bool) {
	idx := -1
	for i, s := range sessions {
		if s.Category == models.CategoryLong {
			continue
		}
		if idx < 0 || s.Distance < sessions[idx].Distance {
			idx = i
		}
	}
	if idx < 0 {
		return 0, false
	}
	return sessions[idx].Day, true
}

func removeDay(slots []models.SessionSlot, day int) []models.SessionSlot {
	out := make([]models.SessionSlot, 0, len(slots))
	for _, s := range slots {
		if s.Day != day {
			out = append(out, s)
		}
	}
	return out
}

func easyPaceOf(set models.PaceZoneSet) float64 {
	if easy, ok := set.Get(models.ZoneEasy); ok {
		return easy.Midpoint()
	}
	slowest := set.Zones[0].Pace.MaxPace
	return slowest * easyFallbackFactor
}

func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

func floorTenth(x float64) float64 {
	return math.Floor(x*10+1e-9) / 10
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

// SummaryOf reduces a plan to what cross-week rules need.
func SummaryOf(plan models.WeekPlan) models.WeekSummary {
	return models.WeekSummary{
		WeekStart:      plan.WeekStart,
		Volume:         plan.Volume(),
		IsRecoveryWeek: plan.Target.IsRecoveryWeek,
	}
}

// Describe renders a one-line summary of a result for logs and CLI output.
func Describe(res PlanResult) string {
	return fmt.Sprintf("week %s: %.1f over %d session(s), %d attempt(s)",
		res.Plan.WeekStart, res.Plan.Volume(), len(res.Plan.Sessions), res.Attempts)
}
