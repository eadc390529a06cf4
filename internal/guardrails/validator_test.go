package guardrails

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

// basePlan is a 50 km week that passes every rule.
func basePlan() models.WeekPlan {
	return models.WeekPlan{
		ID:        "plan-1",
		AthleteID: "ana",
		WeekStart: "2026-03-02",
		Target: models.WeeklyPlanTarget{
			TargetVolume:    50,
			LongSessionSlot: 6,
		},
		Sessions: []models.SessionPrescription{
			{Day: 1, Category: models.CategoryEasy, Distance: 10, DurationMinutes: 55, Intensity: models.ZoneEasy},
			{Day: 3, Category: models.CategoryQuality, Distance: 10, DurationMinutes: 50, Intensity: models.ZoneThreshold, WorkDistance: 5},
			{Day: 5, Category: models.CategoryEasy, Distance: 12, DurationMinutes: 66, Intensity: models.ZoneEasy},
			{Day: 6, Category: models.CategoryLong, Distance: 18, DurationMinutes: 105, Intensity: models.ZoneEasy},
		},
	}
}

func baseContext() Context {
	return Context{
		Constraints: models.AthleteConstraints{
			MinSessionsPerWeek: 3,
			MaxSessionsPerWeek: 5,
			AvailableDays:      []int{1, 3, 5, 6},
			MaxSessionMinutes:  120,
		},
		History: []models.WeekSummary{
			{WeekStart: "2026-02-09", Volume: 40, IsRecoveryWeek: true},
			{WeekStart: "2026-02-16", Volume: 44},
			{WeekStart: "2026-02-23", Volume: 46},
		},
	}
}

func TestValidateCleanPlan(t *testing.T) {
	v := NewDefault()
	res := v.Validate(basePlan(), baseContext())

	assert.True(t, res.OK)
	assert.Empty(t, res.Violations)
	assert.NoError(t, res.Err())
	assert.Equal(t, "No guardrail violations.", res.FormatReport())
}

func TestThresholdCapExceeded(t *testing.T) {
	v := NewDefault()
	plan := basePlan()
	plan.Sessions[1].WorkDistance = 6

	res := v.Validate(plan, baseContext())

	require.False(t, res.OK)
	viol, ok := res.Find(RuleThresholdCap)
	require.True(t, ok)
	assert.Equal(t, models.SeverityError, viol.Severity)
	assert.Equal(t, models.ScopeWeek, viol.Scope)
	assert.Equal(t, []int{3}, viol.Days)
	assert.Contains(t, viol.Message, "12.0%")
}

func TestWeeklyProgressionExceeded(t *testing.T) {
	v := NewDefault()
	plan := basePlan()
	plan.Target.TargetVolume = 48
	plan.Sessions[2].Distance = 10
	ctx := baseContext()
	ctx.History = []models.WeekSummary{
		{WeekStart: "2026-02-16", Volume: 30, IsRecoveryWeek: true},
		{WeekStart: "2026-02-23", Volume: 40},
	}

	res := v.Validate(plan, ctx)

	viol, ok := res.Find(RuleWeeklyProgression)
	require.True(t, ok)
	assert.Equal(t, models.SeverityError, viol.Severity)
	assert.Equal(t, models.ScopeCrossWeek, viol.Scope)
	assert.Contains(t, viol.Message, "20%")
	assert.False(t, res.OK)
}

func TestProgressionSkipsRecoveryWeeks(t *testing.T) {
	v := NewDefault()
	ctx := baseContext()
	// the last loading week is 46, the recovery week after it is ignored
	ctx.History = append(ctx.History, models.WeekSummary{WeekStart: "2026-03-02", Volume: 30, IsRecoveryWeek: true})

	res := v.Validate(basePlan(), ctx)
	assert.False(t, res.Has(RuleWeeklyProgression))
}

func TestRuleCatalog(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.WeekPlan, *Context)
		rule     string
		severity models.Severity
		ok       bool
	}{
		{
			name:     "interval share",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[1].Intensity = models.ZoneInterval; p.Sessions[1].WorkDistance = 4.5 },
			rule:     RuleIntervalCap,
			severity: models.SeverityError,
		},
		{
			name:     "repetition share",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[1].Intensity = models.ZoneRepetition; p.Sessions[1].WorkDistance = 3 },
			rule:     RuleRepetitionCap,
			severity: models.SeverityError,
		},
		{
			name:     "long share",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[3].Distance = 22; p.Sessions[2].Distance = 8 },
			rule:     RuleLongShare,
			severity: models.SeverityWarning,
			ok:       true,
		},
		{
			name:     "long duration",
			mutate:   func(p *models.WeekPlan, c *Context) { p.Sessions[3].DurationMinutes = 160; c.Constraints.MaxSessionMinutes = 0 },
			rule:     RuleLongDuration,
			severity: models.SeverityError,
		},
		{
			name: "recovery overdue",
			mutate: func(_ *models.WeekPlan, c *Context) {
				c.History[0].IsRecoveryWeek = false
			},
			rule:     RuleRecoveryOverdue,
			severity: models.SeverityWarning,
			ok:       true,
		},
		{
			name:     "recovery not reduced",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Target.IsRecoveryWeek = true },
			rule:     RuleRecoveryNotReduced,
			severity: models.SeverityWarning,
			ok:       true,
		},
		{
			name:     "session below minimum",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[0].Distance = 4; p.Sessions[2].Distance = 18 },
			rule:     RuleSessionBelowMinimum,
			severity: models.SeverityError,
		},
		{
			name: "reduced session below minimum",
			mutate: func(p *models.WeekPlan, _ *Context) {
				p.Sessions[0].Distance = 4
				p.Sessions[0].Reduced = true
				p.Sessions[2].Distance = 18
			},
			rule:     RuleSessionBelowMinimum,
			severity: models.SeverityInfo,
			ok:       true,
		},
		{
			name:     "week starts on a tuesday",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.WeekStart = "2026-03-03" },
			rule:     RuleWeekBoundary,
			severity: models.SeverityError,
		},
		{
			name:     "duplicate day",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[2].Day = 3 },
			rule:     RuleWeekBoundary,
			severity: models.SeverityError,
		},
		{
			name:     "unavailable day",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[0].Day = 0 },
			rule:     RuleWeekBoundary,
			severity: models.SeverityError,
		},
		{
			name:     "volume mismatch",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Target.TargetVolume = 52 },
			rule:     RuleVolumeSumMismatch,
			severity: models.SeverityError,
		},
		{
			name:     "too few sessions",
			mutate:   func(_ *models.WeekPlan, c *Context) { c.Constraints.MinSessionsPerWeek = 5 },
			rule:     RuleSessionCount,
			severity: models.SeverityWarning,
			ok:       true,
		},
		{
			name:     "session too long",
			mutate:   func(p *models.WeekPlan, _ *Context) { p.Sessions[0].DurationMinutes = 130 },
			rule:     RuleSessionDuration,
			severity: models.SeverityError,
		},
		{
			name: "quality after cycling",
			mutate: func(_ *models.WeekPlan, c *Context) {
				c.OtherActivities = []models.LoadSample{
					{Date: "2026-03-04", ActivityType: models.ActivityCycling, LowerBodyLoad: 70},
				}
			},
			rule:     RuleQualityAfterLowerBody,
			severity: models.SeverityError,
		},
		{
			name: "consecutive quality",
			mutate: func(p *models.WeekPlan, c *Context) {
				p.Sessions[0].Day = 2
				p.Sessions[0].Category = models.CategoryQuality
				c.Constraints.AvailableDays = nil
			},
			rule:     RuleConsecutiveQuality,
			severity: models.SeverityWarning,
			ok:       true,
		},
		{
			name:     "low readiness",
			mutate:   func(_ *models.WeekPlan, c *Context) { c.Snapshot = &models.MetricsSnapshot{Readiness: 30} },
			rule:     RuleLowReadinessQuality,
			severity: models.SeverityWarning,
			ok:       true,
		},
	}

	v := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ctx := basePlan(), baseContext()
			tt.mutate(&plan, &ctx)

			res := v.Validate(plan, ctx)

			viol, ok := res.Find(tt.rule)
			require.True(t, ok, "expected %s in %s", tt.rule, res.FormatReport())
			assert.Equal(t, tt.severity, viol.Severity)
			assert.NotEmpty(t, viol.Recommendation)
			assert.Equal(t, tt.ok, res.OK, res.FormatReport())
		})
	}
}

func TestRunningDoesNotGateQuality(t *testing.T) {
	v := NewDefault()
	ctx := baseContext()
	ctx.OtherActivities = []models.LoadSample{
		{Date: "2026-03-04", ActivityType: models.ActivityTrailRunning, LowerBodyLoad: 120},
		{Date: "2026-03-04", ActivityType: models.ActivityCycling, LowerBodyLoad: 20},
		{Date: "2026-03-05", ActivityType: models.ActivityStrength, LowerBodyLoad: 90},
	}

	res := v.Validate(basePlan(), ctx)
	assert.False(t, res.Has(RuleQualityAfterLowerBody))
}

func TestAllRulesEvaluated(t *testing.T) {
	v := NewDefault()
	plan := basePlan()
	plan.WeekStart = "2026-03-04"
	plan.Sessions[1].WorkDistance = 8
	plan.Sessions[3].DurationMinutes = 200
	ctx := baseContext()
	ctx.History = []models.WeekSummary{{WeekStart: "2026-02-23", Volume: 30}}

	res := v.Validate(plan, ctx)

	assert.Equal(t, []string{RuleThresholdCap, RuleLongDuration, RuleWeeklyProgression, RuleWeekBoundary, RuleSessionDuration}, res.ErrorRuleIDs())
	assert.Len(t, res.Errors(), 5)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrGuardrailViolation))
	var gv *perrors.GuardrailViolation
	require.True(t, errors.As(err, &gv))
	assert.Equal(t, res.ErrorRuleIDs(), gv.RuleIDs)

	report := res.FormatReport()
	assert.Contains(t, report, "[error] threshold_cap_exceeded")
	assert.Contains(t, report, "Lower the weekly target.")
}

func TestValidateIsPure(t *testing.T) {
	v := NewDefault()
	plan, ctx := basePlan(), baseContext()
	plan.Sessions[1].WorkDistance = 6

	first := v.Validate(plan, ctx)
	second := v.Validate(plan, ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, basePlan().Sessions[0], plan.Sessions[0])
}

func TestDefaultCatalogMatchesConstants(t *testing.T) {
	th := DefaultCatalog().Thresholds
	assert.Equal(t, constants.DefaultThresholdShareCap, th.ThresholdShareCap)
	assert.Equal(t, constants.DefaultIntervalShareCap, th.IntervalShareCap)
	assert.Equal(t, constants.DefaultRepetitionShareCap, th.RepetitionShareCap)
	assert.Equal(t, constants.DefaultLongShareCap, th.LongShareCap)
	assert.Equal(t, constants.DefaultLongDurationCapMin, th.LongDurationCapMinutes)
	assert.Equal(t, constants.DefaultProgressionCap, th.ProgressionCap)
	assert.Equal(t, constants.DefaultRecoveryCadence, th.RecoveryCadenceWeeks)
	assert.Equal(t, constants.DefaultRecoveryReduction, th.RecoveryReduction)
	assert.Equal(t, constants.DefaultHighLowerBodyLoad, th.HighLowerBodyLoad)
	assert.Equal(t, constants.DefaultLowReadiness, th.LowReadiness)
	assert.NoError(t, DefaultCatalog().Validate())
}

func TestParseCatalogOverrides(t *testing.T) {
	c, err := ParseCatalog([]byte(`
thresholds:
  threshold_share_cap: 0.15
severities:
  long_session_share_exceeded: error
disabled:
  - consecutive_quality_days
`))
	require.NoError(t, err)
	assert.Equal(t, 0.15, c.Thresholds.ThresholdShareCap)
	assert.Equal(t, constants.DefaultIntervalShareCap, c.Thresholds.IntervalShareCap)

	v, err := New(c)
	require.NoError(t, err)

	plan := basePlan()
	plan.Sessions[1].WorkDistance = 6
	plan.Sessions[3].Distance = 22
	plan.Sessions[2].Distance = 8
	plan.Sessions[0].Day = 2
	plan.Sessions[0].Category = models.CategoryQuality
	ctx := baseContext()
	ctx.Constraints.AvailableDays = nil

	res := v.Validate(plan, ctx)
	assert.False(t, res.Has(RuleThresholdCap))
	assert.False(t, res.Has(RuleConsecutiveQuality))
	viol, ok := res.Find(RuleLongShare)
	require.True(t, ok)
	assert.Equal(t, models.SeverityError, viol.Severity)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	bad := []string{
		"thresholds: [",
		"thresholds:\n  progression_cap: 1.5\n",
		"thresholds:\n  recovery_cadence_weeks: 1\n",
		"severities:\n  no_such_rule: error\n",
		"severities:\n  volume_sum_mismatch: fatal\n",
		"disabled: [no_such_rule]\n",
	}
	for _, data := range bad {
		_, err := ParseCatalog([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardrails.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  low_readiness: 55\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 55.0, c.Thresholds.LowReadiness)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
