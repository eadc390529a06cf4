package guardrails

import (
	"fmt"
	"math"
	"sort"

	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

const (
	RuleThresholdCap          = "threshold_cap_exceeded"
	RuleIntervalCap           = "interval_cap_exceeded"
	RuleRepetitionCap         = "repetition_cap_exceeded"
	RuleLongShare             = "long_session_share_exceeded"
	RuleLongDuration          = "long_session_duration_exceeded"
	RuleWeeklyProgression     = "weekly_progression_exceeded"
	RuleRecoveryOverdue       = "recovery_week_overdue"
	RuleRecoveryNotReduced    = "recovery_week_not_reduced"
	RuleSessionBelowMinimum   = "session_below_minimum"
	RuleWeekBoundary          = "week_boundary_misaligned"
	RuleVolumeSumMismatch     = "volume_sum_mismatch"
	RuleSessionCount          = "session_count_out_of_range"
	RuleSessionDuration       = "session_duration_exceeded"
	RuleQualityAfterLowerBody = "quality_after_lower_body_load"
	RuleConsecutiveQuality    = "consecutive_quality_days"
	RuleLowReadinessQuality   = "low_readiness_quality"

	epsilon = 1e-9
)

// finding is one failure of a rule's predicate.
type finding struct {
	message  string
	days     []int
	severity models.Severity // empty keeps the rule's severity
}

type predicate func(plan models.WeekPlan, ctx Context, th Thresholds) []finding

// Rule is one entry of the guardrail catalog.
type Rule struct {
	ID             string
	Scope          models.RuleScope
	Severity       models.Severity
	Recommendation string
	check          predicate
}

// Rules returns the full catalog in evaluation order.
func Rules() []Rule {
	return []Rule{
		{
			ID:             RuleThresholdCap,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityError,
			Recommendation: "Shorten the threshold segments or move them to an easier week.",
			check:          intensityCap(models.ZoneThreshold, func(th Thresholds) float64 { return th.ThresholdShareCap }),
		},
		{
			ID:             RuleIntervalCap,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityError,
			Recommendation: "Cut the number of interval repeats.",
			check:          intensityCap(models.ZoneInterval, func(th Thresholds) float64 { return th.IntervalShareCap }),
		},
		{
			ID:             RuleRepetitionCap,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityError,
			Recommendation: "Cut the number of repetitions.",
			check:          intensityCap(models.ZoneRepetition, func(th Thresholds) float64 { return th.RepetitionShareCap }),
		},
		{
			ID:             RuleLongShare,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Move distance from the long run to the easy runs.",
			check:          checkLongShare,
		},
		{
			ID:             RuleLongDuration,
			Scope:          models.ScopeSession,
			Severity:       models.SeverityError,
			Recommendation: "Cap the long run by time rather than distance.",
			check:          checkLongDuration,
		},
		{
			ID:             RuleWeeklyProgression,
			Scope:          models.ScopeCrossWeek,
			Severity:       models.SeverityError,
			Recommendation: "Lower the weekly target.",
			check:          checkProgression,
		},
		{
			ID:             RuleRecoveryOverdue,
			Scope:          models.ScopeCrossWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Schedule a recovery week.",
			check:          checkRecoveryOverdue,
		},
		{
			ID:             RuleRecoveryNotReduced,
			Scope:          models.ScopeCrossWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Reduce the recovery week's volume.",
			check:          checkRecoveryReduced,
		},
		{
			ID:             RuleSessionBelowMinimum,
			Scope:          models.ScopeSession,
			Severity:       models.SeverityError,
			Recommendation: "Drop a session so the rest can meet their minimum.",
			check:          checkSessionMinimum,
		},
		{
			ID:             RuleWeekBoundary,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityError,
			Recommendation: "Start the plan on a Monday and place sessions on distinct available days.",
			check:          checkWeekBoundary,
		},
		{
			ID:             RuleVolumeSumMismatch,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityError,
			Recommendation: "Redistribute the target volume.",
			check:          checkVolumeSum,
		},
		{
			ID:             RuleSessionCount,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Match the session count to the athlete's availability.",
			check:          checkSessionCount,
		},
		{
			ID:             RuleSessionDuration,
			Scope:          models.ScopeSession,
			Severity:       models.SeverityError,
			Recommendation: "Shorten the session to fit the athlete's time limit.",
			check:          checkSessionDuration,
		},
		{
			ID:             RuleQualityAfterLowerBody,
			Scope:          models.ScopeSession,
			Severity:       models.SeverityError,
			Recommendation: "Move the quality session or make it easy.",
			check:          checkLowerBodyInteraction,
		},
		{
			ID:             RuleConsecutiveQuality,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Put an easy day between quality sessions.",
			check:          checkConsecutiveQuality,
		},
		{
			ID:             RuleLowReadinessQuality,
			Scope:          models.ScopeWeek,
			Severity:       models.SeverityWarning,
			Recommendation: "Swap quality work for easy running until readiness recovers.",
			check:          checkLowReadiness,
		},
	}
}

func intensityCap(zone models.Zone, limit func(Thresholds) float64) predicate {
	return func(plan models.WeekPlan, _ Context, th Thresholds) []finding {
		volume := plan.Volume()
		if volume <= 0 {
			return nil
		}
		work := 0.0
		var days []int
		for _, s := range plan.Sessions {
			if s.Intensity == zone && s.WorkDistance > 0 {
				work += s.WorkDistance
				days = append(days, s.Day)
			}
		}
		share := work / volume
		limitShare := limit(th)
		if share <= limitShare+epsilon {
			return nil
		}
		return []finding{{
			message: fmt.Sprintf("%s work is %.1f of %.1f (%.1f%%), above the %.0f%% cap", zone, work, volume, share*100, limitShare*100),
			days:    days,
		}}
	}
}

func longSession(plan models.WeekPlan) (models.SessionPrescription, bool) {
	for _, s := range plan.Sessions {
		if s.Category == models.CategoryLong {
			return s, true
		}
	}
	return models.SessionPrescription{}, false
}

func checkLongShare(plan models.WeekPlan, _ Context, th Thresholds) []finding {
	long, ok := longSession(plan)
	volume := plan.Volume()
	if !ok || volume <= 0 {
		return nil
	}
	share := long.Distance / volume
	if share <= th.LongShareCap+epsilon {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("long run is %.0f%% of the week, above %.0f%%", share*100, th.LongShareCap*100),
		days:    []int{long.Day},
	}}
}

func checkLongDuration(plan models.WeekPlan, _ Context, th Thresholds) []finding {
	long, ok := longSession(plan)
	if !ok || long.DurationMinutes <= th.LongDurationCapMinutes+epsilon {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("long run lasts %.0f min, above %.0f min", long.DurationMinutes, th.LongDurationCapMinutes),
		days:    []int{long.Day},
	}}
}

// lastLoadingWeek returns the most recent non-recovery week with volume.
func lastLoadingWeek(history []models.WeekSummary) (models.WeekSummary, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsRecoveryWeek && history[i].Volume > 0 {
			return history[i], true
		}
	}
	return models.WeekSummary{}, false
}

func checkProgression(plan models.WeekPlan, ctx Context, th Thresholds) []finding {
	if plan.Target.IsRecoveryWeek {
		return nil
	}
	prev, ok := lastLoadingWeek(ctx.History)
	if !ok {
		return nil
	}
	volume := plan.Volume()
	limit := prev.Volume * (1 + th.ProgressionCap)
	if volume <= limit+epsilon {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("volume %.1f is %.0f%% above week of %s (%.1f), cap %.0f%%",
			volume, (volume/prev.Volume-1)*100, prev.WeekStart, prev.Volume, th.ProgressionCap*100),
	}}
}

func checkRecoveryOverdue(plan models.WeekPlan, ctx Context, th Thresholds) []finding {
	if plan.Target.IsRecoveryWeek {
		return nil
	}
	span := th.RecoveryCadenceWeeks - 1
	if len(ctx.History) < span {
		return nil
	}
	for _, w := range ctx.History[len(ctx.History)-span:] {
		if w.IsRecoveryWeek {
			return nil
		}
	}
	return []finding{{
		message: fmt.Sprintf("no recovery week in the last %d weeks", span+1),
	}}
}

func checkRecoveryReduced(plan models.WeekPlan, ctx Context, th Thresholds) []finding {
	if !plan.Target.IsRecoveryWeek {
		return nil
	}
	prev, ok := lastLoadingWeek(ctx.History)
	if !ok {
		return nil
	}
	volume := plan.Volume()
	if volume <= prev.Volume*th.RecoveryReduction+epsilon {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("recovery week volume %.1f is %.0f%% of the previous %.1f, above %.0f%%",
			volume, volume/prev.Volume*100, prev.Volume, th.RecoveryReduction*100),
	}}
}

func checkSessionMinimum(plan models.WeekPlan, ctx Context, _ Thresholds) []finding {
	var out []finding
	for _, s := range plan.Sessions {
		minimum := ctx.minimumFor(s.Category)
		if s.Distance >= minimum-epsilon {
			continue
		}
		f := finding{
			message: fmt.Sprintf("%s session on day %d is %.1f, below the %.1f minimum", s.Category, s.Day, s.Distance, minimum),
			days:    []int{s.Day},
		}
		if s.Reduced {
			f.severity = models.SeverityInfo
			f.message += " (reduced)"
		}
		out = append(out, f)
	}
	return out
}

func checkWeekBoundary(plan models.WeekPlan, ctx Context, _ Thresholds) []finding {
	var out []finding
	if !utils.IsWeekStart(plan.WeekStart) {
		out = append(out, finding{message: fmt.Sprintf("week start %q is not a Monday", plan.WeekStart)})
	}

	available := make(map[int]bool, len(ctx.Constraints.AvailableDays))
	for _, d := range ctx.Constraints.AvailableDays {
		available[d] = true
	}

	seen := make(map[int]bool, len(plan.Sessions))
	for _, s := range plan.Sessions {
		switch {
		case s.Day < 0 || s.Day > 6:
			out = append(out, finding{message: fmt.Sprintf("session day %d is outside the week", s.Day), days: []int{s.Day}})
		case seen[s.Day]:
			out = append(out, finding{message: fmt.Sprintf("day %d has more than one session", s.Day), days: []int{s.Day}})
		case len(available) > 0 && !available[s.Day]:
			out = append(out, finding{message: fmt.Sprintf("day %d is not an available day", s.Day), days: []int{s.Day}})
		}
		seen[s.Day] = true
	}
	return out
}

func checkVolumeSum(plan models.WeekPlan, ctx Context, _ Thresholds) []finding {
	tolerance := ctx.granularity() / 2
	volume := plan.Volume()
	if math.Abs(volume-plan.Target.TargetVolume) <= tolerance+epsilon {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("sessions total %.1f but the target is %.1f", volume, plan.Target.TargetVolume),
	}}
}

func checkSessionCount(plan models.WeekPlan, ctx Context, _ Thresholds) []finding {
	c := ctx.Constraints
	n := len(plan.Sessions)
	if c.MinSessionsPerWeek > 0 && n < c.MinSessionsPerWeek {
		return []finding{{message: fmt.Sprintf("%d sessions, below the minimum of %d", n, c.MinSessionsPerWeek)}}
	}
	if c.MaxSessionsPerWeek > 0 && n > c.MaxSessionsPerWeek {
		return []finding{{message: fmt.Sprintf("%d sessions, above the maximum of %d", n, c.MaxSessionsPerWeek)}}
	}
	return nil
}

func checkSessionDuration(plan models.WeekPlan, ctx Context, _ Thresholds) []finding {
	limit := ctx.Constraints.MaxSessionMinutes
	if limit <= 0 {
		return nil
	}
	var out []finding
	for _, s := range plan.Sessions {
		if s.DurationMinutes > limit+epsilon {
			out = append(out, finding{
				message: fmt.Sprintf("day %d lasts %.0f min, above the %.0f min limit", s.Day, s.DurationMinutes, limit),
				days:    []int{s.Day},
			})
		}
	}
	return out
}

func checkLowerBodyInteraction(plan models.WeekPlan, ctx Context, th Thresholds) []finding {
	weekStart, err := utils.ParseDate(plan.WeekStart)
	if err != nil {
		// reported by the boundary rule
		return nil
	}

	heavy := make(map[string]models.LoadSample)
	for _, s := range ctx.OtherActivities {
		if s.ActivityType.IsRunning() || s.LowerBodyLoad < th.HighLowerBodyLoad {
			continue
		}
		if cur, ok := heavy[s.Date]; !ok || s.LowerBodyLoad > cur.LowerBodyLoad {
			heavy[s.Date] = s
		}
	}
	if len(heavy) == 0 {
		return nil
	}

	var out []finding
	for _, s := range plan.Sessions {
		if s.Category != models.CategoryQuality {
			continue
		}
		dayBefore := utils.FormatDate(weekStart.AddDate(0, 0, s.Day-1))
		if prev, ok := heavy[dayBefore]; ok {
			out = append(out, finding{
				message: fmt.Sprintf("quality session on day %d follows %s on %s with lower-body load %.0f",
					s.Day, prev.ActivityType, prev.Date, prev.LowerBodyLoad),
				days: []int{s.Day},
			})
		}
	}
	return out
}

func qualityDays(plan models.WeekPlan) []int {
	var days []int
	for _, s := range plan.Sessions {
		if s.Category == models.CategoryQuality {
			days = append(days, s.Day)
		}
	}
	sort.Ints(days)
	return days
}

func checkConsecutiveQuality(plan models.WeekPlan, _ Context, _ Thresholds) []finding {
	days := qualityDays(plan)
	var out []finding
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			out = append(out, finding{
				message: fmt.Sprintf("quality sessions on consecutive days %d and %d", days[i-1], days[i]),
				days:    []int{days[i-1], days[i]},
			})
		}
	}
	return out
}

func checkLowReadiness(plan models.WeekPlan, ctx Context, th Thresholds) []finding {
	if ctx.Snapshot == nil || ctx.Snapshot.Readiness >= th.LowReadiness {
		return nil
	}
	days := qualityDays(plan)
	if len(days) == 0 {
		return nil
	}
	return []finding{{
		message: fmt.Sprintf("readiness %.0f is below %.0f with %d quality session(s) planned", ctx.Snapshot.Readiness, th.LowReadiness, len(days)),
		days:    days,
	}}
}
