// Package distributor splits a weekly distance target across session slots.
package distributor

import (
	"math"
	"sort"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

const (
	WarningLongFractionClamped = "long_fraction_clamped"
	WarningSessionDropped      = "session_dropped"
	WarningSessionsReduced     = "sessions_reduced"

	epsilon = 1e-9
)

type Request struct {
	TargetVolume      float64
	Slots             []models.SessionSlot
	LongSlot          int // day index of the long session
	LongFractionRange models.FractionRange
	LongFraction      float64 // 0 uses the midpoint of the range
	Minimums          Minimums
	// MaxSessionDistance caps every session, floored to the granularity. 0 means uncapped.
	MaxSessionDistance float64
	Granularity        float64 // 0 uses constants.DefaultGranularity
	MinSessions        int     // session-count floor, 0 uses constants.DefaultMinSessionsFloor
	// AllowReduced emits sub-minimum sessions flagged as reduced instead of failing.
	AllowReduced bool
}

// RequestFor builds a request from a weekly target.
func RequestFor(target models.WeeklyPlanTarget, mins Minimums) Request {
	return Request{
		TargetVolume:      target.TargetVolume,
		Slots:             target.SessionSlots,
		LongSlot:          target.LongSessionSlot,
		LongFractionRange: target.LongFractionRange,
		LongFraction:      target.LongSessionFraction,
		Minimums:          mins,
	}
}

type Result struct {
	Sessions []models.SessionPrescription
	// Fraction is the long-session fraction after clamping to its range.
	Fraction    float64
	Warnings    []string
	DroppedDays []int
	Attempts    int
}

// Volume returns the distributed total.
func (r Result) Volume() float64 {
	total := 0.0
	for _, s := range r.Sessions {
		total += s.Distance
	}
	return total
}

type Distributor struct{}

func New() *Distributor {
	return &Distributor{}
}

// Distribute assigns a distance to every slot so the total matches the target within
// half a granularity unit. Identical requests always give identical results.
func (d *Distributor) Distribute(req Request) (Result, error) {
	if req.Granularity == 0 {
		req.Granularity = constants.DefaultGranularity
	}
	if req.MinSessions == 0 {
		req.MinSessions = constants.DefaultMinSessionsFloor
	}
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	slots := make([]models.SessionSlot, len(req.Slots))
	copy(slots, req.Slots)
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Day < slots[j].Day
	})
	floor := req.MinSessions
	if floor > len(slots) {
		floor = len(slots)
	}

	result := Result{}

	// Step 1: Settle the long-session fraction
	result.Fraction = req.LongFraction
	if result.Fraction == 0 {
		result.Fraction = (req.LongFractionRange.Min + req.LongFractionRange.Max) / 2
	} else if !req.LongFractionRange.Contains(result.Fraction) {
		result.Fraction = utils.Clamp(result.Fraction, req.LongFractionRange.Min, req.LongFractionRange.Max)
		result.Warnings = append(result.Warnings, WarningLongFractionClamped)
		logger.Debug("Clamped long fraction", "requested", req.LongFraction, "applied", result.Fraction)
	}

	// Step 2: Reject targets the session caps cannot hold. Sessions are whole granularity
	// units, so the usable cap is the largest unit at or below the requested one.
	if req.MaxSessionDistance > 0 {
		req.MaxSessionDistance = floorTo(req.MaxSessionDistance, req.Granularity)
		if req.MaxSessionDistance < epsilon {
			return Result{}, &perrors.InfeasibleConstraintError{
				TargetVolume: req.TargetVolume,
				SessionCount: len(slots),
				Reason:       "per-session maximum is below one granularity unit",
			}
		}
		capacity := float64(len(slots)) * req.MaxSessionDistance
		if req.TargetVolume > capacity+epsilon {
			return Result{}, &perrors.InfeasibleConstraintError{
				TargetVolume:  req.TargetVolume,
				SessionCount:  len(slots),
				MaxAchievable: capacity,
				Reason:        "target exceeds the per-session maximum",
			}
		}
	}

	// Step 3: Allocate, dropping the smallest non-long slot while a session is short
	maxAttempts := len(slots) - floor + 1
	var last allocation
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		last = allocate(req, slots, result.Fraction, req.Minimums)

		if last.overCap {
			return Result{}, &perrors.InfeasibleConstraintError{
				TargetVolume:  req.TargetVolume,
				SessionCount:  len(slots),
				MaxAchievable: float64(len(slots)) * req.MaxSessionDistance,
				Reason:        "sessions exceed the per-session maximum",
			}
		}
		if len(last.short) == 0 {
			result.Sessions = last.sessions
			return result, nil
		}
		if len(slots) <= floor {
			break
		}

		victim := smallestNonLong(last.sessions)
		if victim < 0 {
			break
		}
		logger.Debug("Dropping session slot", "day", slots[victim].Day, "attempt", attempt)
		result.DroppedDays = append(result.DroppedDays, slots[victim].Day)
		result.Warnings = append(result.Warnings, WarningSessionDropped)
		slots = append(slots[:victim:victim], slots[victim+1:]...)
	}

	// Step 4: Fail, or keep the short sessions flagged as reduced
	required := req.Minimums.Long + float64(len(slots)-1)*req.Minimums.Easy
	if !req.AllowReduced {
		infeasible := &perrors.InfeasibleConstraintError{
			TargetVolume:    req.TargetVolume,
			SessionCount:    len(slots),
			MinimumRequired: required,
			Reason:          "sessions fall below their minimum distance",
		}
		if req.MaxSessionDistance > 0 {
			infeasible.MaxAchievable = float64(len(slots)) * req.MaxSessionDistance
		}
		return Result{}, infeasible
	}

	reduced := allocate(req, slots, result.Fraction, Minimums{})
	for i := range reduced.sessions {
		s := &reduced.sessions[i]
		if s.Distance < req.Minimums.For(s.Category)-epsilon {
			s.Reduced = true
		}
	}
	result.Sessions = reduced.sessions
	result.Warnings = append(result.Warnings, WarningSessionsReduced)
	return result, nil
}

func (r Request) validate() error {
	if r.TargetVolume <= 0 {
		return perrors.Invalid("target_volume", "must be positive, got %v", r.TargetVolume)
	}
	if r.Granularity <= 0 {
		return perrors.Invalid("granularity", "must be positive, got %v", r.Granularity)
	}
	if len(r.Slots) == 0 || len(r.Slots) > 7 {
		return perrors.Invalid("session_slots", "need 1 to 7 slots, got %d", len(r.Slots))
	}
	if r.MinSessions < 1 {
		return perrors.Invalid("min_sessions", "must be at least 1, got %d", r.MinSessions)
	}
	if r.Minimums.Easy < 0 || r.Minimums.Long < 0 || r.MaxSessionDistance < 0 {
		return perrors.Invalid("minimums", "distances must not be negative")
	}
	fr := r.LongFractionRange
	if fr.Min < 0 || fr.Max > 1 || fr.Min > fr.Max {
		return perrors.Invalid("long_session_fraction_range", "invalid range [%v, %v]", fr.Min, fr.Max)
	}
	if r.LongFraction < 0 || r.LongFraction > 1 {
		return perrors.Invalid("long_session_fraction", "must be in [0, 1], got %v", r.LongFraction)
	}

	seen := make(map[int]bool, len(r.Slots))
	hasLong := false
	for _, s := range r.Slots {
		if s.Day < 0 || s.Day > 6 {
			return perrors.Invalid("session_slots", "day %d is outside 0-6", s.Day)
		}
		if seen[s.Day] {
			return perrors.Invalid("session_slots", "day %d is used twice", s.Day)
		}
		seen[s.Day] = true
		if s.Day == r.LongSlot {
			hasLong = true
		}
	}
	if !hasLong {
		return perrors.Invalid("long_session_slot", "day %d has no session slot", r.LongSlot)
	}
	return nil
}

type allocation struct {
	sessions []models.SessionPrescription
	short    []int
	overCap  bool
}

func allocate(req Request, slots []models.SessionSlot, fraction float64, mins Minimums) allocation {
	g := req.Granularity
	target := req.TargetVolume
	nEasy := len(slots) - 1

	long := target
	if nEasy > 0 {
		lower := mins.Long
		upper := target - float64(nEasy)*mins.Easy
		if req.MaxSessionDistance > 0 {
			upper = math.Min(upper, req.MaxSessionDistance)
			lower = math.Max(lower, target-float64(nEasy)*req.MaxSessionDistance)
		}
		upper = math.Max(upper, 0)

		long = target * fraction
		if long < lower {
			long = lower
		}
		if long > upper {
			long = upper
		}

		long = roundTo(long, g)
		if long > upper+epsilon {
			long = floorTo(upper, g)
		}
		if long < lower-epsilon && ceilTo(lower, g) <= upper+epsilon {
			long = ceilTo(lower, g)
		}
	}

	remaining := target - long
	base, extra := 0.0, 0
	if nEasy > 0 {
		base = floorTo(remaining/float64(nEasy), g)
		extra = int(math.Round((remaining - base*float64(nEasy)) / g))
		if extra > nEasy {
			extra = nEasy
		}
		if extra < 0 {
			extra = 0
		}
	}

	a := allocation{sessions: make([]models.SessionPrescription, 0, len(slots))}
	easySeen := 0
	for _, slot := range slots {
		s := models.SessionPrescription{Day: slot.Day, Category: slot.Category}
		if slot.Day == req.LongSlot {
			s.Category = models.CategoryLong
			s.Distance = long
		} else {
			if s.Category == models.CategoryLong {
				s.Category = models.CategoryEasy
			}
			s.Distance = base
			// remainder units go to the latest easy slots
			if easySeen >= nEasy-extra {
				s.Distance += g
			}
			easySeen++
		}

		if s.Distance < mins.For(s.Category)-epsilon {
			a.short = append(a.short, len(a.sessions))
		}
		if req.MaxSessionDistance > 0 && s.Distance > req.MaxSessionDistance+epsilon {
			a.overCap = true
		}
		a.sessions = append(a.sessions, s)
	}
	return a
}

// smallestNonLong returns the index of the shortest non-long session, earliest on ties.
func smallestNonLong(sessions []models.SessionPrescription) int {
	idx := -1
	for i, s := range sessions {
		if s.Category == models.CategoryLong {
			continue
		}
		if idx < 0 || s.Distance < sessions[idx].Distance-epsilon {
			idx = i
		}
	}
	return idx
}

func roundTo(x, g float64) float64 {
	return math.Round(x/g) * g
}

func floorTo(x, g float64) float64 {
	return math.Floor(x/g+epsilon) * g
}

func ceilTo(x, g float64) float64 {
	return math.Ceil(x/g-epsilon) * g
}
