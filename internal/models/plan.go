package models

type SessionCategory string

const (
	CategoryEasy    SessionCategory = "easy"
	CategoryLong    SessionCategory = "long"
	CategoryQuality SessionCategory = "quality"
)

type Phase string

const (
	PhaseBase  Phase = "base"
	PhaseBuild Phase = "build"
	PhasePeak  Phase = "peak"
	PhaseTaper Phase = "taper"
)

type AthleteConstraints struct {
	MinSessionsPerWeek  int     `json:"min_sessions_per_week" yaml:"min_sessions_per_week" validate:"gte=1,lte=7"`
	MaxSessionsPerWeek  int     `json:"max_sessions_per_week" yaml:"max_sessions_per_week" validate:"gtefield=MinSessionsPerWeek,lte=7"`
	AvailableDays       []int   `json:"available_days" yaml:"available_days" validate:"required,min=1,max=7,unique,dive,gte=0,lte=6"` // 0=Mon..6=Sun
	MaxSessionMinutes   float64 `json:"max_session_minutes" yaml:"max_session_minutes" validate:"gte=0"`
	TypicalEasyDistance float64 `json:"typical_easy_distance" yaml:"typical_easy_distance" validate:"gte=0"`
	TypicalLongDistance float64 `json:"typical_long_distance" yaml:"typical_long_distance" validate:"gte=0"`
}

// SessionSlot is a day of the week reserved for a session of a given category.
type SessionSlot struct {
	Day      int             `json:"day" yaml:"day" validate:"gte=0,lte=6"`
	Category SessionCategory `json:"category" yaml:"category" validate:"oneof=easy long quality"`
}

type FractionRange struct {
	Min float64 `json:"min" yaml:"min" validate:"gte=0,lte=1"`
	Max float64 `json:"max" yaml:"max" validate:"gtefield=Min,lte=1"`
}

func (r FractionRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

type WeeklyPlanTarget struct {
	TargetVolume        float64       `json:"target_volume" yaml:"target_volume" validate:"gt=0"`
	Phase               Phase         `json:"phase" yaml:"phase"`
	IsRecoveryWeek      bool          `json:"is_recovery_week" yaml:"is_recovery_week"`
	SessionSlots        []SessionSlot `json:"session_slots" yaml:"session_slots" validate:"required,min=1,max=7,dive"`
	LongSessionSlot     int           `json:"long_session_slot" yaml:"long_session_slot" validate:"gte=0,lte=6"` // day index of the long session
	LongFractionRange   FractionRange `json:"long_session_fraction_range" yaml:"long_session_fraction_range"`
	LongSessionFraction float64       `json:"long_session_fraction,omitempty" yaml:"long_session_fraction,omitempty" validate:"gte=0,lte=1"`
}

type SessionPrescription struct {
	Day             int             `json:"day" yaml:"day"`
	Category        SessionCategory `json:"category" yaml:"category"`
	Distance        float64         `json:"distance" yaml:"distance"`
	Pace            PaceRange       `json:"pace_range" yaml:"pace_range"`
	DurationMinutes float64         `json:"duration_minutes" yaml:"duration_minutes"`
	Intensity       Zone            `json:"intensity,omitempty" yaml:"intensity,omitempty"`
	WorkDistance    float64         `json:"work_distance,omitempty" yaml:"work_distance,omitempty"` // distance run at Intensity
	Reduced         bool            `json:"reduced,omitempty" yaml:"reduced,omitempty"`
}

type WeekPlan struct {
	ID         string                `json:"id" yaml:"id"`
	AthleteID  string                `json:"athlete_id" yaml:"athlete_id"`
	WeekStart  string                `json:"week_start" yaml:"week_start"` // YYYY-MM-DD, a Monday
	Revision   int                   `json:"revision" yaml:"revision"`
	Target     WeeklyPlanTarget      `json:"target" yaml:"target"`
	Sessions   []SessionPrescription `json:"sessions" yaml:"sessions"`
	AcceptedAt *string               `json:"accepted_at,omitempty" yaml:"accepted_at,omitempty"` // RFC3339 timestamp
}

// Volume returns the total prescribed distance.
func (p WeekPlan) Volume() float64 {
	total := 0.0
	for _, s := range p.Sessions {
		total += s.Distance
	}
	return total
}

// WeekSummary is the part of a past week that cross-week rules look at.
type WeekSummary struct {
	WeekStart      string  `json:"week_start"`
	Volume         float64 `json:"volume"`
	IsRecoveryWeek bool    `json:"is_recovery_week"`
}
