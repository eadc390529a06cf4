package models

type ActivityType string

const (
	ActivityRunning      ActivityType = "running"
	ActivityTrailRunning ActivityType = "trail_running"
	ActivityTreadmill    ActivityType = "treadmill"
	ActivityCycling      ActivityType = "cycling"
	ActivitySwimming     ActivityType = "swimming"
	ActivityWalking      ActivityType = "walking"
	ActivityHiking       ActivityType = "hiking"
	ActivityElliptical   ActivityType = "elliptical"
	ActivityRowing       ActivityType = "rowing"
	ActivityStrength     ActivityType = "strength"
	ActivitySkiing       ActivityType = "skiing"
	ActivityYoga         ActivityType = "yoga"
)

// IsRunning reports whether the activity is a run on any surface.
func (t ActivityType) IsRunning() bool {
	switch t {
	case ActivityRunning, ActivityTrailRunning, ActivityTreadmill:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type IntensitySource string

const (
	IntensityFromRPE     IntensitySource = "rpe"
	IntensityFromHRZones IntensitySource = "hr_zones"
	IntensityFromPace    IntensitySource = "pace"
	IntensityDefault     IntensitySource = "default"
)

// IntensitySignal carries whichever effort measures were recorded for an activity.
// Any combination may be present; the load calculator picks the most trusted one.
type IntensitySignal struct {
	RPE           *float64  `json:"rpe,omitempty" yaml:"rpe,omitempty" validate:"omitempty,gte=1,lte=10"`
	HRZoneMinutes []float64 `json:"hr_zone_minutes,omitempty" yaml:"hr_zone_minutes,omitempty" validate:"omitempty,max=5,dive,gte=0"`
	PaceRatio     *float64  `json:"pace_ratio,omitempty" yaml:"pace_ratio,omitempty" validate:"omitempty,gt=0,lte=3"`
}

type ActivityRecord struct {
	ID              string          `json:"id" yaml:"id"`
	AthleteID       string          `json:"athlete_id" yaml:"athlete_id"`
	Date            string          `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"` // YYYY-MM-DD format
	DurationMinutes float64         `json:"duration_minutes" yaml:"duration_minutes" validate:"gt=0,lte=1440"`
	ActivityType    ActivityType    `json:"activity_type" yaml:"activity_type" validate:"required"`
	Distance        float64         `json:"distance,omitempty" yaml:"distance,omitempty" validate:"gte=0"` // km
	Intensity       IntensitySignal `json:"intensity" yaml:"intensity"`
}

type LoadSample struct {
	ActivityID      string          `json:"activity_id"`
	Date            string          `json:"date"` // YYYY-MM-DD format
	ActivityType    ActivityType    `json:"activity_type"`
	SystemicLoad    float64         `json:"systemic_load"`
	LowerBodyLoad   float64         `json:"lower_body_load"`
	Confidence      Confidence      `json:"confidence"`
	IntensitySource IntensitySource `json:"intensity_source"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// Wellness holds the optional self-reported inputs to readiness for one day.
type Wellness struct {
	Date          string   `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	SleepHours    *float64 `json:"sleep_hours,omitempty" yaml:"sleep_hours,omitempty" validate:"omitempty,gte=0,lte=24"`
	WellnessScore *float64 `json:"wellness_score,omitempty" yaml:"wellness_score,omitempty" validate:"omitempty,gte=1,lte=10"`
}
