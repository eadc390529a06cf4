package pace

import (
	"time"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

const (
	stepDistanceMeters   = 400.0
	maxShortEffortMeters = 2000.0
	maxShortEffortTime   = 10 * time.Minute
)

// StepFunc returns the seconds per 400m separating adjacent zones, given the
// short-effort pace in seconds per 400m.
type StepFunc func(secondsPer400 float64) float64

// DefaultStep widens the spacing for slower runners.
func DefaultStep(secondsPer400 float64) float64 {
	switch {
	case secondsPer400 < 80:
		return constants.DefaultZoneStepSeconds
	case secondsPer400 <= 95:
		return constants.DefaultZoneStepSeconds + 1
	default:
		return constants.DefaultZoneStepSeconds + 2
	}
}

// FixedStep always returns seconds.
func FixedStep(seconds float64) StepFunc {
	return func(float64) float64 { return seconds }
}

// ShortEffort is a maximal effort too short to rate with the index regression.
type ShortEffort struct {
	DistanceMeters float64       `json:"distance_meters" yaml:"distance_meters"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// ZonesFromShortEffort sets the repetition zone at the effort's pace and steps the
// interval and threshold zones slower from it.
func (e *Engine) ZonesFromShortEffort(effort ShortEffort) (models.PaceZoneSet, error) {
	if effort.DistanceMeters <= 0 || effort.DistanceMeters > maxShortEffortMeters {
		return models.PaceZoneSet{}, perrors.Invalid("distance_meters", "must be in (0, %.0f], got %v", maxShortEffortMeters, effort.DistanceMeters)
	}
	if effort.Duration <= 0 || effort.Duration > maxShortEffortTime {
		return models.PaceZoneSet{}, perrors.Invalid("duration", "must be in (0, %s], got %s", maxShortEffortTime, effort.Duration)
	}

	per400 := effort.Duration.Seconds() / effort.DistanceMeters * stepDistanceMeters
	step := e.cfg.Step(per400)
	if step <= 0 {
		return models.PaceZoneSet{}, perrors.Invalid("step", "must be positive, got %v", step)
	}

	toKm := 1000 / stepDistanceMeters
	halfWidth := step / 3 * toKm
	center := per400 * toKm

	fastest := []models.Zone{models.ZoneRepetition, models.ZoneInterval, models.ZoneThreshold}
	zones := make([]models.PaceZone, len(fastest))
	for i, z := range fastest {
		c := center + float64(i)*step*toKm
		// slowest first
		zones[len(fastest)-1-i] = models.PaceZone{
			Zone: z,
			Pace: models.PaceRange{MinPace: c - halfWidth, MaxPace: c + halfWidth},
		}
	}

	set := models.PaceZoneSet{Zones: zones, Source: models.PaceZonesFromShortEffort}
	if err := CheckMonotonic(set); err != nil {
		return models.PaceZoneSet{}, err
	}
	return set, nil
}
