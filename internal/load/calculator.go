// Package load converts raw activities into systemic and lower-body load samples.
package load

import (
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
)

const (
	WarningDefaultIntensity    = "default_intensity"
	WarningUnknownActivityType = "unknown_activity_type"
)

// Calculator computes LoadSamples from ActivityRecords. It holds only its lookup table.
type Calculator struct {
	multipliers map[models.ActivityType]Multiplier
}

// New returns a Calculator using DefaultMultipliers.
func New() *Calculator {
	return &Calculator{multipliers: DefaultMultipliers}
}

// NewWithMultipliers returns a Calculator over a custom table. Missing types still
// fall back to UnknownActivityMultiplier.
func NewWithMultipliers(table map[models.ActivityType]Multiplier) *Calculator {
	return &Calculator{multipliers: table}
}

// Compute derives the load sample for a single activity. Only malformed records fail;
// a missing intensity signal yields a low-confidence sample.
func (c *Calculator) Compute(activity models.ActivityRecord) (models.LoadSample, error) {
	if err := models.Validate(activity); err != nil {
		return models.LoadSample{}, err
	}

	sample := models.LoadSample{
		ActivityID:   activity.ID,
		Date:         activity.Date,
		ActivityType: activity.ActivityType,
	}

	intensity := resolveIntensity(activity.Intensity)
	sample.IntensitySource = intensity.source
	sample.Confidence = intensity.confidence
	if intensity.source == models.IntensityDefault {
		sample.Warnings = append(sample.Warnings, WarningDefaultIntensity)
	}

	mult, ok := c.multipliers[activity.ActivityType]
	if !ok {
		mult = UnknownActivityMultiplier
		sample.Warnings = append(sample.Warnings, WarningUnknownActivityType)
		logger.Debug("Unknown activity type, using conservative multipliers", "type", activity.ActivityType, "activity", activity.ID)
	}

	base := activity.DurationMinutes * IntensityFactor(intensity.rpe)
	sample.SystemicLoad = base * mult.Systemic
	sample.LowerBodyLoad = base * mult.LowerBody

	return sample, nil
}

// ComputeAll computes samples for a batch, stopping at the first malformed record.
func (c *Calculator) ComputeAll(activities []models.ActivityRecord) ([]models.LoadSample, error) {
	samples := make([]models.LoadSample, 0, len(activities))
	for _, a := range activities {
		s, err := c.Compute(a)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}
