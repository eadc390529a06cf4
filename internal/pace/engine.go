// Package pace derives a fitness index from race performances and expands it into
// training pace zones.
package pace

import (
	"fmt"
	"time"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

// Races outside this window fall outside the regression's reliable range.
const (
	minReliableMinutes = 3.5
	maxReliableMinutes = 240.0
)

// DefaultZoneFractions are the shares of the fitness index each zone trains at.
var DefaultZoneFractions = map[models.Zone]models.FractionRange{
	models.ZoneEasy:       {Min: 0.59, Max: 0.74},
	models.ZoneMarathon:   {Min: 0.75, Max: 0.84},
	models.ZoneThreshold:  {Min: 0.85, Max: 0.89},
	models.ZoneInterval:   {Min: 0.95, Max: 1.00},
	models.ZoneRepetition: {Min: 1.05, Max: 1.12},
}

type Config struct {
	// Cooldown is the minimum time between recalibrations without an override.
	Cooldown      time.Duration
	ZoneFractions map[models.Zone]models.FractionRange
	// Step spaces the zones derived from a short effort.
	Step StepFunc
}

func DefaultConfig() Config {
	return Config{
		Cooldown:      constants.DefaultRecalibrationCooldown,
		ZoneFractions: DefaultZoneFractions,
		Step:          DefaultStep,
	}
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if cfg.Cooldown < constants.MinRecalibrationCooldown || cfg.Cooldown > constants.MaxRecalibrationCooldown {
		return nil, perrors.Invalid("cooldown", "must be between %s and %s, got %s",
			constants.MinRecalibrationCooldown, constants.MaxRecalibrationCooldown, cfg.Cooldown)
	}
	if cfg.ZoneFractions == nil {
		cfg.ZoneFractions = DefaultZoneFractions
	}
	for _, z := range models.ZoneOrder {
		fr, ok := cfg.ZoneFractions[z]
		if !ok {
			return nil, perrors.Invalid("zone_fractions", "missing zone %s", z)
		}
		if fr.Min <= 0 || fr.Max < fr.Min {
			return nil, perrors.Invalid("zone_fractions", "zone %s has invalid range [%v, %v]", z, fr.Min, fr.Max)
		}
	}
	if cfg.Step == nil {
		cfg.Step = DefaultStep
	}
	return &Engine{cfg: cfg}, nil
}

func NewDefault() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

// DeriveIndex maps a performance to a fitness index. Faster times over the same
// distance always produce a higher index.
func (e *Engine) DeriveIndex(perf models.Performance) (models.FitnessIndex, error) {
	if err := models.Validate(perf); err != nil {
		return models.FitnessIndex{}, err
	}
	date, err := utils.ParseDate(perf.Date)
	if err != nil {
		return models.FitnessIndex{}, perrors.Invalid("date", "%v", err)
	}

	minutes := perf.Duration.Minutes()
	velocity := perf.DistanceMeters / minutes
	vo2 := oxygenCost(velocity)
	if vo2 <= 0 {
		return models.FitnessIndex{}, perrors.Invalid("performance", "%.0fm in %s is too slow to rate", perf.DistanceMeters, perf.Duration)
	}

	index := models.FitnessIndex{
		Value:             vo2 / sustainableFraction(minutes),
		DerivedAt:         date,
		SourcePerformance: perf,
		Confidence:        indexConfidence(perf, minutes),
	}
	logger.Debug("Derived fitness index", "distance", perf.DistanceMeters, "duration", perf.Duration, "index", index.Value)
	return index, nil
}

func indexConfidence(perf models.Performance, minutes float64) models.Confidence {
	switch {
	case minutes < minReliableMinutes || minutes > maxReliableMinutes:
		return models.ConfidenceLow
	case perf.Qualifying:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceMedium
	}
}

// Recalibrate replaces current with an index derived from perf. Inside the cool-down
// window it fails with RecalibrationRejected unless override is set. The new index is
// stamped with now so the next window starts from this recalibration.
func (e *Engine) Recalibrate(current *models.FitnessIndex, perf models.Performance, now time.Time, override bool) (models.FitnessIndex, error) {
	if current != nil && !override {
		next := current.DerivedAt.Add(e.cfg.Cooldown)
		if now.Before(next) {
			return models.FitnessIndex{}, &perrors.RecalibrationRejected{
				DerivedAt:   utils.FormatDate(current.DerivedAt),
				NextAllowed: utils.FormatDate(next),
			}
		}
	}

	index, err := e.DeriveIndex(perf)
	if err != nil {
		return models.FitnessIndex{}, err
	}
	index.DerivedAt = now.UTC()
	return index, nil
}

// ZonesFor expands an index into the five training zones.
func (e *Engine) ZonesFor(index models.FitnessIndex) (models.PaceZoneSet, error) {
	if index.Value <= 0 {
		return models.PaceZoneSet{}, perrors.Invalid("index", "must be positive, got %v", index.Value)
	}

	set := models.PaceZoneSet{Source: models.PaceZonesFromIndex, Index: index.Value}
	for _, z := range models.ZoneOrder {
		fr := e.cfg.ZoneFractions[z]
		fast := velocityFor(fr.Max * index.Value)
		slow := velocityFor(fr.Min * index.Value)
		if fast == 0 || slow == 0 {
			return models.PaceZoneSet{}, perrors.Invalid("index", "zone %s is unreachable for index %.1f", z, index.Value)
		}
		set.Zones = append(set.Zones, models.PaceZone{
			Zone: z,
			Pace: models.PaceRange{MinPace: secondsPerKm(fast), MaxPace: secondsPerKm(slow)},
		})
	}

	if err := CheckMonotonic(set); err != nil {
		return models.PaceZoneSet{}, err
	}
	return set, nil
}

// CheckMonotonic verifies every zone is strictly faster than the one before it with
// no overlap.
func CheckMonotonic(set models.PaceZoneSet) error {
	for i, pz := range set.Zones {
		if pz.Pace.MinPace <= 0 || pz.Pace.MinPace > pz.Pace.MaxPace {
			return perrors.Invalid("zones", "zone %s has invalid range %.1f-%.1f", pz.Zone, pz.Pace.MinPace, pz.Pace.MaxPace)
		}
		if i == 0 {
			continue
		}
		prev := set.Zones[i-1]
		if pz.Pace.MaxPace >= prev.Pace.MinPace {
			return perrors.Invalid("zones", "zone %s is not faster than %s", pz.Zone, prev.Zone)
		}
	}
	return nil
}

// FormatPace renders seconds per km as m:ss.
func FormatPace(secondsPerKm float64) string {
	total := int(secondsPerKm + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
