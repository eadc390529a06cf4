package load

import (
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

// rpeFactor maps an RPE-equivalent effort to load units per minute.
// An hour at threshold effort (RPE 8) is about 84 units.
var rpeFactor = utils.Piecewise{
	{X: 1, Y: 0.20}, {X: 2, Y: 0.30}, {X: 3, Y: 0.45}, {X: 4, Y: 0.60}, {X: 5, Y: 0.75},
	{X: 6, Y: 0.95}, {X: 7, Y: 1.15}, {X: 8, Y: 1.40}, {X: 9, Y: 1.70}, {X: 10, Y: 2.00},
}

// hrZoneRPE is the effort assigned to time in each heart-rate zone (1-5).
var hrZoneRPE = []float64{2, 4, 6, 8, 9.5}

// paceRPESlope converts a speed ratio against the easy baseline into RPE steps.
const (
	paceRPEBaseline = 4.0
	paceRPESlope    = 15.0
)

func clampRPE(rpe float64) float64 {
	return utils.Clamp(rpe, 1, 10)
}

// resolvedIntensity is the effort picked for one activity together with its provenance.
type resolvedIntensity struct {
	rpe        float64
	source     models.IntensitySource
	confidence models.Confidence
}

// resolveIntensity applies the signal priority: explicit RPE, then heart-rate zones,
// then pace relative to the easy baseline, then a moderate default.
func resolveIntensity(sig models.IntensitySignal) resolvedIntensity {
	if sig.RPE != nil {
		return resolvedIntensity{rpe: clampRPE(*sig.RPE), source: models.IntensityFromRPE, confidence: models.ConfidenceHigh}
	}

	if rpe, ok := hrZonesRPE(sig.HRZoneMinutes); ok {
		return resolvedIntensity{rpe: rpe, source: models.IntensityFromHRZones, confidence: models.ConfidenceMedium}
	}

	if sig.PaceRatio != nil && *sig.PaceRatio > 0 {
		rpe := clampRPE(paceRPEBaseline + paceRPESlope*(*sig.PaceRatio-1))
		return resolvedIntensity{rpe: rpe, source: models.IntensityFromPace, confidence: models.ConfidenceMedium}
	}

	return resolvedIntensity{rpe: constants.DefaultRPE, source: models.IntensityDefault, confidence: models.ConfidenceLow}
}

// hrZonesRPE returns the time-weighted RPE of a zone distribution.
// It reports false when the distribution holds no time.
func hrZonesRPE(minutes []float64) (float64, bool) {
	total, weighted := 0.0, 0.0
	for i, m := range minutes {
		if i >= len(hrZoneRPE) || m <= 0 {
			continue
		}
		total += m
		weighted += m * hrZoneRPE[i]
	}
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

// IntensityFactor converts an RPE-equivalent effort to load units per minute.
func IntensityFactor(rpe float64) float64 {
	return rpeFactor.At(clampRPE(rpe))
}
