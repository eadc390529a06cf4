package pace

import "math"

// Oxygen-cost regression of running velocity (m/min) and the fraction of maximal
// uptake sustainable for a race of t minutes.
const (
	vo2Intercept = -4.60
	vo2Linear    = 0.182258
	vo2Quadratic = 0.000104

	sustainBase      = 0.8
	sustainFastCoeff = 0.1894393
	sustainFastRate  = -0.012778
	sustainSlowCoeff = 0.2989558
	sustainSlowRate  = -0.1932605
)

// oxygenCost returns the VO2 (ml/kg/min) of running at velocity m/min.
func oxygenCost(velocity float64) float64 {
	return vo2Intercept + vo2Linear*velocity + vo2Quadratic*velocity*velocity
}

// sustainableFraction returns the share of VO2max held for a race of minutes.
func sustainableFraction(minutes float64) float64 {
	return sustainBase +
		sustainFastCoeff*math.Exp(sustainFastRate*minutes) +
		sustainSlowCoeff*math.Exp(sustainSlowRate*minutes)
}

// velocityFor inverts oxygenCost. It returns 0 when vo2 is not reachable at a positive speed.
func velocityFor(vo2 float64) float64 {
	c := vo2Intercept - vo2
	disc := vo2Linear*vo2Linear - 4*vo2Quadratic*c
	if disc < 0 {
		return 0
	}
	v := (-vo2Linear + math.Sqrt(disc)) / (2 * vo2Quadratic)
	if v <= 0 {
		return 0
	}
	return v
}

// secondsPerKm converts m/min to seconds per km.
func secondsPerKm(velocity float64) float64 {
	return 60000 / velocity
}
