package metrics

import (
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

var (
	freshnessScore = utils.Piecewise{{X: -25, Y: 0}, {X: -10, Y: 40}, {X: 5, Y: 85}, {X: 15, Y: 100}}
	trendScore     = utils.Piecewise{{X: 0.8, Y: 90}, {X: 1.0, Y: 100}, {X: 1.3, Y: 60}, {X: 1.5, Y: 20}, {X: 2.0, Y: 0}}
	sleepScore     = utils.Piecewise{{X: 4, Y: 0}, {X: 6, Y: 50}, {X: 7, Y: 80}, {X: 8, Y: 100}}
	wellnessScore  = utils.Piecewise{{X: 1, Y: 0}, {X: 10, Y: 100}}
)

// ReadinessInputs are the signals blended into readiness. Nil pointers and an undefined
// ratio are missing inputs.
type ReadinessInputs struct {
	Freshness     float64
	LoadRatio     models.LoadRatio
	SleepHours    *float64
	WellnessScore *float64
}

// SubScores are the 0-100 components of readiness.
type SubScores struct {
	Freshness float64
	Trend     float64
	Sleep     float64
	Wellness  float64
	Missing   int
}

func ScoreInputs(in ReadinessInputs) SubScores {
	s := SubScores{
		Freshness: freshnessScore.At(in.Freshness),
		Trend:     constants.NeutralSubScore,
		Sleep:     constants.NeutralSubScore,
		Wellness:  constants.NeutralSubScore,
	}

	if in.LoadRatio.Defined {
		s.Trend = trendScore.At(in.LoadRatio.Value)
	} else {
		s.Missing++
	}
	if in.SleepHours != nil {
		s.Sleep = sleepScore.At(*in.SleepHours)
	} else {
		s.Missing++
	}
	if in.WellnessScore != nil {
		s.Wellness = wellnessScore.At(*in.WellnessScore)
	} else {
		s.Missing++
	}
	return s
}

// Readiness blends the sub-scores into a 0-100 score. Missing inputs score the neutral
// midpoint and lower the confidence instead of failing.
func Readiness(in ReadinessInputs) (float64, models.Confidence) {
	s := ScoreInputs(in)
	score := constants.ReadinessFreshnessWeight*s.Freshness +
		constants.ReadinessTrendWeight*s.Trend +
		constants.ReadinessSleepWeight*s.Sleep +
		constants.ReadinessWellnessWeight*s.Wellness
	return utils.Clamp(score, 0, 100), confidenceFor(s.Missing)
}

func confidenceFor(missing int) models.Confidence {
	switch {
	case missing == 0:
		return models.ConfidenceHigh
	case missing == 1:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
