// Package metrics turns daily load samples into decayed chronic and acute load,
// freshness, the acute:chronic load ratio and a composite readiness score.
package metrics

import (
	"math"
	"time"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

// Config holds the time constants, in days, of the decayed averages.
type Config struct {
	ChronicTimeConstant      float64
	AcuteTimeConstant        float64
	RatioAcuteTimeConstant   float64
	RatioChronicTimeConstant float64
}

func DefaultConfig() Config {
	return Config{
		ChronicTimeConstant:      constants.ChronicTimeConstant,
		AcuteTimeConstant:        constants.AcuteTimeConstant,
		RatioAcuteTimeConstant:   constants.RatioAcuteTimeConstant,
		RatioChronicTimeConstant: constants.RatioChronicTimeConstant,
	}
}

// Validate rejects time constants below one day, which would overshoot the input load.
func (c Config) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"chronic_time_constant", c.ChronicTimeConstant},
		{"acute_time_constant", c.AcuteTimeConstant},
		{"ratio_acute_time_constant", c.RatioAcuteTimeConstant},
		{"ratio_chronic_time_constant", c.RatioChronicTimeConstant},
	}
	for _, chk := range checks {
		if chk.value < 1 {
			return perrors.Invalid(chk.field, "must be at least 1 day, got %v", chk.value)
		}
	}
	return nil
}

// Engine advances metrics snapshots one day at a time. It holds no state between calls.
type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// NewDefault returns an engine using the default time constants.
func NewDefault() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Advance computes the snapshot for date from the prior snapshot and that day's samples.
// A nil prior starts from zero load. Days between prior.Date and date are absorbed as
// rest days. wellness may be nil.
func (e *Engine) Advance(prior *models.MetricsSnapshot, date string, samples []models.LoadSample, wellness *models.Wellness) (models.MetricsSnapshot, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return models.MetricsSnapshot{}, perrors.Invalid("date", "%v", err)
	}

	systemic, lowerBody, err := dailyLoad(date, samples)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}

	if wellness != nil && wellness.Date != "" && wellness.Date != date {
		return models.MetricsSnapshot{}, perrors.Invalid("wellness.date", "dated %s, expected %s", wellness.Date, date)
	}

	var state models.MetricsSnapshot
	if prior != nil {
		priorDay, err := utils.ParseDate(prior.Date)
		if err != nil {
			return models.MetricsSnapshot{}, perrors.Invalid("prior.date", "%v", err)
		}
		if !day.After(priorDay) {
			return models.MetricsSnapshot{}, perrors.Invalid("date", "%s is not after the prior snapshot %s", date, prior.Date)
		}
		state = *prior

		gap := utils.DaysBetween(priorDay, day) - 1
		if gap > 0 {
			logger.Debug("Filling rest days", "from", prior.Date, "to", date, "days", gap)
		}
		for d := priorDay.AddDate(0, 0, 1); d.Before(day); d = d.AddDate(0, 0, 1) {
			state = e.step(state, d, 0, 0, nil)
		}
	}

	return e.step(state, day, systemic, lowerBody, wellness), nil
}

// dailyLoad sums the samples of one day.
func dailyLoad(date string, samples []models.LoadSample) (float64, float64, error) {
	var systemic, lowerBody float64
	for i, s := range samples {
		if s.Date != date {
			return 0, 0, perrors.Invalid("samples", "sample %d (%s) is dated %s, expected %s", i, s.ActivityID, s.Date, date)
		}
		if s.SystemicLoad < 0 || s.LowerBodyLoad < 0 {
			return 0, 0, perrors.Invalid("samples", "sample %d (%s) has negative load", i, s.ActivityID)
		}
		systemic += s.SystemicLoad
		lowerBody += s.LowerBodyLoad
	}
	return systemic, lowerBody, nil
}

func (e *Engine) step(prev models.MetricsSnapshot, day time.Time, systemic, lowerBody float64, wellness *models.Wellness) models.MetricsSnapshot {
	next := models.MetricsSnapshot{
		Date:               utils.FormatDate(day),
		DailyLoad:          systemic,
		DailyLowerBodyLoad: lowerBody,
		Systemic:           e.decay(prev.Systemic, systemic),
		LowerBody:          e.decay(prev.LowerBody, lowerBody),
		// Freshness is the state entering today, before today's load is absorbed
		Freshness: prev.Systemic.Chronic - prev.Systemic.Acute,
	}
	next.ChronicLoad = next.Systemic.Chronic
	next.AcuteLoad = next.Systemic.Acute
	next.LoadRatio = Ratio(next.Systemic)

	in := ReadinessInputs{Freshness: next.Freshness, LoadRatio: next.LoadRatio}
	if wellness != nil {
		in.SleepHours = wellness.SleepHours
		in.WellnessScore = wellness.WellnessScore
	}
	next.Readiness, next.ReadinessConfidence = Readiness(in)
	return next
}

func (e *Engine) decay(prev models.Channel, load float64) models.Channel {
	return models.Channel{
		Chronic:      ewma(prev.Chronic, load, e.cfg.ChronicTimeConstant),
		Acute:        ewma(prev.Acute, load, e.cfg.AcuteTimeConstant),
		RatioAcute:   ewma(prev.RatioAcute, load, e.cfg.RatioAcuteTimeConstant),
		RatioChronic: ewma(prev.RatioChronic, load, e.cfg.RatioChronicTimeConstant),
	}
}

func ewma(prev, load, tau float64) float64 {
	return math.Max(0, prev+(load-prev)/tau)
}

// Ratio returns the acute:chronic ratio of a channel, or the undefined marker when the
// chronic average is zero.
func Ratio(ch models.Channel) models.LoadRatio {
	if ch.RatioChronic < constants.RatioEpsilon {
		return models.UndefinedRatio
	}
	return models.DefinedRatio(ch.RatioAcute / ch.RatioChronic)
}
