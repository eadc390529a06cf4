package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

func sample(date string, load float64) models.LoadSample {
	return models.LoadSample{ActivityID: "a-" + date, Date: date, SystemicLoad: load, LowerBodyLoad: load / 2}
}

func ptr(v float64) *float64 { return &v }

func TestAdvanceFirstDay(t *testing.T) {
	e := NewDefault()

	snap, err := e.Advance(nil, "2026-03-02", []models.LoadSample{sample("2026-03-02", 100)}, nil)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", snap.Date)
	assert.InDelta(t, 100.0/42, snap.ChronicLoad, 1e-9)
	assert.InDelta(t, 100.0/7, snap.AcuteLoad, 1e-9)
	assert.InDelta(t, 0, snap.Freshness, 1e-9)
	assert.InDelta(t, 50.0/42, snap.LowerBody.Chronic, 1e-9)
	require.True(t, snap.LoadRatio.Defined)
	assert.InDelta(t, 4.0, snap.LoadRatio.Value, 1e-9)
}

func TestAdvanceUsesYesterdayForFreshness(t *testing.T) {
	e := NewDefault()

	day1, err := e.Advance(nil, "2026-03-02", []models.LoadSample{sample("2026-03-02", 100)}, nil)
	require.NoError(t, err)
	day2, err := e.Advance(&day1, "2026-03-03", []models.LoadSample{sample("2026-03-03", 200)}, nil)
	require.NoError(t, err)

	assert.InDelta(t, day1.ChronicLoad-day1.AcuteLoad, day2.Freshness, 1e-9)
	assert.InDelta(t, day1.ChronicLoad+(200-day1.ChronicLoad)/42, day2.ChronicLoad, 1e-9)
}

func TestZeroChronicGivesUndefinedRatio(t *testing.T) {
	e := NewDefault()

	snap, err := e.Advance(nil, "2026-03-02", nil, nil)
	require.NoError(t, err)

	assert.False(t, snap.LoadRatio.Defined)
	assert.Equal(t, models.UndefinedRatio, snap.LoadRatio)
	// Freshness 0 scores 70, the rest are neutral
	assert.InDelta(t, 54.0, snap.Readiness, 1e-9)
	assert.Equal(t, models.ConfidenceLow, snap.ReadinessConfidence)
}

func TestAdvanceFillsGaps(t *testing.T) {
	e := NewDefault()

	day1, err := e.Advance(nil, "2026-03-02", []models.LoadSample{sample("2026-03-02", 80)}, nil)
	require.NoError(t, err)

	jumped, err := e.Advance(&day1, "2026-03-05", []models.LoadSample{sample("2026-03-05", 60)}, nil)
	require.NoError(t, err)

	prior := day1
	for _, date := range []string{"2026-03-03", "2026-03-04"} {
		prior, err = e.Advance(&prior, date, nil, nil)
		require.NoError(t, err)
	}
	stepped, err := e.Advance(&prior, "2026-03-05", []models.LoadSample{sample("2026-03-05", 60)}, nil)
	require.NoError(t, err)

	assert.Equal(t, stepped, jumped)
}

func TestAdvanceRejectsBadInput(t *testing.T) {
	e := NewDefault()
	day1, err := e.Advance(nil, "2026-03-02", nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		prior    *models.MetricsSnapshot
		date     string
		samples  []models.LoadSample
		wellness *models.Wellness
	}{
		{"same day as prior", &day1, "2026-03-02", nil, nil},
		{"before prior", &day1, "2026-03-01", nil, nil},
		{"bad date", nil, "03/02/2026", nil, nil},
		{"sample from another day", nil, "2026-03-03", []models.LoadSample{sample("2026-03-04", 10)}, nil},
		{"negative load", nil, "2026-03-03", []models.LoadSample{sample("2026-03-03", -10)}, nil},
		{"wellness from another day", nil, "2026-03-03", nil, &models.Wellness{Date: "2026-03-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Advance(tt.prior, tt.date, tt.samples, tt.wellness)
			require.Error(t, err)
			assert.True(t, errors.Is(err, perrors.ErrInputValidation), "got %v", err)
		})
	}
}

func TestReadiness(t *testing.T) {
	t.Run("all inputs at the top", func(t *testing.T) {
		score, conf := Readiness(ReadinessInputs{
			Freshness:     20,
			LoadRatio:     models.DefinedRatio(1.0),
			SleepHours:    ptr(9),
			WellnessScore: ptr(10),
		})
		assert.InDelta(t, 100, score, 1e-9)
		assert.Equal(t, models.ConfidenceHigh, conf)
	})

	t.Run("one missing input", func(t *testing.T) {
		score, conf := Readiness(ReadinessInputs{
			Freshness:     -10,
			LoadRatio:     models.UndefinedRatio,
			SleepHours:    ptr(7),
			WellnessScore: ptr(5.5),
		})
		// 0.20*40 + 0.25*50 + 0.25*80 + 0.30*50
		assert.InDelta(t, 55.5, score, 1e-9)
		assert.Equal(t, models.ConfidenceMedium, conf)
	})

	t.Run("overreaching", func(t *testing.T) {
		score, conf := Readiness(ReadinessInputs{
			Freshness:     -30,
			LoadRatio:     models.DefinedRatio(2.2),
			SleepHours:    ptr(3),
			WellnessScore: ptr(1),
		})
		assert.InDelta(t, 0, score, 1e-9)
		assert.Equal(t, models.ConfidenceHigh, conf)
	})
}

func TestScoreInputsBreakpoints(t *testing.T) {
	s := ScoreInputs(ReadinessInputs{Freshness: 5, LoadRatio: models.DefinedRatio(1.3), SleepHours: ptr(6), WellnessScore: ptr(1)})
	assert.InDelta(t, 85, s.Freshness, 1e-9)
	assert.InDelta(t, 60, s.Trend, 1e-9)
	assert.InDelta(t, 50, s.Sleep, 1e-9)
	assert.InDelta(t, 0, s.Wellness, 1e-9)
	assert.Equal(t, 0, s.Missing)

	low := ScoreInputs(ReadinessInputs{LoadRatio: models.DefinedRatio(0.5)})
	assert.InDelta(t, 90, low.Trend, 1e-9)
	assert.Equal(t, 2, low.Missing)
}

func buildHistory(days int) []models.LoadSample {
	var samples []models.LoadSample
	for i := 0; i < days; i++ {
		if i%3 == 2 {
			continue
		}
		date := fmt.Sprintf("2026-01-%02d", i+1)
		samples = append(samples, sample(date, float64(30+(i*17)%90)))
	}
	return samples
}

func TestReplayMatchesIteratedAdvance(t *testing.T) {
	e := NewDefault()
	samples := buildHistory(28)
	wellness := []models.Wellness{{Date: "2026-01-05", SleepHours: ptr(7.5)}}

	series, err := e.Replay(samples, wellness, "2026-01-31")
	require.NoError(t, err)
	require.Len(t, series, 31)

	byDate := map[string][]models.LoadSample{}
	for _, s := range samples {
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	var prior *models.MetricsSnapshot
	for i := 0; i < 31; i++ {
		date := fmt.Sprintf("2026-01-%02d", i+1)
		var w *models.Wellness
		if date == "2026-01-05" {
			w = &wellness[0]
		}
		snap, err := e.Advance(prior, date, byDate[date], w)
		require.NoError(t, err)
		assert.Equal(t, snap, series[i], "day %s", date)
		prior = &snap
	}
}

func TestReplayNonNegative(t *testing.T) {
	e := NewDefault()
	series, err := e.Replay(buildHistory(31), nil, "2026-03-31")
	require.NoError(t, err)

	for _, s := range series {
		assert.GreaterOrEqual(t, s.ChronicLoad, 0.0)
		assert.GreaterOrEqual(t, s.AcuteLoad, 0.0)
		assert.GreaterOrEqual(t, s.LowerBody.Chronic, 0.0)
		assert.True(t, s.LoadRatio.Defined, "ratio undefined on %s", s.Date)
	}
	last := series[len(series)-1]
	assert.Equal(t, "2026-03-31", last.Date)
	assert.Zero(t, last.DailyLoad)
}

func TestReplayEmptyAndThrough(t *testing.T) {
	e := NewDefault()

	series, err := e.Replay(nil, nil, "")
	require.NoError(t, err)
	assert.Empty(t, series)

	_, err = e.Replay(buildHistory(5), nil, "2026-01-02")
	assert.True(t, errors.Is(err, perrors.ErrInputValidation))
}

func TestExtendIsAppendOnly(t *testing.T) {
	e := NewDefault()
	series, err := e.Replay(buildHistory(10), nil, "")
	require.NoError(t, err)
	last := series[len(series)-1]

	_, err = e.Extend(&last, []models.LoadSample{sample(last.Date, 40)}, nil, "")
	assert.True(t, errors.Is(err, perrors.ErrInputValidation))

	more, err := e.Extend(&last, []models.LoadSample{sample("2026-01-13", 40)}, nil, "")
	require.NoError(t, err)
	require.Len(t, more, 3)
	assert.Equal(t, "2026-01-11", more[0].Date)

	full, err := e.Replay(append(buildHistory(10), sample("2026-01-13", 40)), nil, "")
	require.NoError(t, err)
	assert.Equal(t, full[len(full)-1], more[len(more)-1])
}

func TestReplayAthletesMatchesSequential(t *testing.T) {
	e := NewDefault()
	histories := map[string]History{
		"ana":  {Samples: buildHistory(20)},
		"ben":  {Samples: buildHistory(12), Through: "2026-01-25"},
		"cruz": {Samples: buildHistory(30)},
	}

	got, err := e.ReplayAthletes(context.Background(), histories)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for id, h := range histories {
		want, err := e.Replay(h.Samples, h.Wellness, h.Through)
		require.NoError(t, err)
		assert.Equal(t, want, got[id], "athlete %s", id)
	}
}

func TestReplayAthletesPropagatesErrors(t *testing.T) {
	e := NewDefault()
	histories := map[string]History{
		"ok":  {Samples: buildHistory(5)},
		"bad": {Samples: []models.LoadSample{{Date: "not-a-date"}}},
	}

	_, err := e.ReplayAthletes(context.Background(), histories)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "athlete bad")
	assert.True(t, errors.Is(err, perrors.ErrInputValidation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.ReplayAthletes(ctx, map[string]History{"ok": {Samples: buildHistory(5)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{ChronicTimeConstant: 42, AcuteTimeConstant: 0.5, RatioAcuteTimeConstant: 7, RatioChronicTimeConstant: 28})
	assert.True(t, errors.Is(err, perrors.ErrInputValidation))

	e, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), e.Config())
}
