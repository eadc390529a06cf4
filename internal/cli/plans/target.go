package plans

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

// qualityCount is how many quality sessions a phase gets in a loading week.
var qualityCount = map[models.Phase]int{
	models.PhaseBase:  1,
	models.PhaseBuild: 2,
	models.PhasePeak:  2,
	models.PhaseTaper: 1,
}

// BuildTarget lays out a week over the athlete's available days: the long session on
// the latest available day, quality sessions on days that touch neither the long
// session nor each other, and easy sessions elsewhere.
func BuildTarget(c models.AthleteConstraints, volume float64, phase models.Phase, recovery bool) (models.WeeklyPlanTarget, error) {
	if volume <= 0 {
		return models.WeeklyPlanTarget{}, perrors.Invalid("volume", "must be positive, got %v", volume)
	}
	if _, ok := qualityCount[phase]; !ok {
		return models.WeeklyPlanTarget{}, perrors.Invalid("phase", "unknown phase %q", phase)
	}
	if len(c.AvailableDays) == 0 {
		return models.WeeklyPlanTarget{}, perrors.Invalid("available_days", "no available days")
	}

	days := append([]int(nil), c.AvailableDays...)
	sort.Ints(days)
	count := len(days)
	if c.MaxSessionsPerWeek > 0 && c.MaxSessionsPerWeek < count {
		count = c.MaxSessionsPerWeek
	}

	long := days[len(days)-1]
	chosen := append(spread(days[:len(days)-1], count-1), long)

	quality := 0
	if !recovery && count >= 3 {
		quality = qualityCount[phase]
		if count < 4 {
			quality = min(quality, 1)
		}
	}

	taken := map[int]bool{long: true}
	slots := make([]models.SessionSlot, 0, len(chosen))
	for _, d := range chosen {
		category := models.CategoryEasy
		switch {
		case d == long:
			category = models.CategoryLong
		case quality > 0 && !taken[d-1] && !taken[d+1]:
			category = models.CategoryQuality
			taken[d] = true
			quality--
		}
		slots = append(slots, models.SessionSlot{Day: d, Category: category})
	}

	return models.WeeklyPlanTarget{
		TargetVolume:    volume,
		Phase:           phase,
		IsRecoveryWeek:  recovery,
		SessionSlots:    slots,
		LongSessionSlot: long,
		LongFractionRange: models.FractionRange{
			Min: constants.DefaultLongFractionMin,
			Max: constants.DefaultLongFractionMax,
		},
	}, nil
}

// spread picks n of the sorted days, evenly spaced.
func spread(days []int, n int) []int {
	if n <= 0 {
		return nil
	}
	if n >= len(days) {
		return days
	}
	out := make([]int, 0, n)
	step := float64(len(days)) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, days[int(float64(i)*step)])
	}
	return out
}

// ReadTarget loads a target from a YAML or JSON file.
func ReadTarget(path string) (models.WeeklyPlanTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WeeklyPlanTarget{}, fmt.Errorf("failed to read target: %w", err)
	}
	var target models.WeeklyPlanTarget
	if err := yaml.Unmarshal(data, &target); err != nil {
		return models.WeeklyPlanTarget{}, perrors.Invalid("target", "%s: %v", path, err)
	}
	if target.LongFractionRange == (models.FractionRange{}) {
		target.LongFractionRange = models.FractionRange{
			Min: constants.DefaultLongFractionMin,
			Max: constants.DefaultLongFractionMax,
		}
	}
	if err := models.Validate(target); err != nil {
		return models.WeeklyPlanTarget{}, err
	}
	return target, nil
}

// ReadPlan loads a proposed week plan from a YAML or JSON file.
func ReadPlan(path string) (models.WeekPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan models.WeekPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return models.WeekPlan{}, perrors.Invalid("plan", "%s: %v", path, err)
	}
	return plan, nil
}
