package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/pacewise/internal/backup"
	"github.com/julianstephens/pacewise/internal/config"
	"github.com/julianstephens/pacewise/internal/constants"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/guardrails"
	"github.com/julianstephens/pacewise/internal/ingest"
	"github.com/julianstephens/pacewise/internal/load"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/metrics"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/observability"
	"github.com/julianstephens/pacewise/internal/pace"
	"github.com/julianstephens/pacewise/internal/planner"
	"github.com/julianstephens/pacewise/internal/storage"
	"github.com/julianstephens/pacewise/internal/utils"
)

// Context carries the store and the engines to every command.
type Context struct {
	Config    config.Config
	Store     storage.Provider
	AthleteID string

	Calculator *load.Calculator
	Metrics    *metrics.Engine
	Pace       *pace.Engine
	Validator  *guardrails.Validator
	Planner    *planner.Planner

	Instruments *observability.Metrics
	// Now is the clock, replaced in tests.
	Now func() time.Time
}

func NewContext(cfg config.Config, store storage.Provider, athleteID string) (*Context, error) {
	metricsEngine, err := metrics.New(cfg.MetricsEngine())
	if err != nil {
		return nil, err
	}
	paceEngine, err := pace.New(cfg.PaceEngine())
	if err != nil {
		return nil, err
	}
	validator, err := guardrails.New(cfg.Guardrails)
	if err != nil {
		return nil, err
	}
	instruments := observability.New()

	return &Context{
		Config:      cfg,
		Store:       store,
		AthleteID:   athleteID,
		Calculator:  load.New(),
		Metrics:     metricsEngine,
		Pace:        paceEngine,
		Validator:   validator,
		Planner:     planner.New(cfg.PlannerConfig(), validator, instruments),
		Instruments: instruments,
		Now:         time.Now,
	}, nil
}

// Today is the current date in the configured timezone.
func (c *Context) Today() string {
	loc, err := utils.LoadLocation(c.Config.Timezone)
	if err != nil {
		loc = time.Local
	}
	return utils.FormatDate(c.Now().In(loc))
}

// PerformAutomaticBackup snapshots a SQLite store and only logs failures.
func (c *Context) PerformAutomaticBackup(label string) {
	path := c.Store.GetConfigPath()
	if path == "postgresql" {
		return
	}
	if _, err := backup.NewManager(path).Create(label); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

type ImportSummary struct {
	Activities int
	Wellness   int
	Days       int
	Rebuilt    bool
	Index      *models.FitnessIndex
	Warnings   []string
}

// Import stores a parsed batch and brings the metrics series up to date.
func (c *Context) Import(b ingest.Batch) (ImportSummary, error) {
	var sum ImportSummary
	log := logger.With("athlete", b.AthleteID)

	if b.Constraints != nil {
		if err := c.Store.SaveConstraints(b.AthleteID, *b.Constraints); err != nil {
			return sum, fmt.Errorf("failed to save constraints: %w", err)
		}
	}
	for _, a := range b.Activities {
		sample, err := c.Calculator.Compute(a)
		if err != nil {
			return sum, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		for _, w := range sample.Warnings {
			log.Debug("Load sample warning", "activity", a.ID, "warning", w)
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s %s: %s", a.Date, a.ID, w))
		}
		if err := c.Store.AddActivity(a, sample); err != nil {
			return sum, err
		}
		sum.Activities++
	}
	for _, w := range b.Wellness {
		if err := c.Store.SaveWellness(b.AthleteID, w); err != nil {
			return sum, fmt.Errorf("failed to save wellness for %s: %w", w.Date, err)
		}
		sum.Wellness++
	}

	if b.Performance != nil {
		idx, err := c.Calibrate(b.AthleteID, *b.Performance, false)
		switch {
		case errors.Is(err, perrors.ErrRecalibrationRejected):
			sum.Warnings = append(sum.Warnings, err.Error())
		case err != nil:
			return sum, err
		default:
			sum.Index = &idx
		}
	}

	days, rebuilt, err := c.RefreshMetrics(b.AthleteID, b.Earliest())
	if err != nil {
		return sum, err
	}
	sum.Days = days
	sum.Rebuilt = rebuilt
	log.Info("Imported batch", "activities", sum.Activities, "wellness", sum.Wellness, "days", days, "rebuilt", rebuilt)
	return sum, nil
}

// Calibrate derives a fitness index from perf and stores it unless the cool-down
// rejects it.
func (c *Context) Calibrate(athleteID string, perf models.Performance, override bool) (models.FitnessIndex, error) {
	var current *models.FitnessIndex
	existing, err := c.Store.GetFitnessIndex(athleteID)
	switch {
	case err == nil:
		current = &existing
	case !errors.Is(err, storage.ErrNotFound):
		return models.FitnessIndex{}, err
	}

	idx, err := c.Pace.Recalibrate(current, perf, c.Now(), override)
	if err != nil {
		return models.FitnessIndex{}, err
	}
	if err := c.Store.SaveFitnessIndex(athleteID, idx); err != nil {
		return models.FitnessIndex{}, err
	}
	logger.Info("Fitness index updated", "athlete", athleteID, "value", idx.Value, "override", override)
	return idx, nil
}

// Zones expands the athlete's stored fitness index.
func (c *Context) Zones(athleteID string) (models.PaceZoneSet, error) {
	idx, err := c.Store.GetFitnessIndex(athleteID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.PaceZoneSet{}, fmt.Errorf("no fitness index for %s, run '%s calibrate' first", athleteID, constants.AppName)
	}
	if err != nil {
		return models.PaceZoneSet{}, err
	}
	return c.Pace.ZonesFor(idx)
}

// RefreshMetrics extends the stored series through today. When changed is on or
// before the last stored snapshot the series is rebuilt from scratch, since
// snapshots are never rewritten in place.
func (c *Context) RefreshMetrics(athleteID, changed string) (int, bool, error) {
	latest, err := c.Store.GetLatestSnapshot(athleteID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.rebuild([]string{athleteID}, false)
	case err != nil:
		return 0, false, err
	case changed != "" && changed <= latest.Date:
		return c.rebuild([]string{athleteID}, true)
	}

	from, err := utils.AddDays(latest.Date, 1)
	if err != nil {
		return 0, false, err
	}
	samples, err := c.Store.GetLoadSamples(athleteID, from, "")
	if err != nil {
		return 0, false, err
	}
	wellness, err := c.Store.GetWellness(athleteID, from, "")
	if err != nil {
		return 0, false, err
	}

	series, err := c.Metrics.Extend(&latest, samples, wellness, c.through(samples))
	if err != nil {
		return 0, false, err
	}
	if err := c.Store.AppendSnapshots(athleteID, series); err != nil {
		return 0, false, err
	}
	c.Instruments.RecordReplay(len(series))
	return len(series), false, nil
}

// Rebuild replays the given athletes, or every stored athlete when ids is empty.
func (c *Context) Rebuild(ids []string) (int, error) {
	if len(ids) == 0 {
		all, err := c.Store.GetAthletes()
		if err != nil {
			return 0, err
		}
		ids = all
	}
	days, _, err := c.rebuild(ids, true)
	return days, err
}

func (c *Context) rebuild(ids []string, backupFirst bool) (int, bool, error) {
	histories := make(map[string]metrics.History, len(ids))
	for _, id := range ids {
		samples, err := c.Store.GetLoadSamples(id, "", "")
		if err != nil {
			return 0, false, err
		}
		wellness, err := c.Store.GetWellness(id, "", "")
		if err != nil {
			return 0, false, err
		}
		histories[id] = metrics.History{Samples: samples, Wellness: wellness, Through: c.through(samples)}
	}

	series, err := c.Metrics.ReplayAthletes(context.Background(), histories)
	if err != nil {
		return 0, false, err
	}

	if backupFirst {
		c.PerformAutomaticBackup("pre_replay")
	}
	days := 0
	for _, id := range ids {
		if err := c.Store.ReplaceSnapshots(id, series[id]); err != nil {
			return days, true, err
		}
		c.Instruments.RecordReplay(len(series[id]))
		days += len(series[id])
	}
	logger.Info("Rebuilt metrics", "athletes", len(ids), "days", days)
	return days, true, nil
}

// through is today, or the last sample date when activities are logged ahead.
func (c *Context) through(samples []models.LoadSample) string {
	today := c.Today()
	for _, s := range samples {
		if s.Date > today {
			today = s.Date
		}
	}
	return today
}

// Flush writes the collected instrumentation when a textfile path is set.
func (c *Context) Flush(textfile string) error {
	if textfile == "" {
		return nil
	}
	return c.Instruments.WriteTextfile(textfile)
}
