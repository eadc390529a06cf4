// Package training holds the commands that feed and inspect the load series and
// pace zones.
package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/pacewise/internal/cli"
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/ingest"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/pace"
	"github.com/julianstephens/pacewise/internal/storage"
	"github.com/julianstephens/pacewise/internal/utils"
)

type ImportCmd struct {
	Files []string `arg:"" type:"existingfile" help:"YAML or JSON activity logs."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	for _, path := range c.Files {
		batch, err := ingest.ReadFile(path, ctx.AthleteID)
		if err != nil {
			return err
		}
		sum, err := ctx.Import(batch)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Printf("✓ %s: %d activities, %d wellness entries for %s\n", path, sum.Activities, sum.Wellness, batch.AthleteID)
		if sum.Rebuilt {
			fmt.Printf("  Rebuilt metrics series (%d days)\n", sum.Days)
		} else if sum.Days > 0 {
			fmt.Printf("  Extended metrics series by %d day(s)\n", sum.Days)
		}
		if sum.Index != nil {
			fmt.Printf("  Fitness index %.1f (%s confidence)\n", sum.Index.Value, sum.Index.Confidence)
		}
		for _, w := range sum.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	}
	return nil
}

type ReplayCmd struct {
	All bool `help:"Replay every stored athlete concurrently."`
}

func (c *ReplayCmd) Run(ctx *cli.Context) error {
	var ids []string
	if !c.All {
		ids = []string{ctx.AthleteID}
	}
	days, err := ctx.Rebuild(ids)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	fmt.Printf("✓ Replayed %d snapshot day(s)\n", days)
	return nil
}

type StatusCmd struct {
	Days int `help:"Number of recent days to show." default:"7"`
}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	latest, err := ctx.Store.GetLatestSnapshot(ctx.AthleteID)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Printf("No metrics for %s yet. Import activities with '%s import'.\n", ctx.AthleteID, constants.AppName)
		return nil
	}
	if err != nil {
		return err
	}

	from, err := utils.AddDays(latest.Date, 1-max(c.Days, 1))
	if err != nil {
		return err
	}
	series, err := ctx.Store.GetSnapshots(ctx.AthleteID, from, latest.Date)
	if err != nil {
		return err
	}

	fmt.Println(cli.Header(fmt.Sprintf("Training load for %s", ctx.AthleteID)))
	fmt.Printf("  %-10s  %6s  %7s  %6s  %6s  %5s  %s\n", "date", "load", "chronic", "acute", "fresh", "ratio", "readiness")
	for _, s := range series {
		fmt.Printf("  %-10s  %6.1f  %7.1f  %6.1f  %6.1f  %5s  %3.0f (%s)\n",
			s.Date, s.DailyLoad, s.ChronicLoad, s.AcuteLoad, s.Freshness, formatRatio(s.LoadRatio), s.Readiness, s.ReadinessConfidence)
	}

	idx, err := ctx.Store.GetFitnessIndex(ctx.AthleteID)
	switch {
	case err == nil:
		fmt.Printf("\nFitness index %.1f from %s on %s\n", idx.Value, describePerformance(idx.SourcePerformance), idx.SourcePerformance.Date)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}
	return nil
}

func formatRatio(r models.LoadRatio) string {
	if !r.Defined {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.Value)
}

func describePerformance(p models.Performance) string {
	return fmt.Sprintf("%.0fm in %s", p.DistanceMeters, p.Duration.Round(time.Second))
}

type CalibrateCmd struct {
	Distance float64       `arg:"" help:"Race distance in meters."`
	Time     time.Duration `arg:"" help:"Finish time, e.g. 21m30s."`
	Date     string        `help:"Date of the performance (YYYY-MM-DD). Defaults to today."`
	Training bool          `help:"The effort was a training run rather than a race."`
	Override bool          `help:"Recalibrate inside the cool-down window."`
}

func (c *CalibrateCmd) Run(ctx *cli.Context) error {
	date := c.Date
	if date == "" {
		date = ctx.Today()
	}
	perf := models.Performance{
		DistanceMeters: c.Distance,
		Duration:       c.Time,
		Date:           date,
		Qualifying:     !c.Training,
	}
	if err := models.Validate(perf); err != nil {
		return err
	}

	idx, err := ctx.Calibrate(ctx.AthleteID, perf, c.Override)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Fitness index %.1f (%s confidence)\n", idx.Value, idx.Confidence)

	zones, err := ctx.Pace.ZonesFor(idx)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderZones(zones))
	return nil
}

type ZonesCmd struct {
	ShortDistance float64       `help:"Distance of a maximal short effort in meters, instead of the stored index."`
	ShortTime     time.Duration `help:"Duration of the short effort."`
}

func (c *ZonesCmd) Run(ctx *cli.Context) error {
	var (
		zones models.PaceZoneSet
		err   error
	)
	if c.ShortDistance > 0 {
		zones, err = ctx.Pace.ZonesFromShortEffort(pace.ShortEffort{DistanceMeters: c.ShortDistance, Duration: c.ShortTime})
		if err != nil {
			return err
		}
		fmt.Println(cli.Header(fmt.Sprintf("Zones from %.0fm in %s", c.ShortDistance, c.ShortTime)))
	} else {
		zones, err = ctx.Zones(ctx.AthleteID)
		if err != nil {
			return err
		}
		fmt.Println(cli.Header(fmt.Sprintf("Zones for fitness index %.1f", zones.Index)))
	}
	fmt.Println(cli.RenderZones(zones))
	return nil
}
