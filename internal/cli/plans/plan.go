// Package plans holds the week plan commands.
package plans

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/pacewise/internal/cli"
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/guardrails"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/planner"
	"github.com/julianstephens/pacewise/internal/storage"
	"github.com/julianstephens/pacewise/internal/utils"
)

type PlanCmd struct {
	Week         string  `help:"Week to plan (a Monday, YYYY-MM-DD). Defaults to the next week start."`
	Volume       float64 `help:"Weekly distance target in km. Defaults to the last accepted loading week."`
	Phase        string  `help:"Training phase." enum:"base,build,peak,taper" default:"base"`
	Recovery     bool    `help:"Plan a recovery week."`
	Target       string  `help:"Read the full weekly target from a YAML or JSON file." type:"existingfile"`
	AllowReduced bool    `help:"Allow sessions below the minimum distance when the target is too small." name:"allow-reduced"`
	NewRevision  bool    `help:"Create a new revision when the week already has an accepted plan." name:"new-revision"`
	DryRun       bool    `help:"Show the plan without saving it." name:"dry-run"`
	Yes          bool    `help:"Accept the plan without prompting." short:"y"`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	weekStart, err := resolveWeek(ctx, c.Week, true)
	if err != nil {
		return err
	}

	existing, err := ctx.Store.GetWeekPlan(ctx.AthleteID, weekStart)
	switch {
	case err == nil && existing.AcceptedAt != nil && !c.NewRevision:
		fmt.Printf("An accepted plan already exists for %s (revision %d).\n", weekStart, existing.Revision)
		fmt.Printf("To create a new revision, use: %s plan --week %s --new-revision\n", constants.AppName, weekStart)
		return nil
	case err == nil && existing.AcceptedAt == nil:
		fmt.Printf("Revision %d of %s is not accepted and will be replaced.\n\n", existing.Revision, weekStart)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return err
	}

	pc, err := loadPlanContext(ctx, weekStart)
	if err != nil {
		return err
	}

	target, err := c.target(pc)
	if err != nil {
		return err
	}
	zones, err := ctx.Zones(ctx.AthleteID)
	if err != nil {
		return err
	}

	res, genErr := ctx.Planner.Generate(planner.Request{
		AthleteID:       ctx.AthleteID,
		WeekStart:       weekStart,
		Target:          target,
		Constraints:     pc.Constraints,
		Zones:           zones,
		Snapshot:        pc.Snapshot,
		History:         pc.History,
		OtherActivities: pc.OtherActivities,
		AllowReduced:    c.AllowReduced,
	})
	if genErr != nil && len(res.Plan.Sessions) == 0 {
		return genErr
	}

	fmt.Println(cli.RenderPlan(res.Plan))
	fmt.Println()
	for _, a := range res.Adjustments {
		fmt.Printf("  adjusted: %s\n", a)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
	fmt.Println(cli.RenderViolations(res.Validation.Violations))
	fmt.Println(planner.Describe(res))
	if genErr != nil {
		return genErr
	}
	if c.DryRun {
		return nil
	}

	accept := c.Yes
	if !accept {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Accept the plan for %s?", weekStart)).
					Affirmative("Accept").
					Negative("Keep as draft").
					Value(&accept),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}
	}

	ctx.PerformAutomaticBackup("pre_plan")
	saved, err := ctx.Store.SaveWeekPlan(res.Plan)
	if err != nil {
		return err
	}
	if !accept {
		fmt.Printf("Saved draft revision %d. Accept it with: %s plan accept --week %s\n", saved.Revision, constants.AppName, weekStart)
		return nil
	}
	if err := ctx.Store.AcceptWeekPlan(ctx.AthleteID, weekStart, saved.Revision); err != nil {
		return err
	}
	fmt.Println(cli.OK(fmt.Sprintf("Accepted revision %d for %s", saved.Revision, weekStart)))
	return nil
}

func (c *PlanCmd) target(pc planContext) (models.WeeklyPlanTarget, error) {
	if c.Target != "" {
		return ReadTarget(c.Target)
	}
	volume := c.Volume
	if volume == 0 {
		last, ok := lastLoadingVolume(pc.History)
		if !ok {
			return models.WeeklyPlanTarget{}, fmt.Errorf("no accepted weeks to base the volume on, pass --volume")
		}
		volume = last
	}
	return BuildTarget(pc.Constraints, volume, models.Phase(c.Phase), c.Recovery)
}

func lastLoadingVolume(history []models.WeekSummary) (float64, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsRecoveryWeek {
			return history[i].Volume, true
		}
	}
	return 0, false
}

// planContext is the stored state a week plan is generated and validated against.
type planContext struct {
	Constraints     models.AthleteConstraints
	Snapshot        *models.MetricsSnapshot
	History         []models.WeekSummary
	OtherActivities []models.LoadSample
}

func loadPlanContext(ctx *cli.Context, weekStart string) (planContext, error) {
	var pc planContext

	constraints, err := ctx.Store.GetConstraints(ctx.AthleteID)
	if errors.Is(err, storage.ErrNotFound) {
		return pc, fmt.Errorf("no constraints for %s, import a file with a constraints section first", ctx.AthleteID)
	}
	if err != nil {
		return pc, err
	}
	pc.Constraints = constraints

	snap, err := ctx.Store.GetLatestSnapshot(ctx.AthleteID)
	switch {
	case err == nil:
		pc.Snapshot = &snap
	case !errors.Is(err, storage.ErrNotFound):
		return pc, err
	}

	pc.History, err = ctx.Store.GetWeekSummaries(ctx.AthleteID, weekStart, ctx.Config.Planner.HistoryWeeks)
	if err != nil {
		return pc, err
	}

	// cross-training from the week before through the plan week
	from, err := utils.AddDays(weekStart, -7)
	if err != nil {
		return pc, err
	}
	to, err := utils.AddDays(weekStart, 6)
	if err != nil {
		return pc, err
	}
	samples, err := ctx.Store.GetLoadSamples(ctx.AthleteID, from, to)
	if err != nil {
		return pc, err
	}
	for _, s := range samples {
		if !s.ActivityType.IsRunning() {
			pc.OtherActivities = append(pc.OtherActivities, s)
		}
	}
	return pc, nil
}

// resolveWeek parses a week flag. Empty means the next Monday when upcoming is set,
// this week's Monday otherwise.
func resolveWeek(ctx *cli.Context, week string, upcoming bool) (string, error) {
	if week == "" {
		today, err := utils.ParseDate(ctx.Today())
		if err != nil {
			return "", err
		}
		start := utils.WeekStart(today)
		if upcoming && !start.Equal(today) {
			start = start.AddDate(0, 0, 7)
		}
		return utils.FormatDate(start), nil
	}
	if !utils.IsWeekStart(week) {
		return "", fmt.Errorf("week %q must be a Monday in YYYY-MM-DD format", week)
	}
	return week, nil
}

type ShowCmd struct {
	Week     string `help:"Week to show (a Monday). Defaults to the current week."`
	Revision int    `help:"Revision to show. Defaults to the latest."`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	weekStart, err := resolveWeek(ctx, c.Week, false)
	if err != nil {
		return err
	}
	var plan models.WeekPlan
	if c.Revision > 0 {
		plan, err = ctx.Store.GetWeekPlanRevision(ctx.AthleteID, weekStart, c.Revision)
	} else {
		plan, err = ctx.Store.GetWeekPlan(ctx.AthleteID, weekStart)
	}
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Printf("No plan for the week of %s.\n", weekStart)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderPlan(plan))
	return nil
}

type AcceptCmd struct {
	Week     string `help:"Week to accept (a Monday). Defaults to the next week start."`
	Revision int    `help:"Revision to accept. Defaults to the latest."`
}

func (c *AcceptCmd) Run(ctx *cli.Context) error {
	weekStart, err := resolveWeek(ctx, c.Week, true)
	if err != nil {
		return err
	}
	rev := c.Revision
	if rev == 0 {
		plan, err := ctx.Store.GetWeekPlan(ctx.AthleteID, weekStart)
		if err != nil {
			return err
		}
		rev = plan.Revision
	}

	plan, err := ctx.Store.GetWeekPlanRevision(ctx.AthleteID, weekStart, rev)
	if err != nil {
		return err
	}
	pc, err := loadPlanContext(ctx, weekStart)
	if err != nil {
		return err
	}
	// the stored draft is re-checked against the state as of now
	vr := ctx.Validator.Validate(plan, pc.guardrails(ctx))
	if !vr.OK {
		fmt.Println(cli.RenderViolations(vr.Violations))
		return vr.Err()
	}

	if err := ctx.Store.AcceptWeekPlan(ctx.AthleteID, weekStart, rev); err != nil {
		return err
	}
	fmt.Println(cli.OK(fmt.Sprintf("Accepted revision %d for %s at %s", rev, weekStart, ctx.Now().UTC().Format(time.RFC3339))))
	return nil
}

func (pc planContext) guardrails(ctx *cli.Context) guardrails.Context {
	return guardrails.Context{
		Constraints:     pc.Constraints,
		MinEasyDistance: ctx.Config.Planner.MinEasyDistance,
		MinLongDistance: ctx.Config.Planner.MinLongDistance,
		Granularity:     ctx.Config.Planner.Granularity,
		History:         pc.History,
		Snapshot:        pc.Snapshot,
		OtherActivities: pc.OtherActivities,
	}
}

type ValidateCmd struct {
	File string `arg:"" optional:"" type:"existingfile" help:"Proposed week plan (YAML or JSON). Defaults to the stored plan for --week."`
	Week string `help:"Week of the stored plan to validate (a Monday)."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	var plan models.WeekPlan
	if c.File != "" {
		p, err := ReadPlan(c.File)
		if err != nil {
			return err
		}
		if p.AthleteID == "" {
			p.AthleteID = ctx.AthleteID
		}
		if !utils.IsWeekStart(p.WeekStart) {
			return fmt.Errorf("plan week_start %q must be a Monday", p.WeekStart)
		}
		plan = p
	} else {
		weekStart, err := resolveWeek(ctx, c.Week, true)
		if err != nil {
			return err
		}
		plan, err = ctx.Store.GetWeekPlan(ctx.AthleteID, weekStart)
		if err != nil {
			return err
		}
	}

	pc, err := loadPlanContext(ctx, plan.WeekStart)
	if err != nil {
		return err
	}
	vr := ctx.Validator.Validate(plan, pc.guardrails(ctx))
	ctx.Instruments.RecordViolations(vr.Violations)

	fmt.Println(cli.RenderViolations(vr.Violations))
	return vr.Err()
}

type HistoryCmd struct {
	Weeks int `help:"Number of accepted weeks to list." default:"8"`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	next, err := resolveWeek(ctx, "", true)
	if err != nil {
		return err
	}
	before, err := utils.AddDays(next, 7)
	if err != nil {
		return err
	}
	weeks, err := ctx.Store.GetWeekSummaries(ctx.AthleteID, before, c.Weeks)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		fmt.Println("No accepted weeks.")
		return nil
	}
	for _, w := range weeks {
		marker := ""
		if w.IsRecoveryWeek {
			marker = "  recovery"
		}
		fmt.Printf("  %s  %6.1f km%s\n", w.WeekStart, w.Volume, marker)
	}
	return nil
}
