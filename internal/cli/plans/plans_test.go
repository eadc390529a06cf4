package plans

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/pacewise/internal/cli"
	"github.com/julianstephens/pacewise/internal/config"
	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/planner"
	"github.com/julianstephens/pacewise/internal/storage/sqlite"
)

// setupTestContext returns a context on Friday 2026-02-27 with constraints and a
// fitness index stored, so the default plan week is 2026-03-02.
func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "pacewise.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Planner.QualityWorkFraction = 0.3
	ctx, err := cli.NewContext(cfg, store, "ana")
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	now := time.Date(2026, 2, 27, 18, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return now }

	err = store.SaveConstraints("ana", models.AthleteConstraints{
		MinSessionsPerWeek: 3,
		MaxSessionsPerWeek: 5,
		AvailableDays:      []int{1, 3, 6},
	})
	if err != nil {
		t.Fatalf("SaveConstraints failed: %v", err)
	}
	perf := models.Performance{DistanceMeters: 5000, Duration: 20 * time.Minute, Date: "2026-02-01", Qualifying: true}
	if _, err := ctx.Calibrate("ana", perf, false); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	return ctx
}

func TestBuildTarget(t *testing.T) {
	c := models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 4, AvailableDays: []int{6, 0, 2, 4, 5}}

	target, err := BuildTarget(c, 50, models.PhaseBuild, false)
	if err != nil {
		t.Fatalf("BuildTarget failed: %v", err)
	}
	if target.LongSessionSlot != 6 {
		t.Errorf("expected the long session on Sunday, got day %d", target.LongSessionSlot)
	}
	if len(target.SessionSlots) != 4 {
		t.Fatalf("expected 4 slots capped by max sessions, got %d", len(target.SessionSlots))
	}

	var quality []int
	for _, s := range target.SessionSlots {
		if s.Category == models.CategoryQuality {
			quality = append(quality, s.Day)
		}
	}
	if len(quality) != 2 {
		t.Errorf("expected 2 quality days in a build week, got %v", quality)
	}
	for i := 1; i < len(quality); i++ {
		if quality[i]-quality[i-1] < 2 {
			t.Errorf("quality days %v are adjacent", quality)
		}
	}
	for _, d := range quality {
		if d == 5 {
			t.Errorf("quality day %d touches the long session", d)
		}
	}
	if err := models.Validate(target); err != nil {
		t.Errorf("expected a valid target: %v", err)
	}
}

func TestBuildTarget_RecoveryHasNoQuality(t *testing.T) {
	c := models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 5, AvailableDays: []int{0, 2, 4, 6}}
	target, err := BuildTarget(c, 30, models.PhasePeak, true)
	if err != nil {
		t.Fatalf("BuildTarget failed: %v", err)
	}
	for _, s := range target.SessionSlots {
		if s.Category == models.CategoryQuality {
			t.Errorf("expected no quality in a recovery week, got day %d", s.Day)
		}
	}
	if !target.IsRecoveryWeek {
		t.Error("expected recovery flag on the target")
	}
}

func TestBuildTarget_Invalid(t *testing.T) {
	c := models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 5, AvailableDays: []int{0, 2, 4}}
	if _, err := BuildTarget(c, 0, models.PhaseBase, false); !errors.Is(err, perrors.ErrInputValidation) {
		t.Errorf("expected invalid volume, got %v", err)
	}
	if _, err := BuildTarget(c, 30, models.Phase("sprint"), false); !errors.Is(err, perrors.ErrInputValidation) {
		t.Errorf("expected invalid phase, got %v", err)
	}
}

func TestPlanCmd_AcceptAndRevise(t *testing.T) {
	// Setup
	ctx := setupTestContext(t)

	// Execute
	err := (&PlanCmd{Volume: 40, Phase: "base", Yes: true}).Run(ctx)

	// Assert
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	plan, err := ctx.Store.GetWeekPlan("ana", "2026-03-02")
	if err != nil {
		t.Fatalf("GetWeekPlan failed: %v", err)
	}
	if plan.AcceptedAt == nil || plan.Revision != 1 {
		t.Errorf("expected accepted revision 1, got revision %d accepted=%v", plan.Revision, plan.AcceptedAt)
	}

	// an accepted week is left alone without --new-revision
	if err := (&PlanCmd{Volume: 38, Phase: "base", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("second plan failed: %v", err)
	}
	plan, _ = ctx.Store.GetWeekPlan("ana", "2026-03-02")
	if plan.Revision != 1 {
		t.Errorf("expected revision 1 to remain latest, got %d", plan.Revision)
	}

	if err := (&PlanCmd{Volume: 38, Phase: "base", Yes: true, NewRevision: true}).Run(ctx); err != nil {
		t.Fatalf("new revision failed: %v", err)
	}
	plan, _ = ctx.Store.GetWeekPlan("ana", "2026-03-02")
	if plan.Revision != 2 || plan.AcceptedAt == nil {
		t.Errorf("expected accepted revision 2, got %d", plan.Revision)
	}
}

func TestPlanCmd_DryRunDoesNotSave(t *testing.T) {
	ctx := setupTestContext(t)
	if err := (&PlanCmd{Volume: 40, Phase: "base", DryRun: true}).Run(ctx); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if _, err := ctx.Store.GetWeekPlan("ana", "2026-03-02"); err == nil {
		t.Error("expected no stored plan after a dry run")
	}
}

func TestPlanCmd_RequiresVolumeWithoutHistory(t *testing.T) {
	ctx := setupTestContext(t)
	if err := (&PlanCmd{Phase: "base", Yes: true}).Run(ctx); err == nil {
		t.Error("expected an error without --volume or accepted weeks")
	}
}

func TestPlanCmd_RejectsNonMonday(t *testing.T) {
	ctx := setupTestContext(t)
	if err := (&PlanCmd{Week: "2026-03-03", Volume: 40, Phase: "base", Yes: true}).Run(ctx); err == nil {
		t.Error("expected a non-Monday week to be rejected")
	}
}

func TestAcceptCmd_Draft(t *testing.T) {
	ctx := setupTestContext(t)

	// a draft saved directly, then accepted through the command
	target, err := BuildTarget(models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 5, AvailableDays: []int{1, 3, 6}}, 40, models.PhaseBase, false)
	if err != nil {
		t.Fatalf("BuildTarget failed: %v", err)
	}
	zones, err := ctx.Zones("ana")
	if err != nil {
		t.Fatalf("Zones failed: %v", err)
	}
	res, err := ctx.Planner.Generate(planner.Request{
		AthleteID:   "ana",
		WeekStart:   "2026-03-02",
		Target:      target,
		Constraints: models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 5, AvailableDays: []int{1, 3, 6}},
		Zones:       zones,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := ctx.Store.SaveWeekPlan(res.Plan); err != nil {
		t.Fatalf("SaveWeekPlan failed: %v", err)
	}

	if err := (&AcceptCmd{}).Run(ctx); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	plan, _ := ctx.Store.GetWeekPlan("ana", "2026-03-02")
	if plan.AcceptedAt == nil {
		t.Error("expected the draft to be accepted")
	}
	if err := (&AcceptCmd{}).Run(ctx); err == nil {
		t.Error("expected accepting twice to fail")
	}
}

func TestValidateCmd_File(t *testing.T) {
	ctx := setupTestContext(t)
	plan := `
week_start: 2026-03-02
target:
  target_volume: 30
  session_slots:
    - {day: 1, category: quality}
    - {day: 2, category: quality}
    - {day: 6, category: long}
  long_session_slot: 6
sessions:
  - {day: 1, category: quality, distance: 8, duration_minutes: 40, intensity: threshold, work_distance: 6}
  - {day: 2, category: quality, distance: 8, duration_minutes: 40, intensity: threshold, work_distance: 6}
  - {day: 6, category: long, distance: 14, duration_minutes: 80}
`
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(plan), 0600); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}

	err := (&ValidateCmd{File: path}).Run(ctx)
	if !errors.Is(err, perrors.ErrGuardrailViolation) {
		t.Errorf("expected a guardrail violation, got %v", err)
	}
}

func TestShowAndHistoryCmd(t *testing.T) {
	ctx := setupTestContext(t)
	if err := (&ShowCmd{Week: "2026-03-02"}).Run(ctx); err != nil {
		t.Errorf("show without a plan failed: %v", err)
	}
	if err := (&PlanCmd{Volume: 40, Phase: "base", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if err := (&ShowCmd{Week: "2026-03-02", Revision: 1}).Run(ctx); err != nil {
		t.Errorf("show failed: %v", err)
	}

	next := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return next }
	if err := (&HistoryCmd{Weeks: 4}).Run(ctx); err != nil {
		t.Errorf("history failed: %v", err)
	}
	summaries, err := ctx.Store.GetWeekSummaries("ana", "2026-03-09", 4)
	if err != nil {
		t.Fatalf("GetWeekSummaries failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].WeekStart != "2026-03-02" {
		t.Errorf("expected the accepted week in history, got %+v", summaries)
	}
}
