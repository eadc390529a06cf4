package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/pacewise/internal/backup"
	"github.com/julianstephens/pacewise/internal/cli"
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/keyring"
	"github.com/julianstephens/pacewise/internal/storage"
	"github.com/julianstephens/pacewise/internal/storage/sqlite"
	"github.com/julianstephens/pacewise/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	// opensDB marks the check that loads the database for the others.
	opensDB bool
	// needsDB checks are skipped when the database cannot be loaded.
	needsDB bool
	// warnOnly failures do not fail the command.
	warnOnly bool
	run      func(ctx *cli.Context) error
}

var checks = []check{
	{name: "Database reachable", opensDB: true, run: checkDBReachable},
	{name: "Schema tables", needsDB: true, run: checkSchema},
	{name: "Metrics series", needsDB: true, run: checkSeries},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := false
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
			if c.opensDB {
				dbReachable = true
			}
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if s, ok := ctx.Store.(*sqlite.Store); ok {
		var result int
		if err := s.GetDB().QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchema(ctx *cli.Context) error {
	if s, ok := ctx.Store.(*sqlite.Store); ok {
		return s.Check()
	}
	return nil
}

// checkSeries verifies every athlete's stored series has one snapshot per day.
func checkSeries(ctx *cli.Context) error {
	athletes, err := ctx.Store.GetAthletes()
	if err != nil {
		return err
	}
	for _, id := range athletes {
		series, err := ctx.Store.GetSnapshots(id, "", "")
		if err != nil {
			return err
		}
		for i := 1; i < len(series); i++ {
			want, err := utils.AddDays(series[i-1].Date, 1)
			if err != nil {
				return err
			}
			if series[i].Date != want {
				return fmt.Errorf("athlete %s: gap after %s, run '%s replay'", id, series[i-1].Date, constants.AppName)
			}
		}
		latest, err := ctx.Store.GetLatestSnapshot(id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if latest.Date < ctx.Today() {
			fmt.Printf("   ℹ athlete %s: series ends %s\n", id, latest.Date)
		}
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("backups are only managed for SQLite databases")
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	if _, err := utils.LoadLocation(ctx.Config.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", ctx.Config.Timezone, err)
	}
	now := ctx.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock reads %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}
