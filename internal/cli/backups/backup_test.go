package backups

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/pacewise/internal/backup"
	"github.com/julianstephens/pacewise/internal/cli"
	"github.com/julianstephens/pacewise/internal/config"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pacewise.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx, err := cli.NewContext(config.Default(), store, "default")
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx, dbPath
}

func TestBackupCreateAndList(t *testing.T) {
	// Setup
	ctx, dbPath := setupTestContext(t)

	// Execute
	if err := (&BackupCreateCmd{Label: "manual"}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	// Assert
	backups, err := backup.NewManager(dbPath).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 || backups[0].Label != "manual" {
		t.Errorf("expected one manual backup, got %+v", backups)
	}
}

func TestBackupCreate_InvalidLabel(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&BackupCreateCmd{Label: "Not Valid"}).Run(ctx); err == nil {
		t.Error("expected an invalid label to be rejected")
	}
}

func TestBackupRestore(t *testing.T) {
	// Setup
	ctx, dbPath := setupTestContext(t)
	constraints := models.AthleteConstraints{MinSessionsPerWeek: 3, MaxSessionsPerWeek: 5, AvailableDays: []int{1, 3, 6}}
	if err := ctx.Store.SaveConstraints("default", constraints); err != nil {
		t.Fatalf("SaveConstraints failed: %v", err)
	}
	mgr := backup.NewManager(dbPath)
	saved, err := mgr.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	constraints.MaxSessionsPerWeek = 6
	if err := ctx.Store.SaveConstraints("default", constraints); err != nil {
		t.Fatalf("SaveConstraints failed: %v", err)
	}

	// Execute
	err = (&BackupRestoreCmd{BackupFile: filepath.Base(saved), Yes: true}).Run(ctx)

	// Assert
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	reopened := sqlite.NewStore(dbPath)
	if err := reopened.Load(); err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetConstraints("default")
	if err != nil {
		t.Fatalf("GetConstraints failed: %v", err)
	}
	if got.MaxSessionsPerWeek != 5 {
		t.Errorf("expected restored max sessions 5, got %d", got.MaxSessionsPerWeek)
	}

	backups, _ := mgr.List()
	found := false
	for _, b := range backups {
		if strings.Contains(filepath.Base(b.Path), "pre_restore") {
			found = true
		}
	}
	if !found {
		t.Error("expected a pre_restore backup of the replaced database")
	}
}

func TestBackupRestore_MissingFile(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&BackupRestoreCmd{BackupFile: "nope.db", Yes: true}).Run(ctx); err == nil {
		t.Error("expected a missing backup to fail")
	}
}
