package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func files(m map[string]string) fstest.MapFS {
	out := fstest.MapFS{}
	for name, content := range m {
		out[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return out
}

func TestApplyFromScratch(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_init.sql":     "CREATE TABLE samples (id INTEGER PRIMARY KEY, load REAL);",
		"002_wellness.sql": "CREATE TABLE wellness (date TEXT PRIMARY KEY);",
		"README.md":        "ignored",
	}), SQLite)

	// Execute
	var logs []string
	applied, err := runner.Apply(func(msg string) { logs = append(logs, msg) })

	// Assert
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}
	version, err := runner.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if _, err := db.Exec("INSERT INTO wellness (date) VALUES ('2026-03-02')"); err != nil {
		t.Errorf("expected wellness table to exist: %v", err)
	}
	if len(logs) == 0 || !strings.Contains(logs[0], "from version 0 to 2") {
		t.Errorf("unexpected log output: %v", logs)
	}
}

func TestApplyIncrementalAndNoOp(t *testing.T) {
	db := setupTestDB(t)
	first := files(map[string]string{"001_init.sql": "CREATE TABLE a (id INTEGER);"})
	if _, err := NewRunner(db, first, SQLite).Apply(nil); err != nil {
		t.Fatalf("initial Apply failed: %v", err)
	}

	second := files(map[string]string{
		"001_init.sql": "CREATE TABLE a (id INTEGER);",
		"002_more.sql": "CREATE TABLE b (id INTEGER);",
	})
	runner := NewRunner(db, second, SQLite)
	applied, err := runner.Apply(nil)
	if err != nil {
		t.Fatalf("incremental Apply failed: %v", err)
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied, got %d", applied)
	}

	applied, err = runner.Apply(nil)
	if err != nil {
		t.Fatalf("no-op Apply failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no migrations applied, got %d", applied)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_init.sql":   "CREATE TABLE a (id INTEGER);",
		"002_broken.sql": "CREATE TABLE b (id INTEGER); THIS IS NOT SQL;",
	}), SQLite)

	applied, err := runner.Apply(nil)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", applied)
	}
	version, _ := runner.CurrentVersion()
	if version != 1 {
		t.Errorf("expected version to stay at 1, got %d", version)
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{"001_init.sql": "CREATE TABLE a (id INTEGER);"}), SQLite)
	if _, err := runner.Apply(nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 9"); err != nil {
		t.Fatalf("failed to bump version: %v", err)
	}

	err := runner.ValidateVersion()
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("expected newer schema error, got %v", err)
	}
	if _, err := runner.Apply(nil); err == nil {
		t.Error("expected Apply to refuse a newer schema")
	}
}

func TestMigrationFileValidation(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"missing underscore", map[string]string{"001.sql": "SELECT 1;"}},
		{"non numeric version", map[string]string{"abc_init.sql": "SELECT 1;"}},
		{"zero version", map[string]string{"000_init.sql": "SELECT 1;"}},
		{"duplicate version", map[string]string{"001_a.sql": "SELECT 1;", "001_b.sql": "SELECT 1;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(setupTestDB(t), files(tt.files), SQLite)
			if _, err := runner.Migrations(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLatestVersion(t *testing.T) {
	runner := NewRunner(setupTestDB(t), files(map[string]string{
		"003_c.sql": "SELECT 1;",
		"001_a.sql": "SELECT 1;",
	}), SQLite)
	latest, err := runner.LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion failed: %v", err)
	}
	if latest != 3 {
		t.Errorf("expected latest version 3, got %d", latest)
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM snapshots WHERE athlete_id = ? AND date >= ? AND date <= ?"
	if got := SQLite.Rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := "SELECT * FROM snapshots WHERE athlete_id = $1 AND date >= $2 AND date <= $3"
	if got := Postgres.Rebind(query); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}
