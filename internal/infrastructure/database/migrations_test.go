package database

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

// paramSchema is a two step schema shaped like the node's own.
var paramSchema = fstest.MapFS{
	"20260101_000000_param_values.up.sql": {Data: []byte(`
		CREATE TABLE param_values (
			device TEXT NOT NULL,
			param  TEXT NOT NULL,
			value  TEXT NOT NULL,
			PRIMARY KEY (device, param)
		) STRICT;`)},
	"20260101_000000_param_values.down.sql": {Data: []byte("DROP TABLE IF EXISTS param_values;")},
	"20260101_000100_param_history.up.sql": {Data: []byte(`
		CREATE TABLE param_history (
			id     INTEGER PRIMARY KEY,
			device TEXT NOT NULL,
			param  TEXT NOT NULL,
			value  TEXT NOT NULL
		) STRICT;`)},
	"20260101_000100_param_history.down.sql": {Data: []byte("DROP TABLE IF EXISTS param_history;")},
	"README.md":                              {Data: []byte("not a migration")},
}

// useMigrations points the package at fsys for the duration of the test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, dir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var n int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n); err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrateAppliesInOrder(t *testing.T) {
	useMigrations(t, paramSchema, ".")
	db := openTestDB(t)
	ctx := context.Background()

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 2 || pending[0].Name != "param_values" || pending[1].Name != "param_history" {
		t.Fatalf("pending = %+v, want param_values then param_history", pending)
	}

	for i := range 2 {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Migrate() #%d error = %v", i+1, err)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d, want 2 and 0", len(applied), len(pending))
	}
	for _, r := range applied {
		if r.AppliedAt.IsZero() {
			t.Errorf("migration %s has no applied_at", r.Version)
		}
	}
	for _, table := range []string{"param_values", "param_history"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}
}

// TestMigrateDownSteps rolls back one migration per call, newest first,
// and treats an empty schema as nothing to do.
func TestMigrateDownSteps(t *testing.T) {
	useMigrations(t, paramSchema, ".")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	steps := []struct {
		wantValues  bool
		wantHistory bool
		wantApplied int
	}{
		{wantValues: true, wantHistory: false, wantApplied: 1},
		{wantValues: false, wantHistory: false, wantApplied: 0},
		{wantValues: false, wantHistory: false, wantApplied: 0},
	}

	for i, step := range steps {
		if err := db.MigrateDown(ctx); err != nil {
			t.Fatalf("MigrateDown() #%d error = %v", i+1, err)
		}
		if got := tableExists(t, db, "param_values"); got != step.wantValues {
			t.Errorf("step %d: param_values exists = %v, want %v", i+1, got, step.wantValues)
		}
		if got := tableExists(t, db, "param_history"); got != step.wantHistory {
			t.Errorf("step %d: param_history exists = %v, want %v", i+1, got, step.wantHistory)
		}
		applied, _, err := db.GetMigrationStatus(ctx)
		if err != nil {
			t.Fatalf("GetMigrationStatus() error = %v", err)
		}
		if len(applied) != step.wantApplied {
			t.Errorf("step %d: applied = %d, want %d", i+1, len(applied), step.wantApplied)
		}
	}
}

func TestMigrateFailureKeepsEarlierVersions(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_param_values.up.sql": paramSchema["20260101_000000_param_values.up.sql"],
		"20260101_000100_broken.up.sql":       {Data: []byte("CREATE TABL nope;")},
	}, ".")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() error = nil, want syntax error")
	}
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 || pending[0].Name != "broken" {
		t.Errorf("applied = %+v, pending = %+v, want param_values applied and broken pending", applied, pending)
	}
}

func TestMigrateWithoutMigrations(t *testing.T) {
	tests := []struct {
		name string
		fsys fs.FS
		dir  string
	}{
		{name: "nil filesystem", fsys: nil, dir: "."},
		{name: "missing directory", fsys: paramSchema, dir: "schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMigrations(t, tt.fsys, tt.dir)
			db := openTestDB(t)

			if err := db.Migrate(context.Background()); err != nil {
				t.Fatalf("Migrate() error = %v", err)
			}
			if err := db.MigrateDown(context.Background()); err != nil {
				t.Fatalf("MigrateDown() error = %v", err)
			}
		})
	}
}

func TestMigrateDownWithoutDownSQL(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260101_000000_param_values.up.sql": paramSchema["20260101_000000_param_values.up.sql"],
	}, ".")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); !errors.Is(err, ErrNoDownSQL) {
		t.Errorf("MigrateDown() error = %v, want ErrNoDownSQL", err)
	}
	if !tableExists(t, db, "param_values") {
		t.Error("param_values dropped despite missing down SQL")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"20260301_120000_param_store.up.sql", "20260301_120000", true, true},
		{"20260301_120100_param_history.down.sql", "20260301_120100", false, true},
		{"20260301_120000.up.sql", "20260301_120000", true, true},
		{"README.md", "", false, false},
		{"20260301_120000_param_store.sql", "", false, false},
		{"param_store.up.sql", "param_store", true, true},
		{"store.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk || version != tt.wantVersion || isUp != tt.wantIsUp {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.filename, version, isUp, ok, tt.wantVersion, tt.wantIsUp, tt.wantOk)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_120000_param_store.up.sql", "param_store"},
		{"20260301_120100_param_history.down.sql", "param_history"},
		{"20260301_120000.up.sql", "20260301_120000"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
