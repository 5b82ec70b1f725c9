package database

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAppliesAllMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	latest, err := LatestSchemaVersion()
	if err != nil {
		t.Fatalf("LatestSchemaVersion: %v", err)
	}
	if latest == 0 {
		t.Fatal("no migrations embedded")
	}

	current, err := CurrentSchemaVersion(db)
	if err != nil {
		t.Fatalf("CurrentSchemaVersion: %v", err)
	}
	if current != latest {
		t.Errorf("schema version = %d, want %d", current, latest)
	}

	for _, table := range []string{"records", "record_deletions", "links", "link_deletions"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestReopeningDoesNotReapplyMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Close(db); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer Close(db)

	var count int64
	if err := db.Model(&SchemaMigration{}).Count(&count).Error; err != nil {
		t.Fatalf("counting migrations: %v", err)
	}

	migrations, err := MigrationsNewerThan(0)
	if err != nil {
		t.Fatalf("MigrationsNewerThan: %v", err)
	}
	if count != int64(len(migrations)) {
		t.Errorf("recorded %d migrations, want %d", count, len(migrations))
	}
}

func TestRollbackRevertsLatestMigration(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	latest, err := LatestSchemaVersion()
	if err != nil {
		t.Fatalf("LatestSchemaVersion: %v", err)
	}

	if err := Rollback(db); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	current, err := CurrentSchemaVersion(db)
	if err != nil {
		t.Fatalf("CurrentSchemaVersion: %v", err)
	}
	if current != latest-1 {
		t.Errorf("schema version after rollback = %d, want %d", current, latest-1)
	}
	if db.Migrator().HasTable("records") && latest == 1 {
		t.Error("records table survived rolling back the first migration")
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !db.Migrator().HasTable("records") {
		t.Error("records table missing after migrating again")
	}
}

func TestOpenReadOnlyDoesNotCreateFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	if _, err := OpenReadOnly(filepath.Join(dir, "ledger.sqlite")); err == nil {
		t.Fatal("OpenReadOnly succeeded on a missing file")
	}
	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("directory was created (stat error %v)", err)
	}
}

func TestOpenReadOnlyChecksSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Close(db); err != nil {
		t.Fatalf("Close: %v", err)
	}

	readOnly, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer Close(readOnly)

	if !readOnly.Migrator().HasTable("records") {
		t.Error("records table not visible read-only")
	}
	if err := readOnly.Exec("CREATE TABLE scratch (id INTEGER)").Error; err == nil {
		t.Error("read-only database accepted a write")
	}
}
