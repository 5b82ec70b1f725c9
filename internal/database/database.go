package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	config "github.com/monorkin/living-power/internal/config"
)

var (
	DB      *gorm.DB
	once    sync.Once
	initErr error
)

// Init opens the ledger database at the configured path exactly once.
func Init() error {
	once.Do(func() {
		DB, initErr = Open(config.DBPath())
	})
	return initErr
}

// Open opens (creating if needed) the sqlite ledger at dbPath and brings
// its schema up to date. It is used for the current ledger as well as for
// legacy ledgers being migrated from.
func Open(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	err = Migrate(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// OpenReadOnly opens an existing ledger without creating, migrating or
// writing to it. The schema must have been created by this or an earlier
// release.
func OpenReadOnly(dbPath string) (*gorm.DB, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath), RawQuery: "mode=ro"}).String()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := checkSchema(db); err != nil {
		Close(db)
		return nil, err
	}

	return db, nil
}

func checkSchema(db *gorm.DB) error {
	current, err := CurrentSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("not a ledger database: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("not a ledger database: no schema version recorded")
	}

	latest, err := LatestSchemaVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("ledger schema %d is newer than the supported %d", current, latest)
	}

	return nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
