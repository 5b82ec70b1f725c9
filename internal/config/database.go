package config

import (
	"os"
	"path/filepath"
)

const (
	DB_NAME        = "ledger.sqlite"
	DB_PATH_ENV    = "LIVING_POWER_DB_PATH"
	LEGACY_DB_NAME = "ledger-previous.sqlite"
)

var dbPathOverride string

// SetDBPath overrides the database location for the rest of the process,
// taking precedence over the environment.
func SetDBPath(path string) {
	dbPathOverride = path
}

func DBPath() string {
	if dbPathOverride != "" {
		return dbPathOverride
	}

	if dbPath := os.Getenv(DB_PATH_ENV); dbPath != "" {
		return dbPath
	}

	return filepath.Join(DataDir(), DB_NAME)
}

// DefaultLegacyDBPath is where a ledger from a previous release is looked
// for when no path is given explicitly.
func DefaultLegacyDBPath() string {
	return filepath.Join(DataDir(), LEGACY_DB_NAME)
}
