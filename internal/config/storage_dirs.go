package config

import (
	"os"
	"path/filepath"
)

const (
	APP_DIR_NAME = "living-power"
)

// DataDir holds the ledger database.
func DataDir() string {
	return appDir("XDG_DATA_HOME", ".local", "share")
}

// ConfigDir holds the settings file.
func ConfigDir() string {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// appDir resolves the application directory under the XDG base directory
// named by xdgEnv. Without it, the conventional location under the home
// directory is used if that exists, and a dot directory in home otherwise.
func appDir(xdgEnv string, homeFallback ...string) string {
	if base := os.Getenv(xdgEnv); base != "" {
		return filepath.Join(base, APP_DIR_NAME)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// No home directory, fall back to the working directory
		if currentDir, err := os.Getwd(); err == nil {
			return currentDir
		}
		return "."
	}

	conventional := filepath.Join(append([]string{homeDir}, homeFallback...)...)
	if _, err := os.Stat(conventional); err == nil {
		return filepath.Join(conventional, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, "."+APP_DIR_NAME)
}
