package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type Settings struct {
	// Used for imports that do not state the resistor explicitly.
	DefaultExternalResistorOhms uint32 `json:"default_external_resistor_ohms"`
	// Ledger of the previous release to migrate from. Empty means
	// DefaultLegacyDBPath.
	LegacyDBPath string `json:"legacy_db_path,omitempty"`
}

func DefaultSettings() *Settings {
	return &Settings{
		DefaultExternalResistorOhms: 10_000,
	}
}

func DefaultSettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

func LoadOrInitializeSettings(path string) (bool, *Settings) {
	if settings, err := LoadSettings(path); err == nil {
		return false, settings
	}

	return true, DefaultSettings()
}

func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *Settings) ResolvedLegacyDBPath() string {
	if s.LegacyDBPath != "" {
		return s.LegacyDBPath
	}
	return DefaultLegacyDBPath()
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
