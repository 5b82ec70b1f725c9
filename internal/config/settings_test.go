package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrInitializeSettingsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")

	created, settings := LoadOrInitializeSettings(path)
	if !created {
		t.Fatal("expected settings to be freshly initialized")
	}
	if settings.DefaultExternalResistorOhms != 10_000 {
		t.Errorf("DefaultExternalResistorOhms = %d, want 10000", settings.DefaultExternalResistorOhms)
	}
}

func TestSettingsSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	settings := &Settings{DefaultExternalResistorOhms: 4_700, LegacyDBPath: "/tmp/old.sqlite"}
	if err := settings.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	created, loaded := LoadOrInitializeSettings(path)
	if created {
		t.Fatal("expected existing settings to be loaded")
	}
	if loaded.DefaultExternalResistorOhms != 4_700 {
		t.Errorf("DefaultExternalResistorOhms = %d, want 4700", loaded.DefaultExternalResistorOhms)
	}
	if loaded.ResolvedLegacyDBPath() != "/tmp/old.sqlite" {
		t.Errorf("ResolvedLegacyDBPath = %q", loaded.ResolvedLegacyDBPath())
	}
}

func TestLoadSettingsKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"legacy_db_path": "x"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.DefaultExternalResistorOhms != 10_000 {
		t.Errorf("DefaultExternalResistorOhms = %d, want default", settings.DefaultExternalResistorOhms)
	}
}

func TestDBPathPrecedence(t *testing.T) {
	t.Setenv(DB_PATH_ENV, "/env/ledger.sqlite")
	t.Cleanup(func() { SetDBPath("") })

	if got := DBPath(); got != "/env/ledger.sqlite" {
		t.Errorf("DBPath from env = %q", got)
	}

	SetDBPath("/flag/ledger.sqlite")
	if got := DBPath(); got != "/flag/ledger.sqlite" {
		t.Errorf("DBPath with override = %q", got)
	}
}

func TestDataDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	if got := DataDir(); got != filepath.Join("/xdg/data", APP_DIR_NAME) {
		t.Errorf("DataDir = %q", got)
	}
}

func TestConfigDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	if got := ConfigDir(); got != filepath.Join(home, "."+APP_DIR_NAME) {
		t.Errorf("ConfigDir without ~/.config = %q", got)
	}

	if err := os.Mkdir(filepath.Join(home, ".config"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if got := ConfigDir(); got != filepath.Join(home, ".config", APP_DIR_NAME) {
		t.Errorf("ConfigDir with ~/.config = %q", got)
	}
}
