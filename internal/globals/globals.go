package globals

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monorkin/living-power/internal/collections"
	"github.com/monorkin/living-power/internal/config"
	"github.com/monorkin/living-power/internal/database"
	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/metrics"
	"github.com/monorkin/living-power/internal/migration"
)

var (
	Settings *config.Settings
	Logger   *slog.Logger

	Store       *ledger.Store
	Devices     *devices.Registry
	Collections *collections.Service
	Migration   *migration.Driver

	Metrics         *metrics.Metrics
	MetricsRegistry *prometheus.Registry

	initOnce sync.Once
	initErr  error
)

// Initialize sets up global instances exactly once
func Initialize(verbose bool) error {
	initOnce.Do(func() {
		initErr = initialize(verbose)
	})
	return initErr
}

func initialize(verbose bool) error {
	setupLogger(verbose)

	Logger.Debug("Initializing global instances")

	newSettings, settingsLoaded := config.LoadOrInitializeSettingsFromDefaultLocation()
	Settings = settingsLoaded
	if newSettings {
		Logger.Debug("Created new settings file")
		if err := Settings.Save(); err != nil {
			Logger.Error("Failed to save new settings", "error", err)
		}
	} else {
		Logger.Debug("Loaded existing settings")
	}

	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	Logger.Debug("Database initialized", "path", config.DBPath())

	MetricsRegistry = prometheus.NewRegistry()
	m, err := metrics.New(MetricsRegistry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	Metrics = m

	Store = ledger.NewStore(database.DB, integrity.NewValidator(), ledger.WithLogger(Logger))
	Devices = devices.NewRegistry(Store, Logger)
	Collections, err = collections.NewService(Store,
		collections.WithLogger(Logger),
		collections.WithMetrics(Metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to set up collections: %w", err)
	}
	Migration = migration.NewDriver(Store, Devices, Collections, Logger, Metrics)

	Logger.Debug("Global initialization completed", "verbose", verbose)

	return nil
}

// setupLogger configures the global logger. Logs go to stderr so that
// command output on stdout stays parseable.
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(Logger)
}

// MustBeInitialized panics if globals haven't been initialized
func MustBeInitialized() {
	if Settings == nil || Logger == nil || Store == nil {
		panic("globals not initialized - call globals.Initialize() first")
	}
}
