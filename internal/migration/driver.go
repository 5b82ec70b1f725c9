// Package migration copies devices and measurement collections from a
// previous ledger into the current one. Runs can be repeated; collections
// already present locally are skipped.
package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/monorkin/living-power/internal/collections"
	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/metrics"
	"github.com/monorkin/living-power/internal/models"
)

type Report struct {
	Devices     int `json:"devices"`
	Collections int `json:"collections"`
	Skipped     int `json:"skipped"`
	Chunks      int `json:"chunks"`
}

type Driver struct {
	store       *ledger.Store
	registry    *devices.Registry
	collections *collections.Service
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewDriver(store *ledger.Store, registry *devices.Registry, service *collections.Service, logger *slog.Logger, m *metrics.Metrics) *Driver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Driver{
		store:       store,
		registry:    registry,
		collections: service,
		logger:      logger,
		metrics:     m,
	}
}

// Run copies every device of source along with its latest info and all of
// its collections. It stops at the first error; whatever was copied until
// then stays and is skipped by the next run.
func (driver *Driver) Run(ctx context.Context, source LegacySource) (Report, error) {
	var report Report

	serialNumbers, err := source.DeviceSerialNumbers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list legacy devices: %w", err)
	}

	for _, serialNumber := range serialNumbers {
		if err := driver.migrateDevice(ctx, source, serialNumber, &report); err != nil {
			return report, fmt.Errorf("failed to migrate device %s: %w", serialNumber, err)
		}
		report.Devices++
	}

	driver.logger.Info("Migration finished",
		"devices", report.Devices,
		"collections", report.Collections,
		"skipped", report.Skipped,
		"chunks", report.Chunks,
	)

	return report, nil
}

func (driver *Driver) migrateDevice(ctx context.Context, source LegacySource, serialNumber string, report *Report) error {
	device, err := driver.registry.Ensure(ctx, serialNumber)
	if err != nil {
		return err
	}

	infoLinks, err := source.DeviceInfoLinks(ctx, serialNumber)
	if err != nil {
		return err
	}

	info, err := devices.LatestInfo(infoLinks)
	if err != nil {
		return err
	}
	if info != nil {
		if _, err := driver.registry.Register(ctx, serialNumber, *info); err != nil {
			return err
		}
	}

	links, err := source.CollectionLinks(ctx, serialNumber)
	if err != nil {
		return err
	}

	for _, link := range links {
		if err := driver.migrateCollection(ctx, source, device, link.Target, report); err != nil {
			return fmt.Errorf("collection %s: %w", link.Target, err)
		}
	}

	return nil
}

func (driver *Driver) migrateCollection(ctx context.Context, source LegacySource, device ledger.Hash, hash ledger.Hash, report *Report) error {
	record, err := source.Collection(ctx, hash)
	if err != nil {
		return err
	}
	if record == nil {
		driver.logger.Warn("Legacy collection is missing", "hash", hash)
		return nil
	}

	present, err := driver.store.Has(ctx, record.Hash)
	if err != nil {
		return err
	}
	if present {
		report.Skipped++
		driver.metrics.MigrationSkipped()
		driver.logger.Debug("Collection already present", "hash", record.Hash)
		return nil
	}

	if record.EntryType != integrity.EntryTypeMeasurementCollection {
		return fmt.Errorf("unexpected entry type %q", record.EntryType)
	}

	var collection models.MeasurementCollection
	if err := record.Decode(&collection); err != nil {
		return fmt.Errorf("decoding legacy collection: %w", err)
	}
	collection.DeviceHash = device

	hashes, err := driver.collections.CreateCollection(ctx, collection)
	report.Chunks += len(hashes)
	if err != nil {
		return err
	}

	report.Collections++

	return nil
}
