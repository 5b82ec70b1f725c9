// Package collections writes measurement batches to the ledger as chunked
// collections and reads them back per device.
package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/monorkin/living-power/internal/chunking"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/metrics"
	"github.com/monorkin/living-power/internal/models"
)

var (
	ErrWrongEntryType  = errors.New("record is not a measurement collection")
	ErrInvalidCapacity = errors.New("chunk capacity must be at least 1")
)

type Service struct {
	store    *ledger.Store
	capacity int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

// WithCapacity overrides the number of measurements per chunk.
func WithCapacity(capacity int) Option {
	return func(service *Service) {
		service.capacity = capacity
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) {
		service.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(service *Service) {
		service.metrics = m
	}
}

// NewService fails when the configured chunk capacity is below 1.
func NewService(store *ledger.Store, options ...Option) (*Service, error) {
	service := &Service{
		store:    store,
		capacity: chunking.Capacity,
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(service)
	}

	if service.capacity < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, service.capacity)
	}

	return service, nil
}

// Create splits measurements into chunks, persists each chunk as a
// collection and links it to the device. References are returned in chunk
// order. A failure part way through leaves the earlier chunks in place
// and returns their references along with the error.
func (service *Service) Create(ctx context.Context, deviceHash ledger.Hash, resistorOhms uint32, measurements []models.Measurement) ([]ledger.Hash, error) {
	chunks := chunking.Pack(measurements, service.capacity)
	hashes := make([]ledger.Hash, 0, len(chunks))

	for i, chunk := range chunks {
		collection := models.MeasurementCollection{
			DeviceHash:           deviceHash,
			Measurements:         chunk,
			ExternalResistorOhms: resistorOhms,
		}

		hash, err := service.store.Create(ctx, integrity.EntryTypeMeasurementCollection, collection)
		if err != nil {
			return hashes, fmt.Errorf("failed to store chunk %d of %d: %w", i+1, len(chunks), err)
		}

		_, err = service.store.CreateLink(ctx, deviceHash, hash, integrity.LinkTypeBpvDeviceToMeasurementCollections, nil)
		if err != nil {
			return hashes, fmt.Errorf("failed to link chunk %d of %d: %w", i+1, len(chunks), err)
		}

		hashes = append(hashes, hash)
		service.metrics.CollectionCreated(len(chunk))

		service.logger.Debug("Collection created",
			"device", deviceHash,
			"hash", hash,
			"chunk", i+1,
			"chunks", len(chunks),
			"measurements", len(chunk),
		)
	}

	service.logger.Info("Measurements stored",
		"device", deviceHash,
		"measurements", len(measurements),
		"collections", len(hashes),
	)

	return hashes, nil
}

// CreateCollection stores an already assembled collection, splitting it if
// it exceeds the chunk capacity.
func (service *Service) CreateCollection(ctx context.Context, collection models.MeasurementCollection) ([]ledger.Hash, error) {
	return service.Create(ctx, collection.DeviceHash, collection.ExternalResistorOhms, collection.Measurements)
}

// Get returns the collection and its record, or nils when the hash is
// unknown. Deleted collections are still returned.
func (service *Service) Get(ctx context.Context, hash ledger.Hash) (*models.MeasurementCollection, *ledger.Record, error) {
	record, err := service.store.Get(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}

	if record.EntryType != integrity.EntryTypeMeasurementCollection {
		return nil, nil, fmt.Errorf("%s: %w", hash, ErrWrongEntryType)
	}

	var collection models.MeasurementCollection
	if err := record.Decode(&collection); err != nil {
		return nil, nil, fmt.Errorf("decoding collection %s: %w", hash, err)
	}

	return &collection, record, nil
}

// ListForDevice returns the device's active collection links in the order
// they were created.
func (service *Service) ListForDevice(ctx context.Context, deviceHash ledger.Hash) ([]ledger.Link, error) {
	return service.store.Links(ctx, deviceHash, integrity.LinkTypeBpvDeviceToMeasurementCollections)
}

// ListDeletedForDevice returns the device's collection links that were
// removed, each with its link deletions.
func (service *Service) ListDeletedForDevice(ctx context.Context, deviceHash ledger.Hash) ([]ledger.LinkDetails, error) {
	details, err := service.store.LinkDetails(ctx, deviceHash, integrity.LinkTypeBpvDeviceToMeasurementCollections)
	if err != nil {
		return nil, err
	}

	deleted := make([]ledger.LinkDetails, 0, len(details))
	for _, detail := range details {
		if detail.Deleted() {
			deleted = append(deleted, detail)
		}
	}

	return deleted, nil
}

// Update always fails: collections are immutable once written.
func (service *Service) Update(ctx context.Context, original ledger.Hash, collection models.MeasurementCollection) (ledger.Hash, error) {
	return service.store.Update(ctx, original, integrity.EntryTypeMeasurementCollection, collection)
}

// Delete unlinks the collection from its device and marks it deleted. The
// record itself stays retrievable through Get.
func (service *Service) Delete(ctx context.Context, hash ledger.Hash) (uuid.UUID, error) {
	collection, _, err := service.Get(ctx, hash)
	if err != nil {
		return uuid.Nil, err
	}
	if collection == nil {
		return uuid.Nil, fmt.Errorf("collection %s: %w", hash, ledger.ErrNotFound)
	}

	links, err := service.ListForDevice(ctx, collection.DeviceHash)
	if err != nil {
		return uuid.Nil, err
	}

	for _, link := range links {
		if link.Target != hash {
			continue
		}

		if _, err := service.store.DeleteLink(ctx, link.ID); err != nil {
			return uuid.Nil, fmt.Errorf("failed to unlink collection %s: %w", hash, err)
		}
	}

	deletionID, err := service.store.Delete(ctx, hash)
	if err != nil {
		return uuid.Nil, err
	}

	service.metrics.CollectionDeleted()
	service.logger.Info("Collection deleted", "hash", hash, "device", collection.DeviceHash)

	return deletionID, nil
}

func (service *Service) Deletions(ctx context.Context, hash ledger.Hash) ([]ledger.Deletion, error) {
	return service.store.Deletions(ctx, hash)
}

// OldestDeletion returns the first deletion recorded for the collection,
// or nil if it was never deleted.
func (service *Service) OldestDeletion(ctx context.Context, hash ledger.Hash) (*ledger.Deletion, error) {
	deletions, err := service.Deletions(ctx, hash)
	if err != nil {
		return nil, err
	}
	if len(deletions) == 0 {
		return nil, nil
	}

	return &deletions[0], nil
}

// Measurements returns every measurement of the device's active
// collections, ordered by time.
func (service *Service) Measurements(ctx context.Context, deviceHash ledger.Hash) ([]models.Measurement, error) {
	links, err := service.ListForDevice(ctx, deviceHash)
	if err != nil {
		return nil, err
	}

	seen := make(map[ledger.Hash]bool, len(links))
	var measurements []models.Measurement
	for _, link := range links {
		if seen[link.Target] {
			continue
		}
		seen[link.Target] = true

		collection, _, err := service.Get(ctx, link.Target)
		if err != nil {
			return nil, err
		}
		if collection == nil {
			return nil, fmt.Errorf("linked collection %s: %w", link.Target, ledger.ErrNotFound)
		}

		measurements = append(measurements, collection.Measurements...)
	}

	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].Timestamp < measurements[j].Timestamp
	})

	return measurements, nil
}
