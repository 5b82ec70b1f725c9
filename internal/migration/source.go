package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gorm.io/gorm"

	"github.com/monorkin/living-power/internal/database"
	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
)

// LegacySource is the read side of a previous ledger.
type LegacySource interface {
	DeviceSerialNumbers(ctx context.Context) ([]string, error)
	DeviceInfoLinks(ctx context.Context, serialNumber string) ([]ledger.Link, error)
	CollectionLinks(ctx context.Context, serialNumber string) ([]ledger.Link, error)
	// Collection returns the record a collection link points to, or nil if
	// the source does not hold it.
	Collection(ctx context.Context, hash ledger.Hash) (*ledger.Record, error)
}

// LedgerSource reads from a ledger database written by an earlier version.
type LedgerSource struct {
	store    *ledger.Store
	registry *devices.Registry
	db       *gorm.DB
}

func NewLedgerSource(store *ledger.Store) *LedgerSource {
	return &LedgerSource{
		store:    store,
		registry: devices.NewRegistry(store, nil),
	}
}

// OpenLedgerSource opens the legacy database at dbPath read-only. A missing
// file is reported as ledger.ErrNotFound. Close releases it.
func OpenLedgerSource(dbPath string) (*LedgerSource, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("legacy ledger %s: %w", dbPath, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to access legacy ledger: %w", err)
	}

	db, err := database.OpenReadOnly(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy ledger: %w", err)
	}

	source := NewLedgerSource(ledger.NewStore(db, integrity.NewValidator()))
	source.db = db

	return source, nil
}

func (source *LedgerSource) Close() error {
	if source.db == nil {
		return nil
	}
	return database.Close(source.db)
}

func (source *LedgerSource) DeviceSerialNumbers(ctx context.Context) ([]string, error) {
	return source.registry.SerialNumbers(ctx)
}

func (source *LedgerSource) DeviceInfoLinks(ctx context.Context, serialNumber string) ([]ledger.Link, error) {
	return source.registry.InfoLinks(ctx, serialNumber)
}

func (source *LedgerSource) CollectionLinks(ctx context.Context, serialNumber string) ([]ledger.Link, error) {
	return source.store.Links(ctx, devices.Resolve(serialNumber), integrity.LinkTypeBpvDeviceToMeasurementCollections)
}

func (source *LedgerSource) Collection(ctx context.Context, hash ledger.Hash) (*ledger.Record, error) {
	return source.store.Get(ctx, hash)
}
