// Package devices maps external serial numbers to device identities and
// keeps each device's display metadata and resistor history.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/monorkin/living-power/internal/codec"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/models"
)

var ErrEmptySerialNumber = errors.New("serial number must not be empty")

type Registry struct {
	store  *ledger.Store
	logger *slog.Logger
}

func NewRegistry(store *ledger.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{store: store, logger: logger}
}

// Resolve returns the identity of the device with the given serial
// number. It is a pure computation and does not check that the device
// was ever registered.
func Resolve(serialNumber string) ledger.Hash {
	return integrity.DevicePath(serialNumber).Hash()
}

// Ensure makes sure the device anchor exists and is listed in the device
// index, and returns the device identity.
func (registry *Registry) Ensure(ctx context.Context, serialNumber string) (ledger.Hash, error) {
	if serialNumber == "" {
		return ledger.Hash{}, ErrEmptySerialNumber
	}

	allDevices, err := registry.store.EnsurePath(ctx, integrity.AllDevicesPath())
	if err != nil {
		return ledger.Hash{}, err
	}

	device, err := registry.store.EnsurePath(ctx, integrity.DevicePath(serialNumber))
	if err != nil {
		return ledger.Hash{}, err
	}

	links, err := registry.store.Links(ctx, allDevices, integrity.LinkTypeAllBpvDevices)
	if err != nil {
		return ledger.Hash{}, err
	}

	for _, link := range links {
		if link.Target == device {
			return device, nil
		}
	}

	_, err = registry.store.CreateLink(ctx, allDevices, device, integrity.LinkTypeAllBpvDevices, []byte(serialNumber))
	if err != nil {
		return ledger.Hash{}, fmt.Errorf("failed to index device %s: %w", serialNumber, err)
	}

	registry.logger.Info("Device registered", "serial", serialNumber, "hash", device)

	return device, nil
}

// Register records info as the latest metadata of the device, creating
// the device if needed. Earlier metadata is kept; readers pick the most
// recent.
func (registry *Registry) Register(ctx context.Context, serialNumber string, info models.DeviceInfo) (ledger.Hash, error) {
	device, err := registry.Ensure(ctx, serialNumber)
	if err != nil {
		return ledger.Hash{}, err
	}

	tag, err := codec.Marshal(info)
	if err != nil {
		return ledger.Hash{}, fmt.Errorf("encoding device info: %w", err)
	}

	_, err = registry.store.CreateLink(ctx, device, device, integrity.LinkTypeBpvDeviceInfo, tag)
	if err != nil {
		return ledger.Hash{}, fmt.Errorf("failed to set info of device %s: %w", serialNumber, err)
	}

	registry.logger.Debug("Device info set", "serial", serialNumber, "name", info.Name)

	return device, nil
}

// InfoLinks returns every metadata link of the device, oldest first.
func (registry *Registry) InfoLinks(ctx context.Context, serialNumber string) ([]ledger.Link, error) {
	return registry.store.Links(ctx, Resolve(serialNumber), integrity.LinkTypeBpvDeviceInfo)
}

// Info returns the most recent metadata of the device, or nil if none
// was ever set.
func (registry *Registry) Info(ctx context.Context, serialNumber string) (*models.DeviceInfo, error) {
	links, err := registry.InfoLinks(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	return LatestInfo(links)
}

// LatestInfo decodes the info tag of the link with the latest timestamp.
// On equal timestamps the link created last wins.
func LatestInfo(links []ledger.Link) (*models.DeviceInfo, error) {
	latest := latestLink(links)
	if latest == nil {
		return nil, nil
	}

	var info models.DeviceInfo
	if err := codec.Unmarshal(latest.Tag, &info); err != nil {
		return nil, fmt.Errorf("decoding device info from link %s: %w", latest.ID, err)
	}

	return &info, nil
}

func latestLink(links []ledger.Link) *ledger.Link {
	var latest *ledger.Link
	for i := range links {
		if latest == nil || links[i].Timestamp >= latest.Timestamp {
			latest = &links[i]
		}
	}
	return latest
}

// SerialNumbers lists the serial numbers of all indexed devices in the
// order they were first registered.
func (registry *Registry) SerialNumbers(ctx context.Context) ([]string, error) {
	links, err := registry.store.Links(ctx, integrity.AllDevicesPath().Hash(), integrity.LinkTypeAllBpvDevices)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(links))
	serialNumbers := make([]string, 0, len(links))
	for _, link := range links {
		serialNumber := string(link.Tag)
		if serialNumber == "" || seen[serialNumber] {
			continue
		}
		seen[serialNumber] = true
		serialNumbers = append(serialNumbers, serialNumber)
	}

	return serialNumbers, nil
}

// List returns every indexed device with its latest metadata.
func (registry *Registry) List(ctx context.Context) ([]models.Device, error) {
	serialNumbers, err := registry.SerialNumbers(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(serialNumbers))
	for _, serialNumber := range serialNumbers {
		info, err := registry.Info(ctx, serialNumber)
		if err != nil {
			return nil, err
		}

		devices = append(devices, models.Device{
			SerialNumber: serialNumber,
			Hash:         Resolve(serialNumber),
			Info:         info,
		})
	}

	return devices, nil
}

// Get returns the device, or nil if it was never registered.
func (registry *Registry) Get(ctx context.Context, serialNumber string) (*models.Device, error) {
	hash := Resolve(serialNumber)

	exists, err := registry.store.Has(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	info, err := registry.Info(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	return &models.Device{SerialNumber: serialNumber, Hash: hash, Info: info}, nil
}
