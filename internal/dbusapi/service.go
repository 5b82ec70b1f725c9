// Package dbusapi exposes the ledger on the session bus so that the
// desktop shell can register devices and hand over measurements.
package dbusapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/monorkin/living-power/internal/collections"
	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/migration"
	"github.com/monorkin/living-power/internal/models"
)

const (
	dbusName      = "io.livingpower.Ledger"
	dbusPath      = "/io/livingpower/Ledger"
	dbusInterface = "io.livingpower.Ledger"

	errorInvalid  = dbusInterface + ".Error.Invalid"
	errorNotFound = dbusInterface + ".Error.NotFound"
)

// Measurement is the wire form of a measurement, (xuuuu) on the bus.
type Measurement struct {
	Timestamp          int64
	HumidityPercentage uint32
	TemperatureCelsius uint32
	LightLevelLux      uint32
	VoltageMillivolts  uint32
}

// Device is the wire form of a device, (sss) on the bus.
type Device struct {
	SerialNumber string
	Name         string
	Hash         string
}

// LedgerService handles calls on the ledger interface.
type LedgerService struct {
	ctx         context.Context
	registry    *devices.Registry
	collections *collections.Service
	driver      *migration.Driver
	logger      *slog.Logger
	conn        atomic.Pointer[dbus.Conn]
}

func NewLedgerService(ctx context.Context, registry *devices.Registry, service *collections.Service, driver *migration.Driver, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}

	return &LedgerService{
		ctx:         ctx,
		registry:    registry,
		collections: service,
		driver:      driver,
		logger:      logger,
	}
}

// Serve claims the bus name and answers calls until ctx is done.
func (s *LedgerService) Serve(ctx context.Context) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	if err := s.export(conn); err != nil {
		return err
	}

	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", dbusName)
	}

	s.conn.Store(conn)
	defer s.conn.Store(nil)

	s.logger.Info("Serving ledger on the session bus", "name", dbusName, "path", dbusPath)

	<-ctx.Done()

	return nil
}

func (s *LedgerService) export(conn *dbus.Conn) error {
	err := conn.Export(s, dbus.ObjectPath(dbusPath), dbusInterface)
	if err != nil {
		return fmt.Errorf("failed to export service: %w", err)
	}

	err = conn.Export(introspect.NewIntrospectable(introspection()), dbus.ObjectPath(dbusPath), "org.freedesktop.DBus.Introspectable")
	if err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	return nil
}

func introspection() *introspect.Node {
	return &introspect.Node{
		Name: dbusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: dbusInterface,
				Methods: []introspect.Method{
					{
						Name: "RegisterDevice",
						Args: []introspect.Arg{
							{Name: "serial_number", Direction: "in", Type: "s"},
							{Name: "name", Direction: "in", Type: "s"},
							{Name: "device_hash", Direction: "out", Type: "s"},
						},
					},
					{
						Name: "ListDevices",
						Args: []introspect.Arg{
							{Name: "devices", Direction: "out", Type: "a(sss)"},
						},
					},
					{
						Name: "CreateCollections",
						Args: []introspect.Arg{
							{Name: "serial_number", Direction: "in", Type: "s"},
							{Name: "external_resistor_ohms", Direction: "in", Type: "u"},
							{Name: "measurements", Direction: "in", Type: "a(xuuuu)"},
							{Name: "collection_hashes", Direction: "out", Type: "as"},
						},
					},
					{
						Name: "ListCollections",
						Args: []introspect.Arg{
							{Name: "serial_number", Direction: "in", Type: "s"},
							{Name: "collection_hashes", Direction: "out", Type: "as"},
						},
					},
					{
						Name: "DeleteCollection",
						Args: []introspect.Arg{
							{Name: "collection_hash", Direction: "in", Type: "s"},
						},
					},
					{
						Name: "MigrateFrom",
						Args: []introspect.Arg{
							{Name: "legacy_db_path", Direction: "in", Type: "s"},
							{Name: "report", Direction: "out", Type: "a{sv}"},
						},
					},
				},
				Signals: []introspect.Signal{
					{
						Name: "CollectionsCreated",
						Args: []introspect.Arg{
							{Name: "serial_number", Type: "s"},
							{Name: "collection_hashes", Type: "as"},
						},
					},
				},
			},
		},
	}
}

func toDBusError(err error) *dbus.Error {
	switch {
	case err == nil:
		return nil
	case ledger.IsInvalid(err), errors.Is(err, devices.ErrEmptySerialNumber):
		return dbus.NewError(errorInvalid, []interface{}{err.Error()})
	case ledger.IsNotFound(err):
		return dbus.NewError(errorNotFound, []interface{}{err.Error()})
	default:
		return dbus.MakeFailedError(err)
	}
}

func (s *LedgerService) RegisterDevice(serialNumber string, name string) (string, *dbus.Error) {
	hash, err := s.registry.Register(s.ctx, serialNumber, models.DeviceInfo{Name: name})
	if err != nil {
		return "", toDBusError(err)
	}

	return hash.String(), nil
}

func (s *LedgerService) ListDevices() ([]Device, *dbus.Error) {
	list, err := s.registry.List(s.ctx)
	if err != nil {
		return nil, toDBusError(err)
	}

	result := make([]Device, 0, len(list))
	for _, device := range list {
		result = append(result, Device{
			SerialNumber: device.SerialNumber,
			Name:         device.Name(),
			Hash:         device.Hash.String(),
		})
	}

	return result, nil
}

func (s *LedgerService) CreateCollections(serialNumber string, resistorOhms uint32, measurements []Measurement) ([]string, *dbus.Error) {
	device, err := s.registry.Ensure(s.ctx, serialNumber)
	if err != nil {
		return nil, toDBusError(err)
	}

	converted := make([]models.Measurement, len(measurements))
	for i, measurement := range measurements {
		converted[i] = models.Measurement{
			Timestamp:          ledger.Timestamp(measurement.Timestamp),
			HumidityPercentage: measurement.HumidityPercentage,
			TemperatureCelsius: measurement.TemperatureCelsius,
			LightLevelLux:      measurement.LightLevelLux,
			VoltageMillivolts:  measurement.VoltageMillivolts,
		}
	}

	hashes, err := s.collections.Create(s.ctx, device, resistorOhms, converted)
	if err != nil {
		return nil, toDBusError(err)
	}

	result := hashStrings(hashes)
	s.emit("CollectionsCreated", serialNumber, result)

	return result, nil
}

func (s *LedgerService) ListCollections(serialNumber string) ([]string, *dbus.Error) {
	links, err := s.collections.ListForDevice(s.ctx, devices.Resolve(serialNumber))
	if err != nil {
		return nil, toDBusError(err)
	}

	hashes := make([]ledger.Hash, len(links))
	for i, link := range links {
		hashes[i] = link.Target
	}

	return hashStrings(hashes), nil
}

func (s *LedgerService) DeleteCollection(collectionHash string) *dbus.Error {
	hash, err := ledger.ParseHash(collectionHash)
	if err != nil {
		return dbus.NewError(errorInvalid, []interface{}{err.Error()})
	}

	_, err = s.collections.Delete(s.ctx, hash)
	return toDBusError(err)
}

func (s *LedgerService) MigrateFrom(legacyDBPath string) (map[string]dbus.Variant, *dbus.Error) {
	source, err := migration.OpenLedgerSource(legacyDBPath)
	if err != nil {
		return nil, toDBusError(err)
	}
	defer source.Close()

	report, err := s.driver.Run(s.ctx, source)
	if err != nil {
		return nil, toDBusError(err)
	}

	return map[string]dbus.Variant{
		"devices":     dbus.MakeVariant(int32(report.Devices)),
		"collections": dbus.MakeVariant(int32(report.Collections)),
		"skipped":     dbus.MakeVariant(int32(report.Skipped)),
		"chunks":      dbus.MakeVariant(int32(report.Chunks)),
	}, nil
}

func (s *LedgerService) emit(signal string, values ...interface{}) {
	conn := s.conn.Load()
	if conn == nil {
		return
	}

	if err := conn.Emit(dbus.ObjectPath(dbusPath), dbusInterface+"."+signal, values...); err != nil {
		s.logger.Warn("Failed to emit signal", "signal", signal, "error", err)
	}
}

func hashStrings(hashes []ledger.Hash) []string {
	result := make([]string, len(hashes))
	for i, hash := range hashes {
		result[i] = hash.String()
	}
	return result
}
