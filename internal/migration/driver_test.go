package migration_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/monorkin/living-power/internal/collections"
	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/migration"
	"github.com/monorkin/living-power/internal/models"
	"github.com/monorkin/living-power/internal/testutil"
)

type side struct {
	store       *ledger.Store
	registry    *devices.Registry
	collections *collections.Service
}

func newSide(t *testing.T, name string) side {
	t.Helper()

	store := testutil.NewStore(t, name)
	service, err := collections.NewService(store,
		collections.WithCapacity(10),
		collections.WithLogger(testutil.DiscardLogger()),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return side{
		store:       store,
		registry:    devices.NewRegistry(store, testutil.DiscardLogger()),
		collections: service,
	}
}

func (s side) driver() *migration.Driver {
	return migration.NewDriver(s.store, s.registry, s.collections, testutil.DiscardLogger(), nil)
}

func sampleMeasurements(n int) []models.Measurement {
	measurements := make([]models.Measurement, n)
	for i := range measurements {
		at := testutil.Epoch.Add(time.Duration(i) * time.Minute)
		measurements[i] = models.NewMeasurement(at, 19.25, 55, 120, 3.1)
	}
	return measurements
}

func seedLegacy(t *testing.T) (side, []ledger.Hash) {
	t.Helper()
	ctx := context.Background()

	legacy := newSide(t, "legacy")

	if _, err := legacy.registry.Register(ctx, "ARDUINO-1", models.DeviceInfo{Name: "Old name"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	device, err := legacy.registry.Register(ctx, "ARDUINO-1", models.DeviceInfo{Name: "Greenhouse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := legacy.registry.Ensure(ctx, "ARDUINO-2"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	hashes, err := legacy.collections.Create(ctx, device, 10000, sampleMeasurements(25))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := legacy.collections.Delete(ctx, hashes[2]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	return legacy, hashes
}

func TestRunCopiesDevicesAndActiveCollections(t *testing.T) {
	ctx := context.Background()
	legacy, hashes := seedLegacy(t)
	local := newSide(t, "local")

	report, err := local.driver().Run(ctx, migration.NewLedgerSource(legacy.store))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := migration.Report{Devices: 2, Collections: 2, Skipped: 0, Chunks: 2}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}

	serialNumbers, err := local.registry.SerialNumbers(ctx)
	if err != nil {
		t.Fatalf("SerialNumbers: %v", err)
	}
	if strings.Join(serialNumbers, ",") != "ARDUINO-1,ARDUINO-2" {
		t.Errorf("serial numbers = %v", serialNumbers)
	}

	info, err := local.registry.Info(ctx, "ARDUINO-1")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info == nil || info.Name != "Greenhouse" {
		t.Errorf("info = %+v, want Greenhouse", info)
	}

	links, err := local.collections.ListForDevice(ctx, devices.Resolve("ARDUINO-1"))
	if err != nil {
		t.Fatalf("ListForDevice: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d local collection links, want 2", len(links))
	}
	for i, link := range links {
		if link.Target != hashes[i] {
			t.Errorf("link %d targets %s, want %s", i, link.Target, hashes[i])
		}
	}
}

func TestRunTwiceSkipsPresentCollections(t *testing.T) {
	ctx := context.Background()
	legacy, _ := seedLegacy(t)
	local := newSide(t, "local")
	source := migration.NewLedgerSource(legacy.store)

	if _, err := local.driver().Run(ctx, source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	report, err := local.driver().Run(ctx, source)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	want := migration.Report{Devices: 2, Collections: 0, Skipped: 2, Chunks: 0}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}

	links, err := local.collections.ListForDevice(ctx, devices.Resolve("ARDUINO-1"))
	if err != nil {
		t.Fatalf("ListForDevice: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("got %d collection links after rerun, want 2", len(links))
	}

	// The info link is appended again but the latest value still wins.
	infoLinks, err := local.registry.InfoLinks(ctx, "ARDUINO-1")
	if err != nil {
		t.Fatalf("InfoLinks: %v", err)
	}
	if len(infoLinks) != 2 {
		t.Errorf("got %d info links, want 2", len(infoLinks))
	}
	info, err := local.registry.Info(ctx, "ARDUINO-1")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info == nil || info.Name != "Greenhouse" {
		t.Errorf("info = %+v, want Greenhouse", info)
	}
}

type brokenSource struct{}

func (brokenSource) DeviceSerialNumbers(context.Context) ([]string, error) {
	return []string{"ARDUINO-1"}, nil
}

func (brokenSource) DeviceInfoLinks(context.Context, string) ([]ledger.Link, error) {
	return nil, nil
}

func (brokenSource) CollectionLinks(context.Context, string) ([]ledger.Link, error) {
	return []ledger.Link{{Target: ledger.HashEntry("measurement_collection", []byte("broken"))}}, nil
}

func (brokenSource) Collection(_ context.Context, hash ledger.Hash) (*ledger.Record, error) {
	return &ledger.Record{
		Hash:      hash,
		EntryType: "measurement_collection",
		Body:      []byte{0xff, 0x00},
	}, nil
}

func TestRunStopsAtMalformedCollection(t *testing.T) {
	local := newSide(t, "local")

	report, err := local.driver().Run(context.Background(), brokenSource{})
	if err == nil {
		t.Fatal("Run succeeded on a malformed collection")
	}
	if !strings.Contains(err.Error(), "ARDUINO-1") {
		t.Errorf("error %q does not name the device", err)
	}
	if report.Devices != 0 || report.Collections != 0 {
		t.Errorf("report = %+v, want nothing migrated", report)
	}
}
