package integrity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/monorkin/living-power/internal/codec"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/models"
)

type records map[ledger.Hash]*ledger.Record

func (r records) Get(_ context.Context, hash ledger.Hash) (*ledger.Record, error) {
	return r[hash], nil
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()

	data, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func pathRecord(t *testing.T, path ledger.Path) *ledger.Record {
	body := mustMarshal(t, []string(path))
	return &ledger.Record{Hash: path.Hash(), EntryType: ledger.EntryTypePath, Body: body}
}

func collectionRecord(t *testing.T, device ledger.Hash) *ledger.Record {
	body := mustMarshal(t, models.MeasurementCollection{
		DeviceHash:   device,
		Measurements: []models.Measurement{{Timestamp: 1}},
	})
	return &ledger.Record{
		Hash:      ledger.HashEntry(EntryTypeMeasurementCollection, body),
		EntryType: EntryTypeMeasurementCollection,
		Body:      body,
	}
}

type world struct {
	records    records
	all        *ledger.Record
	device     *ledger.Record
	collection *ledger.Record
}

func newWorld(t *testing.T) world {
	all := pathRecord(t, AllDevicesPath())
	device := pathRecord(t, DevicePath("ARDUINO-1"))
	collection := collectionRecord(t, device.Hash)

	return world{
		records: records{
			all.Hash:        all,
			device.Hash:     device,
			collection.Hash: collection,
		},
		all:        all,
		device:     device,
		collection: collection,
	}
}

func (w world) validate(t *testing.T, op ledger.Op) ledger.Verdict {
	t.Helper()

	verdict, err := NewValidator().Validate(context.Background(), op, w.records)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return verdict
}

func TestCreateEntry(t *testing.T) {
	w := newWorld(t)
	orphan := collectionRecord(t, DevicePath("MISSING").Hash())
	notADevice := collectionRecord(t, w.all.Hash)

	cases := []struct {
		name   string
		record ledger.Record
		valid  bool
		reason string
	}{
		{name: "device path", record: *pathRecord(t, DevicePath("ARDUINO-2")), valid: true},
		{name: "empty path", record: ledger.Record{EntryType: ledger.EntryTypePath, Body: mustMarshal(t, []string{})}},
		{name: "collection", record: *w.collection, valid: true},
		{name: "collection without device", record: *orphan, reason: reasonMissingDependency},
		{name: "collection on index path", record: *notADevice},
		{name: "malformed collection", record: ledger.Record{EntryType: EntryTypeMeasurementCollection, Body: []byte{0xff}}},
		{name: "unknown type", record: ledger.Record{EntryType: "note", Body: mustMarshal(t, "hi")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := w.validate(t, ledger.CreateEntry{Record: tc.record})
			if verdict.IsValid() != tc.valid {
				t.Fatalf("valid = %v, want %v (reason %q)", verdict.IsValid(), tc.valid, verdict.Reason())
			}
			if tc.reason != "" && verdict.Reason() != tc.reason {
				t.Errorf("reason = %q, want %q", verdict.Reason(), tc.reason)
			}
		})
	}
}

func TestUpdateEntryIsAlwaysInvalid(t *testing.T) {
	w := newWorld(t)

	verdict := w.validate(t, ledger.UpdateEntry{Original: *w.collection, Updated: *w.collection})
	if verdict.IsValid() {
		t.Fatal("collection update accepted")
	}
	if verdict.Reason() != reasonCollectionUpdate {
		t.Errorf("reason = %q, want %q", verdict.Reason(), reasonCollectionUpdate)
	}

	if w.validate(t, ledger.UpdateEntry{Original: *w.device, Updated: *w.device}).IsValid() {
		t.Error("path update accepted")
	}
	if w.validate(t, ledger.UpdateEntry{Original: *w.device, Updated: *w.collection}).IsValid() {
		t.Error("update changing the entry type accepted")
	}
}

func TestDeleteEntry(t *testing.T) {
	w := newWorld(t)

	if !w.validate(t, ledger.DeleteEntry{Original: *w.collection}).IsValid() {
		t.Error("collection delete rejected")
	}
	if w.validate(t, ledger.DeleteEntry{Original: *w.device}).IsValid() {
		t.Error("path delete accepted")
	}
}

func TestCreateLink(t *testing.T) {
	w := newWorld(t)
	info := mustMarshal(t, models.DeviceInfo{Name: "Greenhouse"})
	openWindow := mustMarshal(t, models.ExternalResistorValue{Ohms: 10, From: 5})
	invertedWindow := mustMarshal(t, models.ExternalResistorValue{Ohms: 10, From: 5, To: 4})
	missing := DevicePath("MISSING").Hash()

	cases := []struct {
		name  string
		op    ledger.CreateLink
		valid bool
	}{
		{"index to device", ledger.CreateLink{Base: w.all.Hash, Target: w.device.Hash, Type: LinkTypeAllBpvDevices, Tag: []byte("ARDUINO-1")}, true},
		{"index from device", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeAllBpvDevices}, false},
		{"index to missing device", ledger.CreateLink{Base: w.all.Hash, Target: missing, Type: LinkTypeAllBpvDevices}, false},
		{"device to collection", ledger.CreateLink{Base: w.device.Hash, Target: w.collection.Hash, Type: LinkTypeBpvDeviceToMeasurementCollections}, true},
		{"device to device", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeBpvDeviceToMeasurementCollections}, false},
		{"missing device to collection", ledger.CreateLink{Base: missing, Target: w.collection.Hash, Type: LinkTypeBpvDeviceToMeasurementCollections}, false},
		{"info", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeBpvDeviceInfo, Tag: info}, true},
		{"malformed info", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeBpvDeviceInfo, Tag: []byte{0xff}}, false},
		{"resistor", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeBpvDeviceToExternalResistorValues, Tag: openWindow}, true},
		{"inverted resistor window", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: LinkTypeBpvDeviceToExternalResistorValues, Tag: invertedWindow}, false},
		{"unknown type", ledger.CreateLink{Base: w.device.Hash, Target: w.device.Hash, Type: "likes"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := w.validate(t, tc.op)
			if verdict.IsValid() != tc.valid {
				t.Fatalf("valid = %v, want %v (reason %q)", verdict.IsValid(), tc.valid, verdict.Reason())
			}
		})
	}
}

func TestDeleteLink(t *testing.T) {
	w := newWorld(t)

	known := ledger.Link{ID: uuid.New(), Type: LinkTypeBpvDeviceToMeasurementCollections}
	if !w.validate(t, ledger.DeleteLink{Link: known}).IsValid() {
		t.Error("known link delete rejected")
	}

	unknown := ledger.Link{ID: uuid.New(), Type: "likes"}
	if w.validate(t, ledger.DeleteLink{Link: unknown}).IsValid() {
		t.Error("unknown link delete accepted")
	}
}

func TestDeviceSerialNumber(t *testing.T) {
	serial, ok := DeviceSerialNumber(DevicePath("ARDUINO-1"))
	if !ok || serial != "ARDUINO-1" {
		t.Errorf("DeviceSerialNumber = %q, %v", serial, ok)
	}

	if _, ok := DeviceSerialNumber(AllDevicesPath()); ok {
		t.Error("index path reported as a device")
	}
	if _, ok := DeviceSerialNumber(ledger.NewPath("other", "ARDUINO-1")); ok {
		t.Error("foreign path reported as a device")
	}
}
