package integrity

import (
	"context"
	"fmt"

	"github.com/monorkin/living-power/internal/codec"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/models"
)

const (
	reasonCollectionUpdate  = "Measurement Collections cannot be updated"
	reasonMissingDependency = "Dependant action must be accompanied by an entry"
)

// Validator is the ledger policy. Every op variant and every entry and
// link type has exactly one handler; anything unknown is invalid.
type Validator struct{}

func NewValidator() Validator {
	return Validator{}
}

func (validator Validator) Validate(ctx context.Context, op ledger.Op, records ledger.RecordGetter) (ledger.Verdict, error) {
	switch op := op.(type) {
	case ledger.CreateEntry:
		return validateCreateEntry(ctx, op, records)
	case ledger.UpdateEntry:
		return validateUpdateEntry(op)
	case ledger.DeleteEntry:
		return validateDeleteEntry(op)
	case ledger.CreateLink:
		return validateCreateLink(ctx, op, records)
	case ledger.DeleteLink:
		return validateDeleteLink(op)
	default:
		return ledger.Invalid(fmt.Sprintf("unknown op %T", op)), nil
	}
}

func validateCreateEntry(ctx context.Context, op ledger.CreateEntry, records ledger.RecordGetter) (ledger.Verdict, error) {
	switch op.Record.EntryType {
	case ledger.EntryTypePath:
		var path ledger.Path
		if err := op.Record.Decode(&path); err != nil {
			return ledger.Invalid(fmt.Sprintf("malformed path: %v", err)), nil
		}
		if len(path) == 0 {
			return ledger.Invalid("path has no components"), nil
		}
		return ledger.Valid(), nil

	case EntryTypeMeasurementCollection:
		var collection models.MeasurementCollection
		if err := op.Record.Decode(&collection); err != nil {
			return ledger.Invalid(fmt.Sprintf("malformed measurement collection: %v", err)), nil
		}
		return requireDevice(ctx, records, collection.DeviceHash)

	default:
		return ledger.Invalid(fmt.Sprintf("unknown entry type %q", op.Record.EntryType)), nil
	}
}

func validateUpdateEntry(op ledger.UpdateEntry) (ledger.Verdict, error) {
	if op.Original.EntryType != op.Updated.EntryType {
		return ledger.Invalid("an update must keep the entry type of the original"), nil
	}

	switch op.Original.EntryType {
	case EntryTypeMeasurementCollection:
		return ledger.Invalid(reasonCollectionUpdate), nil
	case ledger.EntryTypePath:
		return ledger.Invalid("Paths cannot be updated"), nil
	default:
		return ledger.Invalid(fmt.Sprintf("unknown entry type %q", op.Original.EntryType)), nil
	}
}

func validateDeleteEntry(op ledger.DeleteEntry) (ledger.Verdict, error) {
	switch op.Original.EntryType {
	case EntryTypeMeasurementCollection:
		return ledger.Valid(), nil
	case ledger.EntryTypePath:
		return ledger.Invalid("Paths cannot be deleted"), nil
	default:
		return ledger.Invalid(fmt.Sprintf("unknown entry type %q", op.Original.EntryType)), nil
	}
}

func validateCreateLink(ctx context.Context, op ledger.CreateLink, records ledger.RecordGetter) (ledger.Verdict, error) {
	switch op.Type {
	case LinkTypeAllBpvDevices:
		if op.Base != AllDevicesPath().Hash() {
			return ledger.Invalid("device index links must start at the device index"), nil
		}
		return requireDevice(ctx, records, op.Target)

	case LinkTypeBpvDeviceToMeasurementCollections:
		verdict, err := requireDevice(ctx, records, op.Base)
		if err != nil || !verdict.IsValid() {
			return verdict, err
		}
		return requireEntryType(ctx, records, op.Target, EntryTypeMeasurementCollection)

	case LinkTypeBpvDeviceInfo:
		var info models.DeviceInfo
		if err := codec.Unmarshal(op.Tag, &info); err != nil {
			return ledger.Invalid(fmt.Sprintf("malformed device info tag: %v", err)), nil
		}
		return requireDevice(ctx, records, op.Base)

	case LinkTypeBpvDeviceToExternalResistorValues:
		var value models.ExternalResistorValue
		if err := codec.Unmarshal(op.Tag, &value); err != nil {
			return ledger.Invalid(fmt.Sprintf("malformed external resistor value tag: %v", err)), nil
		}
		if value.To != 0 && value.To < value.From {
			return ledger.Invalid("external resistor value ends before it starts"), nil
		}
		return requireDevice(ctx, records, op.Base)

	default:
		return ledger.Invalid(fmt.Sprintf("unknown link type %q", op.Type)), nil
	}
}

func validateDeleteLink(op ledger.DeleteLink) (ledger.Verdict, error) {
	switch op.Link.Type {
	case LinkTypeAllBpvDevices,
		LinkTypeBpvDeviceToMeasurementCollections,
		LinkTypeBpvDeviceInfo,
		LinkTypeBpvDeviceToExternalResistorValues:
		return ledger.Valid(), nil
	default:
		return ledger.Invalid(fmt.Sprintf("unknown link type %q", op.Link.Type)), nil
	}
}

func requireDevice(ctx context.Context, records ledger.RecordGetter, hash ledger.Hash) (ledger.Verdict, error) {
	record, err := records.Get(ctx, hash)
	if err != nil {
		return ledger.Verdict{}, err
	}
	if record == nil {
		return ledger.Invalid(reasonMissingDependency), nil
	}
	if record.EntryType != ledger.EntryTypePath {
		return ledger.Invalid(fmt.Sprintf("record %s is not a device", hash)), nil
	}

	var path ledger.Path
	if err := record.Decode(&path); err != nil {
		return ledger.Invalid(fmt.Sprintf("malformed path %s: %v", hash, err)), nil
	}
	if _, ok := DeviceSerialNumber(path); !ok {
		return ledger.Invalid(fmt.Sprintf("record %s is not a device", hash)), nil
	}

	return ledger.Valid(), nil
}

func requireEntryType(ctx context.Context, records ledger.RecordGetter, hash ledger.Hash, entryType ledger.EntryType) (ledger.Verdict, error) {
	record, err := records.Get(ctx, hash)
	if err != nil {
		return ledger.Verdict{}, err
	}
	if record == nil {
		return ledger.Invalid(reasonMissingDependency), nil
	}
	if record.EntryType != entryType {
		return ledger.Invalid(fmt.Sprintf("record %s is a %s, want %s", hash, record.EntryType, entryType)), nil
	}
	return ledger.Valid(), nil
}
