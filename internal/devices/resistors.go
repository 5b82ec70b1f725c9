package devices

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/monorkin/living-power/internal/codec"
	"github.com/monorkin/living-power/internal/integrity"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/models"
)

type ResistorValueLink struct {
	ID        uuid.UUID
	Value     models.ExternalResistorValue
	Timestamp ledger.Timestamp
}

// SetExternalResistorValue records which resistor was fitted to the
// device during value's time window. The device must be registered.
func (registry *Registry) SetExternalResistorValue(ctx context.Context, serialNumber string, value models.ExternalResistorValue) (uuid.UUID, error) {
	device := Resolve(serialNumber)

	tag, err := codec.Marshal(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding external resistor value: %w", err)
	}

	id, err := registry.store.CreateLink(ctx, device, device, integrity.LinkTypeBpvDeviceToExternalResistorValues, tag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to set external resistor of device %s: %w", serialNumber, err)
	}

	return id, nil
}

func (registry *Registry) ExternalResistorValues(ctx context.Context, serialNumber string) ([]ResistorValueLink, error) {
	links, err := registry.store.Links(ctx, Resolve(serialNumber), integrity.LinkTypeBpvDeviceToExternalResistorValues)
	if err != nil {
		return nil, err
	}

	values := make([]ResistorValueLink, 0, len(links))
	for _, link := range links {
		var value models.ExternalResistorValue
		if err := codec.Unmarshal(link.Tag, &value); err != nil {
			return nil, fmt.Errorf("decoding external resistor value from link %s: %w", link.ID, err)
		}

		values = append(values, ResistorValueLink{ID: link.ID, Value: value, Timestamp: link.Timestamp})
	}

	return values, nil
}

func (registry *Registry) DeleteExternalResistorValue(ctx context.Context, id uuid.UUID) error {
	_, err := registry.store.DeleteLink(ctx, id)
	return err
}

// ExternalResistorAt returns the resistor fitted at the given instant.
// When several windows cover it the most recently recorded one wins.
func (registry *Registry) ExternalResistorAt(ctx context.Context, serialNumber string, at ledger.Timestamp) (uint64, bool, error) {
	values, err := registry.ExternalResistorValues(ctx, serialNumber)
	if err != nil {
		return 0, false, err
	}

	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Value.Covers(at) {
			return values[i].Value.Ohms, true, nil
		}
	}

	return 0, false, nil
}
