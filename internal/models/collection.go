package models

import "github.com/monorkin/living-power/internal/ledger"

// MeasurementCollection is one persisted chunk of measurements. All of its
// measurements belong to one device and were taken with one external
// resistor.
type MeasurementCollection struct {
	DeviceHash           ledger.Hash   `cbor:"bpv_device_hash" json:"bpv_device_hash"`
	Measurements         []Measurement `cbor:"measurements" json:"measurements"`
	ExternalResistorOhms uint32        `cbor:"external_resistor_ohms" json:"external_resistor_ohms"`
}
