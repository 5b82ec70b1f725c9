package models

import "github.com/monorkin/living-power/internal/ledger"

// DeviceInfo is the display metadata of a device. It is stored as the tag
// of an info link; the most recent link wins.
type DeviceInfo struct {
	Name string `cbor:"name" json:"name"`
}

// ExternalResistorValue records which resistor was fitted to a device
// during a time window. A zero To means the window is still open.
type ExternalResistorValue struct {
	Ohms uint64           `cbor:"external_resistor_value_ohms" json:"external_resistor_value_ohms"`
	From ledger.Timestamp `cbor:"from" json:"from"`
	To   ledger.Timestamp `cbor:"to" json:"to"`
}

func (value ExternalResistorValue) Covers(at ledger.Timestamp) bool {
	if at < value.From {
		return false
	}
	return value.To == 0 || at <= value.To
}

type Device struct {
	SerialNumber string      `json:"serial_number"`
	Hash         ledger.Hash `json:"hash"`
	Info         *DeviceInfo `json:"info,omitempty"`
}

func (device Device) Name() string {
	if device.Info == nil {
		return ""
	}
	return device.Info.Name
}
