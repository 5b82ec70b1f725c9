// Package integrity holds the entry and link types of the living-power
// ledger and the policy deciding which mutations of them are valid.
package integrity

import "github.com/monorkin/living-power/internal/ledger"

const EntryTypeMeasurementCollection ledger.EntryType = "measurement_collection"

const (
	LinkTypeAllBpvDevices                     ledger.LinkType = "all_bpv_devices"
	LinkTypeBpvDeviceToMeasurementCollections ledger.LinkType = "bpv_device_to_measurement_collections"
	LinkTypeBpvDeviceInfo                     ledger.LinkType = "bpv_device_info"
	LinkTypeBpvDeviceToExternalResistorValues ledger.LinkType = "bpv_device_to_external_resistor_values"
)

const allBpvDevicesComponent = "all_bpv_devices"

// AllDevicesPath anchors the index of every known device.
func AllDevicesPath() ledger.Path {
	return ledger.NewPath(allBpvDevicesComponent)
}

// DevicePath anchors a single device. Its hash is the device identity.
func DevicePath(serialNumber string) ledger.Path {
	return ledger.NewPath(allBpvDevicesComponent, serialNumber)
}

// DeviceSerialNumber returns the serial number encoded in a device anchor
// path, and false when path is not a device anchor.
func DeviceSerialNumber(path ledger.Path) (string, bool) {
	if len(path) != 2 || path[0] != allBpvDevicesComponent || path[1] == "" {
		return "", false
	}
	return path[1], true
}
