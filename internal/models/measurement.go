package models

import (
	"math"
	"time"

	"github.com/monorkin/living-power/internal/ledger"
)

// Measurement is one sample taken by a device. Readings are fixed-point:
// the physical value multiplied by 1000 and truncated toward zero. It is
// encoded as a fixed-width CBOR array.
type Measurement struct {
	_                  struct{}         `cbor:",toarray"`
	Timestamp          ledger.Timestamp `json:"timestamp"`
	HumidityPercentage uint32           `json:"humidity_percentage"`
	TemperatureCelsius uint32           `json:"temperature_celsius"`
	LightLevelLux      uint32           `json:"light_level_lux"`
	VoltageMillivolts  uint32           `json:"voltage_millivolts"`
}

// NewMeasurement converts physical readings into a Measurement.
func NewMeasurement(at time.Time, temperature, humidity, lightLevel, voltage float64) Measurement {
	return Measurement{
		Timestamp:          ledger.FromTime(at),
		HumidityPercentage: milli(humidity),
		TemperatureCelsius: milli(temperature),
		LightLevelLux:      milli(lightLevel),
		VoltageMillivolts:  milli(voltage),
	}
}

// milli scales by 1000 and truncates, saturating at the bounds of uint32.
func milli(value float64) uint32 {
	scaled := value * 1000
	switch {
	case math.IsNaN(scaled) || scaled <= 0:
		return 0
	case scaled >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(scaled)
	}
}

func (measurement Measurement) Time() time.Time {
	return measurement.Timestamp.Time()
}

func (measurement Measurement) Temperature() float64 {
	return float64(measurement.TemperatureCelsius) / 1000
}

func (measurement Measurement) Humidity() float64 {
	return float64(measurement.HumidityPercentage) / 1000
}

func (measurement Measurement) LightLevel() float64 {
	return float64(measurement.LightLevelLux) / 1000
}

func (measurement Measurement) Voltage() float64 {
	return float64(measurement.VoltageMillivolts) / 1000
}
