package measurements

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/monorkin/living-power/internal/ledger"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"Date,Time,Temperature,Humidity,LightLevel,Voltage",
		"2024-03-01,12:00:00,21.5,40.25,300,3.5",
		"",
		"garbage",
		"2024-03-01,12:05:00,22,41,310.5,3.25  ",
		"2024-13-01,12:10:00,22,41,310,3",
		"EndOfFile",
	}, "\n")

	measurements, lineErrors, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if len(measurements) != 2 {
		t.Fatalf("got %d measurements, want 2", len(measurements))
	}

	first := measurements[0]
	wantTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if first.Timestamp != ledger.FromTime(wantTime) {
		t.Errorf("timestamp = %v, want %v", first.Time(), wantTime)
	}
	if first.TemperatureCelsius != 21500 {
		t.Errorf("temperature = %d, want 21500", first.TemperatureCelsius)
	}
	if first.HumidityPercentage != 40250 {
		t.Errorf("humidity = %d, want 40250", first.HumidityPercentage)
	}
	if first.LightLevelLux != 300000 {
		t.Errorf("light level = %d, want 300000", first.LightLevelLux)
	}
	if first.VoltageMillivolts != 3500 {
		t.Errorf("voltage = %d, want 3500", first.VoltageMillivolts)
	}

	if measurements[1].VoltageMillivolts != 3250 || measurements[1].LightLevelLux != 310500 {
		t.Errorf("second measurement = %+v", measurements[1])
	}

	var lines []int
	for _, lineErr := range lineErrors {
		lines = append(lines, lineErr.Line)
	}
	if len(lines) != 3 || lines[0] != 4 || lines[1] != 6 || lines[2] != 7 {
		t.Fatalf("line errors on lines %v, want [4 6 7]", lines)
	}
	if !errors.Is(lineErrors[0], errInvalidLine) {
		t.Errorf("line 4 error = %v, want invalid line", lineErrors[0])
	}
}

func TestParseLineRejectsNegativeReadings(t *testing.T) {
	_, err := ParseLine("2024-03-01,12:00:00,-4.5,40,300,3.5")
	if err == nil {
		t.Fatal("ParseLine accepted a negative temperature")
	}
}

func TestParseLineAllowsWindowsLineEndings(t *testing.T) {
	measurement, err := ParseLine("2024-03-01,12:00:00,21.5,40,300,3.5\r")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if measurement.TemperatureCelsius != 21500 {
		t.Errorf("temperature = %d, want 21500", measurement.TemperatureCelsius)
	}
}
