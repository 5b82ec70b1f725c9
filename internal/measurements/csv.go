// Package measurements reads measurement logs exported by the sensor
// firmware.
package measurements

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/monorkin/living-power/internal/models"
)

const TIMESTAMP_LAYOUT = "2006-01-02 15:04:05"

var lineRegex = regexp.MustCompile(
	`(\d{4}-\d\d-\d\d),(\d\d:\d\d:\d\d),([\d.]+),([\d.]+),([\d.]+),([\d.]+)\s*$`,
)

type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

var errInvalidLine = errors.New("invalid measurement line")

// ParseCSV reads "date,time,temperature,humidity,lightlevel,voltage" rows.
// Header rows and blank lines are skipped. Rows that cannot be parsed are
// returned as LineErrors and do not stop the scan; the returned error is
// only set when reading fails.
func ParseCSV(reader io.Reader) ([]models.Measurement, []*LineError, error) {
	var measurements []models.Measurement
	var lineErrors []*LineError

	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" || strings.Contains(line, "Date") {
			continue
		}

		measurement, err := ParseLine(line)
		if err != nil {
			lineErrors = append(lineErrors, &LineError{Line: lineNumber, Text: line, Err: err})
			continue
		}

		measurements = append(measurements, measurement)
	}

	if err := scanner.Err(); err != nil {
		return measurements, lineErrors, fmt.Errorf("reading measurements: %w", err)
	}

	return measurements, lineErrors, nil
}

// ParseLine parses a single row. Timestamps are taken as UTC.
func ParseLine(line string) (models.Measurement, error) {
	match := lineRegex.FindStringSubmatch(line)
	if match == nil {
		return models.Measurement{}, errInvalidLine
	}

	at, err := time.ParseInLocation(TIMESTAMP_LAYOUT, match[1]+" "+match[2], time.UTC)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	values := make([]float64, 4)
	for i := range values {
		values[i], err = strconv.ParseFloat(match[3+i], 64)
		if err != nil {
			return models.Measurement{}, fmt.Errorf("invalid reading %q: %w", match[3+i], err)
		}
	}

	temperature, humidity, lightLevel, voltage := values[0], values[1], values[2], values[3]

	return models.NewMeasurement(at, temperature, humidity, lightLevel, voltage), nil
}
