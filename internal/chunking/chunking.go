// Package chunking splits measurement streams into chunks small enough to
// be stored as a single ledger record.
package chunking

import "github.com/monorkin/living-power/internal/ledger"

const (
	MaxRecordBits = ledger.MaxRecordBytes * 8

	HashBits               = ledger.HashBytes * 8
	TimestampBits          = 64
	ReadingBits            = 32
	ReadingsPerMeasurement = 4

	// PerMeasurementBits is the budget charged for each measurement in a
	// chunk: one reference-sized hash, the timestamp and the readings.
	PerMeasurementBits = HashBits + TimestampBits + ReadingsPerMeasurement*ReadingBits

	// SafetyMargin absorbs the collection envelope (device reference,
	// resistor value, framing).
	SafetyMargin = 100

	// Capacity is the number of measurements stored per collection.
	Capacity = MaxRecordBits/PerMeasurementBits - SafetyMargin
)

// Pack splits items into consecutive chunks of capacity items, the last
// one possibly shorter. Empty input yields no chunks. Chunks share the
// backing array of items but cannot be appended into each other.
func Pack[T any](items []T, capacity int) [][]T {
	if capacity < 1 {
		panic("chunking: capacity must be at least 1")
	}

	chunks := make([][]T, 0, ChunkCount(len(items), capacity))
	for start := 0; start < len(items); start += capacity {
		end := min(start+capacity, len(items))
		chunks = append(chunks, items[start:end:end])
	}

	return chunks
}

// ChunkCount is the number of chunks Pack produces for n items.
func ChunkCount(n, capacity int) int {
	if n <= 0 {
		return 0
	}
	return (n + capacity - 1) / capacity
}
