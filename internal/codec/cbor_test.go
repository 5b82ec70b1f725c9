package codec

import (
	"bytes"
	"testing"
)

type sampleEntry struct {
	Name   string            `cbor:"name"`
	Count  uint32            `cbor:"count"`
	Labels map[string]string `cbor:"labels"`
}

func TestMarshalDeterministic(t *testing.T) {
	entry := sampleEntry{
		Name:  "ARDUINO-1",
		Count: 7,
		Labels: map[string]string{
			"zeta":  "last",
			"alpha": "first",
			"mid":   "middle",
		},
	}

	first, err := Marshal(entry)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}

	for i := 0; i < 20; i++ {
		again, err := Marshal(entry)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestUnmarshalRoundtrip(t *testing.T) {
	original := sampleEntry{Name: "device", Count: 3, Labels: map[string]string{"a": "b"}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Name != original.Name || decoded.Count != original.Count || decoded.Labels["a"] != "b" {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"name": "x", "extra": 12})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Name != "x" {
		t.Errorf("Name = %q, want %q", decoded.Name, "x")
	}
}
