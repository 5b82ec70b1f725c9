package clock

import (
	"testing"
	"time"
)

func TestFakeClockSteps(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start, time.Second)

	if got := fake.Now(); !got.Equal(start) {
		t.Fatalf("first Now = %v, want %v", got, start)
	}
	if got := fake.Now(); !got.Equal(start.Add(time.Second)) {
		t.Fatalf("second Now = %v, want %v", got, start.Add(time.Second))
	}

	fake.Advance(time.Hour)
	if got := fake.Now(); !got.Equal(start.Add(2*time.Second + time.Hour)) {
		t.Fatalf("after Advance Now = %v", got)
	}

	fake.Set(start)
	if got := fake.Now(); !got.Equal(start) {
		t.Fatalf("after Set Now = %v, want %v", got, start)
	}
}

func TestFakeClockWithoutStepStandsStill(t *testing.T) {
	start := time.Unix(1000, 0)
	fake := Fake(start, 0)
	for i := 0; i < 3; i++ {
		if got := fake.Now(); !got.Equal(start) {
			t.Fatalf("Now = %v, want %v", got, start)
		}
	}
}
