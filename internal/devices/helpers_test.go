package devices_test

import (
	"testing"

	"github.com/monorkin/living-power/internal/codec"
	"github.com/monorkin/living-power/internal/models"
)

func encodeInfo(t *testing.T, name string) ([]byte, models.DeviceInfo) {
	t.Helper()

	info := models.DeviceInfo{Name: name}
	tag, err := codec.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return tag, info
}
