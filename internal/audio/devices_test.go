//go:build !headless

package audio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Fatalf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func TestHostDevices(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}
}

func TestOutputDeviceErrors(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()

	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return []*portaudio.DeviceInfo{
			{Name: "mic", MaxInputChannels: 2},
			{Name: "speakers", MaxOutputChannels: 2},
		}, nil
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 5, "invalid device ID"},
		{"Input only", 0, "does not support output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OutputDevice(tt.id)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("OutputDevice(%d) error = %v, want %q", tt.id, err, tt.substr)
			}
		})
	}

	dev, err := OutputDevice(1)
	if err != nil || dev.Name != "speakers" {
		t.Errorf("OutputDevice(1) = %v, %v; want speakers", dev, err)
	}
}

func TestHostDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	if _, err := HostDevices(); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
	if err := ListDevices(); err == nil {
		t.Error("ListDevices() should surface the device query error")
	}
}
