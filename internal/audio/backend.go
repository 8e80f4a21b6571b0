// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"enginesound/internal/config"
)

// OpenDevice creates the playback device selected by cfg.Backend. The device
// is not started.
func OpenDevice(cfg config.AudioConfig) (Device, error) {
	rate := int(cfg.SampleRate)

	switch cfg.Backend {
	case config.BackendHeadless:
		return NewClockDevice(rate, cfg.DeviceBuffer, cfg.FramesPerBuffer), nil
	case config.BackendPortAudio:
		return openPortAudio(cfg, NewLoopDevice(rate, cfg.DeviceBuffer))
	case config.BackendOto:
		return openOto(cfg, NewLoopDevice(rate, cfg.DeviceBuffer))
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
