//go:build headless

package audio

import "enginesound/internal/config"

func openPortAudio(config.AudioConfig, *LoopDevice) (Device, error) {
	return nil, ErrBackendUnavailable
}

func openOto(config.AudioConfig, *LoopDevice) (Device, error) {
	return nil, ErrBackendUnavailable
}

func HostDevices() ([]HostDevice, error) {
	return nil, ErrBackendUnavailable
}

func ListDevices() error {
	return ErrBackendUnavailable
}

func Initialize() error { return ErrBackendUnavailable }
func Terminate() error  { return nil }
