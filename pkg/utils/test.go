// Package utils holds signal generators and doubles shared by package tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport.Transport interface for testing.
type MockTransport struct {
	mu       sync.Mutex
	Sent     []any
	LastData any
	Closed   bool
	// SendErr is returned from every Send when set.
	SendErr error
}

// Send records data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, data)
	m.LastData = data
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns the number of successful sends.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// GenerateEngineWave returns a 16-bit pulse train shaped like an engine at
// the given RPM: the firing frequency plus decaying harmonics.
func GenerateEngineWave(size int, sampleRate, rpm float64, cylinders int) []int16 {
	firing := rpm / 60 * float64(cylinders) / 2
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := 0.0
		for h := 1; h <= 4; h++ {
			signal += math.Sin(2*math.Pi*firing*float64(h)*tm) / float64(h*h)
		}
		buffer[i] = int16(signal / 1.43 * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateSineInt16 returns size samples of a sine with the given peak
// amplitude, starting offset samples into the waveform.
func GenerateSineInt16(size, offset int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i+offset) / sampleRate
		buffer[i] = int16(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude))
	}
	return buffer
}

func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
