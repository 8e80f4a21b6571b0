// SPDX-License-Identifier: MIT
package analysis

// Processor consumes blocks of rendered output. Implementations are called
// from the streamer goroutine and must not block.
type Processor interface {
	Process(samples []int16)
}

// SpectrumProvider exposes the latest magnitude spectrum. It decouples band
// analysis from the concrete FFT implementation.
type SpectrumProvider interface {
	MagnitudesInto(dst []float64) error
	FrequencyForBin(bin int) float64
	Bins() int
}
