// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"enginesound/internal/log"
	"enginesound/pkg/bitint"
	"enginesound/pkg/ring"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var logger = log.New("analysis")

// WindowFunc selects the window applied before the FFT.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanHarris
	BlackmanNuttall
	FlatTop
	Rectangular
)

func (w WindowFunc) String() string {
	switch w {
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Blackman:
		return "Blackman"
	case BlackmanHarris:
		return "BlackmanHarris"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case FlatTop:
		return "FlatTop"
	case Rectangular:
		return "Rectangular"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

type spectrumWorkspace struct {
	input     []float64
	fftOutput []complex128
	magnitude []float64
	window    []float64
	mu        sync.RWMutex
}

// Spectrum keeps the most recent Size() output samples and the magnitude
// spectrum computed over them.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	history    *ring.Buffer[float64]
	workspace  spectrumWorkspace
}

var _ Processor = (*Spectrum)(nil)
var _ SpectrumProvider = (*Spectrum)(nil)

func NewSpectrum(size int, sampleRate float64, w WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, w)
	bins := size/2 + 1

	logger.Infof("Spectrum (Size: %d, SampleRate: %.1f Hz, Window: %v)", size, sampleRate, w)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		history:    ring.New[float64](size),
		workspace: spectrumWorkspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, bins),
			magnitude: make([]float64, bins),
			window:    coeffs,
		},
	}, nil
}

// Process appends samples to the history and recomputes the spectrum.
// Magnitudes are scaled so a full-scale sine in a bin reads close to one
// under a rectangular window.
func (s *Spectrum) Process(samples []int16) {
	if len(samples) == 0 {
		return
	}

	ws := &s.workspace
	ws.mu.Lock()
	defer ws.mu.Unlock()

	const norm = 1.0 / 32768
	for _, v := range samples {
		s.history.Write(float64(v) * norm)
	}

	n := s.history.Read(s.size, ws.input)
	for i := range ws.input {
		if i < n {
			ws.input[i] *= ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}

	s.fft.Coefficients(ws.fftOutput, ws.input)

	scale := 2 / float64(s.size)
	for i, c := range ws.fftOutput {
		ws.magnitude[i] = cmplx.Abs(c) * scale
	}
}

// Magnitudes returns a copy of the latest spectrum.
func (s *Spectrum) Magnitudes() []float64 {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()
	return append([]float64(nil), s.workspace.magnitude...)
}

// MagnitudesInto copies the latest spectrum into dst, which must hold Bins()
// values.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	if len(dst) != len(s.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(s.workspace.magnitude))
	}
	copy(dst, s.workspace.magnitude)
	return nil
}

// FrequencyForBin returns the center frequency of bin in Hz, or 0 when out of
// range.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.workspace.fftOutput) {
		return 0
	}
	return float64(bin) * s.sampleRate / float64(s.size)
}

func (s *Spectrum) Bins() int           { return s.size/2 + 1 }
func (s *Spectrum) Size() int           { return s.size }
func (s *Spectrum) SampleRate() float64 { return s.sampleRate }

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. Unknown
// names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmanharris":
		return BlackmanHarris, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "flattop":
		return FlatTop, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

func applyWindow(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case FlatTop:
		window.FlatTop(coeffs)
	case Rectangular:
	default:
		logger.Warnf("Unknown window function %v, defaulting to Hann", w)
		window.Hann(coeffs)
	}
}
