package analysis

import (
	"errors"
	"math"
)

// FrequencyBand names a frequency range of the output spectrum.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// EngineBands splits an engine recording into firing rumble, low body,
// midrange bark and high-frequency hiss. The last band runs to Nyquist.
func EngineBands() []FrequencyBand {
	return []FrequencyBand{
		{Name: "rumble", LowHz: 20, HighHz: 120},
		{Name: "low", LowHz: 120, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "high", LowHz: 2000, HighHz: math.Inf(1)},
	}
}

// Bands reduces a spectrum to one RMS level per band.
type Bands struct {
	provider SpectrumProvider
	bands    []FrequencyBand
	mags     []float64
	energy   []float64
	counts   []int
}

func NewBands(provider SpectrumProvider, bands []FrequencyBand) (*Bands, error) {
	if provider == nil {
		return nil, errors.New("band analysis requires a spectrum provider")
	}
	if len(bands) == 0 {
		bands = EngineBands()
	}
	logger.Infof("Band analysis with %d bands", len(bands))
	return &Bands{
		provider: provider,
		bands:    bands,
		mags:     make([]float64, provider.Bins()),
		energy:   make([]float64, len(bands)),
		counts:   make([]int, len(bands)),
	}, nil
}

func (b *Bands) Bands() []FrequencyBand {
	return b.bands
}

// Levels writes the RMS magnitude of each band into dst, clamped to [0, 1].
// Not safe for concurrent use.
func (b *Bands) Levels(dst []float64) error {
	if len(dst) < len(b.bands) {
		return errors.New("destination shorter than band count")
	}
	if err := b.provider.MagnitudesInto(b.mags); err != nil {
		return err
	}

	clear(b.energy)
	clear(b.counts)
	for i, m := range b.mags {
		freq := b.provider.FrequencyForBin(i)
		for k, band := range b.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				b.energy[k] += m * m
				b.counts[k]++
				break
			}
		}
	}

	for k := range b.bands {
		level := 0.0
		if b.counts[k] > 0 {
			level = math.Sqrt(b.energy[k] / float64(b.counts[k]))
		}
		dst[k] = math.Min(1, level)
	}
	return nil
}
