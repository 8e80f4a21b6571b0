// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// LoadImpulseResponse decodes a 16-bit PCM WAV file and returns its first
// channel along with the file's sample rate.
func LoadImpulseResponse(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open impulse response: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if d.BitDepth != 16 {
		return nil, 0, fmt.Errorf("%s: unsupported bit depth %d (want 16)", path, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode impulse response: %w", err)
	}

	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(buf.Data[i*channels])
	}

	return samples, int(d.SampleRate), nil
}
