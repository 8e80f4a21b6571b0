// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"enginesound/internal/config"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	recordBitDepth = 16
	wavFormatPCM   = 1
)

var ErrRecorderClosed = errors.New("recorder closed")

// Recorder writes mono 16-bit blocks to a WAV file. It implements Tap.
type Recorder struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	encoder    *wav.Encoder
	sampleBuf  *audio.IntBuffer
	maxSamples int
	written    int
}

// NewRecorder creates path and its directory. maxSeconds of zero records
// without limit.
func NewRecorder(path string, sampleRate, maxSeconds int) (*Recorder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid recording sample rate %d", sampleRate)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, recordBitDepth, 1, wavFormatPCM),
		sampleBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: recordBitDepth,
		},
		maxSamples: maxSeconds * sampleRate,
	}

	logger.Infof("Recording to %s", path)
	return r, nil
}

// RecordingPath resolves the output file for cfg, naming it after now when no
// explicit file is configured.
func RecordingPath(cfg config.RecordingConfig, now time.Time) string {
	name := cfg.OutputFile
	if name == "" {
		name = fmt.Sprintf("engine_%s.%s", now.Format("20060102_150405"), cfg.Format)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.OutputDir, name)
}

func (r *Recorder) WriteSamples(samples []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return ErrRecorderClosed
	}
	if r.maxSamples > 0 {
		samples = samples[:min(len(samples), r.maxSamples-r.written)]
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		r.sampleBuf.Data[i] = int(s)
	}

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	r.written += len(samples)
	return nil
}

// Samples returns the number of samples written so far.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *Recorder) Path() string {
	return r.path
}

// Close finalizes the WAV header. Safe to call repeatedly.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}

	encErr := r.encoder.Close()
	fileErr := r.file.Close()
	r.encoder = nil
	r.file = nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize recording: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close recording: %w", fileErr)
	}

	logger.Infof("Recorded %d samples to %s", r.written, r.path)
	return nil
}
