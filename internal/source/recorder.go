// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"lcdspectrum/internal/spectrum"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder passes frames through from src and appends each one to a 16-bit
// WAV file with one channel per side of the interleaved pairs.
type Recorder struct {
	src        Source
	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	frames     int
}

// NewRecorder creates filename and starts recording what src delivers.
func NewRecorder(src Source, filename string, sampleRate int) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	return &Recorder{
		src:        src,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, 16, spectrum.Channels, 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: spectrum.Channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: 16,
		},
	}, nil
}

func (r *Recorder) Acquire(frame []uint16) error {
	if err := r.src.Acquire(frame); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return errors.New("recorder closed")
	}

	if cap(r.sampleBuf.Data) < len(frame) {
		r.sampleBuf.Data = make([]int, len(frame))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(frame)]
	for i, s := range frame {
		r.sampleBuf.Data[i] = int(int16(s))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	r.frames++
	return nil
}

// Initialize forwards to the wrapped source.
func (r *Recorder) Initialize() error { return initialize(r.src) }

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header and closes the file. Calling it again is a
// no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}
	return nil
}
