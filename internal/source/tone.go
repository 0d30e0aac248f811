// SPDX-License-Identifier: MIT
package source

import (
	"lcdspectrum/internal/spectrum"
	"lcdspectrum/pkg/utils"
)

// Tone synthesizes a sine wave on both channels of the interleaved frame.
// Consecutive frames continue the waveform without a phase jump.
type Tone struct {
	sampleRate float64 // Per channel
	frequency  float64
	amplitude  float64
	position   int // Samples delivered, counted across channels
}

func NewTone(sampleRate, frequency, amplitude float64) *Tone {
	return &Tone{
		sampleRate: sampleRate,
		frequency:  frequency,
		amplitude:  amplitude,
	}
}

func (t *Tone) Acquire(frame []uint16) error {
	utils.FillInterleavedSine(frame, spectrum.Channels, t.sampleRate, t.frequency, t.amplitude, t.position)
	t.position += len(frame)
	return nil
}
