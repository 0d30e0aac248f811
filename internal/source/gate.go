// SPDX-License-Identifier: MIT
package source

import "math"

// Gate silences frames whose peak amplitude stays below a threshold, so
// background hiss does not light up the bars.
type Gate struct {
	src       Source
	threshold int32 // Absolute amplitude threshold (0-32767)
}

// NewGate wraps src with a gate at threshold, in the range 0.0-1.0 of full
// scale.
func NewGate(src Source, threshold float64) *Gate {
	g := &Gate{src: src}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold adjusts the threshold. The value is clamped to 0.0-1.0 where
// 0 is always open and 1 is always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold = int32(threshold * math.MaxInt16)
}

// Initialize forwards to the wrapped source.
func (g *Gate) Initialize() error { return initialize(g.src) }

func (g *Gate) Acquire(frame []uint16) error {
	if err := g.src.Acquire(frame); err != nil {
		return err
	}
	if Peak(frame) < g.threshold {
		clear(frame)
	}
	return nil
}

// Peak returns the largest absolute sample value in frame, branch free.
func Peak(frame []uint16) int32 {
	var peak int32
	for _, s := range frame {
		sample := int32(int16(s))
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += diff & ^(diff >> 31)
	}
	return peak
}
