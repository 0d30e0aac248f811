// SPDX-License-Identifier: MIT
/*
Package analysis summarizes a complex spectrum into coarse frequency bands.

Each band reports its level on the same logarithmic scale the bar graph
uses, 20·ln(2·rms/N), where rms is the root mean square magnitude of the
bins inside the band. A band whose bins are all zero reports -Inf, just as
a single zero bin does.

Bands are evaluated per frame only. Nothing is carried between calls.
*/
package analysis

import (
	"math"

	"lcdspectrum/internal/spectrum"
)

// Band is a named frequency range [LowHz, HighHz).
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64

	first, last int // bin range, last exclusive
}

// Bins returns the number of transform bins inside the band.
func (b Band) Bins() int { return b.last - b.first }

// DefaultBands covers the positive half of the spectrum up to Nyquist of the
// interleaved sequence. At 151 Hz per bin there is no room for a separate
// sub-bass band.
func DefaultBands() []Band {
	return []Band{
		{Name: "bass", LowHz: 20, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: spectrum.PairRate / 2},
	}
}

// BandLevels computes per-band levels. The slice returned by Process is
// reused by the next call.
type BandLevels struct {
	bands  []Band
	levels []float64
}

// NewBandLevels resolves the bin range of every band. Bands are copied.
func NewBandLevels(bands []Band) *BandLevels {
	b := &BandLevels{
		bands:  make([]Band, len(bands)),
		levels: make([]float64, len(bands)),
	}
	for i, band := range bands {
		band.first, band.last = binRange(band.LowHz, band.HighHz)
		b.bands[i] = band
	}
	return b
}

// binRange maps [low, high) onto bins below Nyquist: bin i belongs to the
// band when low <= BinFrequency(i) < high.
func binRange(low, high float64) (first, last int) {
	first = int(math.Ceil(low * spectrum.Size / spectrum.PairRate))
	last = int(math.Ceil(high * spectrum.Size / spectrum.PairRate))
	first = min(max(first, 0), spectrum.Size/2)
	last = min(max(last, first), spectrum.Size/2)
	return first, last
}

// Bands returns the resolved bands.
func (b *BandLevels) Bands() []Band { return b.bands }

// Process returns the level of every band for bins. Bands without any bins
// report -Inf.
func (b *BandLevels) Process(bins []spectrum.Bin) []float64 {
	for i, band := range b.bands {
		if band.Bins() == 0 {
			b.levels[i] = math.Inf(-1)
			continue
		}

		var sumSquare float64
		for _, bin := range bins[band.first:band.last] {
			re, im := float64(bin.Real), float64(bin.Imag)
			sumSquare += re*re + im*im
		}
		rms := math.Sqrt(sumSquare / float64(band.Bins()))
		b.levels[i] = 20 * math.Log(2*rms/spectrum.Size)
	}
	return b.levels
}
