// SPDX-License-Identifier: MIT
package spectrum

import (
	applog "lcdspectrum/internal/log"
)

var logger = applog.Scope("spectrum")

// workspace holds the pre-allocated buffers for one frame.
type workspace struct {
	input  []Record  // ...packed samples handed to the engine
	output []Record  // ...packed coefficients returned by the engine
	bins   []Bin     // ...unpacked complex spectrum
	power  []float64 // ...log power per bin
}

// Pipeline converts sample frames into power spectra. It owns its buffers and
// reuses them every frame; the slice returned by Process is overwritten by
// the next call.
type Pipeline struct {
	engine    Engine
	workspace workspace
}

// NewPipeline creates a pipeline for Size-point transforms on engine.
func NewPipeline(engine Engine) *Pipeline {
	if engine == nil {
		panic("spectrum: nil transform engine")
	}
	logger.Infof("pipeline ready (N=%d, records=%d, sample rate=%d Hz, engine=%T)",
		Size, Records, SampleRate, engine)
	return &Pipeline{
		engine: engine,
		workspace: workspace{
			input:  make([]Record, Records),
			output: make([]Record, Records),
			bins:   make([]Bin, Size),
			power:  make([]float64, Size),
		},
	}
}

// Process runs pack, transform, unpack and ToPower on one frame. frame must
// hold at least Size samples.
func (p *Pipeline) Process(frame []uint16) []float64 {
	Pack(p.workspace.input, frame)
	p.engine.Transform(p.workspace.output, p.workspace.input)
	Unpack(p.workspace.bins, p.workspace.output)
	ToPower(p.workspace.power, p.workspace.bins)
	return p.workspace.power
}

// Bins returns the complex spectrum of the last processed frame.
func (p *Pipeline) Bins() []Bin {
	return p.workspace.bins
}

// BinFrequency returns the centre frequency in Hz of bin i. The packed
// sequence interleaves both channels, so bins are PairRate/Size apart.
func BinFrequency(i int) float64 {
	return float64(i) * PairRate / Size
}
