// SPDX-License-Identifier: MIT
/*
Package source acquires frames of 16-bit microphone samples.

Every source fills the caller's frame completely or returns an error. A
frame interleaves left and right samples in pairs, as the I2S bus delivers
both channels; sources with a single channel repeat each sample in its pair.
Signed samples are delivered bit-for-bit as uint16, the way the I2S bus
hands them to memory, so spectrum.Pack can reinterpret them without
conversion.

Implementations:
- Mic reads a PortAudio capture device with a blocking stream
- WAV replays a PCM file, optionally looping
- Tone synthesizes a continuous sine
- Gate, Paced and Recorder decorate any of the above
*/
package source

import (
	"fmt"
	"io"

	"lcdspectrum/internal/config"
	applog "lcdspectrum/internal/log"
	"lcdspectrum/internal/spectrum"
)

var logger = applog.Scope("source")

// Source fills frame with the next len(frame) samples, blocking until they
// are available.
type Source interface {
	Acquire(frame []uint16) error
}

// Initializer is implemented by sources that need start-up work before the
// first Acquire.
type Initializer interface {
	Initialize() error
}

// Open builds the source selected by cfg, wrapped in the configured gate,
// pacing and recording decorators. The returned closer releases every
// resource Open acquired.
func Open(cfg *config.Config) (Source, io.Closer, error) {
	var (
		src    Source
		closer multiCloser
	)

	switch cfg.Source.Type {
	case config.SourceTone:
		src = NewTone(spectrum.SampleRate, cfg.Source.ToneHz, cfg.Source.ToneAmplitude)
	case config.SourceWAV:
		w, err := OpenWAV(cfg.Source.File, cfg.Source.Loop)
		if err != nil {
			return nil, nil, err
		}
		src = w
		closer = append(closer, w)
	case config.SourceMic:
		m, err := NewMic(cfg.Source.Device, spectrum.FrameLen)
		if err != nil {
			return nil, nil, err
		}
		src = m
		closer = append(closer, m)
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}

	// Live capture is paced by the device itself.
	if cfg.Source.Type != config.SourceMic && cfg.Source.FramePeriod > 0 {
		src = NewPaced(src, cfg.Source.FramePeriod)
	}

	if cfg.Source.Gate > 0 {
		src = NewGate(src, cfg.Source.Gate)
	}

	if cfg.Recording.Enabled {
		rec, err := NewRecorder(src, cfg.Recording.Path, spectrum.SampleRate)
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		src = rec
		// The recorder flushes its header before the inner source goes away.
		closer = append(multiCloser{rec}, closer...)
	}

	logger.Infof("opened %s source", cfg.Source.Type)
	return src, closer, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
