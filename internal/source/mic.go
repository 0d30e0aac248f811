// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"time"

	"lcdspectrum/internal/spectrum"

	"github.com/gordonklaus/portaudio"
)

// Mic captures 16-bit audio from a PortAudio input device with a blocking
// stream, one frame of interleaved left/right pairs per Acquire. A mono
// device feeds both channels of every pair.
type Mic struct {
	deviceID int
	device   *portaudio.DeviceInfo
	latency  time.Duration
	pairs    int     // Pairs per frame
	channels int     // Channels captured, 1 or spectrum.Channels
	buffer   []int16 // Filled by Stream.Read, pairs*channels samples
	stream   *portaudio.Stream
	started  bool
}

// NewMic prepares a capture of frameLen samples per read. frameLen counts
// both channels and must be a whole number of pairs. The device is resolved
// in Initialize, after PortAudio is up.
func NewMic(deviceID, frameLen int) (*Mic, error) {
	if frameLen <= 0 || frameLen%spectrum.Channels != 0 {
		return nil, fmt.Errorf("invalid frame length %d", frameLen)
	}
	return &Mic{
		deviceID: deviceID,
		pairs:    frameLen / spectrum.Channels,
	}, nil
}

// Initialize starts PortAudio, opens the device at spectrum.SampleRate and
// starts the stream.
func (m *Mic) Initialize() error {
	if err := Initialize(); err != nil {
		return err
	}
	m.started = true

	device, err := InputDevice(m.deviceID)
	if err != nil {
		return err
	}
	m.device = device
	m.latency = device.DefaultLowInputLatency
	m.channels = min(device.MaxInputChannels, spectrum.Channels)
	m.buffer = make([]int16, m.pairs*m.channels)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: m.channels,
			Device:   m.device,
			Latency:  m.latency,
		},
		FramesPerBuffer: m.pairs,
		SampleRate:      spectrum.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, m.buffer)
	if err != nil {
		return fmt.Errorf("failed to open input stream on %s: %w", m.device.Name, err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		m.stream.Close()
		m.stream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	logger.Infof("capturing %d channel(s) from %s at %d Hz", m.channels, m.device.Name, spectrum.SampleRate)
	return nil
}

// Acquire blocks until a full buffer has been captured. An input overflow
// means samples were dropped while the display was busy; the frame is still
// usable, so it is logged and not returned.
func (m *Mic) Acquire(frame []uint16) error {
	if m.stream == nil {
		return errors.New("microphone not initialized")
	}
	if len(frame) != m.pairs*spectrum.Channels {
		return fmt.Errorf("frame length %d does not match capture of %d pairs", len(frame), m.pairs)
	}

	if err := m.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("failed to read input stream: %w", err)
		}
		logger.Debugf("input overflow")
	}

	interleave(frame, m.buffer, m.channels)
	return nil
}

// interleave spreads captured frames of the given channel count over the
// pairs of dst, repeating the last captured channel where the capture has
// fewer channels than a pair.
func interleave(dst []uint16, captured []int16, channels int) {
	for i := range len(dst) / spectrum.Channels {
		in := captured[i*channels : (i+1)*channels]
		out := dst[i*spectrum.Channels : (i+1)*spectrum.Channels]
		for c := range out {
			out[c] = uint16(in[min(c, channels-1)])
		}
	}
}

// Close stops the stream and terminates PortAudio.
func (m *Mic) Close() error {
	if m.stream != nil {
		if err := m.stream.Stop(); err != nil {
			return err
		}
		if err := m.stream.Close(); err != nil {
			return err
		}
		m.stream = nil
	}
	if m.started {
		m.started = false
		return Terminate()
	}
	return nil
}
