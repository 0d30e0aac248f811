// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"lcdspectrum/internal/spectrum"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV replays a PCM WAV file as interleaved left/right pairs. A mono file
// feeds both channels; files with more channels contribute their first two.
// Samples of any bit depth are scaled to 16 bits. At the end of the file it
// rewinds when looping, otherwise Acquire returns io.EOF and the partial
// frame is discarded.
type WAV struct {
	file    *os.File
	decoder *wav.Decoder
	loop    bool

	channels int
	shift    int              // Right shift to 16 bits, negative shifts left
	offset   int              // Added before shifting, unsigned 8-bit PCM only
	buf      *audio.IntBuffer // Reusable decode buffer
}

// OpenWAV opens path for playback. Files at a sample rate other than
// spectrum.SampleRate are played as-is, so their spectrum is stretched.
func OpenWAV(path string, loop bool) (*WAV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}

	w, err := newWAV(file, loop)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w.file = file
	return w, nil
}

func newWAV(r io.ReadSeeker, loop bool) (*WAV, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find PCM data: %w", err)
	}

	w := &WAV{
		decoder:  decoder,
		loop:     loop,
		channels: int(decoder.NumChans),
	}
	if w.channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", w.channels)
	}

	switch decoder.BitDepth {
	case 8:
		w.offset, w.shift = -128, -8
	case 16:
		w.shift = 0
	case 24:
		w.shift = 8
	case 32:
		w.shift = 16
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", decoder.BitDepth)
	}

	if int(decoder.SampleRate) != spectrum.SampleRate {
		logger.Warnf("wav sample rate %d Hz differs from %d Hz", decoder.SampleRate, spectrum.SampleRate)
	}

	w.buf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: w.channels,
			SampleRate:  int(decoder.SampleRate),
		},
	}
	return w, nil
}

func (w *WAV) Acquire(frame []uint16) error {
	if len(frame)%spectrum.Channels != 0 {
		return fmt.Errorf("frame length %d is not a whole number of pairs", len(frame))
	}
	pairs := len(frame) / spectrum.Channels
	if want := pairs * w.channels; cap(w.buf.Data) < want {
		w.buf.Data = make([]int, want)
	}

	filled := 0
	rewound := false
	for filled < pairs {
		w.buf.Data = w.buf.Data[:(pairs-filled)*w.channels]
		n, err := w.decoder.PCMBuffer(w.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode wav: %w", err)
		}

		frames := n / w.channels
		for i := range frames {
			in := w.buf.Data[i*w.channels : (i+1)*w.channels]
			out := frame[(filled+i)*spectrum.Channels : (filled+i+1)*spectrum.Channels]
			for c := range out {
				out[c] = w.sample(in[min(c, w.channels-1)])
			}
		}
		filled += frames
		if frames > 0 {
			rewound = false
			continue
		}

		// End of data. A second rewind in a row means the file is empty.
		if !w.loop || rewound {
			return io.EOF
		}
		// Rewind also seeks forward to the PCM chunk.
		if err := w.decoder.Rewind(); err != nil {
			return fmt.Errorf("failed to rewind wav: %w", err)
		}
		rewound = true
	}
	return nil
}

func (w *WAV) sample(v int) uint16 {
	v += w.offset
	if w.shift >= 0 {
		v >>= w.shift
	} else {
		v <<= -w.shift
	}
	return uint16(int16(v))
}

// Close releases the underlying file.
func (w *WAV) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
